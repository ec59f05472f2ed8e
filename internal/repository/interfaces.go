package repository

import (
	"context"
	"encoding/json"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// GameRepository defines game aggregate data operations. SaveTurnState
// patches every turn-scoped column (phase, current player, calendar,
// counters, flags, pending conquest) in a single atomic update.
type GameRepository interface {
	Create(ctx context.Context, game *model.Game) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	ListOpen(ctx context.Context) ([]model.Game, error)
	ListActive(ctx context.Context) ([]model.Game, error)
	ListByUser(ctx context.Context, userID string) ([]model.Game, error)
	ListFinished(ctx context.Context) ([]model.Game, error)
	SaveTurnState(ctx context.Context, game *model.Game) error
	SetActive(ctx context.Context, gameID string) error
	SetFinished(ctx context.Context, gameID, winnerID string) error
	Delete(ctx context.Context, gameID string) error
}

// PlayerRepository defines seat data operations.
type PlayerRepository interface {
	Create(ctx context.Context, player *model.Player) (*model.Player, error)
	FindByID(ctx context.Context, id string) (*model.Player, error)
	FindByGameAndUser(ctx context.Context, gameID, userID string) (*model.Player, error)
	ListByGame(ctx context.Context, gameID string) ([]model.Player, error)
	UpdateSetupTroops(ctx context.Context, playerID string, remaining int) error
	AssignUser(ctx context.Context, playerID, userID string) error
	UpdateCards(ctx context.Context, playerID string, cards []risk.CardType) error
	SetEliminated(ctx context.Context, playerID string) error
}

// TerritoryRepository defines territory data operations. Lookups by name
// accept either the stable name or the display alias, case-insensitively.
// UpdateTroopsPair applies two troop changes in one transaction; Transfer
// reassigns ownership and troop count atomically.
type TerritoryRepository interface {
	BulkCreate(ctx context.Context, territories []model.Territory) error
	FindByName(ctx context.Context, gameID, name string) (*model.Territory, error)
	ListByGame(ctx context.Context, gameID string) ([]model.Territory, error)
	ListByOwner(ctx context.Context, gameID, ownerID string) ([]model.Territory, error)
	CountByOwner(ctx context.Context, gameID, ownerID string) (int, error)
	UpdateTroops(ctx context.Context, territoryID string, troops int) error
	UpdateTroopsPair(ctx context.Context, aID string, aTroops int, bID string, bTroops int) error
	Transfer(ctx context.Context, territoryID, newOwnerID string, troops int) error
}

// GameLogRepository is the append-only audit log. Entries are never
// mutated after insert.
type GameLogRepository interface {
	Append(ctx context.Context, gameID string, turn int, playerID, action string, details any) error
	ListByGame(ctx context.Context, gameID string, limit int) ([]model.GameLogEntry, error)
}

// TurnStatusCache defines the live telemetry operations (Redis). Turn
// status records let observers tell whether a seat is still thinking.
type TurnStatusCache interface {
	SetTurnStatus(ctx context.Context, status *model.TurnStatus) error
	GetTurnStatus(ctx context.Context, gameID string) (*model.TurnStatus, error)
	SetGameSnapshot(ctx context.Context, gameID string, snapshot json.RawMessage) error
	GetGameSnapshot(ctx context.Context, gameID string) (json.RawMessage, error)
	ClearGameData(ctx context.Context, gameID string) error
}
