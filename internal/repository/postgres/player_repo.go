package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// PlayerRepo handles seat database operations.
type PlayerRepo struct {
	db *sql.DB
}

// NewPlayerRepo creates a PlayerRepo.
func NewPlayerRepo(db *sql.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

const playerColumns = `id, game_id, user_id, nation, is_human, model, is_eliminated,
	setup_troops_remaining, cards, joined_at`

// Create inserts a new seat.
func (r *PlayerRepo) Create(ctx context.Context, player *model.Player) (*model.Player, error) {
	cards, err := json.Marshal(emptyIfNil(player.Cards))
	if err != nil {
		return nil, fmt.Errorf("marshal cards: %w", err)
	}
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO players (game_id, user_id, nation, is_human, model, setup_troops_remaining, cards)
		 VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7)
		 RETURNING `+playerColumns,
		player.GameID, player.UserID, player.Nation, player.IsHuman, player.Model,
		player.SetupTroopsRemaining, cards,
	)
	created, err := scanPlayer(row)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return created, nil
}

// FindByID returns a seat by ID, or (nil, nil) if absent.
func (r *PlayerRepo) FindByID(ctx context.Context, id string) (*model.Player, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	player, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return player, nil
}

// FindByGameAndUser returns the seat a user holds in a game, or (nil, nil).
func (r *PlayerRepo) FindByGameAndUser(ctx context.Context, gameID, userID string) (*model.Player, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE game_id = $1 AND user_id = $2`, gameID, userID)
	player, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find player by user: %w", err)
	}
	return player, nil
}

// ListByGame returns all seats in a game in join order.
func (r *PlayerRepo) ListByGame(ctx context.Context, gameID string) ([]model.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE game_id = $1 ORDER BY joined_at, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, *player)
	}
	return players, rows.Err()
}

// UpdateSetupTroops sets a seat's remaining setup troops.
func (r *PlayerRepo) UpdateSetupTroops(ctx context.Context, playerID string, remaining int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE players SET setup_troops_remaining = $1 WHERE id = $2`, remaining, playerID)
	if err != nil {
		return fmt.Errorf("update setup troops: %w", err)
	}
	return nil
}

// AssignUser binds a user to a seat, converting a model seat to a human one.
func (r *PlayerRepo) AssignUser(ctx context.Context, playerID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE players SET user_id = NULLIF($1, '')::uuid, is_human = true, model = '' WHERE id = $2`,
		userID, playerID)
	if err != nil {
		return fmt.Errorf("assign user: %w", err)
	}
	return nil
}

// UpdateCards replaces a seat's card hand.
func (r *PlayerRepo) UpdateCards(ctx context.Context, playerID string, cards []risk.CardType) error {
	data, err := json.Marshal(emptyIfNil(cards))
	if err != nil {
		return fmt.Errorf("marshal cards: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `UPDATE players SET cards = $1 WHERE id = $2`, data, playerID)
	if err != nil {
		return fmt.Errorf("update cards: %w", err)
	}
	return nil
}

// SetEliminated marks a seat as eliminated.
func (r *PlayerRepo) SetEliminated(ctx context.Context, playerID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE players SET is_eliminated = true WHERE id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("set eliminated: %w", err)
	}
	return nil
}

func scanPlayer(s scanner) (*model.Player, error) {
	var p model.Player
	var userID sql.NullString
	var cards []byte
	err := s.Scan(&p.ID, &p.GameID, &userID, &p.Nation, &p.IsHuman, &p.Model, &p.IsEliminated,
		&p.SetupTroopsRemaining, &cards, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	p.UserID = userID.String
	if len(cards) > 0 {
		if err := json.Unmarshal(cards, &p.Cards); err != nil {
			return nil, fmt.Errorf("unmarshal cards: %w", err)
		}
	}
	return &p, nil
}

func emptyIfNil(cards []risk.CardType) []risk.CardType {
	if cards == nil {
		return []risk.CardType{}
	}
	return cards
}
