package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// store is the shared in-memory backing for the mock repositories. Reads
// return deep copies so tests exercise the same re-fetch discipline the
// real repositories force.
type store struct {
	mu          sync.Mutex
	games       map[string]*model.Game
	players     map[string]*model.Player
	playerOrder map[string][]string
	territories map[string]*model.Territory
	terrOrder   map[string][]string
	logs        []model.GameLogEntry
}

func newStore() *store {
	return &store{
		games:       make(map[string]*model.Game),
		players:     make(map[string]*model.Player),
		playerOrder: make(map[string][]string),
		territories: make(map[string]*model.Territory),
		terrOrder:   make(map[string][]string),
	}
}

func copyGame(g *model.Game) *model.Game {
	out := *g
	if g.PendingConquest != nil {
		pc := *g.PendingConquest
		out.PendingConquest = &pc
	}
	out.Players = nil
	return &out
}

func copyPlayer(p *model.Player) *model.Player {
	out := *p
	out.Cards = append([]risk.CardType(nil), p.Cards...)
	return &out
}

func copyTerritory(t *model.Territory) *model.Territory {
	out := *t
	out.AdjacentTo = append([]string(nil), t.AdjacentTo...)
	return &out
}

type mockGameRepo struct{ s *store }

func (r *mockGameRepo) Create(_ context.Context, game *model.Game) (*model.Game, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g := copyGame(game)
	g.ID = uuid.NewString()
	g.Status = risk.StatusWaiting
	g.CreatedAt = time.Now()
	r.s.games[g.ID] = g
	return copyGame(g), nil
}

func (r *mockGameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	r.s.mu.Lock()
	g, ok := r.s.games[id]
	if !ok {
		r.s.mu.Unlock()
		return nil, nil
	}
	out := copyGame(g)
	r.s.mu.Unlock()

	players, err := (&mockPlayerRepo{s: r.s}).ListByGame(ctx, id)
	if err != nil {
		return nil, err
	}
	out.Players = players
	return out, nil
}

func (r *mockGameRepo) listByStatus(status risk.Status) []model.Game {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Game
	for _, g := range r.s.games {
		if g.Status == status {
			out = append(out, *copyGame(g))
		}
	}
	return out
}

func (r *mockGameRepo) ListOpen(context.Context) ([]model.Game, error) {
	return r.listByStatus(risk.StatusWaiting), nil
}

func (r *mockGameRepo) ListActive(ctx context.Context) ([]model.Game, error) {
	games := r.listByStatus(risk.StatusActive)
	for i := range games {
		players, err := (&mockPlayerRepo{s: r.s}).ListByGame(ctx, games[i].ID)
		if err != nil {
			return nil, err
		}
		games[i].Players = players
	}
	return games, nil
}

func (r *mockGameRepo) ListByUser(_ context.Context, userID string) ([]model.Game, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Game
	for _, g := range r.s.games {
		if g.CreatorID == userID {
			out = append(out, *copyGame(g))
		}
	}
	return out, nil
}

func (r *mockGameRepo) ListFinished(context.Context) ([]model.Game, error) {
	return r.listByStatus(risk.StatusFinished), nil
}

func (r *mockGameRepo) SaveTurnState(_ context.Context, game *model.Game) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.games[game.ID]
	if !ok {
		return nil
	}
	g.Phase = game.Phase
	g.CurrentTurn = game.CurrentTurn
	g.CurrentPlayerID = game.CurrentPlayerID
	g.CurrentDate = game.CurrentDate
	g.ReinforcementsRemaining = game.ReinforcementsRemaining
	g.FortifyUsed = game.FortifyUsed
	g.HasDoneCheckpoint = game.HasDoneCheckpoint
	g.ConqueredThisTurn = game.ConqueredThisTurn
	g.CardTradeCount = game.CardTradeCount
	if game.PendingConquest != nil {
		pc := *game.PendingConquest
		g.PendingConquest = &pc
	} else {
		g.PendingConquest = nil
	}
	return nil
}

func (r *mockGameRepo) SetActive(_ context.Context, gameID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if g, ok := r.s.games[gameID]; ok {
		g.Status = risk.StatusActive
		now := time.Now()
		g.StartedAt = &now
	}
	return nil
}

func (r *mockGameRepo) SetFinished(_ context.Context, gameID, winnerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if g, ok := r.s.games[gameID]; ok {
		g.Status = risk.StatusFinished
		g.WinnerID = winnerID
		now := time.Now()
		g.FinishedAt = &now
	}
	return nil
}

func (r *mockGameRepo) Delete(_ context.Context, gameID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.games, gameID)
	for _, id := range r.s.playerOrder[gameID] {
		delete(r.s.players, id)
	}
	delete(r.s.playerOrder, gameID)
	for _, id := range r.s.terrOrder[gameID] {
		delete(r.s.territories, id)
	}
	delete(r.s.terrOrder, gameID)
	return nil
}

type mockPlayerRepo struct{ s *store }

func (r *mockPlayerRepo) Create(_ context.Context, player *model.Player) (*model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := copyPlayer(player)
	p.ID = uuid.NewString()
	p.JoinedAt = time.Now()
	r.s.players[p.ID] = p
	r.s.playerOrder[p.GameID] = append(r.s.playerOrder[p.GameID], p.ID)
	return copyPlayer(p), nil
}

func (r *mockPlayerRepo) FindByID(_ context.Context, id string) (*model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, nil
	}
	return copyPlayer(p), nil
}

func (r *mockPlayerRepo) FindByGameAndUser(_ context.Context, gameID, userID string) (*model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.s.playerOrder[gameID] {
		p := r.s.players[id]
		if p.UserID == userID && userID != "" {
			return copyPlayer(p), nil
		}
	}
	return nil, nil
}

func (r *mockPlayerRepo) ListByGame(_ context.Context, gameID string) ([]model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Player
	for _, id := range r.s.playerOrder[gameID] {
		out = append(out, *copyPlayer(r.s.players[id]))
	}
	return out, nil
}

func (r *mockPlayerRepo) UpdateSetupTroops(_ context.Context, playerID string, remaining int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.players[playerID]; ok {
		p.SetupTroopsRemaining = remaining
	}
	return nil
}

func (r *mockPlayerRepo) AssignUser(_ context.Context, playerID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.players[playerID]; ok {
		p.UserID = userID
		p.IsHuman = true
		p.Model = ""
	}
	return nil
}

func (r *mockPlayerRepo) UpdateCards(_ context.Context, playerID string, cards []risk.CardType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.players[playerID]; ok {
		p.Cards = append([]risk.CardType(nil), cards...)
	}
	return nil
}

func (r *mockPlayerRepo) SetEliminated(_ context.Context, playerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.players[playerID]; ok {
		p.IsEliminated = true
	}
	return nil
}

type mockTerritoryRepo struct{ s *store }

func (r *mockTerritoryRepo) BulkCreate(_ context.Context, territories []model.Territory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range territories {
		t := copyTerritory(&territories[i])
		t.ID = uuid.NewString()
		r.s.territories[t.ID] = t
		r.s.terrOrder[t.GameID] = append(r.s.terrOrder[t.GameID], t.ID)
	}
	return nil
}

func (r *mockTerritoryRepo) FindByName(_ context.Context, gameID, name string) (*model.Territory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.s.terrOrder[gameID] {
		t := r.s.territories[id]
		if strings.EqualFold(t.Name, name) || strings.EqualFold(t.DisplayName, name) {
			return copyTerritory(t), nil
		}
	}
	return nil, nil
}

func (r *mockTerritoryRepo) ListByGame(_ context.Context, gameID string) ([]model.Territory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Territory
	for _, id := range r.s.terrOrder[gameID] {
		out = append(out, *copyTerritory(r.s.territories[id]))
	}
	return out, nil
}

func (r *mockTerritoryRepo) ListByOwner(_ context.Context, gameID, ownerID string) ([]model.Territory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Territory
	for _, id := range r.s.terrOrder[gameID] {
		t := r.s.territories[id]
		if t.OwnerID == ownerID {
			out = append(out, *copyTerritory(t))
		}
	}
	return out, nil
}

func (r *mockTerritoryRepo) CountByOwner(ctx context.Context, gameID, ownerID string) (int, error) {
	owned, err := r.ListByOwner(ctx, gameID, ownerID)
	return len(owned), err
}

func (r *mockTerritoryRepo) UpdateTroops(_ context.Context, territoryID string, troops int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.territories[territoryID]; ok {
		t.Troops = troops
	}
	return nil
}

func (r *mockTerritoryRepo) UpdateTroopsPair(ctx context.Context, aID string, aTroops int, bID string, bTroops int) error {
	if err := r.UpdateTroops(ctx, aID, aTroops); err != nil {
		return err
	}
	return r.UpdateTroops(ctx, bID, bTroops)
}

func (r *mockTerritoryRepo) Transfer(_ context.Context, territoryID, newOwnerID string, troops int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.territories[territoryID]; ok {
		t.OwnerID = newOwnerID
		t.Troops = troops
	}
	return nil
}

type mockLogRepo struct{ s *store }

func (r *mockLogRepo) Append(_ context.Context, gameID string, turn int, playerID, action string, details any) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	data, err := json.Marshal(details)
	if err != nil {
		return err
	}
	r.s.logs = append(r.s.logs, model.GameLogEntry{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Turn:      turn,
		PlayerID:  playerID,
		Action:    action,
		Details:   data,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *mockLogRepo) ListByGame(_ context.Context, gameID string, limit int) ([]model.GameLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.GameLogEntry
	for i := len(r.s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.logs[i].GameID == gameID {
			out = append(out, r.s.logs[i])
		}
	}
	return out, nil
}

func (r *mockLogRepo) actions(gameID string) []string {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, e := range r.s.logs {
		if e.GameID == gameID {
			out = append(out, e.Action)
		}
	}
	return out
}
