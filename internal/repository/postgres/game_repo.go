package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// GameRepo handles game aggregate database operations.
type GameRepo struct {
	db      *sql.DB
	players *PlayerRepo
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db, players: NewPlayerRepo(db)}
}

const gameColumns = `id, name, creator_id, scenario, status, phase, current_turn, current_player_id,
	sim_date, reinforcements_remaining, fortify_used, has_done_checkpoint, conquered_this_turn,
	card_trade_count, pending_conquest, winner_id, created_at, started_at, finished_at`

// Create inserts a new game in waiting status.
func (r *GameRepo) Create(ctx context.Context, game *model.Game) (*model.Game, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO games (name, creator_id, scenario, sim_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+gameColumns,
		game.Name, game.CreatorID, game.Scenario, game.CurrentDate,
	)
	created, err := scanGame(row)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return created, nil
}

// FindByID returns a game by ID with its players, or (nil, nil) if absent.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	game, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}

	players, err := r.players.ListByGame(ctx, id)
	if err != nil {
		return nil, err
	}
	game.Players = players
	return game, nil
}

// ListOpen returns games in waiting status, newest first.
func (r *GameRepo) ListOpen(ctx context.Context) ([]model.Game, error) {
	return r.list(ctx, `SELECT `+gameColumns+` FROM games WHERE status = 'waiting' ORDER BY created_at DESC LIMIT 50`)
}

// ListActive returns games in active status, oldest first, with players.
func (r *GameRepo) ListActive(ctx context.Context) ([]model.Game, error) {
	games, err := r.list(ctx, `SELECT `+gameColumns+` FROM games WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	for i := range games {
		players, err := r.players.ListByGame(ctx, games[i].ID)
		if err != nil {
			return nil, err
		}
		games[i].Players = players
	}
	return games, nil
}

// ListByUser returns all games a user has a seat in or created.
func (r *GameRepo) ListByUser(ctx context.Context, userID string) ([]model.Game, error) {
	return r.list(ctx,
		`SELECT DISTINCT `+prefixedGameColumns("g")+`
		 FROM games g LEFT JOIN players p ON g.id = p.game_id AND p.user_id = $1
		 WHERE p.user_id = $1 OR g.creator_id = $1
		 ORDER BY g.created_at DESC LIMIT 50`, userID)
}

// ListFinished returns finished games, most recently finished first.
func (r *GameRepo) ListFinished(ctx context.Context) ([]model.Game, error) {
	return r.list(ctx, `SELECT `+gameColumns+` FROM games WHERE status = 'finished' ORDER BY finished_at DESC LIMIT 100`)
}

// SaveTurnState patches every turn-scoped column in one atomic update.
func (r *GameRepo) SaveTurnState(ctx context.Context, game *model.Game) error {
	var pending []byte
	if game.PendingConquest != nil {
		var err error
		pending, err = json.Marshal(game.PendingConquest)
		if err != nil {
			return fmt.Errorf("marshal pending conquest: %w", err)
		}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET phase = $1, current_turn = $2, current_player_id = NULLIF($3, '')::uuid,
		        sim_date = $4, reinforcements_remaining = $5, fortify_used = $6,
		        has_done_checkpoint = $7, conquered_this_turn = $8, card_trade_count = $9,
		        pending_conquest = $10
		 WHERE id = $11`,
		nullIfEmpty(string(game.Phase)), game.CurrentTurn, game.CurrentPlayerID,
		game.CurrentDate, game.ReinforcementsRemaining, game.FortifyUsed,
		game.HasDoneCheckpoint, game.ConqueredThisTurn, game.CardTradeCount,
		nullableJSON(pending), game.ID,
	)
	if err != nil {
		return fmt.Errorf("save turn state: %w", err)
	}
	return nil
}

// SetActive marks a game as started.
func (r *GameRepo) SetActive(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'active', started_at = now() WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// SetFinished marks a game as finished with a winner.
func (r *GameRepo) SetFinished(ctx context.Context, gameID, winnerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'finished', winner_id = NULLIF($1, '')::uuid, finished_at = now() WHERE id = $2`,
		winnerID, gameID)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// Delete removes a game; players, territories, and log entries cascade.
func (r *GameRepo) Delete(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

func (r *GameRepo) list(ctx context.Context, query string, args ...any) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *game)
	}
	return games, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (*model.Game, error) {
	var g model.Game
	var phase, currentPlayerID, winnerID sql.NullString
	var pending []byte
	err := s.Scan(&g.ID, &g.Name, &g.CreatorID, &g.Scenario, &g.Status, &phase, &g.CurrentTurn,
		&currentPlayerID, &g.CurrentDate, &g.ReinforcementsRemaining, &g.FortifyUsed,
		&g.HasDoneCheckpoint, &g.ConqueredThisTurn, &g.CardTradeCount, &pending,
		&winnerID, &g.CreatedAt, &g.StartedAt, &g.FinishedAt)
	if err != nil {
		return nil, err
	}
	g.Phase = phaseFromNull(phase)
	g.CurrentPlayerID = currentPlayerID.String
	g.WinnerID = winnerID.String
	if len(pending) > 0 {
		var pc model.PendingConquest
		if err := json.Unmarshal(pending, &pc); err != nil {
			return nil, fmt.Errorf("unmarshal pending conquest: %w", err)
		}
		g.PendingConquest = &pc
	}
	return &g, nil
}

func prefixedGameColumns(alias string) string {
	return alias + `.id, ` + alias + `.name, ` + alias + `.creator_id, ` + alias + `.scenario, ` +
		alias + `.status, ` + alias + `.phase, ` + alias + `.current_turn, ` + alias + `.current_player_id, ` +
		alias + `.sim_date, ` + alias + `.reinforcements_remaining, ` + alias + `.fortify_used, ` +
		alias + `.has_done_checkpoint, ` + alias + `.conquered_this_turn, ` + alias + `.card_trade_count, ` +
		alias + `.pending_conquest, ` + alias + `.winner_id, ` + alias + `.created_at, ` +
		alias + `.started_at, ` + alias + `.finished_at`
}

func phaseFromNull(s sql.NullString) risk.Phase {
	if !s.Valid {
		return ""
	}
	return risk.Phase(s.String)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
