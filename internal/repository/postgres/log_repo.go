package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/casus-belli/api/internal/model"
)

// GameLogRepo handles the append-only audit log.
type GameLogRepo struct {
	db *sql.DB
}

// NewGameLogRepo creates a GameLogRepo.
func NewGameLogRepo(db *sql.DB) *GameLogRepo {
	return &GameLogRepo{db: db}
}

// Append inserts one log entry. details is marshaled to JSON; entries are
// never updated or deleted afterwards.
func (r *GameLogRepo) Append(ctx context.Context, gameID string, turn int, playerID, action string, details any) error {
	var payload []byte
	if details != nil {
		var err error
		payload, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal log details: %w", err)
		}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_log (game_id, turn, player_id, action, details)
		 VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)`,
		gameID, turn, playerID, action, nullableJSON(payload),
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// ListByGame returns the most recent entries for a game, newest first.
func (r *GameLogRepo) ListByGame(ctx context.Context, gameID string, limit int) ([]model.GameLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, turn, player_id, action, details, created_at
		 FROM game_log WHERE game_id = $1 ORDER BY created_at DESC LIMIT $2`,
		gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("list log: %w", err)
	}
	defer rows.Close()

	var entries []model.GameLogEntry
	for rows.Next() {
		var e model.GameLogEntry
		var playerID sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.GameID, &e.Turn, &playerID, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		e.PlayerID = playerID.String
		e.Details = details
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
