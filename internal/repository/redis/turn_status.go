package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/casus-belli/api/internal/model"
)

// Key layout: turn status and snapshots live per game and expire on their
// own so stale records from crashed processes eventually vanish.
const (
	turnStatusTTL = 24 * time.Hour
	snapshotTTL   = 24 * time.Hour
)

func turnStatusKey(gameID string) string {
	return "game:" + gameID + ":turn_status"
}

func snapshotKey(gameID string) string {
	return "game:" + gameID + ":snapshot"
}

// SetTurnStatus records the current seat's turn lifecycle state.
func (c *Client) SetTurnStatus(ctx context.Context, status *model.TurnStatus) error {
	status.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal turn status: %w", err)
	}
	if err := c.rdb.Set(ctx, turnStatusKey(status.GameID), data, turnStatusTTL).Err(); err != nil {
		return fmt.Errorf("set turn status: %w", err)
	}
	return nil
}

// GetTurnStatus returns the latest turn status for a game, or (nil, nil)
// when none is recorded.
func (c *Client) GetTurnStatus(ctx context.Context, gameID string) (*model.TurnStatus, error) {
	data, err := c.rdb.Get(ctx, turnStatusKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get turn status: %w", err)
	}
	var status model.TurnStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal turn status: %w", err)
	}
	return &status, nil
}

// SetGameSnapshot stores the latest public game snapshot for observers.
func (c *Client) SetGameSnapshot(ctx context.Context, gameID string, snapshot json.RawMessage) error {
	if err := c.rdb.Set(ctx, snapshotKey(gameID), []byte(snapshot), snapshotTTL).Err(); err != nil {
		return fmt.Errorf("set game snapshot: %w", err)
	}
	return nil
}

// GetGameSnapshot returns the latest snapshot, or (nil, nil) when absent.
func (c *Client) GetGameSnapshot(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game snapshot: %w", err)
	}
	return data, nil
}

// ClearGameData removes all live keys for a game.
func (c *Client) ClearGameData(ctx context.Context, gameID string) error {
	if err := c.rdb.Del(ctx, turnStatusKey(gameID), snapshotKey(gameID)).Err(); err != nil {
		return fmt.Errorf("clear game data: %w", err)
	}
	return nil
}
