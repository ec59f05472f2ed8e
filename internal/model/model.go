package model

import (
	"encoding/json"
	"time"

	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// User represents a registered user. Model seats get a synthetic user row.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PendingConquest is the window between a capturing attack and the
// attacker's confirmation of how many troops occupy the taken territory.
// While one is open no other mutation on the game may proceed.
type PendingConquest struct {
	FromTerritory string `json:"from_territory"`
	ToTerritory   string `json:"to_territory"`
	MinTroops     int    `json:"min_troops"`
	MaxTroops     int    `json:"max_troops"`
	PreviousOwner string `json:"previous_owner,omitempty"`
}

// Game is the per-game aggregate. The engine service is the only writer;
// the trade counter, fortify flag, and pending conquest live here rather
// than in any caller's hands.
type Game struct {
	ID                      string           `json:"id"`
	Name                    string           `json:"name"`
	CreatorID               string           `json:"creator_id"`
	Scenario                string           `json:"scenario"`
	Status                  risk.Status      `json:"status"`
	Phase                   risk.Phase       `json:"phase,omitempty"`
	CurrentTurn             int              `json:"current_turn"`
	CurrentPlayerID         string           `json:"current_player_id,omitempty"`
	CurrentDate             time.Time        `json:"current_date"`
	ReinforcementsRemaining int              `json:"reinforcements_remaining"`
	FortifyUsed             bool             `json:"fortify_used"`
	HasDoneCheckpoint       bool             `json:"has_done_checkpoint"`
	ConqueredThisTurn       bool             `json:"conquered_this_turn"`
	CardTradeCount          int              `json:"card_trade_count"`
	PendingConquest         *PendingConquest `json:"pending_conquest,omitempty"`
	WinnerID                string           `json:"winner_id,omitempty"`
	CreatedAt               time.Time        `json:"created_at"`
	StartedAt               *time.Time       `json:"started_at,omitempty"`
	FinishedAt              *time.Time       `json:"finished_at,omitempty"`
	Players                 []Player         `json:"players,omitempty"`
}

// Player is a seat in a game, human or model-driven.
type Player struct {
	ID                   string          `json:"id"`
	GameID               string          `json:"game_id"`
	UserID               string          `json:"user_id,omitempty"`
	Nation               string          `json:"nation"`
	IsHuman              bool            `json:"is_human"`
	Model                string          `json:"model,omitempty"`
	IsEliminated         bool            `json:"is_eliminated"`
	SetupTroopsRemaining int             `json:"setup_troops_remaining"`
	Cards                []risk.CardType `json:"cards"`
	JoinedAt             time.Time       `json:"joined_at"`
}

// Snapshot builds the validator's view of the game from the perspective of
// the given player. Callers must pass rows read immediately beforehand.
func Snapshot(g *Game, p *Player) risk.Snapshot {
	snap := risk.Snapshot{
		Status:                  g.Status,
		Phase:                   g.Phase,
		HasPendingConquest:      g.PendingConquest != nil,
		HasDoneCheckpoint:       g.HasDoneCheckpoint,
		ReinforcementsRemaining: g.ReinforcementsRemaining,
		FortifyUsed:             g.FortifyUsed,
	}
	if p != nil {
		snap.IsCurrentPlayer = g.CurrentPlayerID == p.ID
		snap.SetupTroopsRemaining = p.SetupTroopsRemaining
	}
	return snap
}

// Territory is one node of the scenario map. Troops is >= 1 while owned,
// except for the instant after a conquest while the occupation is pending.
type Territory struct {
	ID          string   `json:"id"`
	GameID      string   `json:"game_id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	OwnerID     string   `json:"owner_id,omitempty"`
	Troops      int      `json:"troops"`
	AdjacentTo  []string `json:"adjacent_to"`
	Region      string   `json:"region"`
}

// GameLogEntry is the append-only audit record for every successful action.
type GameLogEntry struct {
	ID        string          `json:"id"`
	GameID    string          `json:"game_id"`
	Turn      int             `json:"turn"`
	PlayerID  string          `json:"player_id,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Turn lifecycle statuses recorded for observers while a seat plays.
const (
	TurnStatusRunning   = "running"
	TurnStatusCompleted = "completed"
	TurnStatusError     = "error"
)

// TurnStatus is the telemetry record describing whether a seat is still
// thinking, written at orchestrator loop start and end.
type TurnStatus struct {
	GameID     string    `json:"game_id"`
	PlayerID   string    `json:"player_id"`
	Turn       int       `json:"turn"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	Iterations int       `json:"iterations"`
	Forced     bool      `json:"forced"`
	UpdatedAt  time.Time `json:"updated_at"`
}
