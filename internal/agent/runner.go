package agent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/internal/repository"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// TurnRunner scans active games and plays any seat whose turn it is and
// which is model-held. One turn per game runs at a time; games proceed
// independently of each other.
type TurnRunner struct {
	games    repository.GameRepository
	orch     *Orchestrator
	interval time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewTurnRunner creates a TurnRunner polling at the given interval.
func NewTurnRunner(games repository.GameRepository, orch *Orchestrator, interval time.Duration) *TurnRunner {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &TurnRunner{
		games:    games,
		orch:     orch,
		interval: interval,
		inFlight: make(map[string]bool),
	}
}

// Start runs the polling loop until ctx is canceled.
func (r *TurnRunner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.interval).Msg("turn runner started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("turn runner stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *TurnRunner) tick(ctx context.Context) {
	games, err := r.games.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list active games")
		return
	}
	for i := range games {
		game := &games[i]
		seat := currentModelSeat(game)
		if seat == nil {
			continue
		}
		if !r.claim(game.ID) {
			continue
		}
		go r.runTurn(ctx, game.ID, seat.ID, seat.Nation)
	}
}

func (r *TurnRunner) runTurn(ctx context.Context, gameID, playerID, nation string) {
	defer r.release(gameID)

	log.Info().Str("game_id", gameID).Str("nation", nation).Msg("playing model seat turn")
	if err := r.orch.RunTurn(ctx, gameID, playerID); err != nil {
		log.Error().Err(err).Str("game_id", gameID).Str("nation", nation).Msg("model seat turn failed")
		return
	}
	log.Info().Str("game_id", gameID).Str("nation", nation).Msg("model seat turn finished")
}

func (r *TurnRunner) claim(gameID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight[gameID] {
		return false
	}
	r.inFlight[gameID] = true
	return true
}

func (r *TurnRunner) release(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, gameID)
}

func currentModelSeat(game *model.Game) *model.Player {
	if game.Status != risk.StatusActive || game.CurrentPlayerID == "" {
		return nil
	}
	for i := range game.Players {
		p := &game.Players[i]
		if p.ID == game.CurrentPlayerID && !p.IsHuman && !p.IsEliminated {
			return p
		}
	}
	return nil
}
