package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/internal/repository"
	"github.com/freeeve/casus-belli/api/internal/service"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

const (
	// maxIterations bounds one seat's turn; hitting it forces an end-of-turn.
	maxIterations = 12
	// maxStalled ends a turn early after this many consecutive iterations
	// where actions were requested but none changed state.
	maxStalled = 3
	// maxResultLen truncates action results fed back into the conversation.
	maxResultLen = 4000

	nudgeMessage = "You did not request any action. Pick one of the available tools and act, or file a done report and end your turn."
)

// Engine is the slice of the rules engine the orchestrator drives. All
// mutation goes through it; the orchestrator never writes game state
// directly.
type Engine interface {
	State(ctx context.Context, gameID string) (*service.GameState, error)
	SnapshotFor(ctx context.Context, gameID, playerID string) (risk.Snapshot, error)
	PlaceTroops(ctx context.Context, gameID, playerID, territory string, troops int) (*model.Territory, error)
	Reinforce(ctx context.Context, gameID, playerID, territory string, troops int) (*model.Territory, error)
	TradeCards(ctx context.Context, gameID, playerID string, indices []int) (int, error)
	AdvancePhase(ctx context.Context, gameID, playerID string) (risk.Phase, error)
	Attack(ctx context.Context, gameID, playerID, from, to string, dice int) (*service.AttackResult, error)
	ConfirmConquest(ctx context.Context, gameID, playerID string, troops int) (*service.GameState, error)
	MoveTroops(ctx context.Context, gameID, playerID, from, to string, troops int) error
	Checkpoint(ctx context.Context, gameID, playerID, report string) error
	EndTurn(ctx context.Context, gameID, playerID string) (*model.Game, error)
	ForceEndTurn(ctx context.Context, gameID, playerID, reason string) (*model.Game, error)
}

// Orchestrator plays one model-held seat's turn end to end: build the
// situation report, loop model calls, screen every requested action
// against a fresh snapshot, and guarantee the turn terminates.
type Orchestrator struct {
	engine    Engine
	gateway   ModelGateway
	knowledge KnowledgeService
	cache     repository.TurnStatusCache
	auditLog  repository.GameLogRepository
}

// NewOrchestrator creates an Orchestrator. knowledge may be nil, in which
// case query_history reports the archive as unavailable.
func NewOrchestrator(engine Engine, gateway ModelGateway, knowledge KnowledgeService,
	cache repository.TurnStatusCache, auditLog repository.GameLogRepository) *Orchestrator {
	return &Orchestrator{
		engine:    engine,
		gateway:   gateway,
		knowledge: knowledge,
		cache:     cache,
		auditLog:  auditLog,
	}
}

// RunTurn plays the seat's whole turn. A non-nil error means the turn
// failed; the terminal status record is written either way, even on panic.
func (o *Orchestrator) RunTurn(ctx context.Context, gameID, playerID string) (err error) {
	state, err := o.engine.State(ctx, gameID)
	if err != nil {
		return err
	}
	player := findPlayer(state.Players, playerID)
	if player == nil {
		return fmt.Errorf("player %s not in game %s", playerID, gameID)
	}
	if state.Game.CurrentPlayerID != playerID {
		return fmt.Errorf("game %s: not %s's turn", gameID, player.Nation)
	}
	turn := state.Game.CurrentTurn

	iterations := 0
	forced := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("turn panicked: %v", r)
		}
		status := model.TurnStatusCompleted
		detail := ""
		if err != nil {
			status = model.TurnStatusError
			detail = err.Error()
		}
		o.setStatus(context.WithoutCancel(ctx), &model.TurnStatus{
			GameID: gameID, PlayerID: playerID, Turn: turn,
			Status: status, Detail: detail, Iterations: iterations, Forced: forced,
		})
		o.publishSnapshot(context.WithoutCancel(ctx), gameID)
	}()
	o.setStatus(ctx, &model.TurnStatus{
		GameID: gameID, PlayerID: playerID, Turn: turn, Status: model.TurnStatusRunning,
	})

	conv := []Message{
		SystemMessage(SystemPrompt()),
		UserMessage(BuildSituationReport(state.Game, player, state.Players, state.Territories)),
	}
	tools := ActionTools()
	stalled := 0

	for iterations < maxIterations {
		iterations++
		o.setStatus(ctx, &model.TurnStatus{
			GameID: gameID, PlayerID: playerID, Turn: turn,
			Status: model.TurnStatusRunning, Iterations: iterations,
		})

		resp, err := o.gateway.Send(ctx, Request{Model: player.Model, Messages: conv, Tools: tools})
		if err != nil {
			return fmt.Errorf("model call failed on iteration %d: %w", iterations, err)
		}
		conv = append(conv, AssistantMessage(resp))

		if len(resp.Calls) == 0 {
			conv = append(conv, UserMessage(nudgeMessage))
			continue
		}

		progressed := false
		for _, call := range resp.Calls {
			outcome := o.execute(ctx, gameID, playerID, turn, call)
			if outcome.fatal != nil {
				return outcome.fatal
			}
			conv = append(conv, ToolResultMessage(call.ID, truncateResult(outcome.result)))
			if outcome.changed {
				progressed = true
			}
			if outcome.turnOver {
				return nil
			}
		}

		if progressed {
			stalled = 0
			continue
		}
		stalled++
		if stalled >= maxStalled {
			forced = true
			if _, err := o.engine.ForceEndTurn(ctx, gameID, playerID, "no progress in 3 iterations"); err != nil {
				return fmt.Errorf("force end turn: %w", err)
			}
			return nil
		}
	}

	forced = true
	if _, err := o.engine.ForceEndTurn(ctx, gameID, playerID, "max iterations reached"); err != nil {
		return fmt.Errorf("force end turn: %w", err)
	}
	return nil
}

type outcome struct {
	result   string
	changed  bool
	turnOver bool
	fatal    error
}

type actionResult struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Hint   string `json:"hint,omitempty"`
	Result any    `json:"result,omitempty"`
}

func rejected(errMsg, hint string) outcome {
	return outcome{result: encode(actionResult{OK: false, Error: errMsg, Hint: hint})}
}

func succeeded(result any, changed bool) outcome {
	return outcome{result: encode(actionResult{OK: true, Result: result}), changed: changed}
}

// execute runs one requested action: parse, screen against a fresh
// snapshot, then dispatch to the engine. Rejections and engine errors are
// absorbed into the result; only collaborator failures are fatal.
func (o *Orchestrator) execute(ctx context.Context, gameID, playerID string, turn int, call ToolCall) outcome {
	kind, err := risk.ParseActionKind(call.Name)
	if err != nil {
		return rejected(err.Error(), "use one of the provided tools")
	}

	snap, err := o.engine.SnapshotFor(ctx, gameID, playerID)
	if err != nil {
		return rejected("could not read game state: "+err.Error(), "try again")
	}
	if res := risk.Validate(kind, snap); !res.Valid {
		return rejected(res.Error, res.Hint)
	}

	switch kind {
	case risk.ActionPlaceTroops, risk.ActionReinforce:
		var args struct {
			Territory string `json:"territory"`
			Troops    int    `json:"troops"`
		}
		if err := decodeArgs(call.Arguments, &args); err != nil {
			return rejected(err.Error(), "")
		}
		var terr *model.Territory
		if kind == risk.ActionPlaceTroops {
			terr, err = o.engine.PlaceTroops(ctx, gameID, playerID, args.Territory, args.Troops)
		} else {
			terr, err = o.engine.Reinforce(ctx, gameID, playerID, args.Territory, args.Troops)
		}
		if err != nil {
			return engineRejected(err)
		}
		return succeeded(terr, true)

	case risk.ActionAttack:
		var args struct {
			From string `json:"from"`
			To   string `json:"to"`
			Dice int    `json:"dice"`
		}
		if err := decodeArgs(call.Arguments, &args); err != nil {
			return rejected(err.Error(), "")
		}
		result, err := o.engine.Attack(ctx, gameID, playerID, args.From, args.To, args.Dice)
		if err != nil {
			return engineRejected(err)
		}
		return succeeded(result, true)

	case risk.ActionConfirmConquest:
		var args struct {
			Troops int `json:"troops"`
		}
		if err := decodeArgs(call.Arguments, &args); err != nil {
			return rejected(err.Error(), "")
		}
		state, err := o.engine.ConfirmConquest(ctx, gameID, playerID, args.Troops)
		if err != nil {
			return engineRejected(err)
		}
		out := succeeded(map[string]any{"status": state.Game.Status, "phase": state.Game.Phase}, true)
		out.turnOver = state.Game.Status == risk.StatusFinished
		return out

	case risk.ActionMoveTroops:
		var args struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Troops int    `json:"troops"`
		}
		if err := decodeArgs(call.Arguments, &args); err != nil {
			return rejected(err.Error(), "")
		}
		if err := o.engine.MoveTroops(ctx, gameID, playerID, args.From, args.To, args.Troops); err != nil {
			return engineRejected(err)
		}
		return succeeded(fmt.Sprintf("moved %d troops from %s to %s", args.Troops, args.From, args.To), true)

	case risk.ActionTradeCards:
		var args struct {
			CardIndices []int `json:"card_indices"`
		}
		if err := decodeArgs(call.Arguments, &args); err != nil {
			return rejected(err.Error(), "")
		}
		bonus, err := o.engine.TradeCards(ctx, gameID, playerID, args.CardIndices)
		if err != nil {
			return engineRejected(err)
		}
		return succeeded(fmt.Sprintf("traded cards for %d bonus reinforcements", bonus), true)

	case risk.ActionAdvancePhase:
		phase, err := o.engine.AdvancePhase(ctx, gameID, playerID)
		if err != nil {
			return engineRejected(err)
		}
		return succeeded(fmt.Sprintf("now in %s phase", phase), true)

	case risk.ActionDone:
		var args struct {
			Report string `json:"report"`
		}
		if err := decodeArgs(call.Arguments, &args); err != nil {
			return rejected(err.Error(), "")
		}
		if err := o.engine.Checkpoint(ctx, gameID, playerID, args.Report); err != nil {
			return engineRejected(err)
		}
		return succeeded("report filed, you may now end_turn", true)

	case risk.ActionEndTurn:
		if _, err := o.engine.EndTurn(ctx, gameID, playerID); err != nil {
			return engineRejected(err)
		}
		out := succeeded("turn ended", true)
		out.turnOver = true
		return out

	case risk.ActionQueryHistory:
		return o.queryHistory(ctx, gameID, playerID, turn, call)

	default:
		return rejected(fmt.Sprintf("action %s is not executable", kind), "")
	}
}

// queryHistory defers to the archive with the game's simulated date as a
// hard cutoff, and surfaces how many hits were suppressed for postdating
// it, both to the model and to the audit log.
func (o *Orchestrator) queryHistory(ctx context.Context, gameID, playerID string, turn int, call ToolCall) outcome {
	var args struct {
		Question string `json:"question"`
	}
	if err := decodeArgs(call.Arguments, &args); err != nil {
		return rejected(err.Error(), "")
	}
	if o.knowledge == nil {
		return rejected("the archive is not available in this game", "")
	}

	state, err := o.engine.State(ctx, gameID)
	if err != nil {
		return rejected("could not read game state: "+err.Error(), "try again")
	}
	result, err := o.knowledge.Query(ctx, gameID, args.Question, state.Game.CurrentDate)
	if err != nil {
		return outcome{fatal: fmt.Errorf("knowledge query failed: %w", err)}
	}

	if err := o.auditLog.Append(ctx, gameID, turn, playerID, "query_history", map[string]any{
		"question":      args.Question,
		"returned":      len(result.Snippets),
		"blocked_count": result.BlockedCount,
		"cutoff":        state.Game.CurrentDate.Format("2006-01-02"),
	}); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("append query_history log")
	}

	return succeeded(map[string]any{
		"snippets":      result.Snippets,
		"returned":      len(result.Snippets),
		"blocked_count": result.BlockedCount,
		"note":          fmt.Sprintf("%d results suppressed for postdating %s", result.BlockedCount, state.Game.CurrentDate.Format("2 January 2006")),
	}, false)
}

// publishSnapshot refreshes the cached observer snapshot from the
// authoritative state once the turn is over. Best effort; the snapshot
// endpoint falls back to a live read when nothing is cached.
func (o *Orchestrator) publishSnapshot(ctx context.Context, gameID string) {
	if o.cache == nil {
		return
	}
	state, err := o.engine.State(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("read state for snapshot")
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("marshal snapshot")
		return
	}
	if err := o.cache.SetGameSnapshot(ctx, gameID, data); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("set game snapshot")
	}
}

func (o *Orchestrator) setStatus(ctx context.Context, status *model.TurnStatus) {
	if o.cache == nil {
		return
	}
	if err := o.cache.SetTurnStatus(ctx, status); err != nil {
		log.Warn().Err(err).Str("game_id", status.GameID).Msg("set turn status")
	}
}

func engineRejected(err error) outcome {
	if re, ok := service.AsRuleError(err); ok {
		return rejected(re.Message, re.Hint)
	}
	return rejected(err.Error(), "")
}

func decodeArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	return nil
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":"encode result: %v"}`, err)
	}
	return string(data)
}

func truncateResult(s string) string {
	if len(s) <= maxResultLen {
		return s
	}
	return s[:maxResultLen] + "…(truncated)"
}

func findPlayer(players []model.Player, id string) *model.Player {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}
