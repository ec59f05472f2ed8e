package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/internal/repository"
	"github.com/freeeve/casus-belli/api/internal/scenario"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// Broadcaster pushes game events to connected observers. The websocket hub
// implements it; tests and batch tools use NopBroadcaster.
type Broadcaster interface {
	Broadcast(gameID, eventType string, data any)
}

// NopBroadcaster discards all events.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(string, string, any) {}

// Event types pushed to observers on engine mutations.
const (
	EventTerritoryUpdate = "territory_update"
	EventCombatResult    = "combat_result"
	EventConquestPending = "conquest_pending"
	EventPhaseChanged    = "phase_changed"
	EventTurnChanged     = "turn_changed"
	EventPlayerOut       = "player_eliminated"
	EventGameEnded       = "game_ended"
)

// EngineService is the rules engine: the single owner of all game
// mutation. Every operation re-reads the freshest rows, re-validates its
// preconditions against them, applies the change in as few store calls as
// possible (one transaction where two records change together), and
// appends an audit log entry. Nothing else in the codebase writes game
// state.
type EngineService struct {
	games       repository.GameRepository
	players     repository.PlayerRepository
	territories repository.TerritoryRepository
	log         repository.GameLogRepository
	hub         Broadcaster

	diceMu sync.Mutex
	dice   *rand.Rand

	scenarioMu sync.Mutex
	scenarios  map[string]*scenario.Scenario
}

// NewEngineService creates an EngineService. rng feeds combat dice and
// card draws; tests inject a seeded source.
func NewEngineService(
	games repository.GameRepository,
	players repository.PlayerRepository,
	territories repository.TerritoryRepository,
	log repository.GameLogRepository,
	hub Broadcaster,
	rng *rand.Rand,
) *EngineService {
	if hub == nil {
		hub = NopBroadcaster{}
	}
	return &EngineService{
		games:       games,
		players:     players,
		territories: territories,
		log:         log,
		hub:         hub,
		dice:        rng,
		scenarios:   make(map[string]*scenario.Scenario),
	}
}

// GameState is the full authoritative snapshot handed to callers.
type GameState struct {
	Game        *model.Game       `json:"game"`
	Players     []model.Player    `json:"players"`
	Territories []model.Territory `json:"territories"`
}

// State returns a fresh full snapshot of a game.
func (s *EngineService) State(ctx context.Context, gameID string) (*GameState, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	territories, err := s.territories.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return &GameState{Game: game, Players: game.Players, Territories: territories}, nil
}

// SnapshotFor builds the validator's view for one player from fresh reads.
func (s *EngineService) SnapshotFor(ctx context.Context, gameID, playerID string) (risk.Snapshot, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return risk.Snapshot{}, err
	}
	return model.Snapshot(game, player), nil
}

// PlaceTroops places initial troops during the setup phase. When the last
// setup troop of the whole game is placed, the game moves to turn 1.
func (s *EngineService) PlaceTroops(ctx context.Context, gameID, playerID, territoryName string, troops int) (*model.Territory, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(risk.ActionPlaceTroops, game, player); err != nil {
		return nil, err
	}
	if troops < 1 {
		return nil, ruleErrorf("place at least one troop", "troop count must be positive, got %d", troops)
	}
	if troops > player.SetupTroopsRemaining {
		return nil, ruleErrorf(
			fmt.Sprintf("you have %d setup troops left", player.SetupTroopsRemaining),
			"cannot place %d troops with %d remaining", troops, player.SetupTroopsRemaining)
	}

	territory, err := s.ownTerritory(ctx, game, player, territoryName)
	if err != nil {
		return nil, err
	}

	territory.Troops += troops
	if err := s.territories.UpdateTroops(ctx, territory.ID, territory.Troops); err != nil {
		return nil, err
	}
	player.SetupTroopsRemaining -= troops
	if err := s.players.UpdateSetupTroops(ctx, player.ID, player.SetupTroopsRemaining); err != nil {
		return nil, err
	}

	if err := s.advanceSetup(ctx, game); err != nil {
		return nil, err
	}

	s.appendLog(ctx, game, player.ID, "place_troops", map[string]any{
		"territory": territory.Name,
		"troops":    troops,
		"remaining": player.SetupTroopsRemaining,
	})
	s.hub.Broadcast(game.ID, EventTerritoryUpdate, territory)
	return territory, nil
}

// advanceSetup moves the setup turn to the next seat with troops left, or
// starts turn 1 when everyone has placed everything.
func (s *EngineService) advanceSetup(ctx context.Context, game *model.Game) error {
	players, err := s.players.ListByGame(ctx, game.ID)
	if err != nil {
		return err
	}

	anyRemaining := false
	for _, p := range players {
		if p.SetupTroopsRemaining > 0 {
			anyRemaining = true
			break
		}
	}
	if !anyRemaining {
		return s.startTurn(ctx, game, players, firstAlive(players), 1)
	}

	// Rotate to the next seat that still has troops to place.
	idx := indexOf(players, game.CurrentPlayerID)
	for i := 1; i <= len(players); i++ {
		candidate := players[(idx+i)%len(players)]
		if candidate.SetupTroopsRemaining > 0 {
			game.CurrentPlayerID = candidate.ID
			break
		}
	}
	return s.games.SaveTurnState(ctx, game)
}

// Reinforce places reinforcement troops on an owned territory.
func (s *EngineService) Reinforce(ctx context.Context, gameID, playerID, territoryName string, troops int) (*model.Territory, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(risk.ActionReinforce, game, player); err != nil {
		return nil, err
	}
	if troops < 1 {
		return nil, ruleErrorf("place at least one troop", "troop count must be positive, got %d", troops)
	}
	if troops > game.ReinforcementsRemaining {
		return nil, ruleErrorf(
			fmt.Sprintf("you have %d reinforcements left", game.ReinforcementsRemaining),
			"cannot place %d troops with %d remaining", troops, game.ReinforcementsRemaining)
	}

	territory, err := s.ownTerritory(ctx, game, player, territoryName)
	if err != nil {
		return nil, err
	}

	territory.Troops += troops
	if err := s.territories.UpdateTroops(ctx, territory.ID, territory.Troops); err != nil {
		return nil, err
	}
	game.ReinforcementsRemaining -= troops
	if err := s.games.SaveTurnState(ctx, game); err != nil {
		return nil, err
	}

	s.appendLog(ctx, game, player.ID, "reinforce", map[string]any{
		"territory": territory.Name,
		"troops":    troops,
		"remaining": game.ReinforcementsRemaining,
	})
	s.hub.Broadcast(game.ID, EventTerritoryUpdate, territory)
	return territory, nil
}

// TradeCards exchanges a 3-card set for bonus reinforcements.
func (s *EngineService) TradeCards(ctx context.Context, gameID, playerID string, indices []int) (int, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return 0, err
	}
	if err := s.guard(risk.ActionTradeCards, game, player); err != nil {
		return 0, err
	}

	traded, err := risk.ValidateCardSet(player.Cards, indices)
	if err != nil {
		return 0, &RuleError{Message: err.Error(), Hint: "trade three of a kind or one card of each type"}
	}

	bonus := risk.TradeBonus(game.CardTradeCount)
	player.Cards = risk.RemoveCards(player.Cards, indices)
	if err := s.players.UpdateCards(ctx, player.ID, player.Cards); err != nil {
		return 0, err
	}
	game.CardTradeCount++
	game.ReinforcementsRemaining += bonus
	if err := s.games.SaveTurnState(ctx, game); err != nil {
		return 0, err
	}

	s.appendLog(ctx, game, player.ID, "trade_cards", map[string]any{
		"cards":       traded,
		"bonus":       bonus,
		"trade_count": game.CardTradeCount,
	})
	return bonus, nil
}

// AdvancePhase moves reinforce -> attack or attack -> fortify.
func (s *EngineService) AdvancePhase(ctx context.Context, gameID, playerID string) (risk.Phase, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return "", err
	}
	if err := s.guard(risk.ActionAdvancePhase, game, player); err != nil {
		return "", err
	}

	next, ok := game.Phase.Next()
	if !ok {
		return "", ruleErrorf("use end_turn instead", "no phase follows %s", game.Phase)
	}
	game.Phase = next
	if err := s.games.SaveTurnState(ctx, game); err != nil {
		return "", err
	}

	s.appendLog(ctx, game, player.ID, "advance_phase", map[string]any{"phase": next})
	s.hub.Broadcast(game.ID, EventPhaseChanged, map[string]any{"phase": next, "player_id": player.ID})
	return next, nil
}

// AttackResult reports one attack roll and its consequences.
type AttackResult struct {
	Combat          risk.CombatResult      `json:"combat"`
	Conquered       bool                   `json:"conquered"`
	FromTroops      int                    `json:"from_troops"`
	ToTroops        int                    `json:"to_troops"`
	PendingConquest *model.PendingConquest `json:"pending_conquest,omitempty"`
}

// Attack rolls one round of combat from an owned territory into an
// adjacent enemy one. If the defender is wiped out, ownership transfers
// immediately and a pending conquest opens; the occupying move waits for
// ConfirmConquest.
func (s *EngineService) Attack(ctx context.Context, gameID, playerID, fromName, toName string, diceCount int) (*AttackResult, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(risk.ActionAttack, game, player); err != nil {
		return nil, err
	}

	from, err := s.ownTerritory(ctx, game, player, fromName)
	if err != nil {
		return nil, err
	}
	to, err := s.findTerritory(ctx, game.ID, toName)
	if err != nil {
		return nil, err
	}
	if to.OwnerID == player.ID {
		return nil, ruleErrorf("pick an enemy territory", "%s is already yours", to.DisplayName)
	}
	if !containsName(from.AdjacentTo, to.Name) {
		return nil, ruleErrorf(
			fmt.Sprintf("%s borders: %s", from.DisplayName, joinNames(from.AdjacentTo)),
			"%s is not adjacent to %s", to.DisplayName, from.DisplayName)
	}
	if diceCount < 1 || diceCount > risk.MaxAttackerDice {
		return nil, ruleErrorf("attack with 1, 2, or 3 dice", "dice count must be between 1 and %d, got %d", risk.MaxAttackerDice, diceCount)
	}
	if from.Troops < diceCount+1 {
		return nil, ruleErrorf(
			"you must leave one troop behind; attack with fewer dice or reinforce first",
			"attacking with %d dice requires at least %d troops in %s, you have %d",
			diceCount, diceCount+1, from.DisplayName, from.Troops)
	}
	if to.Troops < 1 {
		return nil, ruleErrorf("that territory is already undefended", "%s has no troops to fight", to.DisplayName)
	}

	combat, err := s.roll(diceCount, to.Troops)
	if err != nil {
		return nil, err
	}

	result := &AttackResult{
		Combat:     combat,
		FromTroops: from.Troops - combat.AttackerLosses,
		ToTroops:   to.Troops - combat.DefenderLosses,
	}

	if result.ToTroops <= 0 {
		// Conquest: ownership flips now, troops move on confirmation.
		result.ToTroops = 0
		result.Conquered = true
		if err := s.territories.Transfer(ctx, to.ID, player.ID, 0); err != nil {
			return nil, err
		}
		if err := s.territories.UpdateTroops(ctx, from.ID, result.FromTroops); err != nil {
			return nil, err
		}
		game.PendingConquest = &model.PendingConquest{
			FromTerritory: from.Name,
			ToTerritory:   to.Name,
			MinTroops:     diceCount,
			MaxTroops:     result.FromTroops - 1,
			PreviousOwner: to.OwnerID,
		}
		result.PendingConquest = game.PendingConquest
		if err := s.games.SaveTurnState(ctx, game); err != nil {
			return nil, err
		}
		s.hub.Broadcast(game.ID, EventConquestPending, game.PendingConquest)
	} else {
		if err := s.territories.UpdateTroopsPair(ctx, from.ID, result.FromTroops, to.ID, result.ToTroops); err != nil {
			return nil, err
		}
	}

	s.appendLog(ctx, game, player.ID, "attack", map[string]any{
		"from":            from.Name,
		"to":              to.Name,
		"dice":            diceCount,
		"attacker_dice":   combat.AttackerDice,
		"defender_dice":   combat.DefenderDice,
		"attacker_losses": combat.AttackerLosses,
		"defender_losses": combat.DefenderLosses,
		"conquered":       result.Conquered,
	})
	s.hub.Broadcast(game.ID, EventCombatResult, result)
	return result, nil
}

// ConfirmConquest moves occupying troops into a just-conquered territory,
// closes the pending conquest, and runs elimination and win checks.
func (s *EngineService) ConfirmConquest(ctx context.Context, gameID, playerID string, troopsToMove int) (*GameState, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(risk.ActionConfirmConquest, game, player); err != nil {
		return nil, err
	}

	pc := game.PendingConquest
	if troopsToMove < pc.MinTroops {
		return nil, ruleErrorf(
			"you must occupy with at least as many troops as the dice you rolled",
			"must move at least %d troops into %s, got %d", pc.MinTroops, pc.ToTerritory, troopsToMove)
	}
	if troopsToMove > pc.MaxTroops {
		return nil, ruleErrorf(
			"one troop must stay behind in the attacking territory",
			"can move at most %d troops into %s, got %d", pc.MaxTroops, pc.ToTerritory, troopsToMove)
	}

	from, err := s.findTerritory(ctx, game.ID, pc.FromTerritory)
	if err != nil {
		return nil, err
	}
	to, err := s.findTerritory(ctx, game.ID, pc.ToTerritory)
	if err != nil {
		return nil, err
	}
	if err := s.territories.UpdateTroopsPair(ctx, from.ID, from.Troops-troopsToMove, to.ID, troopsToMove); err != nil {
		return nil, err
	}

	previousOwner := pc.PreviousOwner
	game.PendingConquest = nil
	game.ConqueredThisTurn = true
	if err := s.games.SaveTurnState(ctx, game); err != nil {
		return nil, err
	}

	s.appendLog(ctx, game, player.ID, "confirm_conquest", map[string]any{
		"from":   from.Name,
		"to":     to.Name,
		"troops": troopsToMove,
	})
	s.hub.Broadcast(game.ID, EventTerritoryUpdate, map[string]any{
		"from": from.Name, "to": to.Name, "troops": troopsToMove, "owner_id": player.ID,
	})

	// Territory transfer and elimination bookkeeping belong to the same
	// logical step: the previous owner may have just lost their last
	// territory.
	if previousOwner != "" {
		if err := s.checkElimination(ctx, game, previousOwner); err != nil {
			return nil, err
		}
	}
	if err := s.checkVictory(ctx, game); err != nil {
		return nil, err
	}
	return s.State(ctx, gameID)
}

// MoveTroops is the fortify move: one per turn, along a connected chain of
// the player's own territories.
func (s *EngineService) MoveTroops(ctx context.Context, gameID, playerID, fromName, toName string, count int) error {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	if err := s.guard(risk.ActionMoveTroops, game, player); err != nil {
		return err
	}

	from, err := s.ownTerritory(ctx, game, player, fromName)
	if err != nil {
		return err
	}
	to, err := s.ownTerritory(ctx, game, player, toName)
	if err != nil {
		return err
	}
	if count < 1 {
		return ruleErrorf("move at least one troop", "troop count must be positive, got %d", count)
	}
	if count >= from.Troops {
		return ruleErrorf(
			"one troop must stay behind",
			"cannot move %d troops out of %s, which holds %d", count, from.DisplayName, from.Troops)
	}

	all, err := s.territories.ListByGame(ctx, game.ID)
	if err != nil {
		return err
	}
	adjacency := make(map[string][]string, len(all))
	owners := make(map[string]string, len(all))
	for _, t := range all {
		adjacency[t.Name] = t.AdjacentTo
		owners[t.Name] = t.OwnerID
	}
	if !risk.Connected(from.Name, to.Name, player.ID, adjacency, owners) {
		return ruleErrorf(
			"fortify only works along an unbroken chain of your own territories",
			"%s and %s are not connected through your territory", from.DisplayName, to.DisplayName)
	}

	if err := s.territories.UpdateTroopsPair(ctx, from.ID, from.Troops-count, to.ID, to.Troops+count); err != nil {
		return err
	}
	game.FortifyUsed = true
	if err := s.games.SaveTurnState(ctx, game); err != nil {
		return err
	}

	s.appendLog(ctx, game, player.ID, "move_troops", map[string]any{
		"from": from.Name, "to": to.Name, "troops": count,
	})
	s.hub.Broadcast(game.ID, EventTerritoryUpdate, map[string]any{
		"from": from.Name, "to": to.Name, "troops": count,
	})
	return nil
}

// Checkpoint records the seat's end-of-turn self-report. The engine will
// not accept EndTurn until this has fired for the current turn.
func (s *EngineService) Checkpoint(ctx context.Context, gameID, playerID, report string) error {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	if err := s.guard(risk.ActionDone, game, player); err != nil {
		return err
	}

	game.HasDoneCheckpoint = true
	if err := s.games.SaveTurnState(ctx, game); err != nil {
		return err
	}
	s.appendLog(ctx, game, player.ID, "done", map[string]any{"report": truncate(report, 2000)})
	return nil
}

// EndTurn closes the current turn and hands the game to the next seat.
func (s *EngineService) EndTurn(ctx context.Context, gameID, playerID string) (*model.Game, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(risk.ActionEndTurn, game, player); err != nil {
		return nil, err
	}
	return s.nextTurn(ctx, game, player)
}

// ForceEndTurn ends a turn without the checkpoint requirement. Used by the
// orchestrator when a model seat hits its iteration cap; logged as forced.
// During setup the seat's remaining troops are placed automatically so the
// setup round keeps rotating.
func (s *EngineService) ForceEndTurn(ctx context.Context, gameID, playerID, reason string) (*model.Game, error) {
	game, player, err := s.fetch(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if game.Status != risk.StatusActive {
		return nil, ruleErrorf("", "game is %s, not active", game.Status)
	}
	if game.CurrentPlayerID != player.ID {
		return nil, ruleErrorf("", "it is not this seat's turn")
	}
	if game.PendingConquest != nil {
		// Resolve the hanging conquest with the minimum legal move so the
		// game is never left frozen by an absent seat.
		if _, err := s.ConfirmConquest(ctx, gameID, playerID, game.PendingConquest.MinTroops); err != nil {
			return nil, err
		}
		game, _, err = s.fetch(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		if game.Status != risk.StatusActive {
			return game, nil
		}
	}
	if game.Phase == risk.PhaseSetup {
		return s.forceSetupPlacement(ctx, game, player, reason)
	}

	s.appendLog(ctx, game, player.ID, "turn_forced", map[string]any{"reason": reason})
	return s.nextTurn(ctx, game, player)
}

// forceSetupPlacement spreads a seat's remaining setup troops evenly
// across its territories and rotates the setup turn onward, so an absent
// or capped seat never wedges the setup round.
func (s *EngineService) forceSetupPlacement(ctx context.Context, game *model.Game, player *model.Player, reason string) (*model.Game, error) {
	owned, err := s.territories.ListByOwner(ctx, game.ID, player.ID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, fmt.Errorf("player %s owns no territories during setup in game %s", player.ID, game.ID)
	}

	remaining := player.SetupTroopsRemaining
	per := remaining / len(owned)
	extra := remaining % len(owned)
	for i := range owned {
		add := per
		if i < extra {
			add++
		}
		if add == 0 {
			continue
		}
		owned[i].Troops += add
		if err := s.territories.UpdateTroops(ctx, owned[i].ID, owned[i].Troops); err != nil {
			return nil, err
		}
		s.hub.Broadcast(game.ID, EventTerritoryUpdate, owned[i])
	}
	if err := s.players.UpdateSetupTroops(ctx, player.ID, 0); err != nil {
		return nil, err
	}

	s.appendLog(ctx, game, player.ID, "setup_forced", map[string]any{
		"reason": reason,
		"troops": remaining,
	})
	if err := s.advanceSetup(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// nextTurn performs the turn handoff: card draw for a conquering outgoing
// seat, win checks, next-seat selection, reinforcement recalculation, and
// calendar advance.
func (s *EngineService) nextTurn(ctx context.Context, game *model.Game, outgoing *model.Player) (*model.Game, error) {
	if game.ConqueredThisTurn {
		if err := s.drawCard(ctx, game, outgoing); err != nil {
			return nil, err
		}
	}

	players, err := s.players.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVictory(ctx, game); err != nil {
		return nil, err
	}
	if game.Status == risk.StatusFinished {
		return game, nil
	}

	idx := indexOf(players, game.CurrentPlayerID)
	var next *model.Player
	for i := 1; i <= len(players); i++ {
		candidate := players[(idx+i)%len(players)]
		if !candidate.IsEliminated {
			next = &candidate
			break
		}
	}
	if next == nil {
		return nil, fmt.Errorf("no eligible next player in game %s", game.ID)
	}

	return game, s.startTurn(ctx, game, players, next, game.CurrentTurn+1)
}

// startTurn hands the game to a seat: recomputes reinforcements, advances
// the simulated calendar, and clears the per-turn flags.
func (s *EngineService) startTurn(ctx context.Context, game *model.Game, players []model.Player, next *model.Player, turn int) error {
	scen, err := s.scenario(game.Scenario)
	if err != nil {
		return err
	}

	owned, err := s.territories.ListByOwner(ctx, game.ID, next.ID)
	if err != nil {
		return err
	}
	reinforcements := s.computeReinforcements(scen, next, owned)

	game.CurrentTurn = turn
	game.CurrentPlayerID = next.ID
	game.Phase = risk.PhaseReinforce
	game.ReinforcementsRemaining = reinforcements
	game.FortifyUsed = false
	game.HasDoneCheckpoint = false
	game.ConqueredThisTurn = false
	game.PendingConquest = nil
	if turn > 1 {
		game.CurrentDate = game.CurrentDate.AddDate(0, 0, scen.TurnIncrementDays)
	}
	if err := s.games.SaveTurnState(ctx, game); err != nil {
		return err
	}

	s.appendLog(ctx, game, next.ID, "turn_started", map[string]any{
		"turn":           turn,
		"nation":         next.Nation,
		"reinforcements": reinforcements,
		"date":           game.CurrentDate.Format("2006-01-02"),
	})
	s.hub.Broadcast(game.ID, EventTurnChanged, map[string]any{
		"turn":           turn,
		"player_id":      next.ID,
		"nation":         next.Nation,
		"reinforcements": reinforcements,
		"date":           game.CurrentDate.Format("2006-01-02"),
	})
	return nil
}

// computeReinforcements is the reinforce-phase arithmetic: max(3, owned/3)
// plus a bonus for each fully-held region plus any scenario nation bonus.
func (s *EngineService) computeReinforcements(scen *scenario.Scenario, player *model.Player, owned []model.Territory) int {
	base := len(owned) / 3
	if base < 3 {
		base = 3
	}

	ownedPerRegion := make(map[string]int)
	for _, t := range owned {
		ownedPerRegion[t.Region]++
	}
	regionSizes := scen.RegionSizes()
	for region, count := range ownedPerRegion {
		if count == regionSizes[region] {
			base += scen.RegionBonus(region)
		}
	}

	base += scen.NationBonuses[player.Nation]
	return base
}

// drawCard gives the outgoing seat one random card for conquering this
// turn, unless their hand is full.
func (s *EngineService) drawCard(ctx context.Context, game *model.Game, player *model.Player) error {
	if len(player.Cards) >= risk.HandLimit {
		s.appendLog(ctx, game, player.ID, "card_draw_skipped", map[string]any{"hand_size": len(player.Cards)})
		return nil
	}
	types := risk.AllCardTypes()
	s.diceMu.Lock()
	card := types[s.dice.Intn(len(types))]
	s.diceMu.Unlock()

	player.Cards = append(player.Cards, card)
	if err := s.players.UpdateCards(ctx, player.ID, player.Cards); err != nil {
		return err
	}
	s.appendLog(ctx, game, player.ID, "card_drawn", map[string]any{"card": card})
	return nil
}

// checkElimination marks a seat eliminated if it owns no territory. Runs
// as part of the same logical step as the territory transfer that might
// have removed its last holding.
func (s *EngineService) checkElimination(ctx context.Context, game *model.Game, playerID string) error {
	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return err
	}
	if player == nil || player.IsEliminated {
		return nil
	}
	count, err := s.territories.CountByOwner(ctx, game.ID, playerID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := s.players.SetEliminated(ctx, playerID); err != nil {
		return err
	}
	s.appendLog(ctx, game, playerID, "player_eliminated", map[string]any{"nation": player.Nation})
	s.hub.Broadcast(game.ID, EventPlayerOut, map[string]any{"player_id": playerID, "nation": player.Nation})
	return nil
}

// checkVictory ends the game if only one seat survives or any seat holds a
// domination-winning share of the map.
func (s *EngineService) checkVictory(ctx context.Context, game *model.Game) error {
	players, err := s.players.ListByGame(ctx, game.ID)
	if err != nil {
		return err
	}
	territories, err := s.territories.ListByGame(ctx, game.ID)
	if err != nil {
		return err
	}

	ownedCount := make(map[string]int, len(players))
	for _, t := range territories {
		if t.OwnerID != "" {
			ownedCount[t.OwnerID]++
		}
	}

	var winner *model.Player
	var alive []model.Player
	for _, p := range players {
		if !p.IsEliminated {
			alive = append(alive, p)
		}
	}
	if len(alive) == 1 {
		winner = &alive[0]
	}
	if winner == nil {
		target := risk.DominationTarget(len(territories))
		for i := range alive {
			if ownedCount[alive[i].ID] >= target {
				winner = &alive[i]
				break
			}
		}
	}
	if winner == nil {
		return nil
	}

	if err := s.games.SetFinished(ctx, game.ID, winner.ID); err != nil {
		return err
	}
	game.Status = risk.StatusFinished
	game.WinnerID = winner.ID
	s.appendLog(ctx, game, winner.ID, "game_ended", map[string]any{
		"winner": winner.Nation, "territories": ownedCount[winner.ID],
	})
	s.hub.Broadcast(game.ID, EventGameEnded, map[string]any{
		"winner_id": winner.ID, "nation": winner.Nation,
	})
	return nil
}

// fetch reads fresh game and player rows, mapping absence to the
// not-found taxonomy.
func (s *EngineService) fetch(ctx context.Context, gameID, playerID string) (*model.Game, *model.Player, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	if game == nil {
		return nil, nil, ErrGameNotFound
	}
	player, err := s.players.FindByID(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}
	if player == nil || player.GameID != game.ID {
		return nil, nil, ErrPlayerNotFound
	}
	return game, player, nil
}

// guard runs the stateless validator against a fresh snapshot and maps a
// rejection to a RuleError.
func (s *EngineService) guard(kind risk.ActionKind, game *model.Game, player *model.Player) error {
	res := risk.Validate(kind, model.Snapshot(game, player))
	if !res.Valid {
		return &RuleError{Message: res.Error, Hint: res.Hint}
	}
	return nil
}

// ownTerritory resolves a territory by name and checks ownership.
func (s *EngineService) ownTerritory(ctx context.Context, game *model.Game, player *model.Player, name string) (*model.Territory, error) {
	territory, err := s.findTerritory(ctx, game.ID, name)
	if err != nil {
		return nil, err
	}
	if territory.OwnerID != player.ID {
		return nil, ruleErrorf("you can only use territories you own", "%s is not yours", territory.DisplayName)
	}
	return territory, nil
}

func (s *EngineService) findTerritory(ctx context.Context, gameID, name string) (*model.Territory, error) {
	territory, err := s.territories.FindByName(ctx, gameID, name)
	if err != nil {
		return nil, err
	}
	if territory == nil {
		return nil, fmt.Errorf("%w: %s", ErrTerritoryNotFound, name)
	}
	return territory, nil
}

func (s *EngineService) roll(diceCount, defenderTroops int) (risk.CombatResult, error) {
	s.diceMu.Lock()
	defer s.diceMu.Unlock()
	return risk.ResolveAttack(s.dice, diceCount, defenderTroops)
}

func (s *EngineService) scenario(name string) (*scenario.Scenario, error) {
	s.scenarioMu.Lock()
	defer s.scenarioMu.Unlock()
	if scen, ok := s.scenarios[name]; ok {
		return scen, nil
	}
	scen, err := scenario.Load(name)
	if err != nil {
		return nil, err
	}
	s.scenarios[name] = scen
	return scen, nil
}

// appendLog writes an audit entry; log failures are not allowed to undo an
// already-applied mutation, so they only surface in the server log.
func (s *EngineService) appendLog(ctx context.Context, game *model.Game, playerID, action string, details map[string]any) {
	if err := s.log.Append(ctx, game.ID, game.CurrentTurn, playerID, action, details); err != nil {
		logWarn(err, "append game log", game.ID, action)
	}
}

func firstAlive(players []model.Player) *model.Player {
	for i := range players {
		if !players[i].IsEliminated {
			return &players[i]
		}
	}
	return nil
}

func indexOf(players []model.Player, playerID string) int {
	for i := range players {
		if players[i].ID == playerID {
			return i
		}
	}
	return 0
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
