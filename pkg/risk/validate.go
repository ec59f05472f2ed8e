package risk

import "fmt"

// Snapshot is the slice of game state the validator needs. Callers must
// build it from a fresh read immediately before asking; a stale snapshot
// gives stale answers.
type Snapshot struct {
	Status                  Status
	Phase                   Phase
	IsCurrentPlayer         bool
	HasPendingConquest      bool
	HasDoneCheckpoint       bool
	ReinforcementsRemaining int
	SetupTroopsRemaining    int
	FortifyUsed             bool
}

// Result is the validator's verdict. Error and Hint are only set when the
// action is inadmissible; Hint suggests what the caller could do instead.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

func reject(msg, hint string) Result {
	return Result{Valid: false, Error: msg, Hint: hint}
}

func rejectf(hint, format string, args ...any) Result {
	return Result{Valid: false, Error: fmt.Sprintf(format, args...), Hint: hint}
}

var ok = Result{Valid: true}

// Validate decides whether an action is admissible given the snapshot. It
// mirrors the engine's own phase and flag guards so a doomed request can be
// turned away before any store access; parameter-level checks (troop
// counts, adjacency, card indices) still happen inside the engine against
// the freshest rows.
func Validate(kind ActionKind, snap Snapshot) Result {
	if snap.Status != StatusActive {
		return rejectf("wait for the game to start", "game is %s, not active", snap.Status)
	}
	if !snap.IsCurrentPlayer {
		return reject("it is not your turn", "wait for your turn to come around")
	}

	if snap.HasPendingConquest && kind != ActionConfirmConquest {
		return reject(
			"a conquest is awaiting confirmation",
			"call confirm_conquest with how many troops should occupy the captured territory",
		)
	}

	switch kind {
	case ActionPlaceTroops:
		if snap.Phase != PhaseSetup {
			return rejectf("initial placement only happens during setup", "place_troops is only legal in the setup phase, current phase is %s", snap.Phase)
		}
		if snap.SetupTroopsRemaining <= 0 {
			return reject("you have no setup troops left to place", "wait for the other players to finish their placement")
		}
		return ok

	case ActionReinforce:
		if snap.Phase != PhaseReinforce {
			return rejectf("reinforcements are placed at the start of your turn", "reinforce is only legal in the reinforce phase, current phase is %s", snap.Phase)
		}
		if snap.ReinforcementsRemaining <= 0 {
			return reject("no reinforcements remaining", "advance to the attack phase with advance_phase")
		}
		return ok

	case ActionAttack:
		if snap.Phase != PhaseAttack {
			return rejectf("attacks happen in the attack phase", "attack is only legal in the attack phase, current phase is %s", snap.Phase)
		}
		return ok

	case ActionConfirmConquest:
		if !snap.HasPendingConquest {
			return reject("there is no conquest to confirm", "confirm_conquest is only legal right after an attack captures a territory")
		}
		return ok

	case ActionMoveTroops:
		if snap.Phase != PhaseFortify {
			return rejectf("fortifying happens at the end of your turn", "move_troops is only legal in the fortify phase, current phase is %s", snap.Phase)
		}
		if snap.FortifyUsed {
			return reject("you have already fortified this turn", "only one fortify move is allowed per turn; end your turn with end_turn")
		}
		return ok

	case ActionTradeCards:
		if snap.Phase != PhaseReinforce {
			return rejectf("cards are traded while reinforcing", "trade_cards is only legal in the reinforce phase, current phase is %s", snap.Phase)
		}
		return ok

	case ActionAdvancePhase:
		switch snap.Phase {
		case PhaseReinforce:
			if snap.ReinforcementsRemaining > 0 {
				return rejectf("place them with reinforce before advancing", "you still have %d reinforcements to place", snap.ReinforcementsRemaining)
			}
			return ok
		case PhaseAttack:
			return ok
		default:
			return rejectf("use end_turn to finish the fortify phase", "advance_phase is not legal in the %s phase", snap.Phase)
		}

	case ActionDone:
		if snap.Phase != PhaseAttack && snap.Phase != PhaseFortify {
			return rejectf("finish reinforcing first", "done is only legal in the attack or fortify phase, current phase is %s", snap.Phase)
		}
		return ok

	case ActionEndTurn:
		if snap.Phase != PhaseAttack && snap.Phase != PhaseFortify {
			return rejectf("finish reinforcing first", "end_turn is only legal in the attack or fortify phase, current phase is %s", snap.Phase)
		}
		if !snap.HasDoneCheckpoint {
			return reject("you must report done before ending your turn", "call done with a short self-report, then end_turn")
		}
		return ok

	case ActionQueryHistory:
		return ok
	}

	return reject("unrecognized action", "pick one of the listed actions")
}

// AdmissibleActions returns every action the validator would currently
// accept, in the stable AllActions order. Used to build the action menu
// shown to a model seat.
func AdmissibleActions(snap Snapshot) []ActionKind {
	var kinds []ActionKind
	for _, k := range AllActions() {
		if Validate(k, snap).Valid {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
