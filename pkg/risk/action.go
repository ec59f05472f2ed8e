package risk

import "fmt"

// ActionKind enumerates every action a seat can request. The set is closed:
// both the validator and the engine switch exhaustively over it, so adding
// an action is a compile-time-checked change at both sites.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionPlaceTroops
	ActionReinforce
	ActionAttack
	ActionConfirmConquest
	ActionMoveTroops
	ActionTradeCards
	ActionAdvancePhase
	ActionDone
	ActionEndTurn
	ActionQueryHistory
)

var actionNames = map[ActionKind]string{
	ActionPlaceTroops:     "place_troops",
	ActionReinforce:       "reinforce",
	ActionAttack:          "attack",
	ActionConfirmConquest: "confirm_conquest",
	ActionMoveTroops:      "move_troops",
	ActionTradeCards:      "trade_cards",
	ActionAdvancePhase:    "advance_phase",
	ActionDone:            "done",
	ActionEndTurn:         "end_turn",
	ActionQueryHistory:    "query_history",
}

// String returns the wire name of the action.
func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// AllActions returns every recognized action kind in a stable order.
func AllActions() []ActionKind {
	return []ActionKind{
		ActionPlaceTroops, ActionReinforce, ActionAttack, ActionConfirmConquest,
		ActionMoveTroops, ActionTradeCards, ActionAdvancePhase, ActionDone,
		ActionEndTurn, ActionQueryHistory,
	}
}

// ParseActionKind maps a wire name to its ActionKind.
func ParseActionKind(name string) (ActionKind, error) {
	for k, n := range actionNames {
		if n == name {
			return k, nil
		}
	}
	return ActionUnknown, fmt.Errorf("unrecognized action %q", name)
}

// Mutates reports whether a successful execution of the action changes game
// state. QueryHistory is the only read-only action; Done flips a turn flag
// and counts as a mutation for progress tracking.
func (k ActionKind) Mutates() bool {
	return k != ActionQueryHistory && k != ActionUnknown
}
