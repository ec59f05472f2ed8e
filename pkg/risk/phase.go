// Package risk implements the pure rules of the conquest game: dice combat,
// fortify connectivity, card exchange, and the action admissibility table.
// Nothing in this package touches storage; the engine service owns all
// mutation and calls in here to decide what is legal and what it does.
package risk

// Status is the lifecycle state of a game.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Phase is the turn phase of an active game.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseReinforce Phase = "reinforce"
	PhaseAttack    Phase = "attack"
	PhaseFortify   Phase = "fortify"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseSetup, PhaseReinforce, PhaseAttack, PhaseFortify:
		return true
	}
	return false
}

// Next returns the phase that follows p within a turn. Fortify has no
// successor phase; ending the turn is a separate operation.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseReinforce:
		return PhaseAttack, true
	case PhaseAttack:
		return PhaseFortify, true
	}
	return p, false
}

// DominationThreshold is the fraction of all territories a player must
// control to win by domination.
const DominationThreshold = 0.75

// DominationTarget returns the territory count needed for a domination win,
// rounding up.
func DominationTarget(totalTerritories int) int {
	target := totalTerritories * 3
	if target%4 == 0 {
		return target / 4
	}
	return target/4 + 1
}
