package risk

import (
	"fmt"
	"math/rand"
	"sort"
)

// Dice limits for a single attack roll.
const (
	MaxAttackerDice = 3
	MaxDefenderDice = 2
)

// CombatResult holds the outcome of one attack roll. The raw die sequences
// are kept (sorted descending) so callers can log and display the roll.
type CombatResult struct {
	AttackerDice   []int `json:"attacker_dice"`
	DefenderDice   []int `json:"defender_dice"`
	AttackerLosses int   `json:"attacker_losses"`
	DefenderLosses int   `json:"defender_losses"`
}

// ResolveAttack rolls one round of combat. attackerDice must be 1..3; the
// defender rolls min(2, defenderTroops) dice, so an empty territory rolls
// none and nobody loses anything. Dice are compared pairwise from highest
// to highest; the defender wins ties. Pure apart from the injected random
// source.
func ResolveAttack(rng *rand.Rand, attackerDice, defenderTroops int) (CombatResult, error) {
	if attackerDice < 1 || attackerDice > MaxAttackerDice {
		return CombatResult{}, fmt.Errorf("attacker dice must be between 1 and %d, got %d", MaxAttackerDice, attackerDice)
	}
	if defenderTroops < 0 {
		return CombatResult{}, fmt.Errorf("defender troops must not be negative, got %d", defenderTroops)
	}

	defenderDice := defenderTroops
	if defenderDice > MaxDefenderDice {
		defenderDice = MaxDefenderDice
	}

	res := CombatResult{
		AttackerDice: rollSorted(rng, attackerDice),
		DefenderDice: rollSorted(rng, defenderDice),
	}

	battles := attackerDice
	if defenderDice < battles {
		battles = defenderDice
	}
	for i := 0; i < battles; i++ {
		if res.AttackerDice[i] > res.DefenderDice[i] {
			res.DefenderLosses++
		} else {
			res.AttackerLosses++
		}
	}
	return res, nil
}

// rollSorted rolls n d6 and returns them sorted descending.
func rollSorted(rng *rand.Rand, n int) []int {
	dice := make([]int, n)
	for i := range dice {
		dice[i] = rng.Intn(6) + 1
	}
	sort.Sort(sort.Reverse(sort.IntSlice(dice)))
	return dice
}
