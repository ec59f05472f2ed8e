package risk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveAttackLossConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for attackerDice := 1; attackerDice <= 3; attackerDice++ {
		for defenderTroops := 1; defenderTroops <= 5; defenderTroops++ {
			for i := 0; i < 200; i++ {
				res, err := ResolveAttack(rng, attackerDice, defenderTroops)
				require.NoError(t, err)

				defenderDice := defenderTroops
				if defenderDice > MaxDefenderDice {
					defenderDice = MaxDefenderDice
				}
				battles := attackerDice
				if defenderDice < battles {
					battles = defenderDice
				}

				require.Equal(t, battles, res.AttackerLosses+res.DefenderLosses,
					"total losses must equal the number of compared dice pairs")
				require.Len(t, res.AttackerDice, attackerDice)
				require.Len(t, res.DefenderDice, defenderDice)
			}
		}
	}
}

func TestResolveAttackDiceSortedAndInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		res, err := ResolveAttack(rng, 3, 2)
		require.NoError(t, err)

		for _, dice := range [][]int{res.AttackerDice, res.DefenderDice} {
			for j, d := range dice {
				require.GreaterOrEqual(t, d, 1)
				require.LessOrEqual(t, d, 6)
				if j > 0 {
					require.LessOrEqual(t, d, dice[j-1], "dice must be sorted descending")
				}
			}
		}
	}
}

func TestResolveAttackDefenderWinsTies(t *testing.T) {
	// Scan seeds for rolls that contain at least one tied pair and check
	// the tie never counts against the defender.
	tiesSeen := 0
	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		res, err := ResolveAttack(rng, 2, 2)
		require.NoError(t, err)

		wantAttackerLosses := 0
		for i := 0; i < 2; i++ {
			if res.AttackerDice[i] <= res.DefenderDice[i] {
				wantAttackerLosses++
			}
			if res.AttackerDice[i] == res.DefenderDice[i] {
				tiesSeen++
			}
		}
		require.Equal(t, wantAttackerLosses, res.AttackerLosses,
			"attacker must lose every pair that is not a strict win: %+v", res)
	}
	require.Greater(t, tiesSeen, 0, "expected at least one tied pair across seeds")
}

func TestResolveAttackSingleDefenderRollsOneDie(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	res, err := ResolveAttack(rng, 3, 1)
	require.NoError(t, err)
	require.Len(t, res.DefenderDice, 1)
	require.Equal(t, 1, res.AttackerLosses+res.DefenderLosses)
}

func TestResolveAttackZeroDefendersIsUncontested(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	res, err := ResolveAttack(rng, 3, 0)
	require.NoError(t, err)
	require.Len(t, res.AttackerDice, 3)
	require.Empty(t, res.DefenderDice)
	require.Zero(t, res.AttackerLosses)
	require.Zero(t, res.DefenderLosses)
}

func TestResolveAttackRejectsBadInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := ResolveAttack(rng, 0, 3)
	require.Error(t, err)
	_, err = ResolveAttack(rng, 4, 3)
	require.Error(t, err)
	_, err = ResolveAttack(rng, 2, -1)
	require.Error(t, err)
}
