package risk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func activeSnapshot(phase Phase) Snapshot {
	return Snapshot{
		Status:          StatusActive,
		Phase:           phase,
		IsCurrentPlayer: true,
	}
}

func TestValidateRejectsOutOfTurn(t *testing.T) {
	snap := activeSnapshot(PhaseAttack)
	snap.IsCurrentPlayer = false

	res := Validate(ActionAttack, snap)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "not your turn")
}

func TestValidateRejectsInactiveGame(t *testing.T) {
	snap := activeSnapshot(PhaseAttack)
	snap.Status = StatusWaiting

	res := Validate(ActionAttack, snap)
	require.False(t, res.Valid)
}

func TestValidatePendingConquestFreezesEverythingButConfirm(t *testing.T) {
	snap := activeSnapshot(PhaseAttack)
	snap.HasPendingConquest = true

	for _, kind := range AllActions() {
		res := Validate(kind, snap)
		if kind == ActionConfirmConquest {
			require.True(t, res.Valid, "%s must stay legal", kind)
		} else {
			require.False(t, res.Valid, "%s must be frozen while a conquest is pending", kind)
			require.NotEmpty(t, res.Hint)
		}
	}
}

func TestValidatePhaseGates(t *testing.T) {
	tests := []struct {
		kind  ActionKind
		snap  Snapshot
		valid bool
	}{
		{ActionPlaceTroops, Snapshot{Status: StatusActive, Phase: PhaseSetup, IsCurrentPlayer: true, SetupTroopsRemaining: 5}, true},
		{ActionPlaceTroops, Snapshot{Status: StatusActive, Phase: PhaseSetup, IsCurrentPlayer: true, SetupTroopsRemaining: 0}, false},
		{ActionPlaceTroops, activeSnapshot(PhaseReinforce), false},
		{ActionReinforce, Snapshot{Status: StatusActive, Phase: PhaseReinforce, IsCurrentPlayer: true, ReinforcementsRemaining: 3}, true},
		{ActionReinforce, activeSnapshot(PhaseReinforce), false},
		{ActionReinforce, activeSnapshot(PhaseAttack), false},
		{ActionAttack, activeSnapshot(PhaseAttack), true},
		{ActionAttack, activeSnapshot(PhaseFortify), false},
		{ActionMoveTroops, activeSnapshot(PhaseFortify), true},
		{ActionMoveTroops, activeSnapshot(PhaseAttack), false},
		{ActionTradeCards, activeSnapshot(PhaseReinforce), true},
		{ActionTradeCards, activeSnapshot(PhaseAttack), false},
		{ActionConfirmConquest, activeSnapshot(PhaseAttack), false},
		{ActionQueryHistory, activeSnapshot(PhaseSetup), true},
		{ActionQueryHistory, activeSnapshot(PhaseFortify), true},
	}
	for _, tt := range tests {
		res := Validate(tt.kind, tt.snap)
		require.Equal(t, tt.valid, res.Valid, "%s in %s: %s", tt.kind, tt.snap.Phase, res.Error)
		if !tt.valid {
			require.NotEmpty(t, res.Error)
		}
	}
}

func TestValidateFortifyOncePerTurn(t *testing.T) {
	snap := activeSnapshot(PhaseFortify)
	snap.FortifyUsed = true

	res := Validate(ActionMoveTroops, snap)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "already fortified")
}

func TestValidateAdvancePhase(t *testing.T) {
	withReinforcements := activeSnapshot(PhaseReinforce)
	withReinforcements.ReinforcementsRemaining = 2
	res := Validate(ActionAdvancePhase, withReinforcements)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "2 reinforcements")

	require.True(t, Validate(ActionAdvancePhase, activeSnapshot(PhaseReinforce)).Valid)
	require.True(t, Validate(ActionAdvancePhase, activeSnapshot(PhaseAttack)).Valid)
	require.False(t, Validate(ActionAdvancePhase, activeSnapshot(PhaseFortify)).Valid)
	require.False(t, Validate(ActionAdvancePhase, activeSnapshot(PhaseSetup)).Valid)
}

func TestValidateEndTurnRequiresCheckpoint(t *testing.T) {
	snap := activeSnapshot(PhaseFortify)
	res := Validate(ActionEndTurn, snap)
	require.False(t, res.Valid)
	require.Contains(t, res.Error, "done")

	snap.HasDoneCheckpoint = true
	require.True(t, Validate(ActionEndTurn, snap).Valid)

	// Done itself is illegal outside attack/fortify.
	require.False(t, Validate(ActionDone, activeSnapshot(PhaseReinforce)).Valid)
	require.True(t, Validate(ActionDone, activeSnapshot(PhaseAttack)).Valid)
}

func TestValidateUnknownActionRejected(t *testing.T) {
	res := Validate(ActionUnknown, activeSnapshot(PhaseAttack))
	require.False(t, res.Valid)
}

func TestAdmissibleActionsMenu(t *testing.T) {
	snap := Snapshot{
		Status:                  StatusActive,
		Phase:                   PhaseReinforce,
		IsCurrentPlayer:         true,
		ReinforcementsRemaining: 5,
	}
	kinds := AdmissibleActions(snap)
	require.Contains(t, kinds, ActionReinforce)
	require.Contains(t, kinds, ActionTradeCards)
	require.Contains(t, kinds, ActionQueryHistory)
	require.NotContains(t, kinds, ActionAttack)
	require.NotContains(t, kinds, ActionAdvancePhase)
}

func TestParseActionKindRoundTrip(t *testing.T) {
	for _, kind := range AllActions() {
		parsed, err := ParseActionKind(kind.String())
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}

	_, err := ParseActionKind("launch_nukes")
	require.Error(t, err)
}

func TestDominationTarget(t *testing.T) {
	require.Equal(t, 3, DominationTarget(4))
	require.Equal(t, 32, DominationTarget(42))
	require.Equal(t, 30, DominationTarget(40))
	require.Equal(t, 1, DominationTarget(1))
}
