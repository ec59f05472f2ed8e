package risk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCardSetShapes(t *testing.T) {
	hand := []CardType{CardInfantry, CardInfantry, CardInfantry, CardCavalry, CardArtillery}

	t.Run("three of a kind", func(t *testing.T) {
		selected, err := ValidateCardSet(hand, []int{0, 1, 2})
		require.NoError(t, err)
		require.Equal(t, []CardType{CardInfantry, CardInfantry, CardInfantry}, selected)
	})

	t.Run("one of each", func(t *testing.T) {
		selected, err := ValidateCardSet(hand, []int{2, 3, 4})
		require.NoError(t, err)
		require.ElementsMatch(t, []CardType{CardInfantry, CardCavalry, CardArtillery}, selected)
	})

	t.Run("two and one rejected", func(t *testing.T) {
		_, err := ValidateCardSet(hand, []int{0, 1, 3})
		require.Error(t, err)
	})
}

func TestValidateCardSetBadIndices(t *testing.T) {
	hand := []CardType{CardInfantry, CardInfantry, CardInfantry}

	_, err := ValidateCardSet(hand, []int{0, 1})
	require.Error(t, err, "fewer than 3 indices")

	_, err = ValidateCardSet(hand, []int{0, 1, 1})
	require.Error(t, err, "duplicate index")

	_, err = ValidateCardSet(hand, []int{0, 1, 3})
	require.Error(t, err, "out of range index")

	_, err = ValidateCardSet(hand, []int{0, 1, -1})
	require.Error(t, err, "negative index")
}

func TestTradeBonusSchedule(t *testing.T) {
	want := map[int]int{
		0: 4, 1: 6, 2: 8, 3: 10, 4: 12, 5: 15, 6: 20,
		7: 20, 20: 20,
	}
	for count, bonus := range want {
		require.Equal(t, bonus, TradeBonus(count), "trade %d", count)
	}
}

func TestRemoveCardsPreservesOrder(t *testing.T) {
	hand := []CardType{CardInfantry, CardCavalry, CardArtillery, CardCavalry, CardInfantry}
	remaining := RemoveCards(hand, []int{1, 3, 4})
	require.Equal(t, []CardType{CardInfantry, CardArtillery}, remaining)
}
