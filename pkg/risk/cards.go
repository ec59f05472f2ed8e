package risk

import "fmt"

// CardType is one of the three troop card designs.
type CardType string

const (
	CardInfantry  CardType = "infantry"
	CardCavalry   CardType = "cavalry"
	CardArtillery CardType = "artillery"
)

// AllCardTypes lists the card designs a drawn card can take.
func AllCardTypes() []CardType {
	return []CardType{CardInfantry, CardCavalry, CardArtillery}
}

// HandLimit is the most cards a player may hold; draws beyond it are skipped.
const HandLimit = 5

// tradeBonuses is the escalating troop award per successful trade. Trades
// past the end of the schedule award the final value.
var tradeBonuses = []int{4, 6, 8, 10, 12, 15, 20}

// TradeBonus returns the troop bonus for the nth trade of the game,
// 0-indexed across all players.
func TradeBonus(tradeCount int) int {
	if tradeCount < 0 {
		tradeCount = 0
	}
	if tradeCount >= len(tradeBonuses) {
		return tradeBonuses[len(tradeBonuses)-1]
	}
	return tradeBonuses[tradeCount]
}

// ValidateCardSet checks that indices select a tradeable 3-card set from the
// hand: exactly three distinct in-range indices whose cards are either
// three-of-a-kind or one of each type. Returns the selected types on success.
func ValidateCardSet(hand []CardType, indices []int) ([]CardType, error) {
	if len(indices) != 3 {
		return nil, fmt.Errorf("a trade requires exactly 3 cards, got %d", len(indices))
	}

	seen := make(map[int]bool, 3)
	selected := make([]CardType, 0, 3)
	for _, idx := range indices {
		if idx < 0 || idx >= len(hand) {
			return nil, fmt.Errorf("card index %d out of range for a hand of %d", idx, len(hand))
		}
		if seen[idx] {
			return nil, fmt.Errorf("card index %d selected twice", idx)
		}
		seen[idx] = true
		selected = append(selected, hand[idx])
	}

	types := make(map[CardType]int, 3)
	for _, t := range selected {
		types[t]++
	}
	if len(types) != 1 && len(types) != 3 {
		return nil, fmt.Errorf("cards must be three of a kind or one of each type")
	}
	return selected, nil
}

// RemoveCards returns hand with the cards at indices removed, preserving the
// order of the remaining cards. Indices must already be validated.
func RemoveCards(hand []CardType, indices []int) []CardType {
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		drop[idx] = true
	}
	remaining := make([]CardType, 0, len(hand)-len(indices))
	for i, c := range hand {
		if !drop[i] {
			remaining = append(remaining, c)
		}
	}
	return remaining
}
