package agent

import (
	"fmt"
	"strings"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

const systemPrompt = `You are playing a seat in a territorial conquest game set in Napoleonic Europe.
You command one nation. Win by controlling 75% of the map or eliminating every rival.
Act only through the provided tools. Each turn has phases: reinforce (place troops,
optionally trade cards), attack (roll dice against adjacent enemies), fortify (one troop
move through connected friendly territory). After conquering a territory you must
confirm_conquest before anything else. File a done report, then end_turn.
Think briefly, then act. Invalid actions are rejected with a hint; read it and adapt.`

// SystemPrompt returns the fixed instruction message opening every turn's
// conversation.
func SystemPrompt() string {
	return systemPrompt
}

// BuildSituationReport renders the seat's view of the board: the calendar,
// its holdings, rival summaries, its hand, and the actions open to it
// right now.
func BuildSituationReport(game *model.Game, player *model.Player, players []model.Player, territories []model.Territory) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s. It is %s, turn %d, %s phase.\n",
		titleCase(player.Nation), game.CurrentDate.Format("2 January 2006"), game.CurrentTurn, game.Phase)

	switch game.Phase {
	case risk.PhaseSetup:
		fmt.Fprintf(&b, "You have %d setup troops left to place.\n", player.SetupTroopsRemaining)
	case risk.PhaseReinforce:
		fmt.Fprintf(&b, "You have %d reinforcements left to place.\n", game.ReinforcementsRemaining)
	}
	if game.PendingConquest != nil {
		pc := game.PendingConquest
		fmt.Fprintf(&b, "You just conquered %s from %s. Confirm with %d to %d troops before doing anything else.\n",
			pc.ToTerritory, pc.FromTerritory, pc.MinTroops, pc.MaxTroops)
	}

	b.WriteString("\nYour territories:\n")
	owned := 0
	for _, t := range territories {
		if t.OwnerID != player.ID {
			continue
		}
		owned++
		fmt.Fprintf(&b, "- %s (%s): %d troops, borders %s\n",
			t.Name, t.Region, t.Troops, strings.Join(t.AdjacentTo, ", "))
	}
	if owned == 0 {
		b.WriteString("- none\n")
	}

	b.WriteString("\nRivals:\n")
	counts := make(map[string]int)
	troops := make(map[string]int)
	for _, t := range territories {
		counts[t.OwnerID]++
		troops[t.OwnerID] += t.Troops
	}
	for _, p := range players {
		if p.ID == player.ID {
			continue
		}
		if p.IsEliminated {
			fmt.Fprintf(&b, "- %s: eliminated\n", p.Nation)
			continue
		}
		fmt.Fprintf(&b, "- %s: %d territories, %d troops\n", p.Nation, counts[p.ID], troops[p.ID])
	}

	if len(player.Cards) > 0 {
		b.WriteString("\nYour cards: ")
		names := make([]string, len(player.Cards))
		for i, c := range player.Cards {
			names[i] = fmt.Sprintf("[%d] %s", i, c)
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}

	b.WriteString("\nActions available right now: ")
	snap := model.Snapshot(game, player)
	var menu []string
	for _, kind := range risk.AdmissibleActions(snap) {
		menu = append(menu, kind.String())
	}
	b.WriteString(strings.Join(menu, ", "))
	b.WriteString("\n")
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
