package agent

import "github.com/freeeve/casus-belli/api/pkg/risk"

// Tool describes one callable action in the schema handed to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

// ActionTools returns the fixed tool schema, one tool per game action.
// The set never varies per phase; out-of-phase calls are rejected by the
// validator with a hint instead.
func ActionTools() []Tool {
	tools := make([]Tool, 0, len(risk.AllActions()))
	for _, kind := range risk.AllActions() {
		tools = append(tools, actionTool(kind))
	}
	return tools
}

func actionTool(kind risk.ActionKind) Tool {
	switch kind {
	case risk.ActionPlaceTroops:
		return Tool{
			Name:        kind.String(),
			Description: "Place initial troops on a territory you own during the setup phase.",
			Parameters: objectSchema([]string{"territory", "troops"}, map[string]any{
				"territory": stringProp("Name of a territory you own."),
				"troops":    intProp("How many troops to place."),
			}),
		}
	case risk.ActionReinforce:
		return Tool{
			Name:        kind.String(),
			Description: "Place reinforcement troops on a territory you own during the reinforce phase.",
			Parameters: objectSchema([]string{"territory", "troops"}, map[string]any{
				"territory": stringProp("Name of a territory you own."),
				"troops":    intProp("How many troops to place."),
			}),
		}
	case risk.ActionAttack:
		return Tool{
			Name:        kind.String(),
			Description: "Roll one round of combat from a territory you own into an adjacent enemy territory.",
			Parameters: objectSchema([]string{"from", "to", "dice"}, map[string]any{
				"from": stringProp("Your attacking territory."),
				"to":   stringProp("The adjacent enemy territory."),
				"dice": intProp("Dice to roll, 1 to 3. You need one more troop than dice."),
			}),
		}
	case risk.ActionConfirmConquest:
		return Tool{
			Name:        kind.String(),
			Description: "Choose how many troops occupy a territory you just conquered. Required before any other action.",
			Parameters: objectSchema([]string{"troops"}, map[string]any{
				"troops": intProp("Troops to move into the conquered territory."),
			}),
		}
	case risk.ActionMoveTroops:
		return Tool{
			Name:        kind.String(),
			Description: "Fortify: move troops between two of your territories connected through your own territory. Once per turn.",
			Parameters: objectSchema([]string{"from", "to", "troops"}, map[string]any{
				"from":   stringProp("Source territory you own."),
				"to":     stringProp("Destination territory you own."),
				"troops": intProp("Troops to move; at least one must stay behind."),
			}),
		}
	case risk.ActionTradeCards:
		return Tool{
			Name:        kind.String(),
			Description: "Trade a set of three cards (three of a kind, or one of each type) for bonus reinforcements.",
			Parameters: objectSchema([]string{"card_indices"}, map[string]any{
				"card_indices": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "integer"},
					"description": "Three zero-based indices into your hand.",
				},
			}),
		}
	case risk.ActionAdvancePhase:
		return Tool{
			Name:        kind.String(),
			Description: "Advance to the next phase: reinforce to attack (after placing all reinforcements), or attack to fortify.",
			Parameters:  objectSchema(nil, map[string]any{}),
		}
	case risk.ActionDone:
		return Tool{
			Name:        kind.String(),
			Description: "Declare you are finished with the turn and file a short self-report. Required before end_turn.",
			Parameters: objectSchema([]string{"report"}, map[string]any{
				"report": stringProp("A brief summary of what you did this turn and why."),
			}),
		}
	case risk.ActionEndTurn:
		return Tool{
			Name:        kind.String(),
			Description: "End your turn and hand the game to the next player. Requires a prior done report this turn.",
			Parameters:  objectSchema(nil, map[string]any{}),
		}
	case risk.ActionQueryHistory:
		return Tool{
			Name:        kind.String(),
			Description: "Ask the historical archive a question. Results are limited to events up to the current in-game date.",
			Parameters: objectSchema([]string{"question"}, map[string]any{
				"question": stringProp("The question to research."),
			}),
		}
	default:
		return Tool{Name: kind.String(), Parameters: objectSchema(nil, map[string]any{})}
	}
}
