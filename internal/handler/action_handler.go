package handler

import (
	"net/http"

	"github.com/freeeve/casus-belli/api/internal/agent"
	"github.com/freeeve/casus-belli/api/internal/auth"
	"github.com/freeeve/casus-belli/api/internal/repository"
	"github.com/freeeve/casus-belli/api/internal/service"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// ActionHandler routes a human seat's game actions into the rules engine.
type ActionHandler struct {
	engine    *service.EngineService
	players   repository.PlayerRepository
	knowledge agent.KnowledgeService
}

// NewActionHandler creates an ActionHandler. knowledge may be nil when no
// archive is configured.
func NewActionHandler(engine *service.EngineService, players repository.PlayerRepository, knowledge agent.KnowledgeService) *ActionHandler {
	return &ActionHandler{engine: engine, players: players, knowledge: knowledge}
}

type actionRequest struct {
	Action      string `json:"action"`
	Territory   string `json:"territory,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Troops      int    `json:"troops,omitempty"`
	Dice        int    `json:"dice,omitempty"`
	CardIndices []int  `json:"card_indices,omitempty"`
	Report      string `json:"report,omitempty"`
	Question    string `json:"question,omitempty"`
}

// SubmitAction handles POST /api/v1/games/{id}/actions
func (h *ActionHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := risk.ParseActionKind(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	seat, err := h.players.FindByGameAndUser(r.Context(), gameID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if seat == nil {
		writeError(w, http.StatusForbidden, "you do not hold a seat in this game")
		return
	}

	ctx := r.Context()
	switch kind {
	case risk.ActionPlaceTroops:
		terr, err := h.engine.PlaceTroops(ctx, gameID, seat.ID, req.Territory, req.Troops)
		h.respond(w, terr, err)
	case risk.ActionReinforce:
		terr, err := h.engine.Reinforce(ctx, gameID, seat.ID, req.Territory, req.Troops)
		h.respond(w, terr, err)
	case risk.ActionAttack:
		result, err := h.engine.Attack(ctx, gameID, seat.ID, req.From, req.To, req.Dice)
		h.respond(w, result, err)
	case risk.ActionConfirmConquest:
		state, err := h.engine.ConfirmConquest(ctx, gameID, seat.ID, req.Troops)
		h.respond(w, state, err)
	case risk.ActionMoveTroops:
		err := h.engine.MoveTroops(ctx, gameID, seat.ID, req.From, req.To, req.Troops)
		h.respond(w, map[string]string{"status": "moved"}, err)
	case risk.ActionTradeCards:
		bonus, err := h.engine.TradeCards(ctx, gameID, seat.ID, req.CardIndices)
		h.respond(w, map[string]int{"bonus": bonus}, err)
	case risk.ActionAdvancePhase:
		phase, err := h.engine.AdvancePhase(ctx, gameID, seat.ID)
		h.respond(w, map[string]any{"phase": phase}, err)
	case risk.ActionDone:
		err := h.engine.Checkpoint(ctx, gameID, seat.ID, req.Report)
		h.respond(w, map[string]string{"status": "checkpoint recorded"}, err)
	case risk.ActionEndTurn:
		game, err := h.engine.EndTurn(ctx, gameID, seat.ID)
		h.respond(w, game, err)
	case risk.ActionQueryHistory:
		h.queryHistory(w, r, gameID, req.Question)
	default:
		writeError(w, http.StatusBadRequest, "action not supported over HTTP")
	}
}

// AdmissibleActions handles GET /api/v1/games/{id}/actions, the menu of
// actions the caller's seat may take right now.
func (h *ActionHandler) AdmissibleActions(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	seat, err := h.players.FindByGameAndUser(r.Context(), gameID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if seat == nil {
		writeError(w, http.StatusForbidden, "you do not hold a seat in this game")
		return
	}

	snap, err := h.engine.SnapshotFor(r.Context(), gameID, seat.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var names []string
	for _, kind := range risk.AdmissibleActions(snap) {
		names = append(names, kind.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": names})
}

func (h *ActionHandler) queryHistory(w http.ResponseWriter, r *http.Request, gameID, question string) {
	if h.knowledge == nil {
		writeError(w, http.StatusServiceUnavailable, "the archive is not configured")
		return
	}
	if question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	state, err := h.engine.State(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	result, err := h.knowledge.Query(r.Context(), gameID, question, state.Game.CurrentDate)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ActionHandler) respond(w http.ResponseWriter, result any, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
