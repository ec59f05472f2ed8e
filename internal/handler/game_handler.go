package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/freeeve/casus-belli/api/internal/auth"
	"github.com/freeeve/casus-belli/api/internal/repository"
	"github.com/freeeve/casus-belli/api/internal/scenario"
	"github.com/freeeve/casus-belli/api/internal/service"
)

// GameHandler handles game lifecycle endpoints.
type GameHandler struct {
	games  *service.GameService
	engine *service.EngineService
	cache  repository.TurnStatusCache
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(games *service.GameService, engine *service.EngineService, cache repository.TurnStatusCache) *GameHandler {
	return &GameHandler{games: games, engine: engine, cache: cache}
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Name      string `json:"name"`
		Scenario  string `json:"scenario"`
		Nation    string `json:"nation,omitempty"`
		ModelOnly bool   `json:"model_only,omitempty"`
		Model     string `json:"model,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Scenario == "" {
		req.Scenario = "classic-europe-1805"
	}

	game, err := h.games.CreateGame(r.Context(), service.CreateGameParams{
		Name:      req.Name,
		Scenario:  req.Scenario,
		CreatorID: userID,
		Nation:    req.Nation,
		ModelOnly: req.ModelOnly,
		Model:     req.Model,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var (
		games any
		err   error
	)
	switch r.URL.Query().Get("filter") {
	case "mine":
		games, err = h.games.ListUserGames(r.Context(), userID)
	default:
		games, err = h.games.ListOpenGames(r.Context())
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// ListScenarios handles GET /api/v1/scenarios
func (h *GameHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	names, err := scenario.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": names})
}

// GetGame handles GET /api/v1/games/{id} with the full board state.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.State(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// JoinGame handles POST /api/v1/games/{id}/join
func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Nation string `json:"nation,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seat, err := h.games.JoinGame(r.Context(), r.PathValue("id"), userID, req.Nation)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seat)
}

// StartGame handles POST /api/v1/games/{id}/start
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	game, err := h.games.StartGame(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// StopGame handles POST /api/v1/games/{id}/stop
func (h *GameHandler) StopGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.games.StopGame(r.Context(), r.PathValue("id"), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// DeleteGame handles DELETE /api/v1/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.games.DeleteGame(r.Context(), r.PathValue("id"), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Snapshot handles GET /api/v1/games/{id}/snapshot: the latest observer
// snapshot published at the end of a model seat's turn, falling back to a
// fresh read when nothing is cached yet.
func (h *GameHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cache.GetGameSnapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(snap)
		return
	}
	state, err := h.engine.State(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// TurnStatus handles GET /api/v1/games/{id}/turn-status, the live "is the
// current seat still thinking" telemetry.
func (h *GameHandler) TurnStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.cache.GetTurnStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if status == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "idle"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}
