package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/freeeve/casus-belli/api/internal/model"
)

type stubTurnCache struct {
	status   *model.TurnStatus
	snapshot json.RawMessage
}

func (c *stubTurnCache) SetTurnStatus(context.Context, *model.TurnStatus) error { return nil }

func (c *stubTurnCache) GetTurnStatus(context.Context, string) (*model.TurnStatus, error) {
	return c.status, nil
}

func (c *stubTurnCache) SetGameSnapshot(context.Context, string, json.RawMessage) error { return nil }

func (c *stubTurnCache) GetGameSnapshot(context.Context, string) (json.RawMessage, error) {
	return c.snapshot, nil
}

func (c *stubTurnCache) ClearGameData(context.Context, string) error { return nil }

func TestSnapshotServesPublishedState(t *testing.T) {
	h := NewGameHandler(nil, nil, &stubTurnCache{
		snapshot: json.RawMessage(`{"game":{"id":"g1","status":"active"}}`),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/games/g1/snapshot", nil)
	req.SetPathValue("id", "g1")
	rec := httptest.NewRecorder()
	h.Snapshot(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"g1"`) {
		t.Errorf("expected published snapshot body, got %s", rec.Body.String())
	}
}

func TestTurnStatusIdleWhenUnrecorded(t *testing.T) {
	h := NewGameHandler(nil, nil, &stubTurnCache{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/games/g1/turn-status", nil)
	req.SetPathValue("id", "g1")
	rec := httptest.NewRecorder()
	h.TurnStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"idle"`) {
		t.Errorf("expected idle status, got %s", rec.Body.String())
	}
}
