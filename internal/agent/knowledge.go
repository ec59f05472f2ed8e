package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// QueryResult is what the archive returned for one question. BlockedCount
// records how many hits were suppressed for postdating the cutoff; the
// orchestrator surfaces that count, never the suppressed content.
type QueryResult struct {
	Snippets      []string `json:"snippets"`
	BlockedCount  int      `json:"blocked_count"`
	BlockedSample []string `json:"blocked_sample,omitempty"`
}

// KnowledgeService answers free-text questions bounded by the game's
// simulated date, so model seats cannot research events their nation has
// not lived through yet.
type KnowledgeService interface {
	Query(ctx context.Context, gameID, question string, cutoff time.Time) (*QueryResult, error)
}

// KnowledgeConfig configures the HTTP knowledge client.
type KnowledgeConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPKnowledge is the HTTP client for the knowledge retrieval service.
type HTTPKnowledge struct {
	cfg    KnowledgeConfig
	client *http.Client
}

// NewHTTPKnowledge creates a knowledge client.
func NewHTTPKnowledge(cfg KnowledgeConfig) *HTTPKnowledge {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPKnowledge{cfg: cfg, client: &http.Client{}}
}

type knowledgeRequest struct {
	GameID     string `json:"game_id"`
	Question   string `json:"question"`
	CutoffDate string `json:"cutoff_date"`
}

// Query asks the archive one question with a hard date cutoff.
func (k *HTTPKnowledge) Query(ctx context.Context, gameID, question string, cutoff time.Time) (*QueryResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, k.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(knowledgeRequest{
		GameID:     gameID,
		Question:   question,
		CutoffDate: cutoff.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal knowledge query: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, k.cfg.BaseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build knowledge query: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if k.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+k.cfg.APIKey)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, &GatewayError{Message: "knowledge query: " + err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Message: "knowledge query read: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: string(data)}
	}

	var result QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &GatewayError{Message: "knowledge query decode: " + err.Error()}
	}
	return &result, nil
}
