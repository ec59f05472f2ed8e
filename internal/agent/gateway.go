// Package agent drives model-held seats: it builds the seat's view of the
// board, talks to an OpenAI-compatible chat endpoint, screens the model's
// requested actions through the stateless validator, and routes accepted
// ones into the rules engine.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one entry of the running conversation, in the chat wire
// shape the gateway speaks.
type Message struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// ToolCall is one action the model asked for.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Response is what came back from one model call: free text, requested
// actions, or both.
type Response struct {
	Text  string
	Calls []ToolCall
}

// Request is one model call: the seat's model, the conversation so far,
// and the fixed action schema.
type Request struct {
	Model    string
	Messages []Message
	Tools    []Tool
}

// ModelGateway sends one conversation turn to a model and returns its
// reply. Provider failures surface as *GatewayError; a model that simply
// declines to act returns a Response with no calls and a nil error.
type ModelGateway interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// GatewayError is a provider-side failure (HTTP, auth, malformed reply),
// distinct from a model that answered but requested nothing.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model gateway: status %d: %s", e.StatusCode, e.Message)
	}
	return "model gateway: " + e.Message
}

// IsGatewayError reports whether err is a provider-side gateway failure.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// GatewayConfig configures the HTTP gateway. Timeout bounds each
// individual model call; a timed-out call is retried once.
type GatewayConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	MaxTokens int
}

// HTTPGateway speaks the OpenAI-compatible chat completions protocol.
type HTTPGateway struct {
	cfg    GatewayConfig
	client *http.Client
}

// NewHTTPGateway creates a gateway for an OpenAI-compatible endpoint.
func NewHTTPGateway(cfg GatewayConfig) *HTTPGateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return &HTTPGateway{cfg: cfg, client: &http.Client{}}
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolSpec `json:"function"`
}

type wireToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model     string     `json:"model"`
	Messages  []Message  `json:"messages"`
	Tools     []wireTool `json:"tools,omitempty"`
	MaxTokens int        `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send performs one chat completion call. A per-call timeout applies; a
// timed-out call is retried once before failing the turn.
func (g *HTTPGateway) Send(ctx context.Context, req Request) (*Response, error) {
	resp, err := g.send(ctx, req)
	if err != nil && isTimeout(err) {
		resp, err = g.send(ctx, req)
	}
	if err != nil && !IsGatewayError(err) {
		err = &GatewayError{Message: err.Error()}
	}
	return resp, err
}

func (g *HTTPGateway) send(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	tools := make([]wireTool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, wireTool{
			Type: "function",
			Function: wireToolSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	body, err := json.Marshal(chatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		Tools:     tools,
		MaxTokens: g.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		g.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Message: "read response: " + err.Error()}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &GatewayError{StatusCode: httpResp.StatusCode, Message: string(data)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &GatewayError{Message: "decode response: " + err.Error()}
	}
	if parsed.Error != nil {
		return nil, &GatewayError{Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return nil, &GatewayError{Message: "empty choices in response"}
	}

	msg := parsed.Choices[0].Message
	out := &Response{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.Calls = append(out.Calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// SystemMessage builds a system-role conversation entry.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage builds a user-role conversation entry.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage rebuilds the model's own reply for the conversation,
// preserving its tool calls so result entries can reference them.
func AssistantMessage(resp *Response) Message {
	msg := Message{Role: "assistant", Content: resp.Text}
	for _, c := range resp.Calls {
		msg.ToolCalls = append(msg.ToolCalls, wireToolCall{
			ID:   c.ID,
			Type: "function",
			Function: wireFunction{
				Name:      c.Name,
				Arguments: string(c.Arguments),
			},
		})
	}
	return msg
}

// ToolResultMessage feeds one action's outcome back into the conversation.
func ToolResultMessage(callID, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: callID}
}
