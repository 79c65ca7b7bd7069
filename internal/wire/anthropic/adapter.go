// Package anthropic implements the wire.Adapter for Anthropic's native
// Messages API: x-api-key authentication, a separate top-level system field,
// and content_block_delta SSE events rather than OpenAI-style choice deltas.
package anthropic

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire"
)

const anthropicVersion = "2023-06-01"

// defaultMaxTokens is the max_tokens Anthropic requires on every request,
// per SPEC_FULL.md §4.C (the Messages API has no server-side default).
const defaultMaxTokens = 8192

// Adapter implements wire.Adapter for the Anthropic native wire protocol.
type Adapter struct {
	APIKey string
}

// New returns an Adapter authenticated with apiKey.
func New(apiKey string) *Adapter {
	return &Adapter{APIKey: apiKey}
}

// EndpointPath implements wire.Adapter.
func (a *Adapter) EndpointPath() string { return "/v1/messages" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature,omitempty"`
	TopP        float32   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream"`
}

// BuildRequest implements wire.Adapter. Anthropic carries no presence/
// frequency penalty fields and requires max_tokens on every call.
func (a *Adapter) BuildRequest(modelID string, messages []wire.Message, params wire.Params, stream bool, systemPrompt string) (http.Header, []byte, error) {
	msgs := make([]message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, message{Role: m.Role, Content: m.Content})
	}

	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := requestBody{
		Model:       modelID,
		Messages:    msgs,
		System:      systemPrompt,
		MaxTokens:   maxTokens,
		Temperature: wire.ClampTemperature(params.Temperature),
		TopP:        params.TopP,
		Stream:      stream,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, apierr.New(apierr.Internal, "failed to marshal anthropic request").WithCause(err)
	}

	h := http.Header{}
	h.Set("x-api-key", a.APIKey)
	h.Set("anthropic-version", anthropicVersion)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "text/event-stream")
	return h, payload, nil
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
}

// DecodeFrame implements wire.Adapter. Anthropic has no native reasoning
// field, so every content_block_delta text_delta is an EventAnswer; the
// stream's terminal message_stop event yields EventDone.
func (a *Adapter) DecodeFrame(line string) ([]wire.Event, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "event:") || !strings.HasPrefix(line, "data:") {
		return nil, nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "" || data == "[DONE]" {
		return nil, nil
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, apierr.New(apierr.DecodeError, "malformed anthropic SSE frame").WithCause(err)
	}

	switch event.Type {
	case "content_block_delta":
		if event.Delta != nil && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			return []wire.Event{{Kind: wire.EventAnswer, Text: event.Delta.Text}}, nil
		}
		return nil, nil
	case "message_stop":
		return []wire.Event{{Kind: wire.EventDone}}, nil
	default:
		return nil, nil
	}
}
