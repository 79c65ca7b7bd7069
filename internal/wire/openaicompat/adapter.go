// Package openaicompat implements the wire.Adapter for any OpenAI-compatible
// chat-completions endpoint (DeepSeek, Qwen, GLM, and similar). It is the
// adapter embedded by internal/wire/openrouter, mirroring the teacher's
// llm/providers/openaicompat base-provider-plus-specialization shape.
package openaicompat

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire"
)

// Adapter implements wire.Adapter for the OpenAI-compatible wire protocol.
type Adapter struct {
	// APIKey is used to build the Authorization header. Callers resolve the
	// key from the config.Descriptor before constructing the Adapter.
	APIKey string
}

// New returns an Adapter authenticated with apiKey.
func New(apiKey string) *Adapter {
	return &Adapter{APIKey: apiKey}
}

// EndpointPath implements wire.Adapter.
func (a *Adapter) EndpointPath() string { return "/v1/chat/completions" }

type requestBody struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Stream           bool          `json:"stream"`
	Temperature      float32       `json:"temperature"`
	TopP             float32       `json:"top_p,omitempty"`
	PresencePenalty  float32       `json:"presence_penalty,omitempty"`
	FrequencyPenalty float32       `json:"frequency_penalty,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildRequest implements wire.Adapter.
func (a *Adapter) BuildRequest(modelID string, messages []wire.Message, params wire.Params, stream bool, systemPrompt string) (http.Header, []byte, error) {
	msgs := make([]chatMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := requestBody{
		Model:            modelID,
		Messages:         msgs,
		Stream:           stream,
		Temperature:      wire.ClampTemperature(params.Temperature),
		TopP:             params.TopP,
		PresencePenalty:  params.PresencePenalty,
		FrequencyPenalty: params.FrequencyPenalty,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, apierr.New(apierr.Internal, "failed to marshal openai-compatible request").WithCause(err)
	}

	headers := a.Headers()
	return headers, payload, nil
}

// Headers returns the headers used on every request this Adapter builds.
// Exposed so internal/wire/openrouter can embed the base set and extend it.
func (a *Adapter) Headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+a.APIKey)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "text/event-stream")
	return h
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DecodeFrame implements wire.Adapter. A raw SSE line not beginning with
// "data:" yields no events; "[DONE]" yields a single EventDone.
func (a *Adapter) DecodeFrame(line string) ([]wire.Event, error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "data:") {
		return nil, nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "[DONE]" {
		return []wire.Event{{Kind: wire.EventDone}}, nil
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, apierr.New(apierr.DecodeError, "malformed openai-compatible SSE frame").WithCause(err)
	}

	var events []wire.Event
	for _, choice := range chunk.Choices {
		if choice.Delta.ReasoningContent != "" {
			events = append(events, wire.Event{Kind: wire.EventReasoning, Text: choice.Delta.ReasoningContent})
		}
		if choice.Delta.Content != "" {
			events = append(events, wire.Event{Kind: wire.EventAnswer, Text: choice.Delta.Content})
		}
	}
	return events, nil
}
