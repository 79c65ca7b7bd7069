// Package api defines the HTTP-facing request/response shapes and handlers
// for the gateway's OpenAI-compatible surface, grounded on the teacher's
// api/handlers package but stripped to what spec.md §6 actually names:
// no tool calls, no multi-provider routing header, no config-reload API.
package api

import "github.com/xinyihrsinuo/DeepClaude/internal/wire"

// Message is one chat turn in a ChatRequest.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest mirrors OpenAI's chat-completions request body, per
// spec.md §6. Optional numeric fields are pointers so the handler can tell
// "omitted" from "explicitly zero" before applying defaults.
type ChatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Stream           *bool     `json:"stream,omitempty"`
	Temperature      *float32  `json:"temperature,omitempty"`
	TopP             *float32  `json:"top_p,omitempty"`
	PresencePenalty  *float32  `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32  `json:"frequency_penalty,omitempty"`
}

// Defaults per spec.md §6.
const (
	defaultTemperature      = 0.5
	defaultTopP             = 0.9
	defaultPresencePenalty  = 0
	defaultFrequencyPenalty = 0
)

func (r *ChatRequest) streamOrDefault() bool {
	if r.Stream == nil {
		return true
	}
	return *r.Stream
}

func (r *ChatRequest) temperatureOrDefault() float32 {
	if r.Temperature == nil {
		return defaultTemperature
	}
	return *r.Temperature
}

func (r *ChatRequest) topPOrDefault() float32 {
	if r.TopP == nil {
		return defaultTopP
	}
	return *r.TopP
}

func (r *ChatRequest) presencePenaltyOrDefault() float32 {
	if r.PresencePenalty == nil {
		return defaultPresencePenalty
	}
	return *r.PresencePenalty
}

func (r *ChatRequest) frequencyPenaltyOrDefault() float32 {
	if r.FrequencyPenalty == nil {
		return defaultFrequencyPenalty
	}
	return *r.FrequencyPenalty
}

// toWireMessages converts the request's messages to the orchestrator's wire
// shape, preserving order.
func (r *ChatRequest) toWireMessages() []wire.Message {
	out := make([]wire.Message, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = wire.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

func (r *ChatRequest) toWireParams() wire.Params {
	return wire.Params{
		Temperature:      r.temperatureOrDefault(),
		TopP:             r.topPOrDefault(),
		PresencePenalty:  r.presencePenaltyOrDefault(),
		FrequencyPenalty: r.frequencyPenaltyOrDefault(),
	}
}

// ModelInfo is one entry of the /v1/models listing.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// ModelsResponse is the /v1/models response body.
type ModelsResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}
