// Package format renders normalized reasoning events into the exact OpenAI
// chat-completion wire shapes, per SPEC_FULL.md §4.F: streaming chunks with a
// single reasoning_content/content delta apiece, and one aggregated
// chat.completion object for non-streaming requests.
package format

import (
	"encoding/json"
	"strings"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
)

// Delta carries exactly one of ReasoningContent or Content, matching
// SPEC_FULL.md §4.F's "never both" rule.
type Delta struct {
	Role             string `json:"role,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
	Content          string `json:"content,omitempty"`
}

// Choice is one entry of a streaming chunk's choices array.
type Choice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Chunk is a single `chat.completion.chunk` SSE frame payload.
type Chunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

var finishStop = "stop"

// ReasoningChunk builds a streaming frame carrying a reasoning_content delta.
func ReasoningChunk(id, model string, created int64, text string) Chunk {
	return Chunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []Choice{{Index: 0, Delta: Delta{ReasoningContent: text}, FinishReason: nil}},
	}
}

// ContentChunk builds a streaming frame carrying a content delta.
func ContentChunk(id, model string, created int64, text string) Chunk {
	return Chunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []Choice{{Index: 0, Delta: Delta{Content: text}, FinishReason: nil}},
	}
}

// FinalChunk builds the terminal frame with finish_reason="stop" and an
// empty delta, sent immediately before the `data: [DONE]` terminator.
func FinalChunk(id, model string, created int64) Chunk {
	return Chunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []Choice{{Index: 0, Delta: Delta{}, FinishReason: &finishStop}},
	}
}

// EncodeSSE renders a Chunk as a complete `data: {...}\n\n` frame.
func EncodeSSE(c Chunk) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, apierr.New(apierr.Internal, "failed to marshal stream chunk").WithCause(err)
	}
	var b strings.Builder
	b.WriteString("data: ")
	b.Write(body)
	b.WriteString("\n\n")
	return []byte(b.String()), nil
}

// DoneFrame is the literal terminal SSE frame.
func DoneFrame() []byte {
	return []byte("data: [DONE]\n\n")
}

// ErrorFrame renders a terminal SSE error event: `data: {"error": "..."}\n\n`.
func ErrorFrame(message string) []byte {
	body, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: message})
	var b strings.Builder
	b.WriteString("data: ")
	b.Write(body)
	b.WriteString("\n\n")
	return []byte(b.String())
}

// Message is the assistant message embedded in a non-streaming response.
type Message struct {
	Role             string `json:"role"`
	ReasoningContent string `json:"reasoning_content"`
	Content          string `json:"content"`
}

// CompletionChoice is one entry of a non-streaming response's choices array.
type CompletionChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Completion is the full `chat.completion` response body.
type Completion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
}

// BuildCompletion assembles the non-streaming response from the fully
// concatenated reasoning and answer buffers.
func BuildCompletion(id, model string, created int64, reasoning, content string) Completion {
	return Completion{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []CompletionChoice{{
			Index: 0,
			Message: Message{
				Role:             "assistant",
				ReasoningContent: reasoning,
				Content:          content,
			},
			FinishReason: "stop",
		}},
	}
}
