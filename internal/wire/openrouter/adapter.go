// Package openrouter implements the wire.Adapter for OpenRouter, an
// OpenAI-compatible aggregator that additionally requires HTTP-Referer and
// X-Title attribution headers and remaps Claude-family model IDs to its own
// namespaced form.
package openrouter

import (
	"net/http"
	"strings"

	"github.com/xinyihrsinuo/DeepClaude/internal/wire"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire/openaicompat"
)

// referer and title are sent on every OpenRouter request per its API
// attribution requirements; OpenRouter uses them for its public leaderboard
// and does not expose a way to configure them per deployment.
const (
	referer = "https://github.com/deepclaude"
	title   = "DeepClaude Gateway"

	// claudeRemap is the OpenRouter model ID substituted whenever a
	// caller-supplied model name refers to the Claude family, per
	// SPEC_FULL.md §4.C.
	claudeRemap = "anthropic/claude-3.5-sonnet"
)

// Adapter embeds the OpenAI-compatible base and layers OpenRouter's extra
// headers and model-ID remap on top, mirroring the teacher's pattern of
// embedding llm/providers/openaicompat.Provider in specialized providers.
type Adapter struct {
	base *openaicompat.Adapter
}

// New returns an Adapter authenticated with apiKey.
func New(apiKey string) *Adapter {
	return &Adapter{base: openaicompat.New(apiKey)}
}

// BuildRequest implements wire.Adapter.
func (a *Adapter) BuildRequest(modelID string, messages []wire.Message, params wire.Params, stream bool, systemPrompt string) (http.Header, []byte, error) {
	headers, body, err := a.base.BuildRequest(remapClaudeModel(modelID), messages, params, stream, systemPrompt)
	if err != nil {
		return nil, nil, err
	}
	headers.Set("HTTP-Referer", referer)
	headers.Set("X-Title", title)
	return headers, body, nil
}

// DecodeFrame implements wire.Adapter; OpenRouter's SSE grammar is identical
// to plain OpenAI-compatible.
func (a *Adapter) DecodeFrame(line string) ([]wire.Event, error) {
	return a.base.DecodeFrame(line)
}

// EndpointPath implements wire.Adapter.
func (a *Adapter) EndpointPath() string { return a.base.EndpointPath() }

// remapClaudeModel maps any model ID mentioning the Claude family to
// OpenRouter's namespaced identifier.
func remapClaudeModel(modelID string) string {
	if strings.Contains(strings.ToLower(modelID), "claude") {
		return claudeRemap
	}
	return modelID
}
