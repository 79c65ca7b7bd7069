package api

import (
	"strings"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
)

// validateChatRequest enforces spec.md §6's request constraints: model and
// messages are required, and a "sonnet" model is pinned to temperature in
// [0, 1] (Anthropic's API rejects anything outside that range).
func validateChatRequest(req *ChatRequest) error {
	if req.Model == "" {
		return apierr.New(apierr.BadParam, "model is required")
	}
	if len(req.Messages) == 0 {
		return apierr.New(apierr.BadParam, "messages cannot be empty")
	}

	if strings.Contains(req.Model, "sonnet") {
		t := req.temperatureOrDefault()
		if t < 0 || t > 1 {
			return apierr.New(apierr.BadParam, "temperature must be between 0 and 1 for sonnet models")
		}
	}

	return nil
}
