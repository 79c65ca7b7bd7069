package api

import (
	"net/http"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
	"github.com/xinyihrsinuo/DeepClaude/internal/config"
)

// ModelsHandler serves GET /v1/models, a stub OpenAI-shaped listing of the
// configured deep models (interface only, per spec.md §1's scope note —
// there is no per-model metadata beyond the name to report).
type ModelsHandler struct {
	registry *config.Registry
}

// NewModelsHandler constructs a ModelsHandler.
func NewModelsHandler(registry *config.Registry) *ModelsHandler {
	return &ModelsHandler{registry: registry}
}

func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, nil, apierr.New(apierr.BadParam, "method not allowed").WithHTTPStatus(http.StatusMethodNotAllowed))
		return
	}

	deepModels := h.registry.ListDeepModels()
	data := make([]ModelInfo, len(deepModels))
	for i, m := range deepModels {
		data[i] = ModelInfo{ID: m.Name, Object: "model", OwnedBy: "deepclaude"}
	}

	WriteJSON(w, http.StatusOK, ModelsResponse{Object: "list", Data: data})
}
