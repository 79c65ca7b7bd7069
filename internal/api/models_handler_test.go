package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/config"
)

func TestModelsHandler_ListsConfiguredDeepModels(t *testing.T) {
	yamlDoc := `
providers:
  - name: p1
    type: openai-compatible
    base_url: http://localhost
    api_key: k
base_models:
  - name: reason-base
    model_id: reasoner-v1
    provider: p1
    context: 32000
    max_tokens: 4096
  - name: answer-base
    model_id: answerer-v1
    provider: p1
    context: 32000
    max_tokens: 4096
deep_models:
  - name: deepclaude
    reason_model: reason-base
    answer_model: answer-base
    is_origin_reasoning: true
`
	cfg, err := config.Load([]byte(yamlDoc), zap.NewNop())
	require.NoError(t, err)
	registry := config.NewRegistry(cfg)

	h := NewModelsHandler(registry)
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"deepclaude"`)
	assert.Contains(t, rec.Body.String(), `"object":"list"`)
}

func TestModelsHandler_RejectsNonGet(t *testing.T) {
	h := NewModelsHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/models", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
