package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/config"
	"github.com/xinyihrsinuo/DeepClaude/internal/upstream"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire"
)

func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, f := range frames {
			w.Write([]byte(f))
			flusher.Flush()
		}
	}
}

func newTestRegistry(t *testing.T, reasonURL, answerURL string, isOriginReasoning bool) *config.Registry {
	t.Helper()
	yamlDoc := fmt.Sprintf(`
providers:
  - name: reason-provider
    type: openai-compatible
    base_url: %s
    api_key: reason-key
  - name: answer-provider
    type: openai-compatible
    base_url: %s
    api_key: answer-key
base_models:
  - name: reason-base
    model_id: reasoner-v1
    provider: reason-provider
    context: 32000
    max_tokens: 4096
  - name: answer-base
    model_id: answerer-v1
    provider: answer-provider
    context: 32000
    max_tokens: 4096
deep_models:
  - name: deepclaude
    reason_model: reason-base
    answer_model: answer-base
    is_origin_reasoning: %t
`, reasonURL, answerURL, isOriginReasoning)

	cfg, err := config.Load([]byte(yamlDoc), zap.NewNop())
	require.NoError(t, err)
	return config.NewRegistry(cfg)
}

func drain(t *testing.T, ch <-chan []byte, timeout time.Duration) []string {
	t.Helper()
	var out []string
	deadline := time.After(timeout)
	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(b))
		case <-deadline:
			t.Fatal("timed out draining orchestrator output")
		}
	}
}

// Scenario 1: native reasoning, two reasoning deltas then one answer delta.
func TestStreamCompletion_NativeReasoning(t *testing.T) {
	reasonSrv := httptest.NewServer(sseHandler(
		"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"Two plus two\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\" is four.\"}}]}\n\n",
		"data: [DONE]\n\n",
	))
	defer reasonSrv.Close()
	answerSrv := httptest.NewServer(sseHandler(
		"data: {\"choices\":[{\"delta\":{\"content\":\"4\"}}]}\n\n",
		"data: [DONE]\n\n",
	))
	defer answerSrv.Close()

	registry := newTestRegistry(t, reasonSrv.URL, answerSrv.URL, true)
	o := New(registry, upstream.New(zap.NewNop(), nil), nil, zap.NewNop())

	ch, err := o.StreamCompletion(context.Background(), "req-1", ChatRequest{
		DeepModel: "deepclaude",
		Messages:  []wire.Message{{Role: "user", Content: "2+2?"}},
	})
	require.NoError(t, err)

	frames := drain(t, ch, 5*time.Second)
	require.NotEmpty(t, frames)

	assert.Contains(t, frames[0], `"reasoning_content":"Two plus two"`)
	assert.Contains(t, frames[1], `"reasoning_content":" is four."`)
	assert.Contains(t, frames[2], `"content":"4"`)
	assert.Equal(t, "data: [DONE]\n\n", frames[len(frames)-1])

	foundFinal := false
	for _, f := range frames {
		if strings.Contains(f, `"finish_reason":"stop"`) {
			foundFinal = true
		}
	}
	assert.True(t, foundFinal, "expected a final chunk with finish_reason=stop")
}

// Scenario 2: tag-sniff mode, reasoning arrives inline as <think>...</think>.
func TestStreamCompletion_TagSniffReasoning(t *testing.T) {
	reasonSrv := httptest.NewServer(sseHandler(
		"data: {\"choices\":[{\"delta\":{\"content\":\"<think>hmm</think>\"}}]}\n\n",
		"data: [DONE]\n\n",
	))
	defer reasonSrv.Close()
	answerSrv := httptest.NewServer(sseHandler(
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n",
		"data: [DONE]\n\n",
	))
	defer answerSrv.Close()

	registry := newTestRegistry(t, reasonSrv.URL, answerSrv.URL, false)
	o := New(registry, upstream.New(zap.NewNop(), nil), nil, zap.NewNop())

	ch, err := o.StreamCompletion(context.Background(), "req-2", ChatRequest{
		DeepModel: "deepclaude",
		Messages:  []wire.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	frames := drain(t, ch, 5*time.Second)
	require.NotEmpty(t, frames)

	reasoningFrames := 0
	for _, f := range frames {
		if strings.Contains(f, `"reasoning_content"`) {
			reasoningFrames++
			assert.Contains(t, f, "<think>hmm</think>")
		}
	}
	assert.Equal(t, 1, reasoningFrames)
}

// Scenario 3: reason provider returns HTTP 500; answer provider must not be called.
func TestStreamCompletion_ReasonProviderHTTPError(t *testing.T) {
	reasonSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer reasonSrv.Close()

	answerCalled := false
	answerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		answerCalled = true
		w.WriteHeader(http.StatusOK)
	}))
	defer answerSrv.Close()

	registry := newTestRegistry(t, reasonSrv.URL, answerSrv.URL, true)
	o := New(registry, upstream.New(zap.NewNop(), nil), nil, zap.NewNop())

	ch, err := o.StreamCompletion(context.Background(), "req-3", ChatRequest{
		DeepModel: "deepclaude",
		Messages:  []wire.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	frames := drain(t, ch, 5*time.Second)
	require.Len(t, frames, 2)
	assert.Contains(t, frames[0], `"error"`)
	assert.Equal(t, "data: [DONE]\n\n", frames[1])
	assert.False(t, answerCalled)
}

// Scenario 4: Anthropic-style answer provider emits content_block_delta.
func TestStreamCompletion_AnthropicAnswerProvider(t *testing.T) {
	reasonSrv := httptest.NewServer(sseHandler(
		"data: [DONE]\n\n",
	))
	defer reasonSrv.Close()
	answerSrv := httptest.NewServer(sseHandler(
		"data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}\n\n",
		"data: {\"type\":\"message_stop\"}\n\n",
	))
	defer answerSrv.Close()

	yamlDoc := fmt.Sprintf(`
providers:
  - name: reason-provider
    type: openai-compatible
    base_url: %s
    api_key: reason-key
  - name: answer-provider
    type: anthropic
    base_url: %s
    api_key: answer-key
base_models:
  - name: reason-base
    model_id: reasoner-v1
    provider: reason-provider
    context: 32000
    max_tokens: 4096
  - name: answer-base
    model_id: claude-3-5-sonnet-20241022
    provider: answer-provider
    context: 200000
    max_tokens: 8192
deep_models:
  - name: deepclaude
    reason_model: reason-base
    answer_model: answer-base
    is_origin_reasoning: true
`, reasonSrv.URL, answerSrv.URL)

	cfg, err := config.Load([]byte(yamlDoc), zap.NewNop())
	require.NoError(t, err)
	registry := config.NewRegistry(cfg)

	o := New(registry, upstream.New(zap.NewNop(), nil), nil, zap.NewNop())
	ch, err := o.StreamCompletion(context.Background(), "req-4", ChatRequest{
		DeepModel: "deepclaude",
		Messages:  []wire.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	frames := drain(t, ch, 5*time.Second)
	foundHello := false
	for _, f := range frames {
		if strings.Contains(f, `"content":"Hello"`) {
			foundHello = true
		}
	}
	assert.True(t, foundHello)
}

// Scenario 5: non-streaming Complete aggregates full reasoning and content.
func TestComplete_NonStreamingAggregation(t *testing.T) {
	reasonSrv := httptest.NewServer(sseHandler(
		"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"Two plus two\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\" is four.\"}}]}\n\n",
		"data: [DONE]\n\n",
	))
	defer reasonSrv.Close()
	answerSrv := httptest.NewServer(sseHandler(
		"data: {\"choices\":[{\"delta\":{\"content\":\"4\"}}]}\n\n",
		"data: [DONE]\n\n",
	))
	defer answerSrv.Close()

	registry := newTestRegistry(t, reasonSrv.URL, answerSrv.URL, true)
	o := New(registry, upstream.New(zap.NewNop(), nil), nil, zap.NewNop())

	completion, err := o.Complete(context.Background(), "req-5", ChatRequest{
		DeepModel: "deepclaude",
		Messages:  []wire.Message{{Role: "user", Content: "2+2?"}},
	})
	require.NoError(t, err)
	require.Len(t, completion.Choices, 1)
	assert.Equal(t, "Two plus two is four.", completion.Choices[0].Message.ReasoningContent)
	assert.Equal(t, "4", completion.Choices[0].Message.Content)
	assert.Equal(t, "stop", completion.Choices[0].FinishReason)
}

// Empty reasoning buffer: reason model returns immediately with no text.
func TestStreamCompletion_EmptyReasoningBufferStillRunsPhase2(t *testing.T) {
	reasonSrv := httptest.NewServer(sseHandler("data: [DONE]\n\n"))
	defer reasonSrv.Close()
	answerSrv := httptest.NewServer(sseHandler(
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n",
		"data: [DONE]\n\n",
	))
	defer answerSrv.Close()

	registry := newTestRegistry(t, reasonSrv.URL, answerSrv.URL, true)
	o := New(registry, upstream.New(zap.NewNop(), nil), nil, zap.NewNop())

	ch, err := o.StreamCompletion(context.Background(), "req-6", ChatRequest{
		DeepModel: "deepclaude",
		Messages:  []wire.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	frames := drain(t, ch, 5*time.Second)
	foundOK := false
	for _, f := range frames {
		if strings.Contains(f, `"content":"ok"`) {
			foundOK = true
		}
	}
	assert.True(t, foundOK)
}

func TestStreamCompletion_UnknownDeepModel(t *testing.T) {
	registry := newTestRegistry(t, "http://unused", "http://unused", true)
	o := New(registry, upstream.New(zap.NewNop(), nil), nil, zap.NewNop())

	_, err := o.StreamCompletion(context.Background(), "req-7", ChatRequest{
		DeepModel: "does-not-exist",
		Messages:  []wire.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
}

