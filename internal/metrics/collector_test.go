package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, c.httpRequestsTotal)
	assert.NotNil(t, c.httpRequestDuration)
	assert.NotNil(t, c.upstreamRequestsTotal)
	assert.NotNil(t, c.upstreamRequestDuration)
	assert.NotNil(t, c.reasoningTokensEmitted)
	assert.NotNil(t, c.answerTokensEmitted)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordHTTPRequest("POST", "/v1/chat/completions", 200, 100*time.Millisecond)
	count := testutil.CollectAndCount(c.httpRequestsTotal)
	assert.Greater(t, count, 0)

	c.RecordHTTPRequest("POST", "/v1/chat/completions", 500, 5*time.Millisecond)
	newCount := testutil.CollectAndCount(c.httpRequestsTotal)
	assert.GreaterOrEqual(t, newCount, count)
}

func TestCollector_RecordUpstreamRequest(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordUpstreamRequest("anthropic", "claude-3-5-sonnet", "reason", "ok", 2*time.Second)
	count := testutil.CollectAndCount(c.upstreamRequestsTotal)
	assert.Greater(t, count, 0)
}

func TestCollector_RecordReasoningAndAnswerChars(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordReasoningChars("deepclaude", 12)
	c.RecordAnswerChars("deepclaude", 1)
	// Zero and negative lengths must be no-ops, not panics.
	c.RecordReasoningChars("deepclaude", 0)
	c.RecordAnswerChars("deepclaude", -5)

	assert.Greater(t, testutil.CollectAndCount(c.reasoningTokensEmitted), 0)
	assert.Greater(t, testutil.CollectAndCount(c.answerTokensEmitted), 0)
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{
		200: "2xx",
		301: "3xx",
		404: "4xx",
		502: "5xx",
		0:   "unknown",
	}
	for code, want := range cases {
		assert.Equal(t, want, statusClass(code))
	}
}
