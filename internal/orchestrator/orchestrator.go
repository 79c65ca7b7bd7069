// Package orchestrator implements the two-phase DeepClaude pipeline: a
// reasoning call followed by an answer call, normalized through the wire
// adapters and the reasoning extractor into one OpenAI-shaped response,
// streaming or aggregated.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/config"
	"github.com/xinyihrsinuo/DeepClaude/internal/format"
	"github.com/xinyihrsinuo/DeepClaude/internal/metrics"
	"github.com/xinyihrsinuo/DeepClaude/internal/reasoning"
	"github.com/xinyihrsinuo/DeepClaude/internal/upstream"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire"
)

// ChatRequest is the orchestrator's input, already parsed and validated by
// the HTTP front end.
type ChatRequest struct {
	DeepModel string
	Messages  []wire.Message
	Params    wire.Params
}

// Orchestrator drives the two-phase pipeline for one deep model resolution
// at a time. It holds no per-request mutable state; every call constructs
// its own extractor and buffers.
type Orchestrator struct {
	registry *config.Registry
	client   *upstream.Client
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(registry *config.Registry, client *upstream.Client, m *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{registry: registry, client: client, metrics: m, logger: logger}
}

const answerEnvelopeTemplate = "Here is my reasoning process:\n<reasoning>\n%s\n</reasoning>\nBased on the above, please provide the answer."

// composeAnswerMessages appends one user message embedding the captured
// reasoning buffer in a deterministic envelope, per spec.md §4.E Phase 2
// step 2. Never mutates the caller's slice.
func composeAnswerMessages(original []wire.Message, reasoningBuffer string) []wire.Message {
	out := make([]wire.Message, len(original), len(original)+1)
	copy(out, original)
	return append(out, wire.Message{
		Role:    "user",
		Content: fmt.Sprintf(answerEnvelopeTemplate, reasoningBuffer),
	})
}

// StreamCompletion runs the two-phase pipeline and returns a channel of
// fully-framed SSE byte chunks (`data: ...\n\n`). The channel is closed
// after the terminal `data: [DONE]\n\n` frame, or immediately after a
// single error frame + terminator if the pipeline fails. Canceling ctx
// stops both upstream calls and closes the channel within the upstream
// client's cancellation bound.
func (o *Orchestrator) StreamCompletion(ctx context.Context, reqID string, req ChatRequest) (<-chan []byte, error) {
	reasonDesc, answerDesc, isOriginReasoning, err := o.registry.Resolve(req.DeepModel)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go o.runStreaming(ctx, reqID, req, reasonDesc, answerDesc, isOriginReasoning, out)
	return out, nil
}

func (o *Orchestrator) runStreaming(ctx context.Context, reqID string, req ChatRequest, reasonDesc, answerDesc config.Descriptor, isOriginReasoning bool, out chan<- []byte) {
	defer close(out)
	created := time.Now().Unix()

	emitReasoning := func(text string) {
		frame, err := format.EncodeSSE(format.ReasoningChunk(reqID, req.DeepModel, created, text))
		if err != nil {
			return
		}
		if o.metrics != nil {
			o.metrics.RecordReasoningChars(req.DeepModel, len(text))
		}
		sendBytes(ctx, out, frame)
	}
	emitContent := func(text string) {
		frame, err := format.EncodeSSE(format.ContentChunk(reqID, req.DeepModel, created, text))
		if err != nil {
			return
		}
		if o.metrics != nil {
			o.metrics.RecordAnswerChars(req.DeepModel, len(text))
		}
		sendBytes(ctx, out, frame)
	}
	emitError := func(message string) {
		sendBytes(ctx, out, format.ErrorFrame(message))
		sendBytes(ctx, out, format.DoneFrame())
	}

	reasoningBuffer, sawAnyReasoning, err := o.runReasonPhase(ctx, reqID, req, reasonDesc, isOriginReasoning, emitReasoning)
	if err != nil && !sawAnyReasoning {
		o.logger.Warn("phase 1 failed before any reasoning was emitted", zap.Error(err), zap.String("request_id", reqID))
		emitError(err.Error())
		return
	}
	if err != nil {
		o.logger.Warn("phase 1 failed after partial reasoning; proceeding to phase 2", zap.Error(err), zap.String("request_id", reqID))
	}

	answerMessages := composeAnswerMessages(req.Messages, reasoningBuffer)
	if err := o.runAnswerPhase(ctx, req, answerDesc, answerMessages, emitContent); err != nil {
		o.logger.Warn("phase 2 failed", zap.Error(err), zap.String("request_id", reqID))
		emitError(err.Error())
		return
	}

	finalFrame, ferr := format.EncodeSSE(format.FinalChunk(reqID, req.DeepModel, created))
	if ferr == nil {
		sendBytes(ctx, out, finalFrame)
	}
	sendBytes(ctx, out, format.DoneFrame())
}

// Complete runs the two-phase pipeline to completion and returns one
// aggregated ChatCompletion object: no frames are emitted along the way.
func (o *Orchestrator) Complete(ctx context.Context, reqID string, req ChatRequest) (format.Completion, error) {
	reasonDesc, answerDesc, isOriginReasoning, err := o.registry.Resolve(req.DeepModel)
	if err != nil {
		return format.Completion{}, err
	}

	reasoningBuffer, sawAnyReasoning, err := o.runReasonPhase(ctx, reqID, req, reasonDesc, isOriginReasoning, func(string) {})
	if err != nil && !sawAnyReasoning {
		return format.Completion{}, err
	}

	var answerBuffer string
	answerMessages := composeAnswerMessages(req.Messages, reasoningBuffer)
	if err := o.runAnswerPhase(ctx, req, answerDesc, answerMessages, func(text string) {
		answerBuffer += text
	}); err != nil {
		return format.Completion{}, err
	}

	return format.BuildCompletion(reqID, req.DeepModel, time.Now().Unix(), reasoningBuffer, answerBuffer), nil
}

// runReasonPhase drives phase 1 to completion, invoking emit for every
// Reasoning text fragment as it arrives. It returns the full concatenated
// reasoning buffer and whether any reasoning text was ever emitted — per
// spec.md §4.E's failure-handling rule, an error after partial reasoning is
// not fatal to the overall request.
func (o *Orchestrator) runReasonPhase(ctx context.Context, reqID string, req ChatRequest, desc config.Descriptor, isOriginReasoning bool, emit func(text string)) (string, bool, error) {
	adapter, err := adapterFor(desc.Kind, desc.APIKey)
	if err != nil {
		return "", false, err
	}

	headers, body, err := adapter.BuildRequest(desc.ModelID, req.Messages, req.Params, true, "")
	if err != nil {
		return "", false, err
	}

	lines, err := o.client.Stream(ctx, upstream.Call{
		URL:      endpointURL(desc.BaseURL, adapter.EndpointPath()),
		Headers:  headers,
		Body:     body,
		UseProxy: desc.UseProxy,
		Provider: string(desc.Kind),
		Model:    desc.ModelID,
		Phase:    "reason",
	})
	if err != nil {
		return "", false, err
	}

	extractor := reasoning.New(isOriginReasoning)
	var buffer string
	var sawAny bool

	for line := range lines {
		if line.Err != nil {
			return buffer, sawAny, line.Err
		}

		events, decodeErr := adapter.DecodeFrame(line.Text)
		if decodeErr != nil {
			o.logger.Debug("dropping malformed upstream reason frame", zap.Error(decodeErr), zap.String("request_id", reqID))
			continue
		}

		for _, ev := range events {
			for _, out := range extractor.Feed(ev) {
				switch out.Kind {
				case reasoning.Reasoning:
					buffer += out.Text
					sawAny = true
					emit(out.Text)
				case reasoning.EndOfReason:
					return buffer, sawAny, nil
				case reasoning.Done:
					return buffer, sawAny, nil
				}
			}
		}
	}

	return buffer, sawAny, nil
}

// runAnswerPhase drives phase 2 to completion. Tag sniffing is disabled:
// every Answer event's text is forwarded to emit verbatim, per spec.md
// §4.E Phase 2 step 4 and §9's open-question resolution.
func (o *Orchestrator) runAnswerPhase(ctx context.Context, req ChatRequest, desc config.Descriptor, messages []wire.Message, emit func(text string)) error {
	adapter, err := adapterFor(desc.Kind, desc.APIKey)
	if err != nil {
		return err
	}

	headers, body, err := adapter.BuildRequest(desc.ModelID, messages, req.Params, true, "")
	if err != nil {
		return err
	}

	lines, err := o.client.Stream(ctx, upstream.Call{
		URL:      endpointURL(desc.BaseURL, adapter.EndpointPath()),
		Headers:  headers,
		Body:     body,
		UseProxy: desc.UseProxy,
		Provider: string(desc.Kind),
		Model:    desc.ModelID,
		Phase:    "answer",
	})
	if err != nil {
		return err
	}

	for line := range lines {
		if line.Err != nil {
			return line.Err
		}

		events, decodeErr := adapter.DecodeFrame(line.Text)
		if decodeErr != nil {
			o.logger.Debug("dropping malformed upstream answer frame", zap.Error(decodeErr))
			continue
		}

		for _, ev := range events {
			switch ev.Kind {
			case wire.EventAnswer:
				if ev.Text != "" {
					emit(ev.Text)
				}
			case wire.EventDone:
				return nil
			}
		}
	}

	return nil
}

// endpointURL joins a provider's base_url with an adapter's endpoint path.
func endpointURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

func sendBytes(ctx context.Context, out chan<- []byte, b []byte) {
	select {
	case out <- b:
	case <-ctx.Done():
	}
}
