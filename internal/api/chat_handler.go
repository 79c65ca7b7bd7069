package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
	"github.com/xinyihrsinuo/DeepClaude/internal/orchestrator"
)

// ChatHandler serves POST /v1/chat/completions, dispatching to the
// orchestrator's streaming or non-streaming path depending on the request's
// stream field.
type ChatHandler struct {
	orchestrator *orchestrator.Orchestrator
	logger       *zap.Logger
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(o *orchestrator.Orchestrator, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{orchestrator: o, logger: logger}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, h.logger, apierr.New(apierr.BadParam, "method not allowed").WithHTTPStatus(http.StatusMethodNotAllowed))
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req ChatRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if err := validateChatRequest(&req); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.New().String()
	}

	chatReq := orchestrator.ChatRequest{
		DeepModel: req.Model,
		Messages:  req.toWireMessages(),
		Params:    req.toWireParams(),
	}

	if req.streamOrDefault() {
		h.serveStream(w, r, reqID, chatReq)
		return
	}
	h.serveComplete(w, r, reqID, chatReq)
}

func (h *ChatHandler) serveStream(w http.ResponseWriter, r *http.Request, reqID string, req orchestrator.ChatRequest) {
	ch, err := h.orchestrator.StreamCompletion(r.Context(), reqID, req)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported by response writer", zap.String("request_id", reqID))
		return
	}

	for frame := range ch {
		if _, err := w.Write(frame); err != nil {
			h.logger.Warn("client disconnected mid-stream", zap.Error(err), zap.String("request_id", reqID))
			return
		}
		flusher.Flush()
	}
}

func (h *ChatHandler) serveComplete(w http.ResponseWriter, r *http.Request, reqID string, req orchestrator.ChatRequest) {
	start := time.Now()
	completion, err := h.orchestrator.Complete(r.Context(), reqID, req)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	h.logger.Info("chat completion",
		zap.String("request_id", reqID),
		zap.String("model", req.DeepModel),
		zap.Duration("duration", time.Since(start)),
	)
	WriteJSON(w, http.StatusOK, completion)
}
