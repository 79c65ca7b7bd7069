package api

import (
	"encoding/json"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
)

// WriteJSON writes data as a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorEnvelope is the JSON body for a non-streaming error response, loosely
// matching OpenAI's `{"error": {...}}` convention.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WriteError maps err to an HTTP status and writes the error envelope. If
// err is not an *apierr.Error it is treated as an opaque internal error.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.New(apierr.Internal, err.Error())
	}

	status := apiErr.HTTPStatus
	if status == 0 {
		status = apierr.HTTPStatusFor(apiErr.Code)
	}

	if logger != nil {
		logger.Error("api error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.Int("status", status),
		)
	}

	WriteJSON(w, status, errorEnvelope{Error: errorDetail{
		Message: apiErr.Message,
		Code:    string(apiErr.Code),
	}})
}

// ValidateContentType rejects requests whose Content-Type is not
// application/json, writing a 400 response and returning false.
func ValidateContentType(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		WriteError(w, logger, apierr.New(apierr.BadParam, "Content-Type must be application/json"))
		return false
	}
	return true
}

// DecodeJSONBody decodes the request body into dst, capping body size at
// 1 MiB. Unknown fields are tolerated: this endpoint mirrors the OpenAI
// chat-completions schema and real clients routinely send fields (n,
// logprobs, user, …) this gateway doesn't act on.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	if r.Body == nil {
		err := apierr.New(apierr.BadParam, "request body is empty")
		WriteError(w, logger, err)
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiErr := apierr.New(apierr.BadParam, "invalid JSON body").WithCause(err)
		WriteError(w, logger, apiErr)
		return apiErr
	}
	return nil
}
