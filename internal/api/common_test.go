package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
)

func TestWriteError_MapsApierrCodeToStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, zap.NewNop(), apierr.New(apierr.UnknownModel, "no such model"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such model")
}

func TestWriteError_OpaqueErrorBecomesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, zap.NewNop(), errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestValidateContentType_RejectsNonJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	ok := ValidateContentType(rec, req, zap.NewNop())

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateContentType_AcceptsJSONWithCharset(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	rec := httptest.NewRecorder()

	ok := ValidateContentType(rec, req, zap.NewNop())

	assert.True(t, ok)
}

func TestDecodeJSONBody_RejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	var dst ChatRequest
	err := DecodeJSONBody(rec, req, &dst, zap.NewNop())

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeJSONBody_TolerantOfUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"model":"m","messages":[],"n":3,"user":"abc"}`))
	rec := httptest.NewRecorder()

	var dst ChatRequest
	err := DecodeJSONBody(rec, req, &dst, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "m", dst.Model)
}
