package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/punchamoorthee/ledgerops/internal/executor"
	"github.com/punchamoorthee/ledgerops/internal/metrics"
	"github.com/stretchr/testify/require"
)

// newTestHandler builds a Handler whose executor and store are never
// dereferenced by the validation-only paths exercised below.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	ex := executor.NewTransferExecutor(nil, nil, metrics.NewExecutor(prometheus.NewRegistry()))
	return NewHandler(ex, nil, nil, metrics.NewHTTP(prometheus.NewRegistry()))
}

func TestRouter_HealthOK(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCreateTransfer_MissingIdempotencyKey(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Idempotency-Key")
}

func TestCreateTransfer_MalformedIdempotencyKey(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "malformed")
}

func TestCreateTransfer_MalformedBody(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(`not json`))
	req.Header.Set("Idempotency-Key", "5b1f6f1e-0b7a-4b8a-8c9a-4a4b2e6f9d10")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAccount_InvalidID(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTransaction_InvalidID(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
