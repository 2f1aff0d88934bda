// Package api wires the transfer executor and the read-side store to HTTP.
// It is the request normalizer named in the specification's system
// overview: it extracts and validates the wire-level request, forwards it
// to the executor, and maps the executor's Result to a status code. The
// teacher shipped two divergent handler files (handler.go and handlers.go)
// covering an overlapping-but-not-identical set of routes; this package is
// their merge, generalized to the UUID schema and the executor's Result
// type.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/punchamoorthee/ledgerops/internal/executor"
	"github.com/punchamoorthee/ledgerops/internal/idempotency"
	"github.com/punchamoorthee/ledgerops/internal/logging"
	"github.com/punchamoorthee/ledgerops/internal/metrics"
	"github.com/punchamoorthee/ledgerops/internal/store"
)

// Handler holds the collaborators every route needs: the executor for the
// write path, the store for read paths, and the HTTP-edge metrics.
type Handler struct {
	executor *executor.TransferExecutor
	store    *store.Store
	log      logging.Logger
	metrics  *metrics.HTTP
}

// NewHandler builds a Handler. m may be nil, in which case HTTP metrics are
// recorded into a private registry that nothing exposes.
func NewHandler(ex *executor.TransferExecutor, s *store.Store, log logging.Logger, m *metrics.HTTP) *Handler {
	if m == nil {
		m = metrics.NewHTTP(prometheus.NewRegistry())
	}
	return &Handler{executor: ex, store: s, log: log, metrics: m}
}

// Router builds the full route table under a mux.Router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{id}/entries", h.GetAccountEntries).Methods(http.MethodGet)
	v1.HandleFunc("/transfers", h.CreateTransfer).Methods(http.MethodPost)
	v1.HandleFunc("/transfers/{id}", h.GetTransaction).Methods(http.MethodGet)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, r.Method, "/health")
}

// createAccountRequest is intentionally minimal: registration and account
// ownership assignment are out of the core's scope, so this endpoint just
// needs the owning user id.
type createAccountRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/accounts"
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		h.respondError(w, http.StatusBadRequest, "invalid or missing user_id", r.Method, endpoint)
		return
	}

	id, err := h.store.CreateAccount(r.Context(), req.UserID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to create account", r.Method, endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]uuid.UUID{"account_id": id}, r.Method, endpoint)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/accounts/{id}"
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid account id", r.Method, endpoint)
		return
	}

	acc, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "account not found", r.Method, endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, err.Error(), r.Method, endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, acc, r.Method, endpoint)
}

func (h *Handler) GetAccountEntries(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/accounts/{id}/entries"
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid account id", r.Method, endpoint)
		return
	}

	entries, err := h.store.GetAccountLedgerEntries(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "account not found", r.Method, endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, err.Error(), r.Method, endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, entries, r.Method, endpoint)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transfers/{id}"
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid transaction id", r.Method, endpoint)
		return
	}

	tr, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "transaction not found", r.Method, endpoint)
			return
		}
		h.respondError(w, http.StatusInternalServerError, err.Error(), r.Method, endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, tr, r.Method, endpoint)
}

// transferRequest is the wire shape of a transfer request. initiator comes
// from the authenticated session in a real deployment; here it is accepted
// in-body since session auth is out of scope.
type transferRequest struct {
	InitiatorUserID uuid.UUID `json:"initiator_user_id"`
	FromAccountID   uuid.UUID `json:"from_account_id"`
	ToAccountID     uuid.UUID `json:"to_account_id"`
	Amount          int64     `json:"amount"`
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transfers"
	if h.metrics != nil {
		timer := prometheus.NewTimer(h.metrics.RequestDuration.WithLabelValues(r.Method, endpoint))
		defer timer.ObserveDuration()
	}

	key, err := idempotency.Parse(r.Header.Get("Idempotency-Key"))
	if err != nil {
		if errors.Is(err, idempotency.ErrMissing) {
			h.respondError(w, http.StatusBadRequest, "missing Idempotency-Key header", r.Method, endpoint)
			return
		}
		h.respondError(w, http.StatusBadRequest, "malformed Idempotency-Key header", r.Method, endpoint)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed JSON body", r.Method, endpoint)
		return
	}

	in := executor.Input{
		InitiatorUserID: req.InitiatorUserID,
		FromAccountID:   req.FromAccountID,
		ToAccountID:     req.ToAccountID,
		Amount:          req.Amount,
		IdempotencyKey:  key,
	}

	res, err := h.executor.Execute(r.Context(), in)
	if err != nil {
		h.handleTransferError(w, r, endpoint, in, err)
		return
	}

	switch res.Outcome {
	case executor.OutcomeSucceededResult:
		w.Header().Set("Location", "/api/v1/transfers/"+res.Succeeded.TransactionID.String())
		status := http.StatusCreated
		if res.Succeeded.Replayed {
			status = http.StatusOK
		}
		h.respondJSON(w, status, res.Succeeded.Payload, r.Method, endpoint)
	case executor.OutcomeRejectedResult:
		h.respondJSON(w, http.StatusUnprocessableEntity, res.Rejected.Payload, r.Method, endpoint)
	}
}

func (h *Handler) handleTransferError(w http.ResponseWriter, r *http.Request, endpoint string, in executor.Input, err error) {
	switch {
	case errors.Is(err, executor.ErrInvalidAmount), errors.Is(err, executor.ErrSameAccount), errors.Is(err, executor.ErrMissingIdempotencyKey):
		h.respondError(w, http.StatusBadRequest, err.Error(), r.Method, endpoint)
	default:
		var fault *executor.SystemFault
		if h.log != nil {
			h.log.Error(r.Context(), "transfer system fault",
				"from_account_id", in.FromAccountID, "to_account_id", in.ToAccountID, "error", err)
		}
		reason := "unknown"
		if errors.As(err, &fault) {
			reason = fault.Reason
		}
		h.respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "TRANSFER_SYSTEM_FAILURE",
			"reason": reason,
		}, r.Method, endpoint)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	if h.metrics != nil {
		h.metrics.RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
