package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/astroserve/astroserve/internal/auth"
	"github.com/astroserve/astroserve/internal/chart"
	"github.com/astroserve/astroserve/internal/metrics"
	"github.com/astroserve/astroserve/internal/store"
)

// maxBodyBytes caps the submission body size.
const maxBodyBytes = 1 << 20

// Enqueuer schedules a validated submission for background computation.
// Implemented by dispatch.Dispatcher.
type Enqueuer interface {
	Enqueue(subject auth.Subject, in chart.Input) bool
}

// Options wires a Handler.
type Options struct {
	Auth          *auth.Authenticator
	Dispatcher    Enqueuer
	Results       store.Results
	Notifications store.Notifications
	Metrics       *metrics.Registry

	// CORSOrigins is the browser origin allow-list.
	CORSOrigins []string
}

// Handler is the HTTP handler for all astroserve endpoints.
type Handler struct {
	auth       *auth.Authenticator
	dispatcher Enqueuer
	results    store.Results
	notifs     store.Notifications
	metrics    *metrics.Registry
	mux        *http.ServeMux
	now        func() time.Time
}

// New creates a Handler and registers all routes.
func New(opts Options) http.Handler {
	h := &Handler{
		auth:       opts.Auth,
		dispatcher: opts.Dispatcher,
		results:    opts.Results,
		notifs:     opts.Notifications,
		metrics:    opts.Metrics,
		mux:        http.NewServeMux(),
		now:        time.Now,
	}

	h.mux.HandleFunc("/health", h.health)
	h.mux.HandleFunc("/mapa-astral/calcular", h.submit)
	h.mux.HandleFunc("/mapa-astral/status", h.status)
	h.mux.HandleFunc("/mapa-astral/resultado", h.result)
	h.mux.HandleFunc("/mapa-astral/notifications", h.notifications)
	h.mux.HandleFunc("/mapa-astral/notifications/", h.markRead) // subtree — extracts {id}
	if opts.Metrics != nil {
		h.mux.Handle("/metrics", opts.Metrics.Handler())
	}

	return withCORS(opts.CORSOrigins, h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// A handler fault must never take the process down with it.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("api: handler panicked", "path", r.URL.Path, "panic", rec)
			jsonErr(w, http.StatusInternalServerError, "internal server error", "")
		}
	}()

	_, pattern := h.mux.Handler(r)
	if pattern == "" {
		jsonErr(w, http.StatusNotFound, "route not found", r.URL.Path)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// submit handles POST /mapa-astral/calcular. The acknowledgment is written
// before the task is enqueued: acceptance never waits on, and never learns
// about, the computation.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var raw chart.Raw
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body", "body must be a JSON object")
		return
	}

	input, fieldErrs := chart.Validate(raw)
	if len(fieldErrs) > 0 {
		h.metrics.Inc(metrics.SubmissionsRejected)
		jsonResp(w, http.StatusBadRequest, ValidationResponse{
			Error:   "invalid input",
			Details: fieldErrs,
		})
		return
	}

	h.metrics.Inc(metrics.SubmissionsAccepted)
	jsonResp(w, http.StatusAccepted, AcceptedResponse{
		Message:       "Astral chart calculation started. You will be notified when it completes.",
		Status:        "processing",
		EstimatedTime: "2-5 minutes",
	})

	// Scheduling failure is logged inside Enqueue; the 202 stands either way.
	h.dispatcher.Enqueue(subject, input)
}

// status handles GET /mapa-astral/status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	rec, err := h.results.GetResult(r.Context(), string(subject))
	if errors.Is(err, store.ErrNoResult) {
		jsonErr(w, http.StatusNotFound, "no astral chart calculation found", "")
		return
	}
	if err != nil {
		slog.Error("api: read result failed", "subject", subject, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	jsonResp(w, http.StatusOK, StatusResponse{
		Status:     rec.Status,
		ComputedAt: rec.ComputedAt.UTC().Format(time.RFC3339),
		HasResult:  rec.Result != nil,
		Error:      rec.Error,
	})
}

// result handles GET /mapa-astral/resultado with the full stored payload.
func (h *Handler) result(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	rec, err := h.results.GetResult(r.Context(), string(subject))
	if errors.Is(err, store.ErrNoResult) {
		jsonErr(w, http.StatusNotFound, "no astral chart calculation found", "")
		return
	}
	if err != nil {
		slog.Error("api: read result failed", "subject", subject, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	jsonResp(w, http.StatusOK, ResultResponse{
		Status:     rec.Status,
		ComputedAt: rec.ComputedAt.UTC().Format(time.RFC3339),
		Input:      rec.Input,
		Result:     rec.Result,
		Error:      rec.Error,
	})
}

// notifications handles GET /mapa-astral/notifications, newest first.
func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	subject, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	list, err := h.notifs.ListNotifications(r.Context(), string(subject))
	if err != nil {
		slog.Error("api: list notifications failed", "subject", subject, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Kind:      n.Kind,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// markRead handles POST /mapa-astral/notifications/{id}/read.
func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/mapa-astral/notifications/")
	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" || action != "read" {
		jsonErr(w, http.StatusNotFound, "route not found", r.URL.Path)
		return
	}

	subject, okAuth := h.authenticate(w, r)
	if !okAuth {
		return
	}

	switch err := h.notifs.MarkRead(r.Context(), string(subject), id); {
	case errors.Is(err, store.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "notification not found", "")
	case err != nil:
		slog.Error("api: mark read failed", "subject", subject, "id", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal server error", "")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// health handles GET /health. No auth.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "astroserve",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ----------------------------------------------------------------

// authenticate resolves the caller's subject, writing the 401 itself when
// the credential is missing or invalid.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (auth.Subject, bool) {
	subject, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
	if err == nil {
		return subject, true
	}

	h.metrics.Inc(metrics.AuthFailures)
	msg := "invalid authentication token"
	if errors.Is(err, auth.ErrMissingCredential) {
		msg = "missing or malformed authorization header"
	}
	jsonErr(w, http.StatusUnauthorized, "unauthorized", msg)
	return "", false
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, errMsg, detail string) {
	jsonResp(w, code, errorResponse{Error: errMsg, Message: detail})
}
