// Package rest exposes viewer sessions and their product stores over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/abgdnv/catalogviewer/internal/catalog"
	catalogerrors "github.com/abgdnv/catalogviewer/internal/errors"
	"github.com/abgdnv/catalogviewer/internal/service"
	"github.com/abgdnv/catalogviewer/internal/session"
	"github.com/abgdnv/catalogviewer/internal/store"
	"github.com/abgdnv/catalogviewer/pkg/logger"
	"github.com/abgdnv/catalogviewer/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	defaultWaitTimeout = 30 * time.Second
	defaultKeepAlive   = 15 * time.Second
)

type Handler struct {
	registry    *session.Registry
	validate    *validator.Validate
	logger      *slog.Logger
	waitTimeout time.Duration
	keepAlive   time.Duration
}

// NewHandler creates a new Handler serving the sessions in registry.
// waitTimeout bounds how long a ?wait=true fetch blocks.
func NewHandler(registry *session.Registry, waitTimeout time.Duration, logger *slog.Logger) *Handler {
	if waitTimeout <= 0 {
		waitTimeout = defaultWaitTimeout
	}
	return &Handler{
		registry:    registry,
		validate:    service.NewValidator(),
		logger:      logger.With("component", "rest"),
		waitTimeout: waitTimeout,
		keepAlive:   defaultKeepAlive,
	}
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	ID        uuid.UUID      `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Snapshot  store.Snapshot `json:"snapshot"`
}

// RegisterRoutes registers the HTTP routes for viewer sessions.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(web.BearerTokenExtractor)
		r.Post("/", h.CreateSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Snapshot)
			r.Delete("/", h.DisposeSession)
			r.Post("/products", h.FetchAll)
			r.Post("/products/category/{category}", h.FetchByCategory)
			r.Post("/products/{productID}", h.FetchByID)
			r.Patch("/filters", h.UpdateFilters)
			r.Delete("/filters", h.ResetFilters)
			r.Get("/events", h.Events)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// CreateSession starts a session. The bearer token of the request becomes
// the session's default token.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	s, err := h.registry.Create(web.BearerToken(r.Context()))
	if err != nil {
		if errors.Is(err, catalogerrors.ErrSessionLimit) {
			mLogger.WarnContext(r.Context(), "Session limit reached")
			web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Too many sessions")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error creating session", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create session")
		return
	}
	mLogger.InfoContext(logger.WithSessionID(r.Context(), s.ID.String()), "Session created")
	web.RespondJSON(w, mLogger, http.StatusCreated, SessionResponse{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Snapshot:  s.Store.Snapshot(),
	})
}

// Snapshot returns the current state of a session.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	s, ok := h.session(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, s.Store.Snapshot())
}

// DisposeSession tears a session down.
func (h *Handler) DisposeSession(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	id, ok := web.ParseUUID(w, r, mLogger, "id")
	if !ok {
		return
	}
	if err := h.registry.Dispose(id); err != nil {
		if errors.Is(err, catalogerrors.ErrSessionNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Session with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error disposing session", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to dispose session with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Session disposed", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// FetchAll loads the whole collection. Query parameters other than wait are
// forwarded to the catalog API; a bearer token overrides the session default.
func (h *Handler) FetchAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	s, ok := h.session(w, r, mLogger)
	if !ok {
		return
	}
	params := forwardedParams(r)
	mLogger.DebugContext(r.Context(), "Fetching all products", "params", params.Encode())
	s.Store.FetchAll(params, web.BearerToken(r.Context()))
	h.respondAfterFetch(w, r, mLogger, s)
}

// FetchByCategory loads one category into the collection.
func (h *Handler) FetchByCategory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	s, ok := h.session(w, r, mLogger)
	if !ok {
		return
	}
	category, ok := pathParam(w, r, mLogger, "category")
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Fetching products by category", "category", category)
	s.Store.FetchByCategory(category, forwardedParams(r))
	h.respondAfterFetch(w, r, mLogger, s)
}

// FetchByID loads one product into the selection.
func (h *Handler) FetchByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	s, ok := h.session(w, r, mLogger)
	if !ok {
		return
	}
	productID, ok := pathParam(w, r, mLogger, "productID")
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Fetching product by ID", "product_id", productID)
	s.Store.FetchByID(catalog.ProductID(productID))
	h.respondAfterFetch(w, r, mLogger, s)
}

// UpdateFilters applies a partial filter edit.
func (h *Handler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	s, ok := h.session(w, r, mLogger)
	if !ok {
		return
	}
	var update catalog.FilterUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(update); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.Store.UpdateFilters(update)
	web.RespondJSON(w, mLogger, http.StatusOK, s.Store.Snapshot())
}

// ResetFilters restores the default filters.
func (h *Handler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	s, ok := h.session(w, r, mLogger)
	if !ok {
		return
	}
	s.Store.ResetFilters()
	web.RespondJSON(w, mLogger, http.StatusOK, s.Store.Snapshot())
}

// Events streams a snapshot as a server-sent event each time the store
// changes. The stream ends when the client goes away or the session is
// disposed.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	s, ok := h.session(w, r, mLogger)
	if !ok {
		return
	}
	signals, unsubscribe := s.Store.Subscribe()
	defer unsubscribe()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, rc, "snapshot", s.Store.Snapshot()); err != nil {
		mLogger.WarnContext(r.Context(), "Error writing event", "error", err)
		return
	}

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-signals:
			if !open {
				_ = writeEvent(w, rc, "closed", map[string]string{"id": s.ID.String()})
				return
			}
			if err := writeEvent(w, rc, "snapshot", s.Store.Snapshot()); err != nil {
				mLogger.WarnContext(r.Context(), "Error writing event", "error", err)
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]any{"status": "ok", "sessions": h.registry.Len()})
}

// respondAfterFetch replies 202 with the current snapshot, or 200 with the
// settled snapshot when the caller asked to wait.
func (h *Handler) respondAfterFetch(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, s *session.Session) {
	if r.URL.Query().Get("wait") != "true" {
		web.RespondJSON(w, mLogger, http.StatusAccepted, s.Store.Snapshot())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()
	if err := s.Store.Wait(ctx); err != nil {
		mLogger.WarnContext(r.Context(), "Fetch did not settle in time", "error", err)
		web.RespondJSON(w, mLogger, http.StatusAccepted, s.Store.Snapshot())
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, s.Store.Snapshot())
}

// session resolves the {id} URL parameter to a live session.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (*session.Session, bool) {
	id, ok := web.ParseUUID(w, r, mLogger, "id")
	if !ok {
		return nil, false
	}
	s, err := h.registry.Get(id)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Session not found", "ID", id)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Session with ID %s not found", id))
		return nil, false
	}
	return s, true
}

// requestLogger returns the handler logger scoped to the session in the URL.
// The request ID is added by the logging handler from the context.
func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	if id := chi.URLParam(r, "id"); id != "" {
		return h.logger.With("session_id", id)
	}
	return h.logger
}

func pathParam(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	value, err := url.PathUnescape(raw)
	if err != nil {
		web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", name, raw))
		return "", false
	}
	return value, true
}

func forwardedParams(r *http.Request) url.Values {
	params := r.URL.Query()
	params.Del("wait")
	return params
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return rc.Flush()
}
