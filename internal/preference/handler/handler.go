package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payprefs/internal/audit"
	"payprefs/internal/platform/middleware"
	"payprefs/internal/preference/models"
	dErrors "payprefs/pkg/domain-errors"
	"payprefs/pkg/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/service.go -package=mocks

// Service defines the interface for preference operations.
type Service interface {
	GetPreferences(ctx context.Context, userID string) ([]models.Preference, error)
	SetPreference(ctx context.Context, userID string, category models.Category, optedOut bool, origin models.Origin) ([]models.Preference, error)
	History(ctx context.Context, userID string) ([]audit.Entry, error)
}

// Handler handles preference endpoints for the authenticated user.
type Handler struct {
	logger *slog.Logger
	prefs  Service
}

// New creates a new preference Handler.
func New(prefs Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		prefs:  prefs,
	}
}

// Register mounts the preference routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me/notification-preferences", h.handleGetPreferences)
	r.Put("/me/notification-preferences/{category}", h.handleUpdatePreference)
	r.Get("/me/notification-preferences/history", h.handleHistory)
}

func (h *Handler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, ok := h.requireUserID(ctx, w, requestID)
	if !ok {
		return
	}

	view, err := h.prefs.GetPreferences(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read preferences",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PreferencesResponse{Preferences: view})
}

func (h *Handler) handleUpdatePreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, ok := h.requireUserID(ctx, w, requestID)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	category := models.Category(chi.URLParam(r, "category"))
	origin := models.Origin{
		IPAddress: middleware.GetClientIP(ctx),
		UserAgent: middleware.ClientLabel(middleware.GetUserAgent(ctx)),
	}

	view, err := h.prefs.SetPreference(ctx, userID, category, *req.OptedOut, origin)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update preference",
			"request_id", requestID,
			"category", category,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PreferencesResponse{Preferences: view})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, ok := h.requireUserID(ctx, w, requestID)
	if !ok {
		return
	}

	entries, err := h.prefs.History(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read preference history",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, formatHistory(entries))
}

// requireUserID extracts the authenticated user from the context. The auth
// middleware guarantees presence on registered routes; absence is a wiring bug.
func (h *Handler) requireUserID(ctx context.Context, w http.ResponseWriter, requestID string) (string, bool) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return userID, true
}
