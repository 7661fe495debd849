package gate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payprefs/internal/platform/middleware"
	"payprefs/internal/preference/models"
	"payprefs/pkg/httputil"
)

// DecisionResponse is the gate's answer for the delivery pipeline.
type DecisionResponse struct {
	Allowed bool `json:"allowed"`
}

// Handler exposes the gate check on the internal surface. The caller is the
// payment-event pipeline, not an end user, so the route sits outside the
// authenticated /me tree.
type Handler struct {
	gate   *Gate
	logger *slog.Logger
}

// NewHandler creates a new gate Handler.
func NewHandler(gate *Gate, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, logger: logger}
}

// Register mounts the gate route on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/internal/gate/{userID}/{category}", h.handleCheck)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	category := models.Category(chi.URLParam(r, "category"))

	allowed, err := h.gate.IsNotificationAllowed(ctx, userID, category)
	if err != nil {
		h.logger.WarnContext(ctx, "gate check failed",
			"request_id", middleware.GetRequestID(ctx),
			"category", category,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, DecisionResponse{Allowed: allowed})
}
