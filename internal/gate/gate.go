// Package gate exposes the suppression decision consumed by the payment
// notification delivery pipeline.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"payprefs/internal/preference/models"
	"payprefs/internal/preference/store"
	"payprefs/internal/sentinel"
	dErrors "payprefs/pkg/domain-errors"
)

var (
	decisionsAllowed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payprefs_gate_allowed_total",
		Help: "Total number of gate checks that allowed delivery, labeled by category",
	}, []string{"category"})
	decisionsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payprefs_gate_suppressed_total",
		Help: "Total number of gate checks that suppressed delivery, labeled by category",
	}, []string{"category"})
)

// Gate answers whether a notification may be delivered. It is a pure read
// over the preference store: no locks, no side effects, current committed
// state only.
type Gate struct {
	prefs  store.Store
	logger *slog.Logger
}

// New constructs a Gate over the given preference store.
func New(prefs store.Store, logger *slog.Logger) *Gate {
	return &Gate{prefs: prefs, logger: logger}
}

// IsNotificationAllowed reports whether a notification for the given user and
// category should be delivered. Absence of a record means the default: allow.
func (g *Gate) IsNotificationAllowed(ctx context.Context, userID string, category models.Category) (bool, error) {
	if userID == "" {
		return false, dErrors.New(dErrors.CodeUnauthorized, "missing user id")
	}
	if !category.IsValid() {
		return false, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown category: %s", category))
	}

	record, err := g.prefs.Find(ctx, userID, category)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			decisionsAllowed.WithLabelValues(string(category)).Inc()
			return true, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read preference")
	}

	if record.OptedOut {
		decisionsSuppressed.WithLabelValues(string(category)).Inc()
		if g.logger != nil {
			g.logger.DebugContext(ctx, "notification suppressed",
				"user_id", userID,
				"category", category,
			)
		}
		return false, nil
	}
	decisionsAllowed.WithLabelValues(string(category)).Inc()
	return true, nil
}
