package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"payprefs/internal/audit"
	"payprefs/internal/preference/metrics"
	"payprefs/internal/preference/models"
	"payprefs/internal/sentinel"
	dErrors "payprefs/pkg/domain-errors"
)

// Service orchestrates preference reads and writes against the two stores.
// A write is one atomic unit of work: compare the current value (absence
// means the default false), skip unchanged writes entirely, and otherwise
// upsert the record and append exactly one audit entry inside the same
// transaction boundary.
type Service struct {
	tx      Tx
	stores  Stores
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source, used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a preference service over the given transactional boundary
// and read-path stores.
func NewService(tx Tx, stores Stores, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		tx:     tx,
		stores: stores,
		logger: logger,
		tracer: otel.Tracer("payprefs/preference"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// GetPreferences returns the full preference view for the user: exactly one
// entry per known category in fixed order, stored values merged over the
// default. A user with zero stored records gets all defaults, never an error.
func (s *Service) GetPreferences(ctx context.Context, userID string) ([]models.Preference, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}

	records, err := s.stores.Prefs.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read preferences")
	}

	if s.metrics != nil {
		s.metrics.IncrementViews()
	}
	return models.FullView(records), nil
}

// SetPreference updates one category's opt-out flag and returns the fresh full
// view reflecting the committed value. Writing the current value is a no-op:
// no record write, no audit entry. An effective change commits the upsert and
// its audit entry together or not at all.
func (s *Service) SetPreference(ctx context.Context, userID string, category models.Category, optedOut bool, origin models.Origin) ([]models.Preference, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	// Reject before any storage access
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown category: %s", category))
	}

	ctx, span := s.tracer.Start(ctx, "preference.set",
		trace.WithAttributes(
			attribute.String("preference.category", string(category)),
			attribute.Bool("preference.opted_out", optedOut),
		))
	defer span.End()

	start := time.Now()
	var (
		view     []models.Preference
		oldValue bool
		changed  bool
	)

	err := s.tx.RunInTx(ctx, txKey(userID, category), func(ctx context.Context, st Stores) error {
		current := false
		record, err := st.Prefs.Find(ctx, userID, category)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read preference")
		}
		if err == nil {
			current = record.OptedOut
		}
		oldValue = current

		if optedOut != current {
			now := s.now()
			if err := st.Prefs.Upsert(ctx, &models.Record{
				UserID:    userID,
				Category:  category,
				OptedOut:  optedOut,
				UpdatedAt: now,
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to write preference")
			}
			if err := st.Audit.Append(ctx, &audit.Entry{
				UserID:    userID,
				Category:  string(category),
				OldValue:  current,
				NewValue:  optedOut,
				ChangedAt: now,
				IPAddress: origin.IPAddress,
				UserAgent: origin.UserAgent,
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to append audit entry")
			}
			changed = true
		}

		// Build the view inside the boundary so it reflects exactly the
		// just-committed state for this user.
		records, err := st.Prefs.ListByUser(ctx, userID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read preferences")
		}
		view = models.FullView(records)
		return nil
	})
	if err != nil {
		// Wrap preserves domain codes set inside the closure; raw commit
		// failures surface as storage unavailability with no partial state.
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "preference update could not commit")
	}

	if s.metrics != nil {
		s.metrics.ObserveUpdateLatency(time.Since(start).Seconds())
	}
	if changed {
		if s.metrics != nil {
			s.metrics.IncrementChanged(string(category), optedOut)
		}
		s.log(ctx, slog.LevelInfo, "preference_changed", userID, category,
			"old_value", oldValue,
			"new_value", optedOut,
		)
	} else {
		if s.metrics != nil {
			s.metrics.IncrementNoop(string(category))
		}
		s.log(ctx, slog.LevelDebug, "preference_unchanged", userID, category)
	}

	return view, nil
}

// History returns the user's own audit trail in commit order.
func (s *Service) History(ctx context.Context, userID string) ([]audit.Entry, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}

	entries, err := s.stores.Audit.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read audit trail")
	}
	return entries, nil
}

// txKey scopes the write-path lock to a single (user, category) pair.
func txKey(userID string, category models.Category) string {
	return userID + "/" + string(category)
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, userID string, category models.Category, args ...any) {
	if s.logger == nil {
		return
	}
	base := []any{
		"user_id", userID,
		"category", category,
	}
	s.logger.Log(ctx, level, msg, append(base, args...)...)
}
