//go:build integration

package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"payprefs/internal/audit"
	"payprefs/internal/preference/models"
	"payprefs/internal/preference/service"
	prefstore "payprefs/internal/preference/store"
	"payprefs/pkg/testutil/containers"
)

// PostgresTxSuite drives the preference service through the real transaction
// runner to pin the write-path atomicity and serialization guarantees that
// the in-memory backend gets from its sharded mutex.
type PostgresTxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	service  *service.Service
	audit    *audit.PostgresStore
}

func TestPostgresTxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTxSuite))
}

func (s *PostgresTxSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())

	stores := service.Stores{
		Prefs: prefstore.NewPostgres(s.postgres.DB),
		Audit: audit.NewPostgres(s.postgres.DB),
	}
	s.audit = audit.NewPostgres(s.postgres.DB)
	s.service = service.NewService(
		newPreferencePostgresTx(s.postgres.DB, 10*time.Second),
		stores,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func (s *PostgresTxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

// Two concurrent first writes of the same value race on an absent row. Only
// one may be the effective change; the other must observe the committed value
// and no-op instead of appending a duplicate audit entry.
func (s *PostgresTxSuite) TestConcurrentIdenticalFirstWrites() {
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.SetPreference(ctx, "u1", models.CategoryPaymentSuccess, true, models.Origin{})
			s.NoError(err)
		}()
	}
	wg.Wait()

	entries, err := s.audit.ListByUser(ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(entries, 1, "identical concurrent writes must audit exactly one change")
	s.False(entries[0].OldValue)
	s.True(entries[0].NewValue)

	view, err := s.service.GetPreferences(ctx, "u1")
	s.Require().NoError(err)
	s.True(viewValue(view, models.CategoryPaymentSuccess))
}

// Concurrent opposing first writes must serialize: the loser of the race sees
// the winner's committed value, so the audit chain stays contiguous and the
// final stored state matches the last entry. A set-false racing a set-true
// must never be dropped as a stale no-op.
func (s *PostgresTxSuite) TestConcurrentOpposingFirstWrites() {
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		optOut := i%2 == 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.SetPreference(ctx, "u1", models.CategoryPaymentRefund, optOut, models.Origin{})
			s.NoError(err)
		}()
	}
	wg.Wait()

	entries, err := s.audit.ListByUser(ctx, "u1")
	s.Require().NoError(err)

	// Replay the chain from the implicit default.
	current := false
	for i, e := range entries {
		s.Equal(current, e.OldValue, "entry %d must continue from the previous committed value", i)
		s.NotEqual(e.OldValue, e.NewValue, "entry %d must record an effective change", i)
		current = e.NewValue
	}

	view, err := s.service.GetPreferences(ctx, "u1")
	s.Require().NoError(err)
	s.Equal(current, viewValue(view, models.CategoryPaymentRefund),
		"stored state must match the audit chain's final value")
}

// A no-op against an existing row must not add audit entries even while a
// writer on a different key is in flight; distinct keys never contend.
func (s *PostgresTxSuite) TestDistinctKeysDoNotInterfere() {
	ctx := context.Background()

	_, err := s.service.SetPreference(ctx, "u1", models.CategoryPaymentSuccess, true, models.Origin{})
	s.Require().NoError(err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.service.SetPreference(ctx, "u1", models.CategoryPaymentSuccess, true, models.Origin{})
		s.NoError(err)
	}()
	go func() {
		defer wg.Done()
		_, err := s.service.SetPreference(ctx, "u1", models.CategoryPaymentFailure, true, models.Origin{})
		s.NoError(err)
	}()
	wg.Wait()

	entries, err := s.audit.ListByUser(ctx, "u1")
	s.Require().NoError(err)
	s.Len(entries, 2, "one change per key, the repeated write is a no-op")
}

func viewValue(view []models.Preference, category models.Category) bool {
	for _, p := range view {
		if p.Category == category {
			return p.OptedOut
		}
	}
	return false
}
