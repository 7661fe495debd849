package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payprefs/internal/preference/models"
	"payprefs/internal/sentinel"
)

func TestInMemoryStore_FindNotFound(t *testing.T) {
	s := New()
	_, err := s.Find(context.Background(), "u1", models.CategoryPaymentSuccess)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestInMemoryStore_UpsertAndFind(t *testing.T) {
	s := New()
	ctx := context.Background()

	record := &models.Record{
		UserID:    "u1",
		Category:  models.CategoryPaymentSuccess,
		OptedOut:  true,
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.Upsert(ctx, record))

	found, err := s.Find(ctx, "u1", models.CategoryPaymentSuccess)
	require.NoError(t, err)
	assert.True(t, found.OptedOut)

	// Upsert replaces in place: still one record per key
	record.OptedOut = false
	require.NoError(t, s.Upsert(ctx, record))

	records, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].OptedOut)
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &models.Record{
		UserID:   "u1",
		Category: models.CategoryPaymentRefund,
		OptedOut: true,
	}))

	found, err := s.Find(ctx, "u1", models.CategoryPaymentRefund)
	require.NoError(t, err)
	found.OptedOut = false

	again, err := s.Find(ctx, "u1", models.CategoryPaymentRefund)
	require.NoError(t, err)
	assert.True(t, again.OptedOut, "external mutation must not leak into the store")
}

func TestInMemoryStore_ListByUserScopedToUser(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &models.Record{UserID: "u1", Category: models.CategoryPaymentSuccess, OptedOut: true}))
	require.NoError(t, s.Upsert(ctx, &models.Record{UserID: "u2", Category: models.CategoryPaymentFailure, OptedOut: true}))

	records, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u1", records[0].UserID)

	empty, err := s.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
