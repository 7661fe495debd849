package gate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payprefs/internal/preference/models"
	"payprefs/internal/preference/store"
)

func TestGateHandler(t *testing.T) {
	ctx := context.Background()
	prefs := store.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := chi.NewRouter()
	NewHandler(New(prefs, logger), logger).Register(router)

	check := func(t *testing.T, userID, category string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/internal/gate/"+userID+"/"+category, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decision := func(t *testing.T, rec *httptest.ResponseRecorder) bool {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code)
		var resp DecisionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Allowed
	}

	t.Run("fresh user allows delivery", func(t *testing.T) {
		assert.True(t, decision(t, check(t, "u1", "payment_refund")))
	})

	t.Run("opted out user is suppressed", func(t *testing.T) {
		require.NoError(t, prefs.Upsert(ctx, &models.Record{
			UserID:   "u1",
			Category: models.CategoryPaymentRefund,
			OptedOut: true,
		}))

		assert.False(t, decision(t, check(t, "u1", "payment_refund")))
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		rec := check(t, "u1", "marketing")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid_argument", body["error"])
	})
}
