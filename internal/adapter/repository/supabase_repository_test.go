package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/medvoa-backend/internal/domain/errors"
	"go.uber.org/zap"
)

func newSupabaseTestRepo(t *testing.T, handler http.HandlerFunc) *SupabaseRepository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSupabaseRepository(server.URL+"/", "test-service-key", time.Second, zap.NewNop())
}

func assertSupabaseHeaders(t *testing.T, r *http.Request) {
	assert.Equal(t, "test-service-key", r.Header.Get("apikey"))
	assert.Equal(t, "Bearer test-service-key", r.Header.Get("Authorization"))
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
}

func TestSupabaseRepository_GetByEmail(t *testing.T) {
	tests := []struct {
		name               string
		mockServerResponse func(w http.ResponseWriter, r *http.Request)
		expectedRecord     *entity.SubscriptionRecord
		expectedError      bool
	}{
		{
			name: "record found",
			mockServerResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/rest/v1/subscribers", r.URL.Path)
				assert.Equal(t, "eq.user@example.com", r.URL.Query().Get("email"))
				assert.Equal(t, "1", r.URL.Query().Get("limit"))
				assertSupabaseHeaders(t, r)

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`[{
					"email": "user@example.com",
					"user_id": "550e8400-e29b-41d4-a716-446655440000",
					"stripe_customer_id": "cus_1",
					"stripe_subscription_id": null,
					"subscribed": true,
					"status": "trialing",
					"subscription_tier": "premium",
					"subscription_end": "2024-06-01T00:00:00Z",
					"cancel_at_period_end": false,
					"updated_at": "2024-05-01T12:00:00Z"
				}]`))
			},
			expectedRecord: &entity.SubscriptionRecord{
				Email:              "user@example.com",
				UserID:             "550e8400-e29b-41d4-a716-446655440000",
				ProviderCustomerID: "cus_1",
				Subscribed:         true,
				Status:             entity.StatusTrialing,
				Tier:               entity.TierPremium,
				CurrentPeriodEnd:   timePtr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
				UpdatedAt:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "tier is derived from status, not the stored column",
			mockServerResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[{"email":"user@example.com","subscribed":true,"status":"canceled","subscription_tier":"premium","updated_at":"2024-05-01T12:00:00Z"}]`))
			},
			expectedRecord: &entity.SubscriptionRecord{
				Email:     "user@example.com",
				Status:    entity.StatusCanceled,
				Tier:      entity.TierFree,
				UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "no record",
			mockServerResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[]`))
			},
		},
		{
			name: "server error",
			mockServerResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"message":"boom"}`))
			},
			expectedError: true,
		},
		{
			name: "unauthorized",
			mockServerResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			expectedError: true,
		},
		{
			name: "invalid json",
			mockServerResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{not json`))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newSupabaseTestRepo(t, tt.mockServerResponse)

			rec, err := repo.GetByEmail(context.Background(), " User@Example.com")
			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, rec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedRecord, rec)
		})
	}
}

func TestSupabaseRepository_Upsert(t *testing.T) {
	var body map[string]interface{}
	repo := newSupabaseTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/subscribers", r.URL.Path)
		assert.Equal(t, "email", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		assertSupabaseHeaders(t, r)

		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))
		w.WriteHeader(http.StatusCreated)
	})

	rec := entity.NewSubscriptionRecord(entity.RecordInput{
		Email:              "user@example.com",
		ProviderCustomerID: "cus_1",
		Status:             entity.StatusActive,
	}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Upsert(context.Background(), rec))

	assert.Equal(t, "user@example.com", body["email"])
	assert.Equal(t, "premium", body["subscription_tier"])
	assert.Equal(t, true, body["subscribed"])
	assert.Nil(t, body["subscription_end"])
	assert.NotContains(t, body, "user_id", "unbound user_id must not overwrite an existing binding")
}

func TestSupabaseRepository_Insert(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		duplicate bool
	}{
		{name: "created", status: http.StatusCreated},
		{name: "duplicate", status: http.StatusConflict, wantErr: true, duplicate: true},
		{name: "server error", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newSupabaseTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/rest/v1/processed_events", r.URL.Path)
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "evt_1", body["event_id"])
				assert.Equal(t, "invoice.paid", body["event_type"])
				w.WriteHeader(tt.status)
			})

			err := repo.Insert(context.Background(), "evt_1", "invoice.paid")
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.duplicate, errors.Is(err, domainErrors.ErrDuplicateEvent))
		})
	}
}

func TestSupabaseRepository_Exists(t *testing.T) {
	repo := newSupabaseTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("event_id") == "eq.evt_seen" {
			w.Write([]byte(`[{"event_id":"evt_seen"}]`))
			return
		}
		w.Write([]byte(`[]`))
	})

	seen, err := repo.Exists(context.Background(), "evt_seen")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = repo.Exists(context.Background(), "evt_new")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestSupabaseRepository_BindUserID(t *testing.T) {
	repo := newSupabaseTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.user@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "is.null", r.URL.Query().Get("user_id"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		w.Write([]byte(`[{"email":"user@example.com","user_id":"u1","status":"none","subscription_tier":"free","updated_at":"2024-05-01T12:00:00Z"}]`))
	})

	bound, err := repo.BindUserID(context.Background(), "User@example.com", "u1")
	require.NoError(t, err)
	assert.True(t, bound)
}

func TestSupabaseRepository_GetByUserIDEmpty(t *testing.T) {
	repo := newSupabaseTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	rec, err := repo.GetByUserID(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
