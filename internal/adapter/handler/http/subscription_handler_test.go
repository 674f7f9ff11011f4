package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	"go.uber.org/zap"
)

func TestCheckSubscription(t *testing.T) {
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		snapshot   entity.SubscriptionSnapshot
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "premium",
			snapshot:   entity.SubscriptionSnapshot{Tier: entity.TierPremium, Status: entity.StatusActive, CurrentPeriodEnd: &end},
			wantStatus: http.StatusOK,
			wantBody:   `{"subscribed":true,"subscription_tier":"premium","subscription_end":"2025-03-01T00:00:00Z"}`,
		},
		{
			name:       "no subscription",
			snapshot:   entity.DefaultSnapshot(),
			wantStatus: http.StatusOK,
			wantBody:   `{"subscribed":false,"subscription_tier":"free","subscription_end":null}`,
		},
		{
			name:       "store failure",
			snapshot:   entity.DefaultSnapshot(),
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"UNAVAILABLE","error":"Internal Server Error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := new(MockSubscriptionReader)
			query.On("GetSnapshot", mock.Anything, testUser).Return(tt.snapshot, tt.err)
			e := newTestEcho(NewSubscriptionHandler(zap.NewNop(), query, new(MockEntitlementReader)), nil, nil)

			rec := serve(t, e, http.MethodPost, "/check-subscription", "", map[string]string{"Authorization": bearer(t)})

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			query.AssertExpectations(t)
		})
	}
}

func TestCheckSubscription_Unauthenticated(t *testing.T) {
	query := new(MockSubscriptionReader)
	e := newTestEcho(NewSubscriptionHandler(zap.NewNop(), query, new(MockEntitlementReader)), nil, nil)

	rec := serve(t, e, http.MethodPost, "/check-subscription", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	query.AssertNotCalled(t, "GetSnapshot", mock.Anything, mock.Anything)
}

func TestMe_LinksUserAndReturnsProfile(t *testing.T) {
	query := new(MockSubscriptionReader)
	query.On("LinkUser", mock.Anything, testEmail, testUserID).Return(true, nil)
	query.On("GetSnapshot", mock.Anything, testUser).
		Return(entity.SubscriptionSnapshot{Tier: entity.TierPremium, Status: entity.StatusTrialing}, nil)
	e := newTestEcho(NewSubscriptionHandler(zap.NewNop(), query, new(MockEntitlementReader)), nil, nil)

	rec := serve(t, e, http.MethodGet, "/me", "", map[string]string{"Authorization": bearer(t)})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"id": "550e8400-e29b-41d4-a716-446655440000",
		"name": "Ana Souza",
		"email": "ana@example.com",
		"isPremium": true,
		"plan": "premium",
		"subscription_status": "trialing",
		"current_period_end": null
	}`, rec.Body.String())
	query.AssertExpectations(t)
}

func TestMe_LinkFailureDoesNotBlockProfile(t *testing.T) {
	query := new(MockSubscriptionReader)
	query.On("LinkUser", mock.Anything, testEmail, testUserID).Return(false, errors.New("db down"))
	query.On("GetSnapshot", mock.Anything, testUser).Return(entity.DefaultSnapshot(), nil)
	e := newTestEcho(NewSubscriptionHandler(zap.NewNop(), query, new(MockEntitlementReader)), nil, nil)

	rec := serve(t, e, http.MethodGet, "/me", "", map[string]string{"Authorization": bearer(t)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isPremium":false`)
}

func TestEntitlements_ByTier(t *testing.T) {
	tests := []struct {
		name  string
		tier  entity.Tier
		check func(t *testing.T, ents map[string]interface{})
	}{
		{
			name: "free",
			tier: entity.TierFree,
			check: func(t *testing.T, ents map[string]interface{}) {
				assert.EqualValues(t, 3, ents["doutor_ia_daily"])
				assert.EqualValues(t, 1, ents["games_daily"])
				assert.Equal(t, false, ents["flashcards_ai"])
			},
		},
		{
			name: "premium",
			tier: entity.TierPremium,
			check: func(t *testing.T, ents map[string]interface{}) {
				assert.Equal(t, "unbounded", ents["doutor_ia_daily"])
				assert.Equal(t, true, ents["flashcards_ai"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ents := new(MockEntitlementReader)
			ents.On("Entitlements", mock.Anything, testUser).
				Return(entity.SubscriptionSnapshot{Tier: tt.tier}, resolvedSet(t, tt.tier), nil)
			e := newTestEcho(NewSubscriptionHandler(zap.NewNop(), new(MockSubscriptionReader), ents), nil, nil)

			rec := serve(t, e, http.MethodGet, "/me/entitlements", "", map[string]string{"Authorization": bearer(t)})
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Tier         string                 `json:"tier"`
				Entitlements map[string]interface{} `json:"entitlements"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.tier), body.Tier)
			tt.check(t, body.Entitlements)
		})
	}
}
