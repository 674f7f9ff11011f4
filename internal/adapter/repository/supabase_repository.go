package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/medvoa-backend/internal/domain/errors"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	subscribersTable     = "subscribers"
	processedEventsTable = "processed_events"
)

// SupabaseRepository stores subscribers and processed events through the
// Supabase PostgREST API with the service role key.
type SupabaseRepository struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// NewSupabaseRepository creates a new Supabase REST repository
func NewSupabaseRepository(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *SupabaseRepository {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseRepository{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

var (
	_ repository.SubscriberRepository     = (*SupabaseRepository)(nil)
	_ repository.ProcessedEventRepository = (*SupabaseRepository)(nil)
	_ repository.UnitOfWork               = (*SupabaseRepository)(nil)
)

// supabaseSubscriber is the JSON form of a subscribers row
type supabaseSubscriber struct {
	Email                string     `json:"email"`
	UserID               *string    `json:"user_id,omitempty"`
	StripeCustomerID     *string    `json:"stripe_customer_id"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
	Subscribed           bool       `json:"subscribed"`
	Status               string     `json:"status"`
	SubscriptionTier     string     `json:"subscription_tier"`
	SubscriptionEnd      *time.Time `json:"subscription_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (s *supabaseSubscriber) toEntity() *entity.SubscriptionRecord {
	status := entity.NormalizeStatus(s.Status)
	tier := entity.DeriveTier(status)
	rec := &entity.SubscriptionRecord{
		Email:             s.Email,
		Subscribed:        tier == entity.TierPremium,
		Status:            status,
		Tier:              tier,
		CurrentPeriodEnd:  s.SubscriptionEnd,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		UpdatedAt:         s.UpdatedAt,
	}
	if s.UserID != nil {
		rec.UserID = *s.UserID
	}
	if s.StripeCustomerID != nil {
		rec.ProviderCustomerID = *s.StripeCustomerID
	}
	if s.StripeSubscriptionID != nil {
		rec.ProviderSubscriptionID = *s.StripeSubscriptionID
	}
	return rec
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// do executes one PostgREST call. out, when non-nil, receives the decoded
// body of a 2xx response.
func (r *SupabaseRepository) do(ctx context.Context, method, table string, query url.Values, body interface{}, prefer string, out interface{}) (int, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", r.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.apiKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("SupabaseRepository: HTTP request failed",
			zap.String("method", method),
			zap.String("table", table),
			zap.Duration("request_duration", time.Since(start)),
			zap.Error(err))
		return 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	r.logger.Debug("SupabaseRepository: HTTP request completed",
		zap.String("method", method),
		zap.String("table", table),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("request_duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			r.logger.Error("SupabaseRepository: Unauthorized access to Supabase API - Check API key type and table permissions",
				zap.String("table", table),
				zap.Int("status_code", resp.StatusCode),
				zap.ByteString("response_body", errorBody))
		}
		return resp.StatusCode, fmt.Errorf("supabase API error: %s %s: status %d: %s", method, table, resp.StatusCode, errorBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (r *SupabaseRepository) getOne(ctx context.Context, column, value string) (*entity.SubscriptionRecord, error) {
	query := url.Values{}
	query.Set(column, "eq."+value)
	query.Set("select", "*")
	query.Set("limit", "1")

	var rows []supabaseSubscriber
	if _, err := r.do(ctx, http.MethodGet, subscribersTable, query, nil, "", &rows); err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toEntity(), nil
}

// GetByEmail retrieves the canonical record for an email
func (r *SupabaseRepository) GetByEmail(ctx context.Context, email string) (*entity.SubscriptionRecord, error) {
	return r.getOne(ctx, "email", entity.NormalizeEmail(email))
}

// GetByUserID retrieves the canonical record bound to a user
func (r *SupabaseRepository) GetByUserID(ctx context.Context, userID string) (*entity.SubscriptionRecord, error) {
	if userID == "" {
		return nil, nil
	}
	return r.getOne(ctx, "user_id", userID)
}

// Upsert merges the snapshot on the email key. user_id is only sent when
// set so an existing binding is never nulled.
func (r *SupabaseRepository) Upsert(ctx context.Context, record *entity.SubscriptionRecord) error {
	row := supabaseSubscriber{
		Email:                record.Email,
		UserID:               optional(record.UserID),
		StripeCustomerID:     optional(record.ProviderCustomerID),
		StripeSubscriptionID: optional(record.ProviderSubscriptionID),
		Subscribed:           record.Subscribed,
		Status:               string(record.Status),
		SubscriptionTier:     string(record.Tier),
		SubscriptionEnd:      record.CurrentPeriodEnd,
		CancelAtPeriodEnd:    record.CancelAtPeriodEnd,
		UpdatedAt:            record.UpdatedAt,
	}

	query := url.Values{}
	query.Set("on_conflict", "email")

	if _, err := r.do(ctx, http.MethodPost, subscribersTable, query, row, "resolution=merge-duplicates,return=minimal", nil); err != nil {
		r.logger.Error("Failed to upsert subscriber",
			zap.String("email", record.Email),
			zap.String("status", string(record.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to upsert subscriber: %w", err)
	}
	return nil
}

// BindUserID links a user to the record while user_id is still null
func (r *SupabaseRepository) BindUserID(ctx context.Context, email, userID string) (bool, error) {
	query := url.Values{}
	query.Set("email", "eq."+entity.NormalizeEmail(email))
	query.Set("user_id", "is.null")

	var rows []supabaseSubscriber
	body := map[string]string{"user_id": userID}
	if _, err := r.do(ctx, http.MethodPatch, subscribersTable, query, body, "return=representation", &rows); err != nil {
		return false, fmt.Errorf("failed to bind user id: %w", err)
	}
	return len(rows) > 0, nil
}

// Exists reports whether an event id was already recorded
func (r *SupabaseRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	query := url.Values{}
	query.Set("event_id", "eq."+eventID)
	query.Set("select", "event_id")

	var rows []map[string]interface{}
	if _, err := r.do(ctx, http.MethodGet, processedEventsTable, query, nil, "", &rows); err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return len(rows) > 0, nil
}

// Insert records the event id. The primary key makes a second insert fail
// with 409, reported as ErrDuplicateEvent.
func (r *SupabaseRepository) Insert(ctx context.Context, eventID, eventType string) error {
	body := map[string]interface{}{
		"event_id":     eventID,
		"event_type":   eventType,
		"processed_at": time.Now().UTC(),
	}

	status, err := r.do(ctx, http.MethodPost, processedEventsTable, nil, body, "return=minimal", nil)
	if status == http.StatusConflict {
		return fmt.Errorf("event %s: %w", eventID, domainErrors.ErrDuplicateEvent)
	}
	if err != nil {
		return fmt.Errorf("failed to record processed event: %w", err)
	}
	return nil
}

// WithinTransaction runs fn directly. PostgREST has no multi-statement
// transactions, so an upsert that succeeded before a failed insert stays
// written; the provider retry then rewrites the same snapshot.
func (r *SupabaseRepository) WithinTransaction(ctx context.Context, fn func(repository.SubscriberRepository, repository.ProcessedEventRepository) error) error {
	return fn(r, r)
}
