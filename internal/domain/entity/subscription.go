package entity

import (
	"strings"
	"time"
)

// Tier is the coarse entitlement level granted by a subscription.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// ParseTier maps any unrecognized or empty value to TierFree.
func ParseTier(s string) Tier {
	if Tier(strings.ToLower(strings.TrimSpace(s))) == TierPremium {
		return TierPremium
	}
	return TierFree
}

// SubscriptionStatus mirrors the payment provider's subscription status,
// narrowed to the values the product distinguishes.
type SubscriptionStatus string

const (
	StatusNone       SubscriptionStatus = "none"
	StatusActive     SubscriptionStatus = "active"
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
)

// NormalizeStatus converts a raw provider status into a SubscriptionStatus.
// Provider states without access map onto the closest known status.
func NormalizeStatus(raw string) SubscriptionStatus {
	switch s := SubscriptionStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusIncomplete, StatusNone:
		return s
	case "unpaid":
		return StatusPastDue
	case "incomplete_expired", "paused":
		return StatusCanceled
	default:
		return StatusNone
	}
}

// DeriveTier returns TierPremium iff status is active or trialing.
func DeriveTier(status SubscriptionStatus) Tier {
	if status == StatusActive || status == StatusTrialing {
		return TierPremium
	}
	return TierFree
}

// NormalizeEmail returns the canonical form of the join key shared by the
// payment provider and the user datastore.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SubscriptionRecord is the canonical subscription row, keyed by email.
// Empty strings stand for null identifiers.
type SubscriptionRecord struct {
	Email                  string             `json:"email"`
	UserID                 string             `json:"user_id,omitempty"`
	ProviderCustomerID     string             `json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string             `json:"provider_subscription_id,omitempty"`
	Subscribed             bool               `json:"subscribed"`
	Status                 SubscriptionStatus `json:"status"`
	Tier                   Tier               `json:"tier"`
	CurrentPeriodEnd       *time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd      bool               `json:"cancel_at_period_end"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// RecordInput carries the provider-supplied fields of a snapshot.
type RecordInput struct {
	Email                  string
	UserID                 string
	ProviderCustomerID     string
	ProviderSubscriptionID string
	Status                 SubscriptionStatus
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
}

// NewSubscriptionRecord builds a full snapshot. Tier and Subscribed are
// always derived from Status.
func NewSubscriptionRecord(in RecordInput, now time.Time) *SubscriptionRecord {
	status := in.Status
	if status == "" {
		status = StatusNone
	}
	tier := DeriveTier(status)
	return &SubscriptionRecord{
		Email:                  NormalizeEmail(in.Email),
		UserID:                 strings.TrimSpace(in.UserID),
		ProviderCustomerID:     in.ProviderCustomerID,
		ProviderSubscriptionID: in.ProviderSubscriptionID,
		Subscribed:             tier == TierPremium,
		Status:                 status,
		Tier:                   tier,
		CurrentPeriodEnd:       in.CurrentPeriodEnd,
		CancelAtPeriodEnd:      in.CancelAtPeriodEnd,
		UpdatedAt:              now.UTC(),
	}
}

// PreserveUserID keeps a user_id already bound on the stored record.
// A snapshot never unbinds or rebinds a user.
func (r *SubscriptionRecord) PreserveUserID(existing *SubscriptionRecord) {
	if existing != nil && existing.UserID != "" {
		r.UserID = existing.UserID
	}
}

// Snapshot projects the record onto the query result.
func (r *SubscriptionRecord) Snapshot() SubscriptionSnapshot {
	return SubscriptionSnapshot{
		Tier:             DeriveTier(r.Status),
		Status:           r.Status,
		CurrentPeriodEnd: r.CurrentPeriodEnd,
	}
}

// SubscriptionSnapshot is what the query path returns to callers.
type SubscriptionSnapshot struct {
	Tier             Tier               `json:"tier"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end"`
}

// DefaultSnapshot is the answer for "no subscription", which is a normal state.
func DefaultSnapshot() SubscriptionSnapshot {
	return SubscriptionSnapshot{Tier: TierFree, Status: StatusNone}
}

// IsPremium reports whether the snapshot grants premium access.
func (s SubscriptionSnapshot) IsPremium() bool {
	return s.Tier == TierPremium
}
