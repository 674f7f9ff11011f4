package model

import (
	"time"

	"github.com/wekeepgrowing/medvoa-backend/internal/domain/entity"
)

// Subscriber is the canonical subscription row, one per email
type Subscriber struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email                string     `gorm:"uniqueIndex;not null;size:320" json:"email"`
	UserID               *string    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	StripeCustomerID     *string    `gorm:"size:100;index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string    `gorm:"size:100" json:"stripe_subscription_id,omitempty"`
	Subscribed           bool       `gorm:"not null;default:false" json:"subscribed"`
	Status               string     `gorm:"not null;size:20;default:'none'" json:"status"`
	SubscriptionTier     string     `gorm:"column:subscription_tier;not null;size:20;default:'free'" json:"subscription_tier"`
	SubscriptionEnd      *time.Time `gorm:"column:subscription_end" json:"subscription_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt            time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscriber) TableName() string {
	return "subscribers"
}

// SubscriberFromEntity converts a domain record into its row form
func SubscriberFromEntity(r *entity.SubscriptionRecord) *Subscriber {
	return &Subscriber{
		Email:                r.Email,
		UserID:               nullable(r.UserID),
		StripeCustomerID:     nullable(r.ProviderCustomerID),
		StripeSubscriptionID: nullable(r.ProviderSubscriptionID),
		Subscribed:           r.Subscribed,
		Status:               string(r.Status),
		SubscriptionTier:     string(r.Tier),
		SubscriptionEnd:      r.CurrentPeriodEnd,
		CancelAtPeriodEnd:    r.CancelAtPeriodEnd,
		UpdatedAt:            r.UpdatedAt,
	}
}

// ToEntity converts the row into a domain record. Tier and subscribed are
// re-derived from status so a hand-edited row cannot grant access.
func (s *Subscriber) ToEntity() *entity.SubscriptionRecord {
	status := entity.NormalizeStatus(s.Status)
	tier := entity.DeriveTier(status)
	return &entity.SubscriptionRecord{
		Email:                  s.Email,
		UserID:                 deref(s.UserID),
		ProviderCustomerID:     deref(s.StripeCustomerID),
		ProviderSubscriptionID: deref(s.StripeSubscriptionID),
		Subscribed:             tier == entity.TierPremium,
		Status:                 status,
		Tier:                   tier,
		CurrentPeriodEnd:       s.SubscriptionEnd,
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd,
		UpdatedAt:              s.UpdatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
