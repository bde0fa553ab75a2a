package models

import (
	"strings"
	"time"
)

// Tier is a plan level determining credit ceilings and feature flags.
type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// IsValid checks if the tier is one of the supported enum values.
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierStandard, TierPremium:
		return true
	}
	return false
}

func (t Tier) String() string { return string(t) }

// TierLimits is one row of the plan limits table.
//
// Invariant: every field is monotonically non-decreasing free -> standard ->
// premium, except fields explicitly disabled (zero) for a lower tier.
type TierLimits struct {
	DocumentCredits Limit `json:"document_credits"`
	VoiceCredits    Limit `json:"voice_credits"`
	OtherCredits    Limit `json:"other_credits"`

	DocumentsPerDay     Limit `json:"documents_per_day"`
	PresentationsPerDay Limit `json:"presentations_per_day"`

	MaxWords int `json:"max_words"`

	UnlimitedChat  bool `json:"unlimited_chat"`
	AdvancedModels bool `json:"advanced_models"`
	APIAccess      bool `json:"api_access"`
}

// ForCategory returns the monthly ceiling for one credit category.
func (l TierLimits) ForCategory(c Category) Limit {
	switch c {
	case CategoryDocument:
		return l.DocumentCredits
	case CategoryVoice:
		return l.VoiceCredits
	default:
		return l.OtherCredits
	}
}

// The plan limits tables.
var (
	FreeLimits = TierLimits{
		DocumentCredits:     Limited(25),
		VoiceCredits:        Limited(5),
		OtherCredits:        Limited(50),
		DocumentsPerDay:     Limited(5),
		PresentationsPerDay: Limited(3),
		MaxWords:            1500,
	}

	StandardLimits = TierLimits{
		DocumentCredits:     Limited(200),
		VoiceCredits:        Limited(50),
		OtherCredits:        Limited(500),
		DocumentsPerDay:     Limited(50),
		PresentationsPerDay: Limited(25),
		MaxWords:            5000,
		UnlimitedChat:       true,
	}

	PremiumLimits = TierLimits{
		DocumentCredits:     Unlimited(),
		VoiceCredits:        Limited(500),
		OtherCredits:        Unlimited(),
		DocumentsPerDay:     Unlimited(),
		PresentationsPerDay: Unlimited(),
		MaxWords:            25000,
		UnlimitedChat:       true,
		AdvancedModels:      true,
		APIAccess:           true,
	}
)

// LimitsForTier returns the limits table row for a tier, defaulting to free
// for anything unknown.
func LimitsForTier(t Tier) TierLimits {
	switch t {
	case TierStandard:
		return StandardLimits
	case TierPremium:
		return PremiumLimits
	default:
		return FreeLimits
	}
}

// SubscriptionStatus is the billing state of a subscription record.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// Subscription is a user's billing record.
type Subscription struct {
	PlanType  string             `json:"plan_type"`
	Status    SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

// Entitled reports whether the subscription grants its plan's limits at now.
// Only active and trialing subscriptions count; a role record alone never
// grants paid limits.
func (s *Subscription) Entitled(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != SubscriptionActive && s.Status != SubscriptionTrialing {
		return false
	}
	if s.ExpiresAt != nil && now.After(*s.ExpiresAt) {
		return false
	}
	return true
}

// Tier maps the subscription's plan type to a tier. Unknown plan types
// resolve to free.
func (s *Subscription) Tier() Tier {
	if s == nil {
		return TierFree
	}
	switch strings.ToLower(strings.TrimSpace(s.PlanType)) {
	case "standard", "starter", "pro_monthly", "pro_yearly":
		return TierStandard
	case "premium", "premium_monthly", "premium_yearly", "ultimate":
		return TierPremium
	default:
		return TierFree
	}
}

// Role is the label from the roles table. Informative for display; never
// authoritative for crediting (subscription status decides).
type Role string

const (
	RoleFree     Role = "free"
	RoleStandard Role = "standard"
	RolePremium  Role = "premium"
)
