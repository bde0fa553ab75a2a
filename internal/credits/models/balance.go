package models

import (
	"time"

	"github.com/google/uuid"

	id "creditgate/pkg/domain"
	dErrors "creditgate/pkg/domain-errors"
)

// GuestMaxCredits is the fixed allotment for unauthenticated devices.
const GuestMaxCredits = 1

// Balance is a subject's credit state as last fetched, plus any optimistic
// local decrements applied since.
//
// Invariant: local state is never authoritative. A fetch fully REPLACES the
// balance with server truth; optimistic decrements are never merged back.
type Balance struct {
	Tier   Tier         `json:"tier"`
	Role   Role         `json:"role"`
	Limits TierLimits   `json:"limits"`
	Used   MonthlyUsage `json:"used"`

	DocumentRemaining Limit `json:"document_remaining"`
	VoiceRemaining    Limit `json:"voice_remaining"`
	OtherRemaining    Limit `json:"other_remaining"`

	// Today holds current-day counts for per-day ceiling checks.
	Today DailyUsage `json:"today"`

	// DisplayTotal aggregates remaining credits with 999 substituted for
	// unlimited categories. Display only, never used for gating.
	DisplayTotal int `json:"display_total"`

	// Degraded marks a balance assembled under free limits because a remote
	// lookup failed; the UI should still render, just conservatively.
	Degraded bool `json:"degraded"`

	Guest     bool      `json:"guest"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Remaining returns the remaining limit for one category.
func (b *Balance) Remaining(c Category) Limit {
	switch c {
	case CategoryDocument:
		return b.DocumentRemaining
	case CategoryVoice:
		return b.VoiceRemaining
	default:
		return b.OtherRemaining
	}
}

// SetRemaining replaces the remaining limit for one category.
func (b *Balance) SetRemaining(c Category, l Limit) {
	switch c {
	case CategoryDocument:
		b.DocumentRemaining = l
	case CategoryVoice:
		b.VoiceRemaining = l
	default:
		b.OtherRemaining = l
	}
}

// RecomputeDisplayTotal refreshes the display aggregate.
func (b *Balance) RecomputeDisplayTotal() {
	b.DisplayTotal = b.DocumentRemaining.DisplayValue() +
		b.VoiceRemaining.DisplayValue() +
		b.OtherRemaining.DisplayValue()
}

// NewBalance assembles an authenticated balance from tier, usage, and limits.
func NewBalance(tier Tier, role Role, limits TierLimits, used MonthlyUsage, today DailyUsage, now time.Time) *Balance {
	b := &Balance{
		Tier:              tier,
		Role:              role,
		Limits:            limits,
		Used:              used,
		DocumentRemaining: limits.DocumentCredits.Remaining(used.Document),
		VoiceRemaining:    limits.VoiceCredits.Remaining(used.Voice),
		OtherRemaining:    limits.OtherCredits.Remaining(used.Other),
		Today:             today,
		FetchedAt:         now,
	}
	b.RecomputeDisplayTotal()
	return b
}

// NewGuestBalance assembles the device-local balance for a guest.
// All categories mirror the single shared guest credit.
func NewGuestBalance(used bool, now time.Time) *Balance {
	remaining := GuestMaxCredits
	if used {
		remaining = 0
	}
	b := &Balance{
		Tier:              TierFree,
		Role:              RoleFree,
		Limits:            FreeLimits,
		DocumentRemaining: Limited(remaining),
		VoiceRemaining:    Limited(remaining),
		OtherRemaining:    Limited(remaining),
		Guest:             true,
		FetchedAt:         now,
	}
	b.RecomputeDisplayTotal()
	return b
}

// ReservationState tracks a credit reservation through its lifecycle.
type ReservationState string

const (
	ReservationReserved  ReservationState = "reserved"
	ReservationCommitted ReservationState = "committed"
	ReservationReleased  ReservationState = "released"
)

// Reservation is one optimistic credit hold: reserved when a generation is
// authorized, committed when it succeeds, released (decrement rolled back)
// when it fails.
type Reservation struct {
	ID         string           `json:"id"`
	SubjectKey string           `json:"subject_key"`
	UserID     id.UserID        `json:"user_id"`
	Category   Category         `json:"category"`
	Kind       UsageKind        `json:"kind"`
	State      ReservationState `json:"state"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewReservation creates a Reservation in the reserved state.
func NewReservation(subjectKey string, category Category, now time.Time) (*Reservation, error) {
	if subjectKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject key cannot be empty")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid category")
	}
	return &Reservation{
		ID:         uuid.NewString(),
		SubjectKey: subjectKey,
		Category:   category,
		State:      ReservationReserved,
		CreatedAt:  now,
	}, nil
}

// Commit transitions reserved -> committed.
func (r *Reservation) Commit() error {
	if r.State != ReservationReserved {
		return dErrors.New(dErrors.CodeInvariantViolation, "reservation is not in reserved state")
	}
	r.State = ReservationCommitted
	return nil
}

// Release transitions reserved -> released.
func (r *Reservation) Release() error {
	if r.State != ReservationReserved {
		return dErrors.New(dErrors.CodeInvariantViolation, "reservation is not in reserved state")
	}
	r.State = ReservationReleased
	return nil
}
