// Package audit defines the audit event model shared by policy services.
// Events are transport-agnostic so publishers can fan out to logs or Kafka.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers events relevant to abuse monitoring.
	// Examples: rate limit exceeded, guest credit burned, admin resets.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and visibility.
	// Examples: credit fetches degraded to free limits, reservation releases.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key policy decisions.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Subject   string        `json:"subject"` // subject key (user:<id> or device:<id>)
	Action    string        `json:"action"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
}

// AuditAction names for the events this service emits.
const (
	ActionRateLimitExceeded   = "rate_limit_exceeded"
	ActionRateLimitReset      = "rate_limit_reset"
	ActionGuestCreditUsed     = "guest_credit_used"
	ActionGuestCreditReset    = "guest_credit_reset"
	ActionCreditExhausted     = "credit_exhausted"
	ActionCreditReserved      = "credit_reserved"
	ActionCreditReleased      = "credit_released"
	ActionCreditFetchDegraded = "credit_fetch_degraded"
	ActionGenerationDenied    = "generation_denied"
)

// eventCategories maps each action to its category. Unknown actions default
// to operations.
var eventCategories = map[string]EventCategory{
	ActionRateLimitExceeded: CategorySecurity,
	ActionRateLimitReset:    CategorySecurity,
	ActionGuestCreditUsed:   CategorySecurity,
	ActionGuestCreditReset:  CategorySecurity,
	ActionCreditExhausted:   CategorySecurity,
	ActionGenerationDenied:  CategorySecurity,

	ActionCreditReserved:      CategoryOperations,
	ActionCreditReleased:      CategoryOperations,
	ActionCreditFetchDegraded: CategoryOperations,
}

// NewEvent builds an Event with ID, timestamp, and category filled in.
func NewEvent(action, subject string, at time.Time) Event {
	cat, ok := eventCategories[action]
	if !ok {
		cat = CategoryOperations
	}
	return Event{
		ID:        uuid.NewString(),
		Category:  cat,
		Timestamp: at,
		Subject:   subject,
		Action:    action,
	}
}
