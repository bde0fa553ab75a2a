package models

import (
	"time"

	dErrors "creditgate/pkg/domain-errors"
)

// Action names a throttled generation operation, independent of credit
// accounting.
type Action string

const (
	ActionDocumentGeneration     Action = "document_generation"
	ActionPresentationGeneration Action = "presentation_generation"
	ActionSpreadsheetGeneration  Action = "spreadsheet_generation"
	ActionChatMessage            Action = "chat_message"
	ActionStoryGeneration        Action = "story_generation"
)

// Actions lists every supported action, for config validation and iteration.
var Actions = []Action{
	ActionDocumentGeneration,
	ActionPresentationGeneration,
	ActionSpreadsheetGeneration,
	ActionChatMessage,
	ActionStoryGeneration,
}

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionDocumentGeneration, ActionPresentationGeneration,
		ActionSpreadsheetGeneration, ActionChatMessage, ActionStoryGeneration:
		return true
	}
	return false
}

func (a Action) String() string { return string(a) }

// ParseAction constructs an Action from external input, validating it.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action cannot be empty")
	}
	a := Action(s)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown action: "+s)
	}
	return a, nil
}

// WindowEntry is one subject's counter for one action within the current
// fixed window.
//
// Invariants:
//   - Count never exceeds the action's configured max within one window.
//   - The window is [FirstRequestAt, FirstRequestAt + window). Once now moves
//     past it the entry is semantically expired and must be replaced, never
//     incremented.
type WindowEntry struct {
	Count          int       `json:"count"`
	FirstRequestAt time.Time `json:"first_request_at"`
	LastRequestAt  time.Time `json:"last_request_at"`
}

// Expired reports whether the entry's window has elapsed at now.
func (e WindowEntry) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(e.FirstRequestAt) > window
}

// Entries is one subject's blob: every action's current window entry,
// persisted as a single value.
type Entries map[Action]WindowEntry

// Result is the outcome of a rate limit check. Denial is a structured
// result, never an error.
type Result struct {
	Allowed   bool          `json:"allowed"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"-"`
	ResetAt   time.Time     `json:"reset_at"`
	Message   string        `json:"message,omitempty"` // human-readable wait hint, set on denial
}
