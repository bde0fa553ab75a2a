// Package config holds the rate limit tables for the ratelimit module.
package config

import (
	"time"

	"creditgate/internal/ratelimit/models"
)

// ActionLimit is the per-window request cap for one action and caller class.
type ActionLimit struct {
	MaxRequests int
	Window      time.Duration
}

// ActionLimits pairs the free and premium caps for one action.
type ActionLimits struct {
	Free    ActionLimit
	Premium ActionLimit
}

// Config maps actions to their limits. Premium callers get the premium row
// of the same table; the window length is shared within an action.
type Config struct {
	Limits map[models.Action]ActionLimits
}

// DefaultConfig returns the production limit tables.
//
// These are deliberately approximate anti-abuse caps, not billing-grade
// enforcement; monthly credit accounting is the authoritative gate.
func DefaultConfig() *Config {
	hour := time.Hour
	return &Config{
		Limits: map[models.Action]ActionLimits{
			models.ActionDocumentGeneration: {
				Free:    ActionLimit{MaxRequests: 5, Window: hour},
				Premium: ActionLimit{MaxRequests: 100, Window: hour},
			},
			models.ActionPresentationGeneration: {
				Free:    ActionLimit{MaxRequests: 5, Window: hour},
				Premium: ActionLimit{MaxRequests: 100, Window: hour},
			},
			models.ActionSpreadsheetGeneration: {
				Free:    ActionLimit{MaxRequests: 5, Window: hour},
				Premium: ActionLimit{MaxRequests: 100, Window: hour},
			},
			models.ActionChatMessage: {
				Free:    ActionLimit{MaxRequests: 30, Window: hour},
				Premium: ActionLimit{MaxRequests: 1000, Window: hour},
			},
			models.ActionStoryGeneration: {
				Free:    ActionLimit{MaxRequests: 5, Window: hour},
				Premium: ActionLimit{MaxRequests: 100, Window: hour},
			},
		},
	}
}

// GetLimit returns the cap for an action and caller class.
// ok is false when no limit is configured for the action.
func (c *Config) GetLimit(action models.Action, premium bool) (ActionLimit, bool) {
	limits, ok := c.Limits[action]
	if !ok {
		return ActionLimit{}, false
	}
	if premium {
		return limits.Premium, true
	}
	return limits.Free, true
}
