// Package domain holds strongly typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment. Construct via the Parse functions at trust boundaries; direct
// casting bypasses validation.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "creditgate/pkg/domain-errors"
)

// UserID identifies an authenticated user.
type UserID uuid.UUID

// NewUserID issues a fresh user identifier.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID constructs a UserID from external input.
// Invariant: must be a valid, non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) String() string { return uuid.UUID(id).String() }

// MarshalText encodes the ID in canonical UUID form.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes and validates an ID from canonical UUID form.
func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// DeviceID identifies an unauthenticated device. It is an opaque token issued
// by this service, not a security credential.
type DeviceID string

// NewDeviceID issues a fresh device identifier.
func NewDeviceID() DeviceID {
	return DeviceID(uuid.NewString())
}

// ParseDeviceID validates an externally supplied device identifier.
func ParseDeviceID(s string) (DeviceID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "device_id cannot be empty")
	}
	if len(s) > 128 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "device_id must be 128 characters or less")
	}
	// ':' delimits storage key segments; allowing it would let a crafted
	// device ID alias another subject's state.
	if strings.ContainsRune(s, ':') {
		return "", dErrors.New(dErrors.CodeInvalidInput, "device_id cannot contain ':'")
	}
	return DeviceID(s), nil
}

func (id DeviceID) String() string { return string(id) }

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be the nil UUID")
	}
	return u, nil
}
