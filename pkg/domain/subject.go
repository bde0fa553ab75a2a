package domain

import (
	"strings"

	dErrors "creditgate/pkg/domain-errors"
)

// Subject is the caller a policy decision applies to: either an authenticated
// user or an anonymous device. Exactly one of the two identities is set.
//
// Credit accounting and rate limiting both key off the Subject, so the two
// gates cannot drift apart on who they are limiting.
type Subject struct {
	userID   UserID
	deviceID DeviceID
}

// UserSubject builds a Subject for an authenticated user.
func UserSubject(id UserID) (Subject, error) {
	if id.IsNil() {
		return Subject{}, dErrors.New(dErrors.CodeInvalidInput, "user subject requires a non-nil user_id")
	}
	return Subject{userID: id}, nil
}

// GuestSubject builds a Subject for an anonymous device.
func GuestSubject(id DeviceID) (Subject, error) {
	if id == "" {
		return Subject{}, dErrors.New(dErrors.CodeInvalidInput, "guest subject requires a device_id")
	}
	return Subject{deviceID: id}, nil
}

// IsGuest reports whether the subject is an anonymous device.
func (s Subject) IsGuest() bool { return s.userID.IsNil() }

func (s Subject) UserID() UserID     { return s.userID }
func (s Subject) DeviceID() DeviceID { return s.deviceID }

// ParseSubject is the inverse of Key, accepting "user:<uuid>" or
// "device:<token>". Admin tooling addresses subjects in this form.
func ParseSubject(s string) (Subject, error) {
	switch {
	case strings.HasPrefix(s, "user:"):
		userID, err := ParseUserID(strings.TrimPrefix(s, "user:"))
		if err != nil {
			return Subject{}, err
		}
		return UserSubject(userID)
	case strings.HasPrefix(s, "device:"):
		deviceID, err := ParseDeviceID(strings.TrimPrefix(s, "device:"))
		if err != nil {
			return Subject{}, err
		}
		return GuestSubject(deviceID)
	default:
		return Subject{}, dErrors.New(dErrors.CodeInvalidInput, "subject must be user:<uuid> or device:<token>")
	}
}

// Key returns a stable storage key segment for the subject.
func (s Subject) Key() string {
	if s.IsGuest() {
		return "device:" + string(s.deviceID)
	}
	return "user:" + s.userID.String()
}
