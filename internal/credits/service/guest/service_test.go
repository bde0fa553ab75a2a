package guest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"creditgate/internal/credits/models"
	"creditgate/internal/credits/store/guestflag"
	"creditgate/internal/platform/kv"
	id "creditgate/pkg/domain"
)

// =============================================================================
// Guest Gate Test Suite
// =============================================================================
// Justification for unit tests: the gate's single-use semantics, its fail-open
// behavior on storage errors, and the exact sign-up messaging are policy
// decisions best pinned at this layer.

type GuestServiceSuite struct {
	suite.Suite
	kv      *kv.MemoryStore
	service *Service
}

func TestGuestServiceSuite(t *testing.T) {
	suite.Run(t, new(GuestServiceSuite))
}

func (s *GuestServiceSuite) SetupTest() {
	s.kv = kv.NewMemory()

	var err error
	s.service, err = New(guestflag.New(s.kv))
	s.Require().NoError(err)
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *GuestServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "guest flag store is required")
	})

	s.Run("valid store returns configured service", func() {
		svc, err := New(guestflag.New(s.kv))
		s.NoError(err)
		s.NotNil(svc)
	})
}

// =============================================================================
// Check Tests
// =============================================================================

func (s *GuestServiceSuite) TestCheck() {
	ctx := context.Background()
	deviceID := id.NewDeviceID()

	s.Run("fresh device is allowed with one credit", func() {
		d, err := s.service.Check(ctx, deviceID)
		s.NoError(err)
		s.True(d.Allowed)
		s.Equal(models.GuestMaxCredits, d.Remaining)
		s.Empty(d.Message)
	})

	s.Run("check does not consume the credit", func() {
		for range 3 {
			d, err := s.service.Check(ctx, deviceID)
			s.NoError(err)
			s.True(d.Allowed)
		}
	})

	s.Run("used device is denied with sign-up message", func() {
		_, err := s.service.Consume(ctx, deviceID)
		s.Require().NoError(err)

		d, err := s.service.Check(ctx, deviceID)
		s.NoError(err)
		s.False(d.Allowed)
		s.Equal(0, d.Remaining)
		s.Equal(SignUpMessage, d.Message)
	})
}

// =============================================================================
// Consume Tests
// =============================================================================

func (s *GuestServiceSuite) TestConsume() {
	ctx := context.Background()

	s.Run("first consume succeeds and burns the credit", func() {
		deviceID := id.NewDeviceID()

		d, err := s.service.Consume(ctx, deviceID)
		s.NoError(err)
		s.True(d.Allowed)
		s.Require().NotNil(d.Balance)
		s.True(d.Balance.Guest)

		used, err := guestflag.New(s.kv).IsUsed(ctx, deviceID)
		s.NoError(err)
		s.True(used)
	})

	s.Run("second consume is denied", func() {
		deviceID := id.NewDeviceID()

		_, err := s.service.Consume(ctx, deviceID)
		s.Require().NoError(err)

		d, err := s.service.Consume(ctx, deviceID)
		s.NoError(err)
		s.False(d.Allowed)
		s.Equal(SignUpMessage, d.Message)
	})

	s.Run("devices are independent", func() {
		first := id.NewDeviceID()
		second := id.NewDeviceID()

		_, err := s.service.Consume(ctx, first)
		s.Require().NoError(err)

		d, err := s.service.Check(ctx, second)
		s.NoError(err)
		s.True(d.Allowed)
	})
}

// =============================================================================
// Fail-Open Tests
// =============================================================================

func (s *GuestServiceSuite) TestCorruptFlagReadsAsUnused() {
	ctx := context.Background()
	deviceID := id.NewDeviceID()

	// Simulate a corrupted record under the device's key.
	s.Require().NoError(s.kv.Set(ctx, "guest:"+deviceID.String(), "{not json"))

	d, err := s.service.Check(ctx, deviceID)
	s.NoError(err)
	s.True(d.Allowed)
}

// =============================================================================
// Reset Tests
// =============================================================================

func (s *GuestServiceSuite) TestReset() {
	ctx := context.Background()
	deviceID := id.NewDeviceID()

	_, err := s.service.Consume(ctx, deviceID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Reset(ctx, deviceID))

	d, err := s.service.Check(ctx, deviceID)
	s.NoError(err)
	s.True(d.Allowed)
	s.Equal(models.GuestMaxCredits, d.Remaining)
}
