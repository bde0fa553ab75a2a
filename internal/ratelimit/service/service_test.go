package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"creditgate/internal/platform/kv"
	"creditgate/internal/ratelimit/models"
	"creditgate/internal/ratelimit/store/kvwindow"
	id "creditgate/pkg/domain"
	"creditgate/pkg/requestcontext"
)

// =============================================================================
// Rate Limit Service Test Suite
// =============================================================================
// Justification for unit tests: window expiry, the no-write-on-deny rule, and
// fail-open recovery all depend on precise clock control that only an
// injected time can give.

type RateLimitServiceSuite struct {
	suite.Suite
	kv      *kv.MemoryStore
	store   *kvwindow.Store
	service *Service
	now     time.Time
}

func TestRateLimitServiceSuite(t *testing.T) {
	suite.Run(t, new(RateLimitServiceSuite))
}

func (s *RateLimitServiceSuite) SetupTest() {
	s.kv = kv.NewMemory()
	s.store = kvwindow.New(s.kv)
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store)
	s.Require().NoError(err)
}

func (s *RateLimitServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *RateLimitServiceSuite) subject() id.Subject {
	subject, err := id.GuestSubject(id.NewDeviceID())
	s.Require().NoError(err)
	return subject
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *RateLimitServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "window store is required")
	})

	s.Run("valid store returns configured service", func() {
		svc, err := New(s.store)
		s.NoError(err)
		s.NotNil(svc)
	})
}

// =============================================================================
// Check Tests
// =============================================================================

func (s *RateLimitServiceSuite) TestCheckFreshWindow() {
	subject := s.subject()

	result, err := s.service.Check(s.at(s.now), subject, models.ActionDocumentGeneration, false)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(5, result.Limit)
	s.Equal(4, result.Remaining)
	s.Equal(s.now.Add(time.Hour), result.ResetAt)
}

func (s *RateLimitServiceSuite) TestCheckCountsWithinWindow() {
	subject := s.subject()
	ctx := s.at(s.now)

	for i := range 5 {
		result, err := s.service.Check(ctx, subject, models.ActionDocumentGeneration, false)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(4-i, result.Remaining)
	}

	result, err := s.service.Check(ctx, subject, models.ActionDocumentGeneration, false)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.Contains(result.Message, "try again in")
}

func (s *RateLimitServiceSuite) TestDeniedCheckDoesNotExtendWindow() {
	subject := s.subject()
	ctx := s.at(s.now)

	for range 5 {
		_, err := s.service.Check(ctx, subject, models.ActionDocumentGeneration, false)
		s.Require().NoError(err)
	}

	// Hammer the limiter while denied. The stored window must not change.
	for range 10 {
		result, err := s.service.Check(s.at(s.now.Add(30*time.Minute)), subject, models.ActionDocumentGeneration, false)
		s.Require().NoError(err)
		s.False(result.Allowed)
	}

	entries, err := s.store.Load(context.Background(), subject)
	s.Require().NoError(err)
	s.Equal(5, entries[models.ActionDocumentGeneration].Count)
	s.Equal(s.now, entries[models.ActionDocumentGeneration].FirstRequestAt)
}

func (s *RateLimitServiceSuite) TestWindowExpiryResetsCount() {
	subject := s.subject()

	for range 5 {
		_, err := s.service.Check(s.at(s.now), subject, models.ActionDocumentGeneration, false)
		s.Require().NoError(err)
	}

	// Just inside the window: still denied.
	result, err := s.service.Check(s.at(s.now.Add(time.Hour)), subject, models.ActionDocumentGeneration, false)
	s.Require().NoError(err)
	s.False(result.Allowed)

	// Past the window: a fresh count starts.
	result, err = s.service.Check(s.at(s.now.Add(time.Hour+time.Second)), subject, models.ActionDocumentGeneration, false)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(4, result.Remaining)
}

func (s *RateLimitServiceSuite) TestActionsHaveIndependentWindows() {
	subject := s.subject()
	ctx := s.at(s.now)

	for range 5 {
		_, err := s.service.Check(ctx, subject, models.ActionDocumentGeneration, false)
		s.Require().NoError(err)
	}

	result, err := s.service.Check(ctx, subject, models.ActionPresentationGeneration, false)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RateLimitServiceSuite) TestPremiumGetsHigherLimit() {
	subject := s.subject()
	ctx := s.at(s.now)

	result, err := s.service.Check(ctx, subject, models.ActionDocumentGeneration, true)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(100, result.Limit)
	s.Equal(99, result.Remaining)
}

func (s *RateLimitServiceSuite) TestCorruptBlobFailsOpen() {
	subject := s.subject()

	s.Require().NoError(s.kv.Set(context.Background(), "ratelimit:"+subject.Key(), "{broken"))

	result, err := s.service.Check(s.at(s.now), subject, models.ActionDocumentGeneration, false)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(4, result.Remaining, "corrupt state replaced by a fresh window")

	// The replacement window persisted over the corrupt blob.
	entries, err := s.store.Load(context.Background(), subject)
	s.Require().NoError(err)
	s.Equal(1, entries[models.ActionDocumentGeneration].Count)
}

// =============================================================================
// Reset Tests
// =============================================================================

func (s *RateLimitServiceSuite) TestReset() {
	subject := s.subject()
	ctx := s.at(s.now)

	s.Run("invalid action returns error", func() {
		s.Error(s.service.Reset(ctx, subject, models.Action("sculpture")))
	})

	s.Run("reset clears one action only", func() {
		for range 5 {
			_, err := s.service.Check(ctx, subject, models.ActionDocumentGeneration, false)
			s.Require().NoError(err)
		}
		_, err := s.service.Check(ctx, subject, models.ActionChatMessage, false)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Reset(ctx, subject, models.ActionDocumentGeneration))

		result, err := s.service.Check(ctx, subject, models.ActionDocumentGeneration, false)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(4, result.Remaining)

		entries, err := s.store.Load(context.Background(), subject)
		s.Require().NoError(err)
		s.Equal(1, entries[models.ActionChatMessage].Count, "other actions keep their windows")
	})

	s.Run("resetting the last action clears the blob", func() {
		fresh := s.subject()
		_, err := s.service.Check(ctx, fresh, models.ActionDocumentGeneration, false)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Reset(ctx, fresh, models.ActionDocumentGeneration))

		_, ok, err := s.kv.Get(context.Background(), "ratelimit:"+fresh.Key())
		s.Require().NoError(err)
		s.False(ok)
	})
}
