package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"creditgate/internal/credits/models"
	"creditgate/internal/credits/ports/mocks"
	id "creditgate/pkg/domain"
	dErrors "creditgate/pkg/domain-errors"
	"creditgate/pkg/requestcontext"
)

// =============================================================================
// Ledger Error Path Test Suite
// =============================================================================
// Justification for unit tests: store failures mid-lifecycle (a commit whose
// usage write fails, a usage listing that errors) need precise stubbing that
// the memory stores cannot provide.

type LedgerErrorSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	roles   *mocks.MockRoleStore
	subs    *mocks.MockSubscriptionStore
	usage   *mocks.MockUsageStore
	service *Service
	now     time.Time
	userID  id.UserID
}

func TestLedgerErrorSuite(t *testing.T) {
	suite.Run(t, new(LedgerErrorSuite))
}

func (s *LedgerErrorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.roles = mocks.NewMockRoleStore(s.ctrl)
	s.subs = mocks.NewMockSubscriptionStore(s.ctrl)
	s.usage = mocks.NewMockUsageStore(s.ctrl)
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.roles, s.subs, s.usage)
	s.Require().NoError(err)

	s.userID, err = id.ParseUserID("4fa0a938-21bb-4f29-8dcf-2c5257f1167e")
	s.Require().NoError(err)
}

func (s *LedgerErrorSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *LedgerErrorSuite) expectHealthyFetch() {
	s.roles.EXPECT().GetRole(gomock.Any(), s.userID).Return(models.RoleFree, nil).AnyTimes()
	s.subs.EXPECT().GetSubscription(gomock.Any(), s.userID).Return(nil, nil).AnyTimes()
	s.usage.EXPECT().ListSince(gomock.Any(), s.userID, gomock.Any()).Return(nil, nil).AnyTimes()
}

func (s *LedgerErrorSuite) TestUsageListFailureDegrades() {
	s.roles.EXPECT().GetRole(gomock.Any(), s.userID).Return(models.RolePremium, nil).AnyTimes()
	s.subs.EXPECT().GetSubscription(gomock.Any(), s.userID).Return(nil, nil).AnyTimes()
	s.usage.EXPECT().ListSince(gomock.Any(), s.userID, gomock.Any()).
		Return(nil, errors.New("usage backend down")).AnyTimes()

	b := s.service.Fetch(s.ctx(), s.userID)
	s.True(b.Degraded)
	s.Equal(models.TierFree, b.Tier)
	s.Equal(models.RoleFree, b.Role, "degraded balance does not trust partial results")
}

func (s *LedgerErrorSuite) TestCommitSurfacesRecordFailure() {
	s.expectHealthyFetch()
	s.usage.EXPECT().Record(gomock.Any(), s.userID, gomock.Any(), models.KindDocument, 1).
		Return(errors.New("write failed"))

	reservation, err := s.service.Reserve(s.ctx(), s.userID, models.KindDocument)
	s.Require().NoError(err)

	err = s.service.Commit(s.ctx(), reservation.ID)
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	// The reservation left the reserved state, so a retrying caller cannot
	// double-commit.
	s.Error(s.service.Commit(s.ctx(), reservation.ID))
}

func (s *LedgerErrorSuite) TestRecordUsageSurfacesStoreFailure() {
	s.usage.EXPECT().Record(gomock.Any(), s.userID, gomock.Any(), models.KindImage, 1).
		Return(errors.New("write failed"))

	_, err := s.service.RecordUsage(s.ctx(), s.userID, models.KindImage, 1)
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
