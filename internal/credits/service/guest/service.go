// Package guest implements the single-credit gate for unauthenticated
// devices. A device gets exactly one free generation; afterwards every
// request is steered to sign-up.
package guest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"creditgate/internal/credits/metrics"
	"creditgate/internal/credits/models"
	"creditgate/internal/credits/ports"
	id "creditgate/pkg/domain"
	"creditgate/pkg/platform/audit"
	"creditgate/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	GuestFlagStore = ports.GuestFlagStore
	AuditPublisher = ports.AuditPublisher
)

// SignUpMessage is returned to devices that have spent their credit.
const SignUpMessage = "You've used your free credit. Sign up to get 25 free credits every month!"

// Decision is the outcome of a guest gate check.
type Decision struct {
	Allowed   bool            `json:"allowed"`
	Remaining int             `json:"remaining"`
	Message   string          `json:"message,omitempty"`
	Balance   *models.Balance `json:"balance,omitempty"`
}

type Service struct {
	flags          GuestFlagStore
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(flags GuestFlagStore, opts ...Option) (*Service, error) {
	if flags == nil {
		return nil, errors.New("guest flag store is required")
	}

	svc := &Service{flags: flags}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Check reports whether the device may generate. Read-only: the credit is
// not consumed until Consume. A storage read error is treated as unused so
// an outage never blocks first-time users.
func (s *Service) Check(ctx context.Context, deviceID id.DeviceID) (Decision, error) {
	used, err := s.flags.IsUsed(ctx, deviceID)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "guest flag read failed, allowing", "device_id", deviceID, "error", err)
		}
		used = false
	}
	return s.decide(ctx, deviceID, used), nil
}

// Consume burns the device's single credit. Call only after the generation
// is accepted; a second call is a no-op on state but still reports denied.
func (s *Service) Consume(ctx context.Context, deviceID id.DeviceID) (Decision, error) {
	used, err := s.flags.IsUsed(ctx, deviceID)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "guest flag read failed, allowing", "device_id", deviceID, "error", err)
		}
		used = false
	}
	if used {
		return s.decide(ctx, deviceID, true), nil
	}

	if err := s.flags.MarkUsed(ctx, deviceID); err != nil {
		return Decision{}, err
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionGuestCreditUsed, "device:"+deviceID.String())

	d := s.decide(ctx, deviceID, false)
	// The credit is burnt at this point: report the post-consumption state.
	d.Remaining = 0
	d.Balance = models.NewGuestBalance(true, s.now(ctx))
	return d, nil
}

// Balance reports the device's current guest balance for display.
func (s *Service) Balance(ctx context.Context, deviceID id.DeviceID) (*models.Balance, error) {
	used, err := s.flags.IsUsed(ctx, deviceID)
	if err != nil {
		used = false
	}
	return models.NewGuestBalance(used, s.now(ctx)), nil
}

// Reset restores the device's credit. Support tooling only.
func (s *Service) Reset(ctx context.Context, deviceID id.DeviceID) error {
	if err := s.flags.Reset(ctx, deviceID); err != nil {
		return err
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionGuestCreditReset, "device:"+deviceID.String())
	return nil
}

func (s *Service) decide(ctx context.Context, deviceID id.DeviceID, used bool) Decision {
	if s.metrics != nil {
		s.metrics.RecordGuestCheck(!used)
	}
	if used {
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionGenerationDenied, "device:"+deviceID.String(),
			"reason", "guest_credit_exhausted")
		return Decision{
			Allowed:   false,
			Remaining: 0,
			Message:   SignUpMessage,
			Balance:   models.NewGuestBalance(true, s.now(ctx)),
		}
	}
	return Decision{
		Allowed:   true,
		Remaining: models.GuestMaxCredits,
		Balance:   models.NewGuestBalance(false, s.now(ctx)),
	}
}

func (s *Service) now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx)
}
