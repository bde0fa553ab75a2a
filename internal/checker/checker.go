// Package checker is the facade composing the rate limiter and both credit
// gates into one authorization decision. Transport handlers depend on this
// unified interface.
package checker

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	creditmodels "creditgate/internal/credits/models"
	"creditgate/internal/credits/service/guest"
	"creditgate/internal/credits/service/ledger"
	ratemodels "creditgate/internal/ratelimit/models"
	ratelimit "creditgate/internal/ratelimit/service"
	id "creditgate/pkg/domain"
)

const tracerName = "creditgate/internal/checker"

// Verdict is the combined outcome of every gate that applies to a request.
// The most restrictive gate wins: Allowed is true only when all gates pass.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`

	RateLimit *ratemodels.Result    `json:"rate_limit,omitempty"`
	Balance   *creditmodels.Balance `json:"balance,omitempty"`
}

// ReasonRateLimited marks a denial from the request-frequency gate.
const ReasonRateLimited = "rate_limited"

// ReasonGuestCredit marks a denial from the guest single-credit gate.
const ReasonGuestCredit = "guest_credit_exhausted"

type Service struct {
	rates  *ratelimit.Service
	guests *guest.Service
	ledger *ledger.Service
	logger *slog.Logger
	tracer trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(rates *ratelimit.Service, guests *guest.Service, creditLedger *ledger.Service, opts ...Option) (*Service, error) {
	if rates == nil {
		return nil, fmt.Errorf("rate limit service is required")
	}
	if guests == nil {
		return nil, fmt.Errorf("guest service is required")
	}
	if creditLedger == nil {
		return nil, fmt.Errorf("ledger service is required")
	}

	svc := &Service{
		rates:  rates,
		guests: guests,
		ledger: creditLedger,
		tracer: otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Authorize runs every applicable gate for one generation attempt.
//
// The rate limiter runs first and records the attempt; the credit gates are
// read-only here. Consuming a credit happens separately once the generation
// is accepted, via Consume (guests) or Reserve/Commit (users).
func (s *Service) Authorize(ctx context.Context, subject id.Subject, action ratemodels.Action, words int) (Verdict, error) {
	ctx, span := s.tracer.Start(ctx, "checker.Authorize",
		trace.WithAttributes(
			attribute.String("subject", subject.Key()),
			attribute.String("action", string(action)),
		))
	defer span.End()

	if !action.IsValid() {
		return Verdict{}, fmt.Errorf("unknown action %q", action)
	}

	premium := false
	var balance *creditmodels.Balance
	if !subject.IsGuest() {
		balance = s.ledger.Balance(ctx, subject.UserID())
		premium = balance.Tier != creditmodels.TierFree
	}

	rateResult, err := s.rates.Check(ctx, subject, action, premium)
	if err != nil {
		return Verdict{}, fmt.Errorf("rate limit check: %w", err)
	}
	if !rateResult.Allowed {
		span.SetAttributes(attribute.String("verdict", ReasonRateLimited))
		return Verdict{
			Reason:    ReasonRateLimited,
			Message:   rateResult.Message,
			RateLimit: rateResult,
			Balance:   balance,
		}, nil
	}

	if subject.IsGuest() {
		decision, err := s.guests.Check(ctx, subject.DeviceID())
		if err != nil {
			return Verdict{}, fmt.Errorf("guest credit check: %w", err)
		}
		verdict := Verdict{
			Allowed:   decision.Allowed,
			Message:   decision.Message,
			RateLimit: rateResult,
			Balance:   decision.Balance,
		}
		if !decision.Allowed {
			verdict.Reason = ReasonGuestCredit
		}
		span.SetAttributes(attribute.Bool("allowed", verdict.Allowed))
		return verdict, nil
	}

	decision, err := s.ledger.CanGenerate(ctx, subject.UserID(), UsageKindFor(action), words)
	if err != nil {
		return Verdict{}, fmt.Errorf("credit check: %w", err)
	}
	span.SetAttributes(attribute.Bool("allowed", decision.Allowed))
	return Verdict{
		Allowed:   decision.Allowed,
		Reason:    decision.Reason,
		Message:   decision.Message,
		RateLimit: rateResult,
		Balance:   decision.Balance,
	}, nil
}

// UsageKindFor maps a rate-limited action to the usage kind its completion
// records. Story generation produces a document.
func UsageKindFor(action ratemodels.Action) creditmodels.UsageKind {
	switch action {
	case ratemodels.ActionDocumentGeneration, ratemodels.ActionStoryGeneration:
		return creditmodels.KindDocument
	case ratemodels.ActionPresentationGeneration:
		return creditmodels.KindPresentation
	case ratemodels.ActionSpreadsheetGeneration:
		return creditmodels.KindSpreadsheet
	default:
		return creditmodels.KindChatMessage
	}
}
