// Package service implements fixed-window rate limiting for generation
// actions.
//
// This is a fixed-window counter, not a true sliding log: bursts straddling a
// window boundary can momentarily pass up to twice the cap. Acceptable for a
// low-stakes abuse deterrent; monthly credit accounting is the authoritative
// gate.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"creditgate/internal/ratelimit/config"
	"creditgate/internal/ratelimit/metrics"
	"creditgate/internal/ratelimit/models"
	"creditgate/internal/ratelimit/ports"
	id "creditgate/pkg/domain"
	"creditgate/pkg/platform/sentinel"
	"creditgate/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	WindowStore    = ports.WindowStore
	AuditPublisher = ports.AuditPublisher
)

type Service struct {
	windows        WindowStore
	auditPublisher AuditPublisher
	logger         *slog.Logger
	config         *config.Config
	metrics        *metrics.Metrics

	// mu serializes the load-modify-save cycle so two concurrent checks
	// cannot both observe the same count. Multiple replicas sharing one
	// Redis can still race; accepted for an approximate limiter.
	mu sync.Mutex
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

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(windows WindowStore, opts ...Option) (*Service, error) {
	if windows == nil {
		return nil, errors.New("window store is required")
	}

	svc := &Service{
		windows: windows,
		config:  config.DefaultConfig(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Check applies the fixed-window algorithm for one action.
//
// A denied check returns early without writing, so repeated rejected attempts
// never extend or re-fill the window. Storage failures recover as "no prior
// state": the limiter fails open rather than blocking generations on a
// corrupt or unreachable store.
func (s *Service) Check(ctx context.Context, subject id.Subject, action models.Action, premium bool) (*models.Result, error) {
	limit, ok := s.config.GetLimit(action, premium)
	if !ok {
		// Default-deny: an action without a configured limit is a wiring bug,
		// not a caller mistake.
		ports.LogAudit(ctx, s.logger, s.auditPublisher, "rate_limit_config_missing", subject.Key(),
			"action", action,
		)
		return &models.Result{
			Allowed: false,
			ResetAt: requestcontext.Now(ctx).Add(time.Minute),
			ResetIn: time.Minute,
			Message: "This action is not available right now.",
		}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	entries := s.loadFailOpen(ctx, subject)

	entry, exists := entries[action]
	if !exists || entry.Expired(now, limit.Window) {
		entries[action] = models.WindowEntry{
			Count:          1,
			FirstRequestAt: now,
			LastRequestAt:  now,
		}
		s.persist(ctx, subject, entries)
		s.record(action, true)
		return &models.Result{
			Allowed:   true,
			Limit:     limit.MaxRequests,
			Remaining: limit.MaxRequests - 1,
			ResetIn:   limit.Window,
			ResetAt:   now.Add(limit.Window),
		}, nil
	}

	if entry.Count >= limit.MaxRequests {
		resetIn := limit.Window - now.Sub(entry.FirstRequestAt)
		s.record(action, false)
		ports.LogAudit(ctx, s.logger, s.auditPublisher, "rate_limit_exceeded", subject.Key(),
			"action", action,
			"limit", limit.MaxRequests,
			"window_seconds", int(limit.Window.Seconds()),
		)
		return &models.Result{
			Allowed:   false,
			Limit:     limit.MaxRequests,
			Remaining: 0,
			ResetIn:   resetIn,
			ResetAt:   entry.FirstRequestAt.Add(limit.Window),
			Message:   waitMessage(resetIn),
		}, nil
	}

	entry.Count++
	entry.LastRequestAt = now
	entries[action] = entry
	s.persist(ctx, subject, entries)
	s.record(action, true)

	return &models.Result{
		Allowed:   true,
		Limit:     limit.MaxRequests,
		Remaining: limit.MaxRequests - entry.Count,
		ResetIn:   limit.Window - now.Sub(entry.FirstRequestAt),
		ResetAt:   entry.FirstRequestAt.Add(limit.Window),
	}, nil
}

// Reset deletes the subject's entry for one action outright. Support tooling
// only; not exposed to end users.
func (s *Service) Reset(ctx context.Context, subject id.Subject, action models.Action) error {
	if !action.IsValid() {
		return fmt.Errorf("invalid action %q", action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.windows.Load(ctx, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrCorrupt) {
			// A corrupt blob is as reset as it gets; replace it wholesale.
			if s.metrics != nil {
				s.metrics.RecordCorruptBlob()
			}
			return s.windows.Clear(ctx, subject)
		}
		return fmt.Errorf("reset rate limit: %w", err)
	}

	delete(entries, action)
	if len(entries) == 0 {
		err = s.windows.Clear(ctx, subject)
	} else {
		err = s.windows.Save(ctx, subject, entries)
	}
	if err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordReset()
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, "rate_limit_reset", subject.Key(),
		"action", action,
	)
	return nil
}

// loadFailOpen reads the subject's entries, recovering from corrupt or
// unreachable storage as if no prior state existed.
func (s *Service) loadFailOpen(ctx context.Context, subject id.Subject) models.Entries {
	entries, err := s.windows.Load(ctx, subject)
	if err == nil {
		return entries
	}
	if errors.Is(err, sentinel.ErrCorrupt) {
		if s.metrics != nil {
			s.metrics.RecordCorruptBlob()
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "corrupt rate limit blob replaced", "subject", subject.Key())
		}
	} else if s.logger != nil {
		s.logger.WarnContext(ctx, "rate limit store unavailable, failing open", "subject", subject.Key(), "error", err)
	}
	return models.Entries{}
}

func (s *Service) persist(ctx context.Context, subject id.Subject, entries models.Entries) {
	if err := s.windows.Save(ctx, subject, entries); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to persist rate limit entries", "subject", subject.Key(), "error", err)
	}
}

func (s *Service) record(action models.Action, allowed bool) {
	if s.metrics != nil {
		s.metrics.RecordCheck(string(action), allowed)
	}
}

// waitMessage renders the remaining wait rounded up to whole minutes.
func waitMessage(resetIn time.Duration) string {
	minutes := int((resetIn + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "Rate limit reached. Please try again in 1 minute."
	}
	return fmt.Sprintf("Rate limit reached. Please try again in %d minutes.", minutes)
}
