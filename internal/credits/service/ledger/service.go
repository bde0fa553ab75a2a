// Package ledger implements monthly tiered credit accounting for
// authenticated users.
//
// The fetched balance is a cache, never the source of truth: generation
// reports advance the authoritative usage rows, local decrements are
// optimistic, and every fetch fully replaces the cached state.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"creditgate/internal/credits/metrics"
	"creditgate/internal/credits/models"
	"creditgate/internal/credits/ports"
	id "creditgate/pkg/domain"
	dErrors "creditgate/pkg/domain-errors"
	"creditgate/pkg/platform/audit"
	"creditgate/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	RoleStore         = ports.RoleStore
	SubscriptionStore = ports.SubscriptionStore
	UsageStore        = ports.UsageStore
	AuditPublisher    = ports.AuditPublisher
)

// DefaultFetchTimeout bounds one balance assembly across all three lookups.
const DefaultFetchTimeout = 10 * time.Second

// UpgradeMessage is returned when a category's monthly allotment is spent.
const UpgradeMessage = "You've used all your credits for this month. Upgrade your plan to keep generating!"

// DailyLimitMessage is returned when a per-day ceiling is hit before the
// monthly allotment runs out.
const DailyLimitMessage = "You've reached today's limit for this action. Try again tomorrow."

// Decision is the outcome of a credit availability check.
type Decision struct {
	Allowed   bool            `json:"allowed"`
	Reason    string          `json:"reason,omitempty"`
	Message   string          `json:"message,omitempty"`
	Remaining models.Limit    `json:"remaining"`
	Balance   *models.Balance `json:"balance,omitempty"`
}

// Denial reasons reported in Decision.Reason.
const (
	ReasonCreditsExhausted = "credits_exhausted"
	ReasonDailyLimit       = "daily_limit"
	ReasonWordBudget       = "word_budget"
)

type subjectState struct {
	balance *models.Balance

	// fetchGen orders fetches per subject; installGen is the generation of
	// the currently installed balance. A slow fetch that finishes after a
	// newer one must not clobber the newer result.
	fetchGen   uint64
	installGen uint64
}

type Service struct {
	roles         RoleStore
	subscriptions SubscriptionStore
	usage         UsageStore

	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	fetchTimeout   time.Duration

	mu           sync.Mutex
	subjects     map[string]*subjectState
	reservations map[string]*models.Reservation
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

func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func New(roles RoleStore, subscriptions SubscriptionStore, usage UsageStore, opts ...Option) (*Service, error) {
	if roles == nil {
		return nil, errors.New("role store is required")
	}
	if subscriptions == nil {
		return nil, errors.New("subscription store is required")
	}
	if usage == nil {
		return nil, errors.New("usage store is required")
	}

	svc := &Service{
		roles:         roles,
		subscriptions: subscriptions,
		usage:         usage,
		fetchTimeout:  DefaultFetchTimeout,
		subjects:      make(map[string]*subjectState),
		reservations:  make(map[string]*models.Reservation),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Fetch assembles the user's balance from the authoritative stores and
// installs it as the cached state. Never fails: any lookup error degrades to
// free limits with the Degraded flag set, so a billing outage reduces
// entitlements instead of blocking the product.
func (s *Service) Fetch(ctx context.Context, userID id.UserID) *models.Balance {
	now := requestcontext.Now(ctx)
	key := subjectKey(userID)
	gen := s.beginFetch(key)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	balance, err := s.assemble(fetchCtx, userID, now)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		balance = s.degraded(ctx, userID, now, err)
	}
	if s.metrics != nil {
		s.metrics.RecordFetch(balance.Degraded, elapsed)
	}

	return s.install(key, gen, balance)
}

// assemble runs the three authoritative lookups concurrently and folds the
// results into a balance.
func (s *Service) assemble(ctx context.Context, userID id.UserID, now time.Time) (*models.Balance, error) {
	var (
		role models.Role
		sub  *models.Subscription
		rows []models.DailyUsage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		role, err = s.roles.GetRole(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		sub, err = s.subscriptions.GetSubscription(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.usage.ListSince(gctx, userID, models.MonthStart(now))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Subscription status decides the tier. The role label is carried for
	// display but a premium role with a lapsed subscription still gets free
	// limits.
	tier := models.TierFree
	if sub.Entitled(now) {
		tier = sub.Tier()
	}

	used, today := models.AggregateUsage(rows, now)
	return models.NewBalance(tier, role, models.LimitsForTier(tier), used, today, now), nil
}

func (s *Service) degraded(ctx context.Context, userID id.UserID, now time.Time, cause error) *models.Balance {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "credit fetch failed, degrading to free limits",
			"user_id", userID.String(), "error", cause)
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionCreditFetchDegraded, subjectKey(userID),
		"error", cause.Error())

	b := models.NewBalance(models.TierFree, models.RoleFree, models.FreeLimits, models.MonthlyUsage{}, models.DailyUsage{Day: now}, now)
	b.Degraded = true
	return b
}

// Balance returns the cached balance, fetching when none is installed.
func (s *Service) Balance(ctx context.Context, userID id.UserID) *models.Balance {
	s.mu.Lock()
	state, ok := s.subjects[subjectKey(userID)]
	if ok && state.balance != nil {
		b := *state.balance
		s.mu.Unlock()
		return &b
	}
	s.mu.Unlock()
	return s.Fetch(ctx, userID)
}

// Invalidate drops the cached balance so the next read refetches.
func (s *Service) Invalidate(userID id.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subjects, subjectKey(userID))
}

// CanGenerate reports whether the user may start a generation of kind.
// Read-only. Denials check, in order: the monthly category allotment, the
// per-day ceiling for the kind, and the word budget when words > 0.
func (s *Service) CanGenerate(ctx context.Context, userID id.UserID, kind models.UsageKind, words int) (Decision, error) {
	if !kind.IsValid() {
		return Decision{}, dErrors.New(dErrors.CodeInvalidInput, "unknown usage kind: "+string(kind))
	}
	balance := s.Balance(ctx, userID)
	category := kind.Category()
	remaining := balance.Remaining(category)

	decision := func(allowed bool, reason, message string) Decision {
		if s.metrics != nil {
			s.metrics.RecordCheck(category.String(), allowed)
		}
		return Decision{
			Allowed:   allowed,
			Reason:    reason,
			Message:   message,
			Remaining: remaining,
			Balance:   balance,
		}
	}

	// Chat is uncapped on tiers that carry the flag even though messages
	// land in the "other" category.
	chatExempt := kind == models.KindChatMessage && balance.Limits.UnlimitedChat

	if remaining.Exhausted() && !chatExempt {
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionCreditExhausted, subjectKey(userID),
			"category", category.String())
		return decision(false, ReasonCreditsExhausted, UpgradeMessage), nil
	}

	if reason := s.dailyCeiling(balance, kind); reason != "" {
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionGenerationDenied, subjectKey(userID),
			"reason", reason, "kind", string(kind))
		return decision(false, reason, DailyLimitMessage), nil
	}

	if words > 0 && words > balance.Limits.MaxWords {
		return decision(false, ReasonWordBudget, "Requested length exceeds your plan's word limit."), nil
	}

	return decision(true, "", ""), nil
}

// dailyCeiling returns a denial reason when the kind's per-day cap is hit.
func (s *Service) dailyCeiling(balance *models.Balance, kind models.UsageKind) string {
	var ceiling models.Limit
	var usedToday int
	switch kind {
	case models.KindDocument:
		ceiling, usedToday = balance.Limits.DocumentsPerDay, balance.Today.Documents
	case models.KindPresentation:
		ceiling, usedToday = balance.Limits.PresentationsPerDay, balance.Today.Presentations
	default:
		return ""
	}
	if ceiling.Remaining(usedToday).Exhausted() {
		return ReasonDailyLimit
	}
	return ""
}

// Reserve holds one credit for a generation in flight. The cached balance is
// decremented immediately so parallel requests see the provisional spend; the
// authoritative rows advance only on Commit. Availability is re-verified under
// the lock together with the decrement, so concurrent reserves cannot all
// observe the same remaining count and overshoot the allotment.
func (s *Service) Reserve(ctx context.Context, userID id.UserID, kind models.UsageKind) (*models.Reservation, error) {
	// Validates the kind, applies the word budget, and makes sure a balance
	// is installed in the cache before the locked re-check below.
	decision, err := s.CanGenerate(ctx, userID, kind, 0)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, dErrors.New(dErrors.CodeForbidden, decision.Message)
	}

	now := requestcontext.Now(ctx)
	key := subjectKey(userID)
	category := kind.Category()
	reservation, err := models.NewReservation(key, category, now)
	if err != nil {
		return nil, err
	}
	reservation.Kind = kind
	reservation.UserID = userID

	s.mu.Lock()
	if state, ok := s.subjects[key]; ok && state.balance != nil {
		remaining := state.balance.Remaining(category)
		chatExempt := kind == models.KindChatMessage && state.balance.Limits.UnlimitedChat
		if remaining.Exhausted() && !chatExempt {
			s.mu.Unlock()
			ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionCreditExhausted, key,
				"category", category.String())
			return nil, dErrors.New(dErrors.CodeForbidden, UpgradeMessage)
		}
		if s.dailyCeiling(state.balance, kind) != "" {
			s.mu.Unlock()
			return nil, dErrors.New(dErrors.CodeForbidden, DailyLimitMessage)
		}
		state.balance.SetRemaining(category, remaining.Decrement())
		state.balance.RecomputeDisplayTotal()
	}
	s.reservations[reservation.ID] = reservation
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordReservation(string(models.ReservationReserved))
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionCreditReserved, key,
		"reservation_id", reservation.ID, "kind", string(kind))
	return reservation, nil
}

// Commit finalizes a reservation: the authoritative usage row advances and
// the hold becomes permanent. The optimistic decrement stays in place until
// the next fetch replaces the cached balance.
func (s *Service) Commit(ctx context.Context, reservationID string) error {
	s.mu.Lock()
	reservation, ok := s.reservations[reservationID]
	s.mu.Unlock()
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "reservation not found")
	}
	if err := reservation.Commit(); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	if err := s.usage.Record(ctx, reservation.UserID, now, reservation.Kind, 1); err != nil {
		// The hold stays committed; the next fetch reconciles against
		// whatever the store actually recorded.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to record usage for committed reservation",
				"reservation_id", reservationID, "error", err)
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record usage")
	}

	s.mu.Lock()
	if state, ok := s.subjects[reservation.SubjectKey]; ok && state.balance != nil {
		advanceToday(&state.balance.Today, reservation.Kind)
	}
	delete(s.reservations, reservationID)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordReservation(string(models.ReservationCommitted))
	}
	return nil
}

// Release rolls back a reservation after a failed generation: the optimistic
// decrement is undone and no usage is recorded.
func (s *Service) Release(ctx context.Context, reservationID string) error {
	s.mu.Lock()
	reservation, ok := s.reservations[reservationID]
	if !ok {
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, "reservation not found")
	}
	if err := reservation.Release(); err != nil {
		s.mu.Unlock()
		return err
	}
	if state, ok := s.subjects[reservation.SubjectKey]; ok && state.balance != nil {
		state.balance.SetRemaining(reservation.Category, state.balance.Remaining(reservation.Category).Increment())
		state.balance.RecomputeDisplayTotal()
	}
	delete(s.reservations, reservationID)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordReservation(string(models.ReservationReleased))
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionCreditReleased, reservation.SubjectKey,
		"reservation_id", reservationID)
	return nil
}

// UseCredit reserves and immediately commits one credit. For callers whose
// generation completes synchronously.
func (s *Service) UseCredit(ctx context.Context, userID id.UserID, kind models.UsageKind) (*models.Balance, error) {
	reservation, err := s.Reserve(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if err := s.Commit(ctx, reservation.ID); err != nil {
		return nil, err
	}
	return s.Balance(ctx, userID), nil
}

// RecordUsage advances the authoritative rows for a generation reported
// after the fact, outside the reservation flow, then refetches.
func (s *Service) RecordUsage(ctx context.Context, userID id.UserID, kind models.UsageKind, n int) (*models.Balance, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown usage kind: "+string(kind))
	}
	if n <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "count must be positive")
	}
	now := requestcontext.Now(ctx)
	if err := s.usage.Record(ctx, userID, now, kind, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record usage")
	}
	return s.Fetch(ctx, userID), nil
}

// beginFetch assigns the next fetch generation for the subject.
func (s *Service) beginFetch(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.subjects[key]
	if !ok {
		state = &subjectState{}
		s.subjects[key] = state
	}
	state.fetchGen++
	return state.fetchGen
}

// install replaces the cached balance unless a newer fetch already landed,
// in which case the newer balance is returned instead.
func (s *Service) install(key string, gen uint64, balance *models.Balance) *models.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.subjects[key]
	if !ok {
		state = &subjectState{}
		s.subjects[key] = state
	}
	if gen < state.installGen && state.balance != nil {
		b := *state.balance
		return &b
	}
	state.installGen = gen
	state.balance = balance
	b := *balance
	return &b
}

func advanceToday(today *models.DailyUsage, kind models.UsageKind) {
	switch kind {
	case models.KindDocument:
		today.Documents++
	case models.KindPresentation:
		today.Presentations++
	case models.KindSpreadsheet:
		today.Spreadsheets++
	case models.KindVoiceover:
		today.Voiceovers++
	case models.KindChatMessage:
		today.ChatMessages++
	case models.KindImage:
		today.Images++
	}
}

func subjectKey(userID id.UserID) string {
	return "user:" + userID.String()
}
