// Package handler wires rate limit endpoints to the rate limit service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	creditmodels "creditgate/internal/credits/models"
	"creditgate/internal/ratelimit/models"
	id "creditgate/pkg/domain"
	dErrors "creditgate/pkg/domain-errors"
	"creditgate/pkg/platform/httputil"
	"creditgate/pkg/requestcontext"
)

// Service defines the rate limit operations the transport needs.
type Service interface {
	Check(ctx context.Context, subject id.Subject, action models.Action, premium bool) (*models.Result, error)
	Reset(ctx context.Context, subject id.Subject, action models.Action) error
}

// TierSource resolves the caller's plan so limits are selected server-side.
// Callers never get to declare their own class.
type TierSource interface {
	Balance(ctx context.Context, userID id.UserID) *creditmodels.Balance
}

type Handler struct {
	service Service
	tiers   TierSource
	logger  *slog.Logger
}

// New constructs a rate limit handler with its dependencies.
func New(service Service, tiers TierSource, logger *slog.Logger) *Handler {
	return &Handler{service: service, tiers: tiers, logger: logger}
}

// Register mounts the public rate limit endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ratelimit/check", h.HandleCheck)
}

// RegisterAdmin mounts the support-only reset endpoint.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/ratelimit/reset", h.HandleReset)
}

type checkRequest struct {
	Action string `json:"action"`
}

// HandleCheck handles POST /ratelimit/check requests. The check records the
// attempt: an allowed response consumes one slot in the caller's window.
// The caller's class comes from their ledger tier, never from the request.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := requestcontext.Subject(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req checkRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := models.ParseAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	premium := false
	if !subject.IsGuest() {
		premium = h.tiers.Balance(ctx, subject.UserID()).Tier != creditmodels.TierFree
	}

	result, err := h.service.Check(ctx, subject, action, premium)
	if err != nil {
		h.logger.ErrorContext(ctx, "rate limit check failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check failed"))
		return
	}

	status := http.StatusOK
	if !result.Allowed {
		status = http.StatusTooManyRequests
	}
	httputil.WriteJSON(w, status, result)
}

type resetRequest struct {
	Subject string `json:"subject"`
	Action  string `json:"action"`
}

// HandleReset handles POST /admin/ratelimit/reset requests. Support tooling:
// clears one subject's window for one action.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	subject, err := id.ParseSubject(req.Subject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := models.ParseAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Reset(ctx, subject, action); err != nil {
		h.logger.ErrorContext(ctx, "rate limit reset failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit reset failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

