// Package handler exposes the combined authorization endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creditgate/internal/checker"
	ratemodels "creditgate/internal/ratelimit/models"
	id "creditgate/pkg/domain"
	dErrors "creditgate/pkg/domain-errors"
	"creditgate/pkg/platform/httputil"
	"creditgate/pkg/requestcontext"
)

// Service defines the authorization operation the transport needs.
type Service interface {
	Authorize(ctx context.Context, subject id.Subject, action ratemodels.Action, words int) (checker.Verdict, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an authorize handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authorize endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/authorize", h.HandleAuthorize)
}

type authorizeRequest struct {
	Action string `json:"action"`
	Words  int    `json:"words,omitempty"`
}

// HandleAuthorize handles POST /authorize requests: one call running every
// gate that applies to the caller. 200 with allowed=false is a policy denial;
// non-2xx means the check itself failed.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := requestcontext.Subject(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req authorizeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := ratemodels.ParseAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Words < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "words cannot be negative"))
		return
	}

	verdict, err := h.service.Authorize(ctx, subject, action, req.Words)
	if err != nil {
		h.logger.ErrorContext(ctx, "authorize failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "authorization check failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verdict)
}
