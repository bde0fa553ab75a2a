// Package handler wires credit endpoints to the guest gate and the ledger.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creditgate/internal/credits/models"
	"creditgate/internal/credits/service/guest"
	"creditgate/internal/credits/service/ledger"
	id "creditgate/pkg/domain"
	dErrors "creditgate/pkg/domain-errors"
	"creditgate/pkg/platform/httputil"
	"creditgate/pkg/requestcontext"
)

type Handler struct {
	guests *guest.Service
	ledger *ledger.Service
	logger *slog.Logger
}

// New constructs a credits handler with its dependencies.
func New(guests *guest.Service, creditLedger *ledger.Service, logger *slog.Logger) *Handler {
	return &Handler{guests: guests, ledger: creditLedger, logger: logger}
}

// Register mounts the public credit endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/credits", h.HandleBalance)
	r.Post("/credits/use", h.HandleUse)
	r.Post("/credits/reserve", h.HandleReserve)
	r.Post("/credits/reservations/{reservationID}/commit", h.HandleCommit)
	r.Post("/credits/reservations/{reservationID}/release", h.HandleRelease)
	r.Post("/usage", h.HandleRecordUsage)
}

// RegisterAdmin mounts the support-only endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/guest/{deviceID}/reset", h.HandleGuestReset)
	r.Get("/credits/{subject}", h.HandleInspect)
}

// HandleBalance handles GET /credits requests. Guests get the device-local
// single-credit balance; users get a fresh ledger fetch.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := requestcontext.Subject(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if subject.IsGuest() {
		balance, err := h.guests.Balance(ctx, subject.DeviceID())
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest balance"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, balance)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.ledger.Fetch(ctx, subject.UserID()))
}

type useRequest struct {
	Kind string `json:"kind"`
}

// HandleUse handles POST /credits/use requests: a synchronous reserve and
// commit in one call. Guests spend their single device credit instead.
func (h *Handler) HandleUse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := requestcontext.Subject(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req useRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := models.ParseUsageKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if subject.IsGuest() {
		decision, err := h.guests.Consume(ctx, subject.DeviceID())
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume guest credit"))
			return
		}
		status := http.StatusOK
		if !decision.Allowed {
			status = http.StatusForbidden
		}
		httputil.WriteJSON(w, status, decision)
		return
	}

	balance, err := h.ledger.UseCredit(ctx, subject.UserID(), kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balance)
}

// HandleReserve handles POST /credits/reserve requests. Users only: guests
// have no multi-step flow to reserve for.
func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req useRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := models.ParseUsageKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reservation, err := h.ledger.Reserve(ctx, userID, kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reservation)
}

// HandleCommit handles POST /credits/reservations/{reservationID}/commit.
func (h *Handler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.ledger.Commit(ctx, chi.URLParam(r, "reservationID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

// HandleRelease handles POST /credits/reservations/{reservationID}/release.
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.ledger.Release(ctx, chi.URLParam(r, "reservationID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

type recordUsageRequest struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// HandleRecordUsage handles POST /usage requests: generations reported after
// the fact, outside the reservation flow. Users only.
func (h *Handler) HandleRecordUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req recordUsageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := models.ParseUsageKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	balance, err := h.ledger.RecordUsage(ctx, userID, kind, req.Count)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balance)
}

// HandleInspect handles GET /admin/credits/{subject} requests, where subject
// is the storage key form "user:<uuid>" or "device:<token>". It bypasses the
// cache so support sees the authoritative state.
func (h *Handler) HandleInspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := id.ParseSubject(chi.URLParam(r, "subject"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if subject.IsGuest() {
		balance, err := h.guests.Balance(ctx, subject.DeviceID())
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest balance"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, balance)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.ledger.Fetch(ctx, subject.UserID()))
}

// HandleGuestReset handles POST /admin/guest/{deviceID}/reset requests.
func (h *Handler) HandleGuestReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID, err := id.ParseDeviceID(chi.URLParam(r, "deviceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.guests.Reset(ctx, deviceID); err != nil {
		h.logger.ErrorContext(ctx, "guest reset failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "guest reset failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
