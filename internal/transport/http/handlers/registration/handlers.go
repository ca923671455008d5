package registrationhandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"policedir/internal/domain/directory"
	"policedir/internal/domain/registration"
	"policedir/internal/requestctx"
	"policedir/internal/transport/http/api"
	"policedir/internal/transport/http/middleware"
)

type Handler struct {
	Reg    *registration.Service
	Remote directory.RemoteAPI
}

func NewHandler(reg *registration.Service, remote directory.RemoteAPI) *Handler {
	return &Handler{Reg: reg, Remote: remote}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	// Submission is unauthenticated: it is how new users enter the system.
	r.Post("/registrations", h.HandleSubmit)
	r.With(middleware.RequireAdmin).Get("/registrations", h.HandleListPending)
	r.With(middleware.RequireAdmin).Post("/registrations/{kgid}/approve", h.HandleApprove)
	r.With(middleware.RequireAdmin).Post("/registrations/{kgid}/reject", h.HandleReject)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var reg directory.PendingRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	err := h.Reg.Submit(r.Context(), reg)
	switch {
	case errors.Is(err, registration.ErrMissingFields):
		api.Fail(w, http.StatusBadRequest, "missing_fields", err.Error(), requestctx.GetRequestID(r.Context()))
	case errors.Is(err, registration.ErrAlreadyPending):
		api.Fail(w, http.StatusConflict, "already_pending", err.Error(), requestctx.GetRequestID(r.Context()))
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "submit_failed", err.Error(), requestctx.GetRequestID(r.Context()))
	default:
		api.Created(w, map[string]any{"kgid": reg.KGID, "status": directory.StatusPending}, requestctx.GetRequestID(r.Context()))
	}
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	regs, err := h.Reg.ListPending(r.Context())
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "list_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, regs, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.loadPending(w, r)
	if !ok {
		return
	}

	if err := h.Reg.Approve(r.Context(), *reg); err != nil {
		api.Fail(w, http.StatusInternalServerError, "approve_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"kgid": reg.KGID, "status": directory.StatusApproved}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.loadPending(w, r)
	if !ok {
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	// A missing or empty body rejects without a reason.
	_ = json.NewDecoder(r.Body).Decode(&payload)

	if err := h.Reg.Reject(r.Context(), *reg, payload.Reason); err != nil {
		api.Fail(w, http.StatusInternalServerError, "reject_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"kgid": reg.KGID, "status": directory.StatusRejected}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) loadPending(w http.ResponseWriter, r *http.Request) (*directory.PendingRegistration, bool) {
	kgid := chi.URLParam(r, "kgid")
	reg, err := h.Remote.GetPendingByID(r.Context(), kgid)
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "lookup_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return nil, false
	}
	if reg == nil {
		api.NotFound(w, "no pending registration for that id", requestctx.GetRequestID(r.Context()))
		return nil, false
	}
	return reg, true
}
