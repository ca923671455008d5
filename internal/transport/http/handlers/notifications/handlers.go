package notificationshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"policedir/internal/domain/notifications"
	"policedir/internal/requestctx"
	"policedir/internal/transport/http/api"
	"policedir/internal/transport/http/middleware"
)

type Handler struct {
	Notifications *notifications.Service
}

func NewHandler(svc *notifications.Service) *Handler {
	return &Handler{Notifications: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAdmin).Post("/notifications", h.HandleSend)
	r.With(middleware.RequireAuth).Post("/notifications/push-token", h.HandleRegisterToken)
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req notifications.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	if user, ok := middleware.GetUser(r.Context()); ok && req.RequesterKGID == "" {
		req.RequesterKGID = user.KGID
	}

	result, err := h.Notifications.Send(r.Context(), req)
	switch {
	case errors.Is(err, notifications.ErrInvalidTarget):
		api.Fail(w, http.StatusBadRequest, "invalid_target", err.Error(), requestctx.GetRequestID(r.Context()))
	case err != nil:
		api.Fail(w, http.StatusBadGateway, "send_failed", err.Error(), requestctx.GetRequestID(r.Context()))
	default:
		api.Success(w, result, requestctx.GetRequestID(r.Context()))
	}
}

func (h *Handler) HandleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		KGID  string `json:"kgid"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Token == "" {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	if payload.KGID == "" {
		if user, ok := middleware.GetUser(r.Context()); ok {
			payload.KGID = user.KGID
		}
	}

	if err := h.Notifications.RegisterToken(r.Context(), payload.KGID, payload.Token); err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_register_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"registered": true}, requestctx.GetRequestID(r.Context()))
}
