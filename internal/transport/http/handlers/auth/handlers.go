package authhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"policedir/internal/domain/auth"
	"policedir/internal/domain/otp"
	"policedir/internal/requestctx"
	"policedir/internal/session"
	"policedir/internal/transport/http/api"
	"policedir/internal/transport/http/middleware"
)

const tokenTTL = 8 * time.Hour

type Handler struct {
	Auth    *auth.Service
	Session *session.Manager
	Secret  string
}

func NewHandler(authSvc *auth.Service, sess *session.Manager, secret string) *Handler {
	return &Handler{Auth: authSvc, Session: sess, Secret: secret}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/google", h.HandleIdentityLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/session", h.HandleSession)
	r.Post("/auth/otp/send", h.HandleSendOTP)
	r.Post("/auth/otp/verify", h.HandleVerifyOTP)
	r.Post("/auth/pin/reset", h.HandleResetPIN)
	r.With(middleware.RequireAuth).Post("/auth/pin/change", h.HandleChangePIN)
}

type loginRequest struct {
	Email string `json:"email"`
	PIN   string `json:"pin"`
}

type identityLoginRequest struct {
	Token string `json:"token"`
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetPINRequest struct {
	Email  string `json:"email"`
	Code   string `json:"code"`
	NewPIN string `json:"newPin"`
}

type changePINRequest struct {
	OldPIN string `json:"oldPin"`
	NewPIN string `json:"newPin"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Auth.LoginWithPIN(r.Context(), payload.Email, payload.PIN)
	if err != nil {
		h.failLogin(w, r, err)
		return
	}
	h.issueToken(w, r, emp.Email, emp.KGID, emp.IsAdmin, emp)
}

func (h *Handler) HandleIdentityLogin(w http.ResponseWriter, r *http.Request) {
	var payload identityLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Auth.LoginWithIdentityToken(r.Context(), payload.Token)
	if errors.Is(err, auth.ErrRegistrationRequired) {
		api.Fail(w, http.StatusNotFound, "registration_required", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_token", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	h.issueToken(w, r, emp.Email, emp.KGID, emp.IsAdmin, emp)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(r.Context()); err != nil {
		api.Fail(w, http.StatusInternalServerError, "logout_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"loggedOut": true}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Session.Snapshot(), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var payload otpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	if err := h.Auth.SendOTP(r.Context(), payload.Email); err != nil {
		status, code := http.StatusBadRequest, "otp_send_failed"
		if errors.Is(err, auth.ErrNotApproved) {
			status, code = http.StatusForbidden, "not_approved"
		}
		api.Fail(w, status, code, err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"sent": true}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var payload otpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Auth.VerifyOTP(r.Context(), payload.Email, payload.Code)
	if err != nil {
		api.Fail(w, otpStatus(err), "otp_invalid", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, requestctx.GetRequestID(r.Context()))
}

// HandleResetPIN completes the forgot-PIN flow: the code from /auth/otp/send
// authorizes installing the new PIN.
func (h *Handler) HandleResetPIN(w http.ResponseWriter, r *http.Request) {
	var payload resetPINRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	if _, err := h.Auth.VerifyOTP(r.Context(), payload.Email, payload.Code); err != nil {
		api.Fail(w, otpStatus(err), "otp_invalid", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	if err := h.Auth.ApplyNewPINAfterReset(r.Context(), payload.Email, payload.NewPIN); err != nil {
		api.Fail(w, http.StatusInternalServerError, "pin_update_failed", err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"updated": true}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleChangePIN(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload changePINRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Invalid(w, "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	if err := h.Auth.UpdatePIN(r.Context(), user.Email, payload.OldPIN, payload.NewPIN); err != nil {
		status, code := http.StatusInternalServerError, "pin_update_failed"
		if errors.Is(err, auth.ErrIncorrectOldPIN) {
			status, code = http.StatusUnauthorized, "incorrect_old_pin"
		}
		api.Fail(w, status, code, err.Error(), requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"updated": true}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, email, kgid string, isAdmin bool, emp any) {
	token, err := auth.GenerateToken(h.Secret, auth.Claims{Email: email, KGID: kgid, IsAdmin: isAdmin}, tokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"token": token, "employee": emp}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) failLogin(w http.ResponseWriter, r *http.Request, err error) {
	reqID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", err.Error(), reqID)
	case errors.Is(err, auth.ErrPINNotSet):
		api.Fail(w, http.StatusConflict, "pin_not_set", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "login_failed", err.Error(), reqID)
	}
}

func otpStatus(err error) int {
	switch {
	case errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrMismatch),
		errors.Is(err, otp.ErrExpired), errors.Is(err, otp.ErrUsed):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotApproved):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
