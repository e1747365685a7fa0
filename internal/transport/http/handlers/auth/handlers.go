package authhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

// Authenticator is the slice of auth.Service the handlers need.
type Authenticator interface {
	Login(ctx context.Context, code, password, mfaCode string) (auth.Session, error)
	SetupMFA(ctx context.Context, code string) (secret, url string, err error)
	EnableMFA(ctx context.Context, code, mfaCode string) error
}

type Handler struct {
	Auth  Authenticator
	Audit shared.Auditor
}

func NewHandler(authn Authenticator, auditor shared.Auditor) *Handler {
	return &Handler{Auth: authn, Audit: auditor}
}

type loginRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=200"`
	MFACode  string `json:"mfaCode" validate:"omitempty,max=10"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required,max=10"`
}

// RegisterRoutes mounts the public login route and the authenticated
// session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/auth/me", h.HandleMe)
		r.Post("/auth/mfa/setup", h.HandleMFASetup)
		r.Post("/auth/mfa/enable", h.HandleMFAEnable)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}

	session, err := h.Auth.Login(r.Context(), payload.Code, payload.Password, payload.MFACode)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", reqID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
		return
	default:
		api.FailError(w, err, reqID)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("employee_code", session.User.EmployeeCode).Msg("login succeeded")
	api.Success(w, session, reqID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, user, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	secret, url, err := h.Auth.SetupMFA(r.Context(), user.EmployeeCode)
	if errors.Is(err, auth.ErrMFAUnavailable) {
		api.Fail(w, http.StatusServiceUnavailable, "mfa_unavailable", "mfa is not configured", reqID)
		return
	}
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"secret": secret, "otpauthUrl": url}, reqID)
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload mfaCodeRequest
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}

	err := h.Auth.EnableMFA(r.Context(), user.EmployeeCode, payload.Code)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", reqID)
		return
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "mfa_unavailable", "mfa is not configured", reqID)
		return
	default:
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, audit.ActionMFAEnable, "employee", user.EmployeeCode, nil, map[string]bool{"mfaEnabled": true})
	api.Success(w, map[string]bool{"mfaEnabled": true}, reqID)
}
