package user

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/response"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for the auth workflow and account data.
type Handler struct {
	svc    *UserService
	guard  *session.Guard
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, guard *session.Guard, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, guard: guard, logger: logger}
}

// RegisterRequest request body for register endpoint.
type RegisterRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"max=72"`
	Username string `json:"username"`
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	OTP string `json:"otp"`
}

type SendResetOTPRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword" validate:"max=72"`
}

type UserPayload struct {
	User *entity.PublicUser `json:"user"`
}

type DataPayload struct {
	UserData *entity.Data `json:"userData"`
}

// startSession issues the token cookie for u.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, u *entity.PublicUser) bool {
	token, _, err := h.guard.Tokens().Issue(u.ID)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return false
	}
	h.guard.Tokens().SetCookie(w, token)
	return true
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		response.Validation(w, err)
		return
	}
	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password, req.Username)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	if !h.startSession(w, r, u) {
		return
	}
	h.logger.Infow("user registered", "user_id", u.ID)
	response.OK(w, http.StatusCreated, "User registered successfully", UserPayload{User: u})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		response.Validation(w, err)
		return
	}
	u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	if !h.startSession(w, r, u) {
		return
	}
	response.OK(w, http.StatusOK, "User loggedIn successfully", UserPayload{User: u})
}

// Logout clears the cookie and revokes the presented token until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := h.guard.Authenticate(r); claims != nil {
		if err := h.guard.Revoker().Revoke(r.Context(), claims.RegisteredClaims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Warnw("token revoke failed", "user_id", claims.ID, "err", err)
		}
	}
	h.guard.Tokens().ClearCookie(w)
	response.Message(w, http.StatusOK, "user logged Out")
}

func (h *Handler) SendVerifyOTP(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SendVerifyOTP(r.Context(), session.UserID(r.Context())); err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.Message(w, http.StatusOK, "Verification OTP sent on Email")
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		response.Validation(w, err)
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), session.UserID(r.Context()), req.OTP); err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.Message(w, http.StatusOK, "Account Verified Successfully")
}

func (h *Handler) SendResetOTP(w http.ResponseWriter, r *http.Request) {
	var req SendResetOTPRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		response.Validation(w, err)
		return
	}
	if err := h.svc.SendResetOTP(r.Context(), req.Email); err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.Message(w, http.StatusOK, "OTP sent on Email")
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		response.Validation(w, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.Message(w, http.StatusOK, "Password has been reset successfully")
}

// IsAuthenticated succeeds whenever the session guard let the request through.
func (h *Handler) IsAuthenticated(w http.ResponseWriter, r *http.Request) {
	response.Message(w, http.StatusOK, "")
}

func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Data(r.Context(), session.UserID(r.Context()))
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", DataPayload{UserData: d})
}
