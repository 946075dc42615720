package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/askarbek/auth-service/internal/middleware"
	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/askarbek/auth-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type userPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type loginResponse struct {
	Token   string      `json:"token"`
	User    userPayload `json:"user"`
	Success bool        `json:"success"`
}

type profileResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	Success    bool   `json:"success"`
}

// AuthHandler exposes the credential lifecycle over HTTP.
type AuthHandler struct {
	usecase       *usecase.AuthUsecase
	secureCookies bool
	logger        *logger.Logger
}

func NewAuthHandler(uc *usecase.AuthUsecase, secureCookies bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		usecase:       uc,
		secureCookies: secureCookies,
		logger:        log.Named("AuthHandler"),
	}
}

// Register handles POST /api/v1/users/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", false)
		return
	}

	err := h.usecase.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
		respondMessage(w, http.StatusCreated, "User registered. Please check your email to verify your account.", true)
	case errors.Is(err, usecase.ErrMissingFields):
		respondMessage(w, http.StatusBadRequest, "Name, email and password are required", false)
	case errors.Is(err, usecase.ErrEmailTaken):
		respondMessage(w, http.StatusConflict, "User already exists", false)
	default:
		h.logger.Error("Registration failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal server error", false)
	}
}

// Verify handles GET /api/v1/users/verify/{token}.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	verificationToken := chi.URLParam(r, "token")

	err := h.usecase.Verify(r.Context(), verificationToken)
	switch {
	case err == nil:
		respondMessage(w, http.StatusOK, "Email verified successfully", true)
	case errors.Is(err, usecase.ErrInvalidToken):
		respondMessage(w, http.StatusBadRequest, "Invalid or missing token", false)
	default:
		h.logger.Error("Verification failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal server error", false)
	}
}

// Login handles POST /api/v1/users/login. On success the session credential is
// returned in the body and set as an httpOnly cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", false)
		return
	}

	sessionToken, user, err := h.usecase.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		h.setSessionCookie(w, sessionToken)
		respondJSON(w, http.StatusOK, loginResponse{
			Token: sessionToken,
			User: userPayload{
				ID:   user.ID.Hex(),
				Name: user.Name,
				Role: user.Role,
			},
			Success: true,
		})
	case errors.Is(err, usecase.ErrMissingFields):
		respondMessage(w, http.StatusBadRequest, "Email and password are required", false)
	case errors.Is(err, usecase.ErrInvalidCredentials):
		respondMessage(w, http.StatusBadRequest, "Invalid email or password", false)
	default:
		h.logger.Error("Login failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal server error", false)
	}
}

// Me handles GET /api/v1/users/me behind the session guard.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDCtxKey).(string)
	if !ok || userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Authentication required", false)
		return
	}

	user, err := h.usecase.GetProfile(r.Context(), userID)
	if err != nil {
		h.logger.Error("Profile lookup failed", zap.Error(err), zap.String("userID", userID))
		respondMessage(w, http.StatusInternalServerError, "Internal server error", false)
		return
	}

	respondJSON(w, http.StatusOK, profileResponse{
		ID:         user.ID.Hex(),
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		Success:    true,
	})
}

// Logout handles POST /api/v1/users/logout. The session credential itself stays
// valid until expiry; this only clears the cookie on the client.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	respondMessage(w, http.StatusOK, "Logged out successfully", true)
}

// ForgotPassword handles POST /api/v1/users/forgot-password. The response never
// reveals whether the email matched an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", false)
		return
	}

	err := h.usecase.ForgotPassword(r.Context(), req.Email)
	switch {
	case errors.Is(err, usecase.ErrMissingFields):
		respondMessage(w, http.StatusBadRequest, "Email is required", false)
	case err != nil:
		h.logger.Error("Forgot password failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal server error", false)
	default:
		respondMessage(w, http.StatusOK, "If that email is registered, a reset link has been sent.", true)
	}
}

// ResetPassword handles POST /api/v1/users/reset-password/{token}.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	resetToken := chi.URLParam(r, "token")

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body", false)
		return
	}

	err := h.usecase.ResetPassword(r.Context(), resetToken, req.Password)
	switch {
	case err == nil:
		respondMessage(w, http.StatusOK, "Password has been reset successfully", true)
	case errors.Is(err, usecase.ErrMissingFields):
		respondMessage(w, http.StatusBadRequest, "Token and new password are required", false)
	case errors.Is(err, usecase.ErrInvalidOrExpiredToken):
		respondMessage(w, http.StatusBadRequest, "Invalid or expired token", false)
	default:
		h.logger.Error("Password reset failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Internal server error", false)
	}
}

// Healthz handles GET /healthz.
func (h *AuthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(h.usecase.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string, success bool) {
	respondJSON(w, status, messageResponse{Message: message, Success: success})
}
