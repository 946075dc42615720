package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/askarbek/auth-service/internal/token"
	"go.uber.org/zap"
)

// SessionCookieName is the cookie carrying the session credential.
const SessionCookieName = "token"

type unauthorizedResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// SessionGuard authenticates requests with a session credential, read from the
// session cookie or an Authorization bearer header. On success the subject id
// and role are attached to the request context; every failure mode gets the
// same 401 response.
func SessionGuard(issuer *token.Issuer, log *logger.Logger) func(http.Handler) http.Handler {
	guardLogger := log.Named("SessionGuard")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := credentialFromRequest(r)

			claims, err := issuer.ValidateSession(raw)
			if err != nil {
				guardLogger.Debug("Rejected unauthenticated request",
					zap.String("path", r.URL.Path), zap.String("method", r.Method))
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleCtxKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func credentialFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(unauthorizedResponse{
		Message: "Authentication required",
		Success: false,
	})
}
