package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/askarbek/auth-service/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guardedEcho(t *testing.T, issuer *token.Issuer) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(UserIDCtxKey).(string)
		role, _ := r.Context().Value(UserRoleCtxKey).(string)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": userID, "role": role})
	})
	return SessionGuard(issuer, logger.NewLogger())(next)
}

func TestSessionGuard_CookieCredential(t *testing.T) {
	issuer := token.NewIssuer("guard-secret", time.Hour)
	signed, err := issuer.IssueSession("64f1a2b3c4d5e6f7a8b9c0d1", "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: signed})
	rec := httptest.NewRecorder()

	guardedEcho(t, issuer).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "64f1a2b3c4d5e6f7a8b9c0d1", body["user_id"])
	assert.Equal(t, "user", body["role"])
}

func TestSessionGuard_BearerCredential(t *testing.T) {
	issuer := token.NewIssuer("guard-secret", time.Hour)
	signed, err := issuer.IssueSession("64f1a2b3c4d5e6f7a8b9c0d1", "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	guardedEcho(t, issuer).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionGuard_RejectsAllFailureModesIdentically(t *testing.T) {
	issuer := token.NewIssuer("guard-secret", time.Hour)

	expiredIssuer := token.NewIssuer("guard-secret", -time.Minute)
	expired, err := expiredIssuer.IssueSession("64f1a2b3c4d5e6f7a8b9c0d1", "user")
	require.NoError(t, err)

	foreign, err := token.NewIssuer("other-secret", time.Hour).IssueSession("64f1a2b3c4d5e6f7a8b9c0d1", "user")
	require.NoError(t, err)

	cases := map[string]func(*http.Request){
		"no credential":   func(r *http.Request) {},
		"garbage cookie":  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"}) },
		"expired cookie":  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: expired}) },
		"foreign signer":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+foreign) },
		"bad auth scheme": func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") },
	}

	var bodies []string
	for name, arrange := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		arrange(req)
		rec := httptest.NewRecorder()

		guardedEcho(t, issuer).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		bodies = append(bodies, rec.Body.String())
	}

	for i := 1; i < len(bodies); i++ {
		assert.Equal(t, bodies[0], bodies[i], "failure responses must be identical")
	}
}
