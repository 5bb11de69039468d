package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.RegisteredClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func protectedEndpoint(t *testing.T) (http.Handler, *AuthenticatedAccount) {
	t.Helper()
	seen := &AuthenticatedAccount{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, ok := AccountFromContext(r.Context())
		require.True(t, ok)
		*seen = acc
		w.WriteHeader(http.StatusOK)
	})
	return AuthMiddleware(testSecret, logger)(next), seen
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	handler, seen := protectedEndpoint(t)
	accountID := uuid.New()

	token := signToken(t, jwt.RegisteredClaims{
		Subject:   accountID.String(),
		Audience:  jwt.ClaimStrings{"jane@example.com"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, accountID, seen.AccountID)
	assert.Equal(t, "jane@example.com", seen.Email)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	handler, _ := protectedEndpoint(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{
			"wrong secret",
			"Bearer " + signToken(t, jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}, "other-secret"),
		},
		{
			"expired token",
			"Bearer " + signToken(t, jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			}, testSecret),
		},
		{
			"subject not a uuid",
			"Bearer " + signToken(t, jwt.RegisteredClaims{
				Subject:   "not-an-id",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}, testSecret),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
