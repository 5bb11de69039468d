package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const AuthenticatedAccountContextKey = ContextKey("authenticatedAccount")

// AuthenticatedAccount holds the identity extracted from a verified token.
type AuthenticatedAccount struct {
	AccountID uuid.UUID
	Email     string
}

// AccountFromContext retrieves the authenticated account set by
// AuthMiddleware. The second return is false on unauthenticated requests.
func AccountFromContext(ctx context.Context) (AuthenticatedAccount, bool) {
	acc, ok := ctx.Value(AuthenticatedAccountContextKey).(AuthenticatedAccount)
	return acc, ok
}

// AuthMiddleware verifies the Bearer JWT and stores the account identity on
// the request context. Tokens are HMAC-signed with the shared secret; the
// subject claim is the account id.
func AuthMiddleware(jwtSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.WarnContext(r.Context(), "invalid authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			accountID, err := uuid.Parse(claims.Subject)
			if err != nil {
				logger.WarnContext(r.Context(), "token subject is not an account id", "subject", claims.Subject)
				http.Error(w, "Invalid token subject", http.StatusUnauthorized)
				return
			}

			var email string
			if len(claims.Audience) > 0 {
				email = claims.Audience[0]
			}

			ctx := context.WithValue(r.Context(), AuthenticatedAccountContextKey, AuthenticatedAccount{
				AccountID: accountID,
				Email:     email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
