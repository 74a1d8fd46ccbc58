package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// TokenValidator checks a token's signature and expiry. Optional: remote
// authenticators issue opaque tokens that can only be compared.
type TokenValidator interface {
	ValidateAccessToken(token string) (*service.JWTClaims, error)
}

// SessionSource exposes the resident session the middleware compares against.
type SessionSource interface {
	Token() string
	Session() domain.SessionResponse
}

// SessionMiddleware admits requests whose Bearer token matches the auth
// store's current token, and injects the user ID into the context.
func SessionMiddleware(auth SessionSource, tokens TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			token := strings.TrimSpace(parts[1])
			current := auth.Token()
			if current == "" || subtle.ConstantTimeCompare([]byte(token), []byte(current)) != 1 {
				logger.Warn("auth: token does not match the active session",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "no active session for this token")
				return
			}

			if tokens != nil {
				if _, err := tokens.ValidateAccessToken(token); err != nil {
					logger.Warn("auth: invalid or expired token",
						zap.String("path", r.URL.Path),
						zap.Error(err),
					)
					writeError(w, http.StatusUnauthorized, err.Error())
					return
				}
			}

			var userID string
			if u := auth.Session().User; u != nil {
				userID = u.ID
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
