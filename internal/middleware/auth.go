package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"starfield-server/internal/auth"
	"starfield-server/internal/shared/errors"
	"starfield-server/internal/shared/response"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthCookieName is read when no Authorization header is present.
const AuthCookieName = "auth_token"

type Authenticator struct {
	secret string
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: secret, issuer: issuer}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(AuthCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (a *Authenticator) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing JWT authentication")

		token := tokenFromRequest(r)
		if token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := auth.ValidateToken(a.secret, a.issuer, token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		logger.Debug("JWT authentication successful",
			"subject", claims.Subject,
			"role", claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Helper to get user from context
func GetUserFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
