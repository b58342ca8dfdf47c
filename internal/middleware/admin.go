package middleware

import (
	"log/slog"
	"net/http"

	"starfield-server/internal/auth"
	"starfield-server/internal/shared/errors"
	"starfield-server/internal/shared/response"
)

func roleMiddleware(name string, allowed func(*auth.Claims) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", name,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing role authorization")

		claims := GetUserFromContext(r)
		if claims == nil {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		if !allowed(claims) {
			logger.Warn("Insufficient role for endpoint",
				"subject", claims.Subject,
				"role", claims.Role)
			response.Error(w, r, logger, errors.Forbidden(name+" access required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) RequireEditor(next http.Handler) http.Handler {
	return a.JWTMiddleware(roleMiddleware("editor", (*auth.Claims).CanEdit, next))
}

func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	isAdmin := func(c *auth.Claims) bool { return c.Role == auth.RoleAdmin }
	return a.JWTMiddleware(roleMiddleware("admin", isAdmin, next))
}
