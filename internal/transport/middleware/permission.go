package middleware

import (
	"log/slog"
	"net/http"

	"github.com/krwhynot/pantry-crm/internal/auth"
)

// RequirePermission gates a route on a single resource/action pair. Admins
// pass through the wildcard permission.
func RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.Can(resource, action) {
				slog.Warn("access denied: missing permission",
					"user_id", user.ID,
					"resource", resource,
					"action", action,
					"user_permissions", user.Permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireLevel gates a route on a minimum role level, e.g. manager or above.
func RequireLevel(minLevel int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if user.RoleLevel < minLevel {
				slog.Warn("access denied: insufficient role level",
					"user_id", user.ID,
					"role_level", user.RoleLevel,
					"required_level", minLevel)
				http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
