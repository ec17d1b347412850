package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/EmpoweredVote/EV-Auth/internal/apperr"
	"github.com/EmpoweredVote/EV-Auth/internal/tokens"
	"github.com/EmpoweredVote/EV-Auth/internal/users"
	"github.com/EmpoweredVote/EV-Auth/internal/utils"
)

// IdentityResolver turns an access token into the user it was issued for.
type IdentityResolver interface {
	Resolve(ctx context.Context, accessToken string) (*users.User, error)
}

// Authenticate resolves the access_token cookie and stores the user in the request context.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.Resolve(r.Context(), tokens.FromRequest(r, tokens.AccessCookie))
			if err != nil {
				utils.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(utils.WithUser(r.Context(), user)))
		})
	}
}

// Permits reports whether u holds one of roles. A nil user has role "".
func Permits(u *users.User, roles ...users.Role) bool {
	var role users.Role
	if u != nil {
		role = u.Role
	}
	return role != "" && slices.Contains(roles, role)
}

// RequireRoles rejects requests whose resolved user holds none of roles.
// Without a prior Authenticate there is no user and the request is rejected.
func RequireRoles(roles ...users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := utils.GetUserFromContext(r.Context())
			if !Permits(user, roles...) {
				var role users.Role
				if user != nil {
					role = user.Role
				}
				msg := fmt.Sprintf("Role: %s is not allowed to access this resource", role)
				utils.WriteError(w, r, apperr.Forbidden(msg, nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware echoes the Origin back only when it is on the allow-list.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				// cookies only travel with credentialed requests
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			w.Header().Set("Access-Control-Expose-Headers", "Retry-After")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
