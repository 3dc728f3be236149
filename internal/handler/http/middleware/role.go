package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RequireSupervisor requires the supervisor role claim
func RequireSupervisor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrSupervisorAccessRequired)
			return
		}

		roleStr, ok := claims["role"].(string)
		if !ok {
			response.HandleError(w, auth.ErrSupervisorAccessRequired)
			return
		}

		if member.Role(roleStr) != member.RoleSupervisor {
			response.HandleError(w, auth.ErrSupervisorAccessRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
