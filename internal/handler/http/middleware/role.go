package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// RequireManager requires manager or owner role
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, jwt.ErrManagerAccessRequired)
			return
		}

		roleStr, ok := claims["role"].(string)
		if !ok {
			response.HandleError(w, jwt.ErrManagerAccessRequired)
			return
		}

		if !jwt.Role(roleStr).CanRecompute() {
			response.HandleError(w, jwt.ErrManagerAccessRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// TokenOrganization returns the organization a token is restricted to. Tokens
// without an organization claim see every organization.
func TokenOrganization(ctx context.Context) (string, bool) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", false
	}
	org, ok := claims["organization"].(string)
	if !ok || org == "" {
		return "", false
	}
	return org, true
}

// ScopeOrganization applies the token's organization restriction to a
// requested organization. An empty request is narrowed to the token's
// organization; a different one is rejected.
func ScopeOrganization(ctx context.Context, requested string) (string, error) {
	org, restricted := TokenOrganization(ctx)
	if !restricted {
		return requested, nil
	}
	if requested != "" && requested != org {
		return "", jwt.ErrOrganizationAccessDenied
	}
	return org, nil
}
