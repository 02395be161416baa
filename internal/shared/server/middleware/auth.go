package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/identity"
	"onboarding-backend/internal/shared/server/respond"
)

const (
	employeeIDKey = "employeeId"
	roleKey       = "role"
	identityKey   = "identity"
)

// TokenVerifier resolves a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// Auth validates bearer JWTs and stores the caller identity in context.
func Auth(tokens TokenVerifier, publicPaths ...string) gin.HandlerFunc {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if _, ok := public[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		id, err := tokens.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(identityKey, id)
		c.Set(employeeIDKey, id.EmployeeID)
		c.Set(roleKey, string(id.Role))
		c.Next()
	}
}

// RequireHR aborts with 403 unless the caller holds the HR role.
func RequireHR() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFromContext(c).IsHR() {
			respond.Error(c, http.StatusForbidden, "forbidden", "hr role required", nil)
			return
		}
		c.Next()
	}
}

// IdentityFromContext fetches the identity set by the auth middleware.
func IdentityFromContext(c *gin.Context) identity.Identity {
	if c == nil {
		return identity.Identity{}
	}
	val, _ := c.Get(identityKey)
	if id, ok := val.(identity.Identity); ok {
		return id
	}
	return identity.Identity{}
}

// EmployeeIDFromContext fetches the caller's employee ID.
func EmployeeIDFromContext(c *gin.Context) string {
	return IdentityFromContext(c).EmployeeID
}
