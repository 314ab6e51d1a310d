package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/station-compliance-api/internal/models"
	appErrors "github.com/noah-isme/station-compliance-api/pkg/errors"
	"github.com/noah-isme/station-compliance-api/pkg/response"
)

// StationParam is the route parameter carrying the station id on station-scoped routes.
const StationParam = "stationId"

// RBAC enforces role-based access control for routes. Admins pass every check.
// Station-bound tokens are further limited to their own station on station-scoped routes.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if claims.Role == models.RoleAdmin {
			c.Next()
			return
		}
		if _, ok := allowedRoles[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		if station := c.Param(StationParam); station != "" && claims.StationID != "" && station != claims.StationID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "station outside token scope"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles is an alias kept for route declarations that read better with it.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return RBAC(roles...)
}
