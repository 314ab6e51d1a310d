package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/internal/service"
	"github.com/noah-isme/station-compliance-api/internal/session"
	appErrors "github.com/noah-isme/station-compliance-api/pkg/errors"
	"github.com/noah-isme/station-compliance-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token. The validated caller is also
// attached to the request context so downstream calls to the authority carry the same token.
func JWT(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		attach(c, claims, raw)
		c.Next()
	}
}

// OptionalJWT attaches claims when present but does not block.
func OptionalJWT(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.Next()
			return
		}
		if claims, err := tokens.ValidateToken(raw); err == nil {
			attach(c, claims, raw)
		}
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

func attach(c *gin.Context, claims *models.JWTClaims, raw string) {
	c.Set(ContextUserKey, claims)
	ctx := session.WithPrincipal(c.Request.Context(), service.Principal(claims, raw))
	c.Request = c.Request.WithContext(ctx)
}
