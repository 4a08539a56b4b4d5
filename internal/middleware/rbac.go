package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/navicf-api/internal/models"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
	"github.com/noah-isme/navicf-api/pkg/response"
)

// RequireRoles lets the request through only for the listed admin roles.
// It must run after JWT.
func RequireRoles(roles ...models.AdminRole) gin.HandlerFunc {
	allowed := make(map[models.AdminRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		role := claims.Role
		if admin, ok := c.Get(ContextAdminKey); ok {
			if user, ok := admin.(*models.AdminUser); ok {
				role = user.Role
			}
		}
		if _, ok := allowed[role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}
