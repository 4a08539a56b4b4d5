package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/navicf-api/internal/models"
	appErrors "github.com/noah-isme/navicf-api/pkg/errors"
	"github.com/noah-isme/navicf-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// ContextAdminKey stores the admin row loaded by the session check.
const ContextAdminKey = "currentAdmin"

// TokenAuthenticator validates bearer tokens and the account behind them.
type TokenAuthenticator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
	Session(ctx context.Context, claims *models.JWTClaims) (*models.AdminUser, error)
}

// JWT protects routes by requiring a valid access token that belongs to a
// still active administrator.
func JWT(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		admin, err := auth.Session(c.Request.Context(), claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextAdminKey, admin)
		c.Next()
	}
}
