package middlewares

import (
	"net/http"
	"strings"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token when one is present and stamps
// the claims into the request context. Requests without a token pass
// through; the Auth directive rejects them at the resolver boundary.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		claims, err := utils.JwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUserIdInContext(ctx, claims.UserId)
		ctx = utils.SetTenantNameInContext(ctx, claims.Tenant)
		ctx = utils.SetUserEmailInContext(ctx, claims.Email)
		ctx = utils.SetRolesInContext(ctx, claims.Roles)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
