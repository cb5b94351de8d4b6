// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

// bearerClaims extracts and validates the "Bearer <token>" header. The
// returned key names the failure for the 401 message.
func bearerClaims(c *gin.Context) (*utils.JWTClaims, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, i18n.KeyAuthRequired
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, i18n.KeyAuthInvalidToken
	}

	claims, err := utils.ValidateJWT(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, i18n.KeyAuthTokenExpired
	}
	return claims, ""
}

func setIdentity(c *gin.Context, claims *utils.JWTClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, failure := bearerClaims(c)
		if claims == nil {
			utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), failure))
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, _ := bearerClaims(c); claims != nil {
			setIdentity(c, claims)
		}
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return RoleRequired(models.UserRoleAdmin)
}

// RoleRequired must run after AuthRequired.
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := utils.GetUserRoleFromContext(c)
		if !exists {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}

		for _, allowed := range roles {
			if role == string(allowed) {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "")
		c.Abort()
	}
}
