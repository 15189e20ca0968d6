package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storeadmin/internal/service/auth"
	"storeadmin/pkg/utils"
)

const (
	// AuthorizationHeader auth header name
	AuthorizationHeader = "Authorization"
	// BearerPrefix bearer prefix
	BearerPrefix = "Bearer "
	// UserIDKey context key for the authenticated user id
	UserIDKey = "user_id"
	// UserRoleKey context key for the authenticated user role
	UserRoleKey = "user_role"
)

// Auth validates the bearer token and loads the staff identity into the
// request context
func Auth(authService auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole aborts unless the authenticated user carries the role.
// Must run after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserRoleKey) != role {
			utils.ErrorResponse(c, http.StatusForbidden, utils.CodeForbidden, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID gets the authenticated user id from the context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint64)
	return id, ok
}
