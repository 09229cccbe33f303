package middleware

import (
	"strings"

	"omnidrive/models"
	"omnidrive/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ContextUserKey   = "current_user"
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "user_role"
)

// AuthMiddleware validates the bearer token and loads the principal
// into the request context.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c)
		if !ok {
			c.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
			utils.UnauthorizedResponse(c, "User not found")
			c.Abort()
			return
		}
		if !user.IsActive {
			utils.UnauthorizedResponse(c, "Account is deactivated")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, &user)
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextRoleKey, user.Role)
		c.Next()
	}
}

// AdminMiddleware requires an authenticated admin. Must run after
// AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserRole(c) != models.RoleAdmin {
			utils.ErrorResponse(c, 403, "Admin access required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func parseBearer(c *gin.Context) (*utils.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		utils.UnauthorizedResponse(c, "Authorization header required")
		return nil, false
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		utils.UnauthorizedResponse(c, "Invalid authorization header format")
		return nil, false
	}

	claims, err := utils.ValidateToken(tokenParts[1])
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid or expired token")
		return nil, false
	}
	return claims, true
}

// UserID returns the authenticated principal's id; uuid.Nil when the
// request is anonymous.
func UserID(c *gin.Context) uuid.UUID {
	if v, exists := c.Get(ContextUserIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// UserRole returns the authenticated principal's role, empty when
// anonymous.
func UserRole(c *gin.Context) string {
	if v, exists := c.Get(ContextRoleKey); exists {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

// CurrentUser returns the loaded principal, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	if v, exists := c.Get(ContextUserKey); exists {
		if user, ok := v.(*models.User); ok {
			return user, true
		}
	}
	return nil, false
}
