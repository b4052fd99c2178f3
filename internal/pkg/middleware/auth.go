package middleware

import (
	"net/http"
	"strings"

	"flowmarket/internal/domain/user/model"
	"flowmarket/pkg/response"
	"flowmarket/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		// 将 userID 和 role 存入上下文
		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return requireRole(model.RoleAdmin, "Admin permission required")
}

// SellerMiddleware 卖家权限中间件 (管理员也放行)
func SellerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := roleFromContext(c)
		if role != model.RoleSeller && role != model.RoleAdmin {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Seller permission required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func requireRole(want int, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if roleFromContext(c) != want {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, msg)
			c.Abort()
			return
		}
		c.Next()
	}
}

func roleFromContext(c *gin.Context) int {
	role, exists := c.Get("role")
	if !exists {
		return 0
	}

	// JSON解析出来的数字可能是 float64
	switch v := role.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// UserIDFromContext 从上下文读取当前登录用户 ID
func UserIDFromContext(c *gin.Context) string {
	val, _ := c.Get("userID")
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}
