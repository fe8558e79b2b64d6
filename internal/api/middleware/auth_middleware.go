package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portfolioParadise/internal/auth"
	"portfolioParadise/internal/errcode"
)

const (
	accountIDKey = "accountID"
	roleKey      = "role"
)

// TokenValidator 校验身份提供方签发的访问令牌。
type TokenValidator interface {
	ValidateToken(token string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": errcode.Unauthorized})
}

// AuthMiddleware 校验 Bearer 令牌并将账号 ID 与角色注入上下文。
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(accountIDKey, claims.AccountID)
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

// RequireRole 拒绝角色不符的请求，需挂在 AuthMiddleware 之后。
func RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r, ok := Role(c); !ok || r != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": string(role) + " role required", "code": errcode.Forbidden})
			return
		}
		c.Next()
	}
}

// AccountID 返回已认证请求的账号 ID。
func AccountID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(accountIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func Role(c *gin.Context) (auth.Role, bool) {
	value, ok := c.Get(roleKey)
	if !ok {
		return "", false
	}
	r, ok := value.(auth.Role)
	return r, ok
}
