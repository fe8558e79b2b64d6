package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolioParadise/internal/errcode"
)

// BodyLimit 拒绝声明长度超限的请求，并限制流式读取的请求体大小。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
				"code":  errcode.LimitExceeded,
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
