package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"portfolioParadise/internal/api/middleware"
	"portfolioParadise/internal/errcode"
	"portfolioParadise/internal/portfolio"
)

// retryAfterSeconds 是存储不可用时建议客户端等待的秒数。
const retryAfterSeconds = 2

func Error(c *gin.Context, status, code int, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": errcode.Unauthorized})
}

func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, errcode.Validation, msg)
}

func NotFound(c *gin.Context, msg string) {
	Error(c, http.StatusNotFound, errcode.ResourceMissing, msg)
}

func Internal(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, errcode.SystemError, msg)
}

// respondError 将领域错误映射为 HTTP 状态码与业务错误码。
// 未识别的错误记录日志后统一返回 500，不向客户端暴露细节。
func respondError(c *gin.Context, err error) {
	status, code := classify(err)

	var verr *portfolio.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(status, gin.H{"error": "validation failed", "code": code, "fields": verr.Fields})
		return
	case status == http.StatusServiceUnavailable:
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		middleware.LoggerFromContext(c).Warn("store unavailable", "error", err)
		Error(c, status, code, "service temporarily unavailable")
		return
	case status >= http.StatusInternalServerError:
		middleware.LoggerFromContext(c).Error("request failed", "error", err)
		Error(c, status, code, "internal error")
		return
	}
	Error(c, status, code, err.Error())
}

func classify(err error) (status, code int) {
	switch {
	case errors.Is(err, portfolio.ErrValidation):
		return http.StatusBadRequest, errcode.Validation
	case errors.Is(err, portfolio.ErrScope):
		return http.StatusBadRequest, errcode.ScopeMismatch
	case errors.Is(err, portfolio.ErrForbidden):
		return http.StatusForbidden, errcode.Forbidden
	case errors.Is(err, portfolio.ErrNotFound):
		return http.StatusNotFound, errcode.ResourceMissing
	case errors.Is(err, portfolio.ErrCycle), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, errcode.Conflict
	case errors.Is(err, portfolio.ErrInvalidTransition):
		return http.StatusConflict, errcode.InvalidState
	case errors.Is(err, portfolio.ErrExpired):
		return http.StatusGone, errcode.LinkExpired
	case errors.Is(err, portfolio.ErrWrongPassword):
		return http.StatusUnauthorized, errcode.WrongPassword
	case errors.Is(err, portfolio.ErrLimit):
		return http.StatusRequestEntityTooLarge, errcode.LimitExceeded
	case errors.Is(err, portfolio.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errcode.StoreUnavailable
	case errors.Is(err, portfolio.ErrSeed):
		return http.StatusInternalServerError, errcode.SeedFailed
	default:
		return http.StatusInternalServerError, errcode.SystemError
	}
}
