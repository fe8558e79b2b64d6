package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portfolioParadise/internal/api/middleware"
	"portfolioParadise/internal/errcode"
	"portfolioParadise/internal/metrics"
	"portfolioParadise/internal/portfolio"
)

// SharePasswordHeader 携带受密码保护的分享链接的口令，避免口令出现在 URL 与访问日志中。
const SharePasswordHeader = "X-Share-Password"

// ShareHandler 负责分享请求、分享链接与公开访问入口。
type ShareHandler struct {
	svc             *portfolio.Service
	// rate 为 nil 时不限制密码尝试次数。
	rate            redisRateCounter
	attemptsPerHour int
	now             func() time.Time
}

func NewShareHandler(svc *portfolio.Service, rate redisRateCounter, attemptsPerHour int) *ShareHandler {
	return &ShareHandler{svc: svc, rate: rate, attemptsPerHour: attemptsPerHour, now: time.Now}
}

type scopeRequest struct {
	ShareType  portfolio.ShareType `json:"share_type"`
	CategoryID *uuid.UUID          `json:"category_id"`
	PageID     *uuid.UUID          `json:"page_id"`
}

func (r scopeRequest) scope() portfolio.Scope {
	return portfolio.Scope{Type: r.ShareType, CategoryID: r.CategoryID, PageID: r.PageID}
}

type shareRequestRequest struct {
	scopeRequest
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
	Message   string    `json:"message"`
}

// CreateShareRequest 由学生发起，同时给教师发送一条 share_request 消息。
func (h *ShareHandler) CreateShareRequest(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	var req shareRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	sr, err := h.svc.CreateShareRequest(c.Request.Context(), studentID, req.TeacherID, req.scope(), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sr)
}

// ListShareRequests 学生看到自己发出的请求，教师看到发给自己的请求。
func (h *ShareHandler) ListShareRequests(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	id := owner.ID()
	q := portfolio.ShareRequestQuery{Status: portfolio.RequestStatus(c.Query("status"))}
	if owner.Kind() == portfolio.OwnerStudent {
		q.StudentID = &id
	} else {
		q.TeacherID = &id
	}
	items, err := h.svc.ListShareRequests(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *ShareHandler) GetShareRequest(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	sr, err := h.svc.ShareRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if owner != portfolio.StudentOwner(sr.StudentID) && owner != portfolio.TeacherOwner(sr.TeacherID) {
		Error(c, http.StatusForbidden, errcode.Forbidden, "share request belongs to another account")
		return
	}
	c.JSON(http.StatusOK, sr)
}

type decisionRequest struct {
	Status portfolio.RequestStatus `json:"status" binding:"required"`
}

// DecideShareRequest 由被请求的教师批准或拒绝；重复处理返回 409。
func (h *ShareHandler) DecideShareRequest(c *gin.Context) {
	teacherID, ok := currentTeacherID(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	sr, err := h.svc.DecideShareRequest(c.Request.Context(), teacherID, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.ObserveShareDecision(string(sr.Status))
	middleware.LoggerFromContext(c).Info("share request decided",
		slog.String("share_request_id", sr.ID.String()),
		slog.String("status", string(sr.Status)),
	)
	c.JSON(http.StatusOK, sr)
}

// GrantedContent 返回已批准请求授予教师的内容。
func (h *ShareHandler) GrantedContent(c *gin.Context) {
	teacherID, ok := currentTeacherID(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	content, err := h.svc.GrantedContent(c.Request.Context(), teacherID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

type sharedLinkRequest struct {
	scopeRequest
	Password  string     `json:"password"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (h *ShareHandler) CreateSharedLink(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	var req sharedLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	link, err := h.svc.CreateSharedLink(c.Request.Context(), studentID, req.scope(), portfolio.LinkOptions{
		Password:  req.Password,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *ShareHandler) ListSharedLinks(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	links, err := h.svc.ListSharedLinks(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": links})
}

func (h *ShareHandler) DeactivateSharedLink(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateSharedLink(c.Request.Context(), studentID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ShareHandler) Delete(kind portfolio.Kind) gin.HandlerFunc {
	return deleteOwned(h.svc, kind)
}

// ResolvePublic 是无需登录的分享链接入口。
// 同一 IP 对同一令牌每小时的错误口令次数超过上限后返回 429。
func (h *ShareHandler) ResolvePublic(c *gin.Context) {
	token := strings.ToLower(c.Param("token"))
	ctx := c.Request.Context()
	rateKey := passwordAttemptKey(token, c.ClientIP(), h.now())

	if h.limited(ctx, rateKey) {
		metrics.ObserveLinkResolution("rate_limited")
		Error(c, http.StatusTooManyRequests, errcode.RateLimited, "too many password attempts")
		return
	}

	view, err := h.svc.ResolveSharedLink(ctx, token, c.GetHeader(SharePasswordHeader))
	if err != nil {
		metrics.ObserveLinkResolution(resolutionOutcome(err))
		if errors.Is(err, portfolio.ErrWrongPassword) && h.rate != nil {
			if _, rerr := incrWithTTL(ctx, h.rate, rateKey, passwordAttemptWindow); rerr != nil {
				middleware.LoggerFromContext(c).Warn("count share password attempt", slog.Any("error", rerr))
			}
		}
		respondError(c, err)
		return
	}
	metrics.ObserveLinkResolution("ok")
	c.JSON(http.StatusOK, view)
}

// limited 在计数器不可用时放行。
func (h *ShareHandler) limited(ctx context.Context, key string) bool {
	if h.rate == nil || h.attemptsPerHour <= 0 {
		return false
	}
	count, err := h.rate.Get(ctx, key).Int64()
	if err != nil {
		return false
	}
	return count >= int64(h.attemptsPerHour)
}

func resolutionOutcome(err error) string {
	switch {
	case errors.Is(err, portfolio.ErrNotFound):
		return "not_found"
	case errors.Is(err, portfolio.ErrExpired):
		return "expired"
	case errors.Is(err, portfolio.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, portfolio.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
