package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portfolioParadise/internal/api/middleware"
	"portfolioParadise/internal/auth"
	"portfolioParadise/internal/errcode"
	"portfolioParadise/internal/portfolio"
)

var errNoProfile = errors.New("no profile registered for this account")

// currentOwner 根据令牌角色查找当前账号对应的学生或教师档案。
// 未注册档案时返回 404，调用方应先调用注册接口。
func currentOwner(c *gin.Context, svc *portfolio.Service) (portfolio.Owner, bool) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		AbortUnauthorized(c)
		return portfolio.Owner{}, false
	}
	role, _ := middleware.Role(c)

	ctx := c.Request.Context()
	switch role {
	case auth.RoleStudent:
		st, err := svc.StudentByAccount(ctx, accountID)
		if err != nil {
			respondProfileError(c, err)
			return portfolio.Owner{}, false
		}
		return portfolio.StudentOwner(st.ID), true
	case auth.RoleTeacher:
		t, err := svc.TeacherByAccount(ctx, accountID)
		if err != nil {
			respondProfileError(c, err)
			return portfolio.Owner{}, false
		}
		return portfolio.TeacherOwner(t.ID), true
	default:
		AbortUnauthorized(c)
		return portfolio.Owner{}, false
	}
}

func respondProfileError(c *gin.Context, err error) {
	if errors.Is(err, portfolio.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": errNoProfile.Error(), "code": errcode.ResourceMissing})
		return
	}
	respondError(c, err)
	c.Abort()
}

// currentStudentID 要求当前账号是已注册的学生。
func currentStudentID(c *gin.Context, svc *portfolio.Service) (uuid.UUID, bool) {
	owner, ok := currentOwner(c, svc)
	if !ok {
		return uuid.Nil, false
	}
	if owner.Kind() != portfolio.OwnerStudent {
		Error(c, http.StatusForbidden, errcode.Forbidden, "student profile required")
		return uuid.Nil, false
	}
	return owner.ID(), true
}

func currentTeacherID(c *gin.Context, svc *portfolio.Service) (uuid.UUID, bool) {
	owner, ok := currentOwner(c, svc)
	if !ok {
		return uuid.Nil, false
	}
	if owner.Kind() != portfolio.OwnerTeacher {
		Error(c, http.StatusForbidden, errcode.Forbidden, "teacher profile required")
		return uuid.Nil, false
	}
	return owner.ID(), true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func limitQuery(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
