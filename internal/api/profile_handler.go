package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolioParadise/internal/api/middleware"
	"portfolioParadise/internal/auth"
	"portfolioParadise/internal/portfolio"
)

// ProfileHandler 负责学生与教师档案的注册、查询与头像上传。
type ProfileHandler struct {
	svc     *portfolio.Service
	scanner virusScanner
}

func NewProfileHandler(svc *portfolio.Service, clamdAddr string) *ProfileHandler {
	return &ProfileHandler{svc: svc, scanner: newVirusScanner(clamdAddr)}
}

type registerRequest struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Bio         string     `json:"bio"`
}

// Register 为当前账号创建与其角色对应的档案；学生档案会同时获得预置分类。
func (h *ProfileHandler) Register(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	profile := portfolio.Profile{
		AccountID:   accountID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Bio:         req.Bio,
	}

	ctx := c.Request.Context()
	role, _ := middleware.Role(c)
	switch role {
	case auth.RoleStudent:
		st, err := h.svc.RegisterStudent(ctx, profile)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, st)
	case auth.RoleTeacher:
		t, err := h.svc.RegisterTeacher(ctx, profile)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	default:
		AbortUnauthorized(c)
	}
}

// Me 返回当前账号的档案。
func (h *ProfileHandler) Me(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if owner.Kind() == portfolio.OwnerStudent {
		st, err := h.svc.Student(ctx, owner.ID())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
		return
	}
	t, err := h.svc.Teacher(ctx, owner.ID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UploadAvatar 扫描并保存头像，返回对象 key。
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	up, closeFn, ok := readUpload(c, h.scanner)
	if !ok {
		return
	}
	defer closeFn()

	key, err := h.svc.SetAvatar(c.Request.Context(), owner, up)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"objectKey": key})
}

// DeleteMe 删除当前账号的档案及其全部从属数据。
func (h *ProfileHandler) DeleteMe(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	kind := portfolio.KindStudent
	if owner.Kind() == portfolio.OwnerTeacher {
		kind = portfolio.KindTeacher
	}
	if err := h.svc.DeleteFor(c.Request.Context(), owner, kind, owner.ID()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
