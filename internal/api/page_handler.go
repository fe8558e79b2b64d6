package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"portfolioParadise/internal/api/middleware"
	"portfolioParadise/internal/portfolio"
)

// PageHandler 负责作品集页面与其附件。
type PageHandler struct {
	svc     *portfolio.Service
	scanner virusScanner
}

func NewPageHandler(svc *portfolio.Service, clamdAddr string) *PageHandler {
	return &PageHandler{svc: svc, scanner: newVirusScanner(clamdAddr)}
}

type pageRequest struct {
	Title          string               `json:"title"`
	TemplateID     *uuid.UUID           `json:"template_id"`
	CategoryID     *uuid.UUID           `json:"category_id"`
	Content        string               `json:"content"`
	StructuredData datatypes.JSON       `json:"structured_data"`
	Visibility     portfolio.Visibility `json:"visibility"`
	SortOrder      int                  `json:"sort_order"`
}

func (r pageRequest) input() portfolio.PageInput {
	return portfolio.PageInput{
		Title:          r.Title,
		TemplateID:     r.TemplateID,
		CategoryID:     r.CategoryID,
		Content:        r.Content,
		StructuredData: r.StructuredData,
		Visibility:     r.Visibility,
		SortOrder:      r.SortOrder,
	}
}

func (h *PageHandler) CreatePage(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.CreatePage(c.Request.Context(), studentID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PageHandler) UpdatePage(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.UpdatePage(c.Request.Context(), studentID, id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PageHandler) GetPage(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.PageFor(c.Request.Context(), studentID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListPages 支持 category_id、visibility 与 limit 查询参数。
func (h *PageHandler) ListPages(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	q := portfolio.PageQuery{
		StudentID:  studentID,
		Visibility: portfolio.Visibility(c.Query("visibility")),
		Limit:      limitQuery(c),
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(c, "invalid category_id")
			return
		}
		q.CategoryID = &id
	}
	pages, err := h.svc.ListPages(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": pages})
}

// AttachFile 扫描并上传页面附件。
func (h *PageHandler) AttachFile(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	pageID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	up, closeFn, ok := readUpload(c, h.scanner)
	if !ok {
		return
	}
	defer closeFn()

	f, err := h.svc.AttachFile(c.Request.Context(), studentID, pageID, up)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.LoggerFromContext(c).Info("page file attached",
		slog.String("page_id", pageID.String()),
		slog.String("object_key", f.ObjectKey),
		slog.Int64("size", f.Size),
	)
	c.JSON(http.StatusCreated, f)
}

func (h *PageHandler) ListFiles(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	pageID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.svc.PageFor(ctx, studentID, pageID); err != nil {
		respondError(c, err)
		return
	}
	files, err := h.svc.ListPageFiles(ctx, pageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": files})
}

// FileURL 返回附件的临时预签名 URL。
func (h *PageHandler) FileURL(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	url, err := h.svc.FileURL(c.Request.Context(), studentID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *PageHandler) Delete(kind portfolio.Kind) gin.HandlerFunc {
	return deleteOwned(h.svc, kind)
}
