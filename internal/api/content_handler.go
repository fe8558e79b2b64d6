package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portfolioParadise/internal/portfolio"
)

// ContentHandler 负责目标、梦想、分类、日程与模板目录。
type ContentHandler struct {
	svc *portfolio.Service
}

func NewContentHandler(svc *portfolio.Service) *ContentHandler {
	return &ContentHandler{svc: svc}
}

type goalRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	GoalType    portfolio.GoalType `json:"goal_type"`
	TargetDate  *time.Time         `json:"target_date"`
}

func (h *ContentHandler) CreateGoal(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	g, err := h.svc.CreateGoal(c.Request.Context(), owner, portfolio.GoalInput{
		Title:       req.Title,
		Description: req.Description,
		GoalType:    req.GoalType,
		TargetDate:  req.TargetDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *ContentHandler) ListGoals(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	goals, err := h.svc.ListGoals(c.Request.Context(), owner, limitQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": goals})
}

// CompleteGoal 标记目标完成并记录完成日期。
func (h *ContentHandler) CompleteGoal(c *gin.Context) {
	h.setGoalCompleted(c, true)
}

func (h *ContentHandler) ReopenGoal(c *gin.Context) {
	h.setGoalCompleted(c, false)
}

func (h *ContentHandler) setGoalCompleted(c *gin.Context, done bool) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var (
		g   *portfolio.PersonalGoal
		err error
	)
	if done {
		g, err = h.svc.CompleteGoal(c.Request.Context(), owner, id)
	} else {
		g, err = h.svc.ReopenGoal(c.Request.Context(), owner, id)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type dreamRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *ContentHandler) CreateDream(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	var req dreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	d, err := h.svc.CreateDream(c.Request.Context(), owner, portfolio.DreamInput{Title: req.Title, Description: req.Description})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *ContentHandler) ListDreams(c *gin.Context) {
	owner, ok := currentOwner(c, h.svc)
	if !ok {
		return
	}
	dreams, err := h.svc.ListDreams(c.Request.Context(), owner, limitQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dreams})
}

type categoryRequest struct {
	Name             string     `json:"name"`
	ParentCategoryID *uuid.UUID `json:"parent_category_id"`
	SortOrder        int        `json:"sort_order"`
}

func (h *ContentHandler) CreateCategory(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), studentID, portfolio.CategoryInput{
		Name:             req.Name,
		ParentCategoryID: req.ParentCategoryID,
		SortOrder:        req.SortOrder,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *ContentHandler) ListCategories(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	cats, err := h.svc.ListCategories(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cats})
}

type categoryParentRequest struct {
	ParentCategoryID *uuid.UUID `json:"parent_category_id"`
}

// SetCategoryParent 移动分类；形成环时返回 409。
func (h *ContentHandler) SetCategoryParent(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req categoryParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	err := h.svc.SetCategoryParentFor(c.Request.Context(), portfolio.StudentOwner(studentID), id, req.ParentCategoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SeedCategories 为当前学生补建预置分类。
func (h *ContentHandler) SeedCategories(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	n, err := h.svc.SeedPredefinedCategories(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": n})
}

type calendarRequest struct {
	Date          time.Time           `json:"date" binding:"required"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	EntryType     portfolio.EntryType `json:"entry_type"`
	RelatedGoalID *uuid.UUID          `json:"related_goal_id"`
}

func (h *ContentHandler) CreateCalendarEntry(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	var req calendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	e, err := h.svc.CreateCalendarEntry(c.Request.Context(), studentID, portfolio.CalendarInput{
		Date:          req.Date,
		Title:         req.Title,
		Description:   req.Description,
		EntryType:     req.EntryType,
		RelatedGoalID: req.RelatedGoalID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ListCalendarEntries 返回 [from, to) 内的日程；缺省为当前自然月。
func (h *ContentHandler) ListCalendarEntries(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = parseDate(raw); err != nil {
			BadRequest(c, "invalid from")
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = parseDate(raw); err != nil {
			BadRequest(c, "invalid to")
			return
		}
	}
	entries, err := h.svc.ListCalendarEntries(c.Request.Context(), studentID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *ContentHandler) ToggleCalendarEntry(c *gin.Context) {
	studentID, ok := currentStudentID(c, h.svc)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.ToggleCalendarEntry(c.Request.Context(), studentID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *ContentHandler) ListTemplates(c *gin.Context) {
	templates, err := h.svc.ListTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": templates})
}

func (h *ContentHandler) GetTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.Template(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Delete 返回删除当前账号所拥有的 kind 记录的处理函数。
func (h *ContentHandler) Delete(kind portfolio.Kind) gin.HandlerFunc {
	return deleteOwned(h.svc, kind)
}

func deleteOwned(svc *portfolio.Service, kind portfolio.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := currentOwner(c, svc)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		if err := svc.DeleteFor(c.Request.Context(), owner, kind, id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// parseDate 接受 RFC 3339 时间或 YYYY-MM-DD 日期。
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
