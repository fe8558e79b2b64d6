package portfolio

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GoalInput struct {
	Title       string
	Description string
	GoalType    GoalType
	TargetDate  *time.Time
}

func (s *Service) CreateGoal(ctx context.Context, owner Owner, in GoalInput) (*PersonalGoal, error) {
	g := &PersonalGoal{
		Model:       Model{ID: uuid.New()},
		Owner:       owner,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		GoalType:    in.GoalType,
		TargetDate:  in.TargetDate,
	}
	if err := Validate(g); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.ensureOwner(ctx, owner); err != nil {
		return nil, err
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (s *Service) ListGoals(ctx context.Context, owner Owner, limit int) ([]PersonalGoal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListGoals(ctx, owner, ListOptions{Limit: clampLimit(limit)})
}

// CompleteGoal 将目标标记为完成，并写入 completed_date。
func (s *Service) CompleteGoal(ctx context.Context, actor Owner, id uuid.UUID) (*PersonalGoal, error) {
	return s.setGoalCompleted(ctx, actor, id, true)
}

// ReopenGoal 清除完成状态与 completed_date。
func (s *Service) ReopenGoal(ctx context.Context, actor Owner, id uuid.UUID) (*PersonalGoal, error) {
	return s.setGoalCompleted(ctx, actor, id, false)
}

func (s *Service) setGoalCompleted(ctx context.Context, actor Owner, id uuid.UUID, done bool) (*PersonalGoal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Owner != actor {
		return nil, fmt.Errorf("%w: goal %s", ErrForbidden, id)
	}
	var completedAt *time.Time
	if done {
		now := s.clock()
		completedAt = &now
	}
	if err := s.store.UpdateGoal(ctx, id, Fields{"completed": done, "completed_date": completedAt}); err != nil {
		return nil, err
	}
	g.Completed = done
	g.CompletedDate = completedAt
	return g, nil
}

type DreamInput struct {
	Title       string
	Description string
}

func (s *Service) CreateDream(ctx context.Context, owner Owner, in DreamInput) (*Dream, error) {
	d := &Dream{
		Model:       Model{ID: uuid.New()},
		Owner:       owner,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.ensureOwner(ctx, owner); err != nil {
		return nil, err
	}
	if err := s.store.CreateDream(ctx, d); err != nil {
		return nil, fmt.Errorf("create dream: %w", err)
	}
	return d, nil
}

func (s *Service) ListDreams(ctx context.Context, owner Owner, limit int) ([]Dream, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListDreams(ctx, owner, ListOptions{Limit: clampLimit(limit)})
}

func (s *Service) ensureOwner(ctx context.Context, o Owner) error {
	var err error
	switch o.Kind() {
	case OwnerStudent:
		_, err = s.store.GetStudent(ctx, o.ID())
	case OwnerTeacher:
		_, err = s.store.GetTeacher(ctx, o.ID())
	default:
		err = invalid(KindPersonalGoal, FieldError{Field: "owner", Tag: "required", Message: "owner is a required field"})
	}
	return err
}

type CategoryInput struct {
	Name             string
	ParentCategoryID *uuid.UUID
	SortOrder        int
}

// CreateCategory 为学生新增一个自定义（非预置）分类。
func (s *Service) CreateCategory(ctx context.Context, studentID uuid.UUID, in CategoryInput) (*Category, error) {
	c := &Category{
		Model:            Model{ID: uuid.New()},
		StudentID:        studentID,
		Name:             strings.TrimSpace(in.Name),
		ParentCategoryID: in.ParentCategoryID,
		SortOrder:        in.SortOrder,
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetStudent(ctx, studentID); err != nil {
			return err
		}
		if c.ParentCategoryID != nil {
			if err := checkParent(ctx, tx, studentID, c.ID, *c.ParentCategoryID); err != nil {
				return err
			}
		}
		return tx.CreateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCategories 按 sort_order 返回学生的全部分类。
func (s *Service) ListCategories(ctx context.Context, studentID uuid.UUID) ([]Category, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListCategories(ctx, studentID)
}

type PageInput struct {
	Title          string
	TemplateID     *uuid.UUID
	CategoryID     *uuid.UUID
	Content        string
	StructuredData datatypes.JSON
	Visibility     Visibility
	SortOrder      int
}

func (s *Service) CreatePage(ctx context.Context, studentID uuid.UUID, in PageInput) (*PortfolioPage, error) {
	if in.Visibility == "" {
		in.Visibility = VisibilityPrivate
	}
	p := &PortfolioPage{
		Model:          Model{ID: uuid.New()},
		StudentID:      studentID,
		Title:          strings.TrimSpace(in.Title),
		TemplateID:     in.TemplateID,
		CategoryID:     in.CategoryID,
		Content:        s.sanitize(in.Content),
		StructuredData: in.StructuredData,
		Visibility:     in.Visibility,
		SortOrder:      in.SortOrder,
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if err := s.checkPageRefs(ctx, p); err != nil {
		return nil, err
	}
	if err := s.store.CreatePage(ctx, p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return p, nil
}

// UpdatePage 覆盖学生自己页面的可编辑字段。
func (s *Service) UpdatePage(ctx context.Context, studentID, pageID uuid.UUID, in PageInput) (*PortfolioPage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if p.StudentID != studentID {
		return nil, fmt.Errorf("%w: page %s", ErrForbidden, pageID)
	}
	if in.Visibility == "" {
		in.Visibility = p.Visibility
	}
	p.Title = strings.TrimSpace(in.Title)
	p.TemplateID = in.TemplateID
	p.CategoryID = in.CategoryID
	p.Content = s.sanitize(in.Content)
	p.StructuredData = in.StructuredData
	p.Visibility = in.Visibility
	p.SortOrder = in.SortOrder
	if err := s.checkPageRefs(ctx, p); err != nil {
		return nil, err
	}
	err = s.store.UpdatePage(ctx, pageID, Fields{
		"title":           p.Title,
		"template_id":     p.TemplateID,
		"category_id":     p.CategoryID,
		"content":         p.Content,
		"structured_data": p.StructuredData,
		"visibility":      p.Visibility,
		"sort_order":      p.SortOrder,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// checkPageRefs 按模板校验页面，并确认分类属于同一学生。
func (s *Service) checkPageRefs(ctx context.Context, p *PortfolioPage) error {
	var tmpl *PageTemplate
	if p.TemplateID != nil {
		t, err := s.store.GetTemplate(ctx, *p.TemplateID)
		if err != nil {
			return err
		}
		tmpl = t
	}
	if err := ValidatePage(p, tmpl); err != nil {
		return err
	}
	if p.CategoryID != nil {
		c, err := s.store.GetCategory(ctx, *p.CategoryID)
		if err != nil {
			return err
		}
		if c.StudentID != p.StudentID {
			return fmt.Errorf("%w: category %s belongs to another student", ErrForbidden, c.ID)
		}
	}
	return nil
}

func (s *Service) sanitize(content string) string {
	if s.sanitizer == nil {
		return content
	}
	return s.sanitizer.Sanitize(content)
}

func (s *Service) Page(ctx context.Context, id uuid.UUID) (*PortfolioPage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetPage(ctx, id)
}

// PageFor 返回学生自己的页面。
func (s *Service) PageFor(ctx context.Context, studentID, id uuid.UUID) (*PortfolioPage, error) {
	p, err := s.Page(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.StudentID != studentID {
		return nil, fmt.Errorf("%w: page %s", ErrForbidden, id)
	}
	return p, nil
}

func (s *Service) ListPages(ctx context.Context, q PageQuery) ([]PortfolioPage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	q.Limit = clampLimit(q.Limit)
	return s.store.ListPages(ctx, q)
}

// AttachFile 为学生自己的页面上传附件，超过大小或数量限额返回 ErrLimit。
func (s *Service) AttachFile(ctx context.Context, studentID, pageID uuid.UUID, up Upload) (*PageFile, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("attach file: no blob store configured")
	}
	if err := s.checkUpload(up); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if p.StudentID != studentID {
		return nil, fmt.Errorf("%w: page %s", ErrForbidden, pageID)
	}
	files, err := s.store.ListPageFiles(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if len(files) >= s.maxFilesPerPage {
		return nil, fmt.Errorf("%w: page %s already has %d files", ErrLimit, pageID, len(files))
	}

	f := &PageFile{
		Model:       Model{ID: uuid.New()},
		PageID:      pageID,
		ObjectKey:   PagePrefix(studentID, pageID) + uuid.NewString() + strings.ToLower(path.Ext(up.FileName)),
		FileName:    path.Base(up.FileName),
		ContentType: up.ContentType,
		Size:        up.Size,
	}
	if err := Validate(f); err != nil {
		return nil, err
	}
	if err := s.blobs.UploadFile(ctx, f.ObjectKey, up.Body, up.Size, up.ContentType); err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	if err := s.store.CreatePageFile(ctx, f); err != nil {
		s.removeBlob(ctx, f.ObjectKey)
		return nil, fmt.Errorf("create page file: %w", err)
	}
	return f, nil
}

func (s *Service) ListPageFiles(ctx context.Context, pageID uuid.UUID) ([]PageFile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListPageFiles(ctx, pageID)
}

// FileURL 返回学生自己附件的临时预签名下载链接。
func (s *Service) FileURL(ctx context.Context, studentID, fileID uuid.UUID) (string, error) {
	if s.blobs == nil {
		return "", fmt.Errorf("file url: no blob store configured")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	f, err := s.store.GetPageFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	p, err := s.store.GetPage(ctx, f.PageID)
	if err != nil {
		return "", err
	}
	if p.StudentID != studentID {
		return "", fmt.Errorf("%w: file %s", ErrForbidden, fileID)
	}
	return s.blobs.GeneratePresignedURL(ctx, f.ObjectKey, presignedURLExpiry)
}

type CalendarInput struct {
	Date          time.Time
	Title         string
	Description   string
	EntryType     EntryType
	RelatedGoalID *uuid.UUID
}

func (s *Service) CreateCalendarEntry(ctx context.Context, studentID uuid.UUID, in CalendarInput) (*CalendarEntry, error) {
	e := &CalendarEntry{
		Model:         Model{ID: uuid.New()},
		StudentID:     studentID,
		Date:          in.Date.UTC(),
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		EntryType:     in.EntryType,
		RelatedGoalID: in.RelatedGoalID,
	}
	if err := Validate(e); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if e.RelatedGoalID != nil {
		g, err := s.store.GetGoal(ctx, *e.RelatedGoalID)
		if err != nil {
			return nil, err
		}
		if g.Owner != StudentOwner(studentID) {
			return nil, fmt.Errorf("%w: goal %s belongs to another owner", ErrForbidden, g.ID)
		}
	}
	if err := s.store.CreateCalendarEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("create calendar entry: %w", err)
	}
	return e, nil
}

// ListCalendarEntries 返回日期落在 [from, to) 内的日程。
func (s *Service) ListCalendarEntries(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]CalendarEntry, error) {
	if !to.After(from) {
		return nil, invalid(KindCalendarEntry, FieldError{Field: "to", Tag: "gtfield", Message: "to must be after from"})
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.ListCalendarEntries(ctx, studentID, from.UTC(), to.UTC())
}

// ToggleCalendarEntry 切换日程的完成状态。
func (s *Service) ToggleCalendarEntry(ctx context.Context, studentID, id uuid.UUID) (*CalendarEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	e, err := s.store.GetCalendarEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.StudentID != studentID {
		return nil, fmt.Errorf("%w: calendar entry %s", ErrForbidden, id)
	}
	e.Completed = !e.Completed
	if err := s.store.UpdateCalendarEntry(ctx, id, Fields{"completed": e.Completed}); err != nil {
		return nil, err
	}
	return e, nil
}
