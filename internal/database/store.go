package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portfolioParadise/internal/portfolio"
)

// Store 是 portfolio.Store 的 GORM 实现。
type Store struct {
	db   *gorm.DB
	inTx bool
}

var _ portfolio.Store = (*Store)(nil)

// NewStore 包装一个已打开的 gorm 连接。
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx portfolio.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
	return mapErr(err)
}

func newModel(kind portfolio.Kind) (any, error) {
	switch kind {
	case portfolio.KindStudent:
		return &portfolio.Student{}, nil
	case portfolio.KindTeacher:
		return &portfolio.Teacher{}, nil
	case portfolio.KindPersonalGoal:
		return &portfolio.PersonalGoal{}, nil
	case portfolio.KindDream:
		return &portfolio.Dream{}, nil
	case portfolio.KindCategory:
		return &portfolio.Category{}, nil
	case portfolio.KindPageTemplate:
		return &portfolio.PageTemplate{}, nil
	case portfolio.KindPortfolioPage:
		return &portfolio.PortfolioPage{}, nil
	case portfolio.KindPageFile:
		return &portfolio.PageFile{}, nil
	case portfolio.KindCalendarEntry:
		return &portfolio.CalendarEntry{}, nil
	case portfolio.KindSharedLink:
		return &portfolio.SharedLink{}, nil
	case portfolio.KindShareRequest:
		return &portfolio.ShareRequest{}, nil
	case portfolio.KindMessage:
		return &portfolio.Message{}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

// checkColumn 只允许实体定义中存在的列名进入 SQL。
func checkColumn(kind portfolio.Kind, column string) error {
	schema, ok := portfolio.SchemaOf(kind)
	if !ok {
		return fmt.Errorf("unknown kind %q", kind)
	}
	for _, f := range schema.Fields {
		if f.Name == column {
			return nil
		}
	}
	return fmt.Errorf("unknown column %s.%s", kind, column)
}

func checkFields(kind portfolio.Kind, fields portfolio.Fields) error {
	if len(fields) == 0 {
		return errors.New("no fields to update")
	}
	for col := range fields {
		if col == "id" || col == "created_at" {
			return fmt.Errorf("column %s.%s is immutable", kind, col)
		}
		if err := checkColumn(kind, col); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) create(ctx context.Context, rec portfolio.Record) error {
	return mapErr(s.conn(ctx).Create(rec).Error)
}

func (s *Store) get(ctx context.Context, dst portfolio.Record, id uuid.UUID) error {
	err := s.conn(ctx).Where("id = ?", id).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", portfolio.ErrNotFound, dst.Kind(), id)
	}
	return mapErr(err)
}

func (s *Store) update(ctx context.Context, kind portfolio.Kind, id uuid.UUID, fields portfolio.Fields) error {
	if err := checkFields(kind, fields); err != nil {
		return err
	}
	model, err := newModel(kind)
	if err != nil {
		return err
	}
	res := s.conn(ctx).Model(model).Where("id = ?", id).Updates(map[string]any(fields))
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", portfolio.ErrNotFound, kind, id)
	}
	return nil
}

func limit(db *gorm.DB, n int) *gorm.DB {
	if n > 0 {
		return db.Limit(n)
	}
	return db
}

func (s *Store) CreateStudent(ctx context.Context, st *portfolio.Student) error {
	return s.create(ctx, st)
}

func (s *Store) GetStudent(ctx context.Context, id uuid.UUID) (*portfolio.Student, error) {
	var st portfolio.Student
	if err := s.get(ctx, &st, id); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) GetStudentByAccount(ctx context.Context, accountID uuid.UUID) (*portfolio.Student, error) {
	var st portfolio.Student
	err := s.conn(ctx).Where("account_id = ?", accountID).First(&st).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, id uuid.UUID, fields portfolio.Fields) error {
	return s.update(ctx, portfolio.KindStudent, id, fields)
}

func (s *Store) CreateTeacher(ctx context.Context, t *portfolio.Teacher) error {
	return s.create(ctx, t)
}

func (s *Store) GetTeacher(ctx context.Context, id uuid.UUID) (*portfolio.Teacher, error) {
	var t portfolio.Teacher
	if err := s.get(ctx, &t, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTeacherByAccount(ctx context.Context, accountID uuid.UUID) (*portfolio.Teacher, error) {
	var t portfolio.Teacher
	err := s.conn(ctx).Where("account_id = ?", accountID).First(&t).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *Store) UpdateTeacher(ctx context.Context, id uuid.UUID, fields portfolio.Fields) error {
	return s.update(ctx, portfolio.KindTeacher, id, fields)
}

func (s *Store) CreateGoal(ctx context.Context, g *portfolio.PersonalGoal) error {
	return s.create(ctx, g)
}

func (s *Store) GetGoal(ctx context.Context, id uuid.UUID) (*portfolio.PersonalGoal, error) {
	var g portfolio.PersonalGoal
	if err := s.get(ctx, &g, id); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) UpdateGoal(ctx context.Context, id uuid.UUID, fields portfolio.Fields) error {
	return s.update(ctx, portfolio.KindPersonalGoal, id, fields)
}

func (s *Store) ListGoals(ctx context.Context, owner portfolio.Owner, opts portfolio.ListOptions) ([]portfolio.PersonalGoal, error) {
	var goals []portfolio.PersonalGoal
	q := s.conn(ctx).Where("owner = ?", owner.String()).Order("created_at DESC")
	if err := limit(q, opts.Limit).Find(&goals).Error; err != nil {
		return nil, mapErr(err)
	}
	return goals, nil
}

func (s *Store) CreateDream(ctx context.Context, d *portfolio.Dream) error {
	return s.create(ctx, d)
}

func (s *Store) GetDream(ctx context.Context, id uuid.UUID) (*portfolio.Dream, error) {
	var d portfolio.Dream
	if err := s.get(ctx, &d, id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDreams(ctx context.Context, owner portfolio.Owner, opts portfolio.ListOptions) ([]portfolio.Dream, error) {
	var dreams []portfolio.Dream
	q := s.conn(ctx).Where("owner = ?", owner.String()).Order("created_at DESC")
	if err := limit(q, opts.Limit).Find(&dreams).Error; err != nil {
		return nil, mapErr(err)
	}
	return dreams, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *portfolio.Category) error {
	return s.create(ctx, c)
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*portfolio.Category, error) {
	var c portfolio.Category
	if err := s.get(ctx, &c, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id uuid.UUID, fields portfolio.Fields) error {
	return s.update(ctx, portfolio.KindCategory, id, fields)
}

func (s *Store) ListCategories(ctx context.Context, studentID uuid.UUID) ([]portfolio.Category, error) {
	var cats []portfolio.Category
	err := s.conn(ctx).
		Where("student_id = ?", studentID).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&cats).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return cats, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t *portfolio.PageTemplate) error {
	return s.create(ctx, t)
}

func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*portfolio.PageTemplate, error) {
	var t portfolio.PageTemplate
	if err := s.get(ctx, &t, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTemplates(ctx context.Context, activeOnly bool) ([]portfolio.PageTemplate, error) {
	var tmpls []portfolio.PageTemplate
	q := s.conn(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&tmpls).Error; err != nil {
		return nil, mapErr(err)
	}
	return tmpls, nil
}

func (s *Store) CreatePage(ctx context.Context, p *portfolio.PortfolioPage) error {
	return s.create(ctx, p)
}

func (s *Store) GetPage(ctx context.Context, id uuid.UUID) (*portfolio.PortfolioPage, error) {
	var p portfolio.PortfolioPage
	if err := s.get(ctx, &p, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdatePage(ctx context.Context, id uuid.UUID, fields portfolio.Fields) error {
	return s.update(ctx, portfolio.KindPortfolioPage, id, fields)
}

func (s *Store) ListPages(ctx context.Context, q portfolio.PageQuery) ([]portfolio.PortfolioPage, error) {
	var pages []portfolio.PortfolioPage
	db := s.conn(ctx).Where("student_id = ?", q.StudentID)
	if q.CategoryID != nil {
		db = db.Where("category_id = ?", *q.CategoryID)
	}
	if q.Visibility != "" {
		db = db.Where("visibility = ?", q.Visibility)
	}
	db = db.Order("sort_order ASC").Order("created_at ASC")
	if err := limit(db, q.Limit).Find(&pages).Error; err != nil {
		return nil, mapErr(err)
	}
	return pages, nil
}

func (s *Store) CreatePageFile(ctx context.Context, f *portfolio.PageFile) error {
	return s.create(ctx, f)
}

func (s *Store) GetPageFile(ctx context.Context, id uuid.UUID) (*portfolio.PageFile, error) {
	var f portfolio.PageFile
	if err := s.get(ctx, &f, id); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) ListPageFiles(ctx context.Context, pageID uuid.UUID) ([]portfolio.PageFile, error) {
	var files []portfolio.PageFile
	err := s.conn(ctx).Where("page_id = ?", pageID).Order("created_at ASC").Find(&files).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return files, nil
}

func (s *Store) CreateCalendarEntry(ctx context.Context, e *portfolio.CalendarEntry) error {
	return s.create(ctx, e)
}

func (s *Store) GetCalendarEntry(ctx context.Context, id uuid.UUID) (*portfolio.CalendarEntry, error) {
	var e portfolio.CalendarEntry
	if err := s.get(ctx, &e, id); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpdateCalendarEntry(ctx context.Context, id uuid.UUID, fields portfolio.Fields) error {
	return s.update(ctx, portfolio.KindCalendarEntry, id, fields)
}

// ListCalendarEntries 返回 [from, to) 区间内的条目。
func (s *Store) ListCalendarEntries(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]portfolio.CalendarEntry, error) {
	var entries []portfolio.CalendarEntry
	err := s.conn(ctx).
		Where("student_id = ? AND date >= ? AND date < ?", studentID, from, to).
		Order("date ASC").
		Find(&entries).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return entries, nil
}

func (s *Store) CreateSharedLink(ctx context.Context, l *portfolio.SharedLink) error {
	return s.create(ctx, l)
}

func (s *Store) GetSharedLink(ctx context.Context, id uuid.UUID) (*portfolio.SharedLink, error) {
	var l portfolio.SharedLink
	if err := s.get(ctx, &l, id); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetSharedLinkByToken(ctx context.Context, token string) (*portfolio.SharedLink, error) {
	var l portfolio.SharedLink
	err := s.conn(ctx).Where("share_token = ?", token).First(&l).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

func (s *Store) ShareTokenExists(ctx context.Context, token string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&portfolio.SharedLink{}).Where("share_token = ?", token).Count(&count).Error
	if err != nil {
		return false, mapErr(err)
	}
	return count > 0, nil
}

func (s *Store) UpdateSharedLink(ctx context.Context, id uuid.UUID, fields portfolio.Fields) error {
	return s.update(ctx, portfolio.KindSharedLink, id, fields)
}

func (s *Store) ListSharedLinks(ctx context.Context, studentID uuid.UUID) ([]portfolio.SharedLink, error) {
	var links []portfolio.SharedLink
	err := s.conn(ctx).Where("student_id = ?", studentID).Order("created_at DESC").Find(&links).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return links, nil
}

// RecordSharedLinkView 在一条 UPDATE 中完成可用性复查与计数递增，并发访问不会丢失计数。
func (s *Store) RecordSharedLinkView(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := s.conn(ctx).
		Model(&portfolio.SharedLink{}).
		Where("id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)", id, true, now).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return false, mapErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) CreateShareRequest(ctx context.Context, r *portfolio.ShareRequest) error {
	return s.create(ctx, r)
}

func (s *Store) GetShareRequest(ctx context.Context, id uuid.UUID) (*portfolio.ShareRequest, error) {
	var r portfolio.ShareRequest
	if err := s.get(ctx, &r, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListShareRequests(ctx context.Context, q portfolio.ShareRequestQuery) ([]portfolio.ShareRequest, error) {
	var reqs []portfolio.ShareRequest
	db := s.conn(ctx)
	if q.StudentID != nil {
		db = db.Where("student_id = ?", *q.StudentID)
	}
	if q.TeacherID != nil {
		db = db.Where("teacher_id = ?", *q.TeacherID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if err := db.Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, mapErr(err)
	}
	return reqs, nil
}

func (s *Store) TransitionShareRequest(ctx context.Context, id uuid.UUID, from, to portfolio.RequestStatus, at time.Time) (bool, error) {
	res := s.conn(ctx).
		Model(&portfolio.ShareRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "decided_at": at})
	if res.Error != nil {
		return false, mapErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) CreateMessage(ctx context.Context, m *portfolio.Message) error {
	return s.create(ctx, m)
}

func (s *Store) GetMessage(ctx context.Context, id uuid.UUID) (*portfolio.Message, error) {
	var m portfolio.Message
	if err := s.get(ctx, &m, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, q portfolio.MessageQuery) ([]portfolio.Message, error) {
	var msgs []portfolio.Message
	db := s.conn(ctx).Where("to_user_id = ?", q.ToUserID)
	if q.UnreadOnly {
		db = db.Where("is_read = ?", false)
	}
	db = db.Order("created_at DESC")
	if err := limit(db, q.Limit).Find(&msgs).Error; err != nil {
		return nil, mapErr(err)
	}
	return msgs, nil
}

func (s *Store) MarkMessageRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := s.conn(ctx).
		Model(&portfolio.Message{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return false, mapErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) Delete(ctx context.Context, kind portfolio.Kind, id uuid.UUID) error {
	model, err := newModel(kind)
	if err != nil {
		return err
	}
	res := s.conn(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", portfolio.ErrNotFound, kind, id)
	}
	return nil
}

func (s *Store) DeleteWhere(ctx context.Context, kind portfolio.Kind, column string, value any) (int64, error) {
	if err := checkColumn(kind, column); err != nil {
		return 0, err
	}
	model, err := newModel(kind)
	if err != nil {
		return 0, err
	}
	res := s.conn(ctx).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).Delete(model)
	if res.Error != nil {
		return 0, mapErr(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) ClearReference(ctx context.Context, kind portfolio.Kind, column string, id uuid.UUID) (int64, error) {
	if err := checkColumn(kind, column); err != nil {
		return 0, err
	}
	model, err := newModel(kind)
	if err != nil {
		return 0, err
	}
	res := s.conn(ctx).
		Model(model).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: id}).
		Update(column, nil)
	if res.Error != nil {
		return 0, mapErr(res.Error)
	}
	return res.RowsAffected, nil
}
