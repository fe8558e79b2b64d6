package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"portfolioParadise/internal/portfolio"
)

// plainHasher 仅用于测试，避免 bcrypt 拖慢并发用例。
type plainHasher struct{}

func (plainHasher) HashPassword(p string) (string, error) { return "plain:" + p, nil }
func (plainHasher) CheckPasswordHash(p, h string) bool   { return h == "plain:"+p }

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []*portfolio.Message
}

func (n *recordingNotifier) NotifyMessage(_ context.Context, m *portfolio.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, m)
	return nil
}

type recordingPurger struct {
	prefixes []string
}

func (p *recordingPurger) PurgePrefix(_ context.Context, prefix string) error {
	p.prefixes = append(p.prefixes, prefix)
	return nil
}

type fixture struct {
	db      *gorm.DB
	store   *Store
	svc     *portfolio.Service
	notify  *recordingNotifier
	purger  *recordingPurger
	now     time.Time
	student *portfolio.Student
	teacher *portfolio.Teacher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:     newTestDB(t),
		notify: &recordingNotifier{},
		purger: &recordingPurger{},
		now:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.store = NewStore(f.db)
	svc, err := portfolio.NewService(portfolio.Options{
		Store:   f.store,
		Notify:  f.notify,
		Purger:  f.purger,
		Hasher:  plainHasher{},
		Timeout: 30 * time.Second,
		Now:     func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc

	ctx := context.Background()
	f.student, err = svc.RegisterStudent(ctx, portfolio.Profile{AccountID: uuid.New(), FirstName: "Eliška", LastName: "Nováková"})
	require.NoError(t, err)
	f.teacher, err = svc.RegisterTeacher(ctx, portfolio.Profile{AccountID: uuid.New(), FirstName: "Marie", LastName: "Dvořáková"})
	require.NoError(t, err)
	return f
}

func (f *fixture) page(t *testing.T, title string, category *uuid.UUID, vis portfolio.Visibility) *portfolio.PortfolioPage {
	t.Helper()
	p, err := f.svc.CreatePage(context.Background(), f.student.ID, portfolio.PageInput{
		Title:      title,
		CategoryID: category,
		Visibility: vis,
	})
	require.NoError(t, err)
	return p
}

func count(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestRegisterStudent_SeedsPredefinedCategories(t *testing.T) {
	f := newFixture(t)

	cats, err := f.svc.ListCategories(context.Background(), f.student.ID)
	require.NoError(t, err)
	require.Len(t, cats, 12)
	for i, c := range cats {
		assert.True(t, c.IsPredefined)
		assert.Equal(t, i+1, c.SortOrder)
		assert.Nil(t, c.ParentCategoryID)
	}
	assert.Equal(t, "Matematika", cats[0].Name)
	assert.Equal(t, "Ostatní", cats[11].Name)

	created, err := f.svc.SeedPredefinedCategories(context.Background(), f.student.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestRegisterStudent_SeedIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_music", func(tx *gorm.DB) {
		if c, ok := tx.Statement.Dest.(*portfolio.Category); ok && c.Name == "Hudba" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	account := uuid.New()
	_, err = f.svc.RegisterStudent(context.Background(), portfolio.Profile{AccountID: account, FirstName: "Tomáš", LastName: "Král"})
	require.Error(t, err)
	assert.ErrorIs(t, err, portfolio.ErrSeed)

	_, err = f.store.GetStudentByAccount(context.Background(), account)
	assert.ErrorIs(t, err, portfolio.ErrNotFound)
	// 只剩 fixture 学生的 12 个分类
	assert.EqualValues(t, 12, count(t, f.db, &portfolio.Category{}, "1 = 1"))
}

func TestDeleteStudent_CascadesAndClearsReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cats, err := f.svc.ListCategories(ctx, f.student.ID)
	require.NoError(t, err)

	p := f.page(t, "Moje první stránka", &cats[0].ID, portfolio.VisibilityShared)
	require.NoError(t, f.store.CreatePageFile(ctx, &portfolio.PageFile{
		Model:     portfolio.Model{ID: uuid.New()},
		PageID:    p.ID,
		ObjectKey: portfolio.PagePrefix(f.student.ID, p.ID) + "a.png",
		Size:      10,
	}))
	_, err = f.svc.CreateGoal(ctx, portfolio.StudentOwner(f.student.ID), portfolio.GoalInput{Title: "Přečíst 10 knih", GoalType: portfolio.GoalLongTerm})
	require.NoError(t, err)
	_, err = f.svc.CreateSharedLink(ctx, f.student.ID, portfolio.FullPortfolio(), portfolio.LinkOptions{})
	require.NoError(t, err)
	req, err := f.svc.CreateShareRequest(ctx, f.student.ID, f.teacher.ID, portfolio.PageScope(p.ID), "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, portfolio.KindStudent, f.student.ID))

	sid := f.student.ID
	assert.Zero(t, count(t, f.db, &portfolio.Category{}, "student_id = ?", sid))
	assert.Zero(t, count(t, f.db, &portfolio.PortfolioPage{}, "student_id = ?", sid))
	assert.Zero(t, count(t, f.db, &portfolio.PageFile{}, "page_id = ?", p.ID))
	assert.Zero(t, count(t, f.db, &portfolio.SharedLink{}, "student_id = ?", sid))
	assert.Zero(t, count(t, f.db, &portfolio.ShareRequest{}, "student_id = ?", sid))
	assert.Zero(t, count(t, f.db, &portfolio.PersonalGoal{}, "owner = ?", portfolio.StudentOwner(sid).String()))
	// 请求消息保留，但不再指向已删除的请求
	assert.Zero(t, count(t, f.db, &portfolio.Message{}, "share_request_id = ?", req.ID))
	assert.EqualValues(t, 1, count(t, f.db, &portfolio.Message{}, "to_user_id = ?", f.teacher.AccountID))

	assert.Contains(t, f.purger.prefixes, portfolio.StudentPrefix(sid))
}

func TestDeleteCategory_NullsPageCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parent, err := f.svc.CreateCategory(ctx, f.student.ID, portfolio.CategoryInput{Name: "Kroužky"})
	require.NoError(t, err)
	child, err := f.svc.CreateCategory(ctx, f.student.ID, portfolio.CategoryInput{Name: "Robotika", ParentCategoryID: &parent.ID})
	require.NoError(t, err)
	p := f.page(t, "Lego robot", &parent.ID, portfolio.VisibilityPrivate)

	require.NoError(t, f.svc.Delete(ctx, portfolio.KindCategory, parent.ID))

	got, err := f.svc.Page(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	c, err := f.store.GetCategory(ctx, child.ID)
	require.NoError(t, err)
	assert.Nil(t, c.ParentCategoryID)

	err = f.svc.Delete(ctx, portfolio.KindCategory, parent.ID)
	assert.ErrorIs(t, err, portfolio.ErrNotFound)
}

func TestSetCategoryParent_RejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.CreateCategory(ctx, f.student.ID, portfolio.CategoryInput{Name: "Věda"})
	require.NoError(t, err)
	b, err := f.svc.CreateCategory(ctx, f.student.ID, portfolio.CategoryInput{Name: "Fyzika", ParentCategoryID: &a.ID})
	require.NoError(t, err)
	c, err := f.svc.CreateCategory(ctx, f.student.ID, portfolio.CategoryInput{Name: "Optika", ParentCategoryID: &b.ID})
	require.NoError(t, err)

	err = f.svc.SetCategoryParent(ctx, a.ID, &c.ID)
	assert.ErrorIs(t, err, portfolio.ErrCycle)

	err = f.svc.SetCategoryParent(ctx, a.ID, &a.ID)
	assert.ErrorIs(t, err, portfolio.ErrCycle)

	got, err := f.store.GetCategory(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentCategoryID)

	require.NoError(t, f.svc.SetCategoryParent(ctx, b.ID, nil))
	require.NoError(t, f.svc.SetCategoryParent(ctx, a.ID, &c.ID))
}

func TestShareRequest_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.CreateShareRequest(ctx, f.student.ID, f.teacher.ID, portfolio.FullPortfolio(), "Prosím o zpětnou vazbu")
	require.NoError(t, err)
	assert.Equal(t, portfolio.RequestPending, req.Status)

	inbox, err := f.svc.Inbox(ctx, f.teacher.AccountID, false, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, portfolio.MessageShareRequest, inbox[0].MessageType)
	assert.Equal(t, f.student.AccountID, inbox[0].FromUserID)
	require.NotNil(t, inbox[0].ShareRequestID)
	assert.Equal(t, req.ID, *inbox[0].ShareRequestID)

	_, err = f.svc.GrantedContent(ctx, f.teacher.ID, req.ID)
	assert.ErrorIs(t, err, portfolio.ErrForbidden)

	approved, err := f.svc.DecideShareRequest(ctx, f.teacher.ID, req.ID, portfolio.RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, portfolio.RequestApproved, approved.Status)
	require.NotNil(t, approved.DecidedAt)

	studentInbox, err := f.svc.Inbox(ctx, f.student.AccountID, false, 0)
	require.NoError(t, err)
	require.Len(t, studentInbox, 1)
	assert.Equal(t, portfolio.MessageSystem, studentInbox[0].MessageType)
	assert.Equal(t, f.teacher.AccountID, studentInbox[0].FromUserID)

	_, err = f.svc.ResolveShareRequest(ctx, req.ID, portfolio.RequestRejected)
	assert.ErrorIs(t, err, portfolio.ErrInvalidTransition)
	_, err = f.svc.ResolveShareRequest(ctx, req.ID, portfolio.RequestPending)
	assert.ErrorIs(t, err, portfolio.ErrInvalidTransition)

	stored, err := f.svc.ShareRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, portfolio.RequestApproved, stored.Status)

	content, err := f.svc.GrantedContent(ctx, f.teacher.ID, req.ID)
	require.NoError(t, err)
	assert.Len(t, content.Categories, 12)

	f.notify.mu.Lock()
	defer f.notify.mu.Unlock()
	assert.Len(t, f.notify.msgs, 2)
}

func TestShareRequest_ScopeMustBelongToStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.svc.RegisterStudent(ctx, portfolio.Profile{AccountID: uuid.New(), FirstName: "Adam", LastName: "Černý"})
	require.NoError(t, err)
	cats, err := f.svc.ListCategories(ctx, other.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateShareRequest(ctx, f.student.ID, f.teacher.ID, portfolio.CategoryScope(cats[0].ID), "")
	assert.ErrorIs(t, err, portfolio.ErrScope)

	_, err = f.svc.CreateShareRequest(ctx, f.student.ID, f.teacher.ID, portfolio.Scope{Type: portfolio.ShareSinglePage}, "")
	assert.ErrorIs(t, err, portfolio.ErrScope)

	assert.Zero(t, count(t, f.db, &portfolio.ShareRequest{}, "1 = 1"))
	assert.Zero(t, count(t, f.db, &portfolio.Message{}, "1 = 1"))
}

func TestResolveSharedLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cats, err := f.svc.ListCategories(ctx, f.student.ID)
	require.NoError(t, err)
	f.page(t, "Sdílená", &cats[0].ID, portfolio.VisibilityShared)
	f.page(t, "Soukromá", &cats[0].ID, portfolio.VisibilityPrivate)

	t.Run("category scope returns shared pages and counts the view", func(t *testing.T) {
		link, err := f.svc.CreateSharedLink(ctx, f.student.ID, portfolio.CategoryScope(cats[0].ID), portfolio.LinkOptions{})
		require.NoError(t, err)
		assert.Len(t, link.ShareToken, 32)

		view, err := f.svc.ResolveSharedLink(ctx, link.ShareToken, "")
		require.NoError(t, err)
		assert.EqualValues(t, 1, view.Link.ViewCount)
		require.Len(t, view.Content.Pages, 1)
		assert.Equal(t, "Sdílená", view.Content.Pages[0].Title)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.svc.ResolveSharedLink(ctx, "0123456789abcdef0123456789abcdef", "")
		assert.ErrorIs(t, err, portfolio.ErrNotFound)
		_, err = f.svc.ResolveSharedLink(ctx, "short", "")
		assert.ErrorIs(t, err, portfolio.ErrNotFound)
	})

	t.Run("expired link is not counted", func(t *testing.T) {
		past := f.now.Add(-time.Hour)
		link, err := f.svc.CreateSharedLink(ctx, f.student.ID, portfolio.FullPortfolio(), portfolio.LinkOptions{ExpiresAt: &past})
		require.NoError(t, err)

		_, err = f.svc.ResolveSharedLink(ctx, link.ShareToken, "")
		assert.ErrorIs(t, err, portfolio.ErrExpired)

		stored, err := f.store.GetSharedLink(ctx, link.ID)
		require.NoError(t, err)
		assert.Zero(t, stored.ViewCount)
	})

	t.Run("deactivated link", func(t *testing.T) {
		link, err := f.svc.CreateSharedLink(ctx, f.student.ID, portfolio.FullPortfolio(), portfolio.LinkOptions{})
		require.NoError(t, err)
		require.NoError(t, f.svc.DeactivateSharedLink(ctx, f.student.ID, link.ID))

		_, err = f.svc.ResolveSharedLink(ctx, link.ShareToken, "")
		assert.ErrorIs(t, err, portfolio.ErrExpired)
	})

	t.Run("password protected", func(t *testing.T) {
		link, err := f.svc.CreateSharedLink(ctx, f.student.ID, portfolio.FullPortfolio(), portfolio.LinkOptions{Password: "tajne"})
		require.NoError(t, err)
		assert.NotEqual(t, "tajne", link.PasswordHash)

		_, err = f.svc.ResolveSharedLink(ctx, link.ShareToken, "spatne")
		assert.ErrorIs(t, err, portfolio.ErrWrongPassword)
		_, err = f.svc.ResolveSharedLink(ctx, link.ShareToken, "")
		assert.ErrorIs(t, err, portfolio.ErrWrongPassword)

		view, err := f.svc.ResolveSharedLink(ctx, link.ShareToken, "tajne")
		require.NoError(t, err)
		assert.EqualValues(t, 1, view.Link.ViewCount)
	})

	t.Run("deleted page behind single page link", func(t *testing.T) {
		p := f.page(t, "Brzy smazaná", nil, portfolio.VisibilityShared)
		link, err := f.svc.CreateSharedLink(ctx, f.student.ID, portfolio.PageScope(p.ID), portfolio.LinkOptions{})
		require.NoError(t, err)
		require.NoError(t, f.svc.Delete(ctx, portfolio.KindPortfolioPage, p.ID))

		stored, err := f.store.GetSharedLink(ctx, link.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.PageID)

		_, err = f.svc.ResolveSharedLink(ctx, link.ShareToken, "")
		assert.ErrorIs(t, err, portfolio.ErrNotFound)
	})
}

func TestResolveSharedLink_ConcurrentViewsAreAllCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link, err := f.svc.CreateSharedLink(ctx, f.student.ID, portfolio.FullPortfolio(), portfolio.LinkOptions{})
	require.NoError(t, err)

	const views = 1000
	var g errgroup.Group
	g.SetLimit(64)
	for i := 0; i < views; i++ {
		g.Go(func() error {
			_, err := f.svc.ResolveSharedLink(ctx, link.ShareToken, "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	stored, err := f.store.GetSharedLink(ctx, link.ID)
	require.NoError(t, err)
	assert.EqualValues(t, views, stored.ViewCount)
}

func TestStoreTimeoutIsStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := f.svc.Student(ctx, f.student.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, portfolio.ErrStoreUnavailable)

	_, err = f.svc.RegisterStudent(ctx, portfolio.Profile{AccountID: uuid.New(), FirstName: "Jana", LastName: "Malá"})
	assert.ErrorIs(t, err, portfolio.ErrStoreUnavailable)
}

func TestMessages_MarkReadAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.svc.SendMessage(ctx, portfolio.MessageInput{
		FromUserID: f.teacher.AccountID,
		ToUserID:   f.student.AccountID,
		Subject:    "Pochvala",
		Content:    "Skvělá práce!",
	})
	require.NoError(t, err)

	_, err = f.svc.MarkRead(ctx, f.teacher.AccountID, m.ID)
	assert.ErrorIs(t, err, portfolio.ErrForbidden)

	read, err := f.svc.MarkRead(ctx, f.student.AccountID, m.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	again, err := f.svc.MarkRead(ctx, f.student.AccountID, m.ID)
	require.NoError(t, err)
	assert.True(t, again.IsRead)

	require.NoError(t, f.svc.DeleteMessage(ctx, f.teacher.AccountID, m.ID))
	_, err = f.store.GetMessage(ctx, m.ID)
	assert.ErrorIs(t, err, portfolio.ErrNotFound)
}
