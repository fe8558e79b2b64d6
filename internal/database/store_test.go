package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"portfolioParadise/internal/portfolio"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), GormConfig("silent"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func newStudentRecord(t *testing.T, store *Store) *portfolio.Student {
	t.Helper()
	st := &portfolio.Student{
		Model:     portfolio.Model{ID: uuid.New()},
		AccountID: uuid.New(),
		FirstName: "Eliška",
		LastName:  "Nováková",
	}
	require.NoError(t, store.CreateStudent(context.Background(), st))
	return st
}

func TestStore_GetMissingIsNotFound(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.GetStudent(ctx, uuid.New())
	assert.ErrorIs(t, err, portfolio.ErrNotFound)

	_, err = store.GetSharedLinkByToken(ctx, "00000000000000000000000000000000")
	assert.ErrorIs(t, err, portfolio.ErrNotFound)

	err = store.Delete(ctx, portfolio.KindPortfolioPage, uuid.New())
	assert.ErrorIs(t, err, portfolio.ErrNotFound)

	err = store.UpdateCategory(ctx, uuid.New(), portfolio.Fields{"name": "Nové"})
	assert.ErrorIs(t, err, portfolio.ErrNotFound)
}

func TestStore_DuplicateAccountIsRejected(t *testing.T) {
	store := NewStore(newTestDB(t))
	st := newStudentRecord(t, store)

	dup := &portfolio.Student{
		Model:     portfolio.Model{ID: uuid.New()},
		AccountID: st.AccountID,
		FirstName: "Jan",
		LastName:  "Novák",
	}
	err := store.CreateStudent(context.Background(), dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestStore_OwnerRoundTrip(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	st := newStudentRecord(t, store)

	goal := &portfolio.PersonalGoal{
		Model:    portfolio.Model{ID: uuid.New()},
		Owner:    portfolio.StudentOwner(st.ID),
		Title:    "Naučit se plavat",
		GoalType: portfolio.GoalShortTerm,
	}
	require.NoError(t, store.CreateGoal(ctx, goal))

	got, err := store.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, portfolio.StudentOwner(st.ID), got.Owner)

	goals, err := store.ListGoals(ctx, portfolio.StudentOwner(st.ID), portfolio.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, goals, 1)

	goals, err = store.ListGoals(ctx, portfolio.TeacherOwner(st.ID), portfolio.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	id := uuid.New()
	err := store.WithTx(ctx, func(tx portfolio.Store) error {
		st := &portfolio.Student{
			Model:     portfolio.Model{ID: id},
			AccountID: uuid.New(),
			FirstName: "Petr",
			LastName:  "Svoboda",
		}
		if err := tx.CreateStudent(ctx, st); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetStudent(ctx, id)
	assert.ErrorIs(t, err, portfolio.ErrNotFound)
}

func TestStore_ClearReference(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	st := newStudentRecord(t, store)

	catID := uuid.New()
	for i := 0; i < 3; i++ {
		p := &portfolio.PortfolioPage{
			Model:      portfolio.Model{ID: uuid.New()},
			StudentID:  st.ID,
			Title:      fmt.Sprintf("Stránka %d", i),
			CategoryID: &catID,
			Visibility: portfolio.VisibilityPrivate,
		}
		require.NoError(t, store.CreatePage(ctx, p))
	}

	n, err := store.ClearReference(ctx, portfolio.KindPortfolioPage, "category_id", catID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	pages, err := store.ListPages(ctx, portfolio.PageQuery{StudentID: st.ID})
	require.NoError(t, err)
	for _, p := range pages {
		assert.Nil(t, p.CategoryID)
	}
}

func TestStore_MarkMessageReadOnce(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	m := &portfolio.Message{
		Model:       portfolio.Model{ID: uuid.New()},
		FromUserID:  uuid.New(),
		ToUserID:    uuid.New(),
		MessageType: portfolio.MessageText,
		Content:     "Ahoj",
	}
	require.NoError(t, store.CreateMessage(ctx, m))

	changed, err := store.MarkMessageRead(ctx, m.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.MarkMessageRead(ctx, m.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	unread, err := store.ListMessages(ctx, portfolio.MessageQuery{ToUserID: m.ToUserID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}
