package database

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"portfolioParadise/internal/portfolio"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return NewStore(gormDB), mock
}

func TestRecordSharedLinkView_SingleConditionalUpdate(t *testing.T) {
	t.Run("counts when the link is usable", func(t *testing.T) {
		store, mock := newMockStore(t)
		id := uuid.New()
		now := time.Now().UTC()

		mock.ExpectExec(`UPDATE "shared_links" SET "view_count"=view_count \+ \$1 WHERE .*is_active.*expires_at IS NULL OR expires_at >`).
			WithArgs(1, sqlmock.AnyArg(), true, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		counted, err := store.RecordSharedLinkView(context.Background(), id, now)
		require.NoError(t, err)
		assert.True(t, counted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports false when no row matched", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec(`UPDATE "shared_links" SET "view_count"=view_count \+ \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		counted, err := store.RecordSharedLinkView(context.Background(), uuid.New(), time.Now())
		require.NoError(t, err)
		assert.False(t, counted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransitionShareRequest_GuardsOnCurrentStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "share_requests" SET .*"status"=.* WHERE \(id = \$\d+ AND status = \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := store.TransitionShareRequest(context.Background(), uuid.New(),
		portfolio.RequestPending, portfolio.RequestApproved, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapErr_TransientFailuresAreRetryable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "students"`).
		WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	_, err := store.GetStudent(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, portfolio.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, portfolio.ErrNotFound},
		{"deadline", context.DeadlineExceeded, portfolio.ErrStoreUnavailable},
		{"canceled", context.Canceled, portfolio.ErrStoreUnavailable},
		{"already classified", portfolio.ErrStoreUnavailable, portfolio.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapErr(tt.err), tt.want)
		})
	}

	plain := errors.New("syntax error")
	assert.Equal(t, plain, mapErr(plain))
	assert.NoError(t, mapErr(nil))
}

func TestDeleteWhere_RejectsUnknownColumn(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.DeleteWhere(context.Background(), portfolio.KindPortfolioPage, "student_id; DROP TABLE students", uuid.New())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_RejectsImmutableColumns(t *testing.T) {
	store, mock := newMockStore(t)

	err := store.UpdatePage(context.Background(), uuid.New(), portfolio.Fields{"id": uuid.New()})
	require.Error(t, err)

	err = store.UpdatePage(context.Background(), uuid.New(), portfolio.Fields{})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
