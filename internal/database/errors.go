package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"portfolioParadise/internal/portfolio"
)

// mapErr 将驱动层错误归一到 portfolio 的错误分类。
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, portfolio.ErrStoreUnavailable) || errors.Is(err, portfolio.ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", portfolio.ErrNotFound, err)
	}
	if transient(err) {
		return fmt.Errorf("%w: %w", portfolio.ErrStoreUnavailable, err)
	}
	return err
}

func transient(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
