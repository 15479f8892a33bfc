package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/x19-huhr/mybatis"
)

// NormalizeDriver maps driver and dialect aliases such as "postgres" or
// "sqlite" to registered database/sql driver names.
func NormalizeDriver(name string) (string, error) {
	dialect, err := mybatis.ParseDialect(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownDriver, name)
	}

	return dialect.DriverName(), nil
}

// Open opens and pings a database. The driver must be registered, e.g.
// by a blank import of its package.
func Open(ctx context.Context, driver, dsn string, timeout time.Duration) (*sql.DB, error) {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	return db, nil
}
