// Package ledger opens the PostgreSQL run ledger with the configured driver.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/cloudsecops/orgonboard/internal/config"
	"github.com/cloudsecops/orgonboard/onboarding"
	"github.com/cloudsecops/orgonboard/onboarding/runstore"
)

const (
	maxConnections    = 4
	minConnections    = 0
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = time.Minute * 5
	healthCheckPeriod = time.Minute
	connectTimeout    = time.Second * 5
)

var (
	// ErrUnknownDriver is returned for a driver other than pgx, postgres or sqlx.
	ErrUnknownDriver = errors.New("unknown ledger driver")

	// ErrEmptyDSN is returned when no connection string is configured.
	ErrEmptyDSN = errors.New("ledger dsn must not be empty")
)

// Ledger is an open run store plus the connection pool behind it.
type Ledger struct {
	*runstore.Store
	close func()
}

// Close releases the connection pool.
func (l *Ledger) Close() {
	l.close()
}

// Open connects to dsn through driver, verifies the connection and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string, logger onboarding.Logger) (*Ledger, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	options := []runstore.Option{}
	if logger != nil {
		options = append(options, runstore.WithLogger(logger))
	}

	var (
		ledger *Ledger
		err    error
	)

	switch driver {
	case config.LedgerDriverPGX:
		ledger, err = openPGX(ctx, dsn, options)
	case config.LedgerDriverPQ:
		ledger, err = openSQLDB(ctx, dsn, options)
	case config.LedgerDriverSQLX:
		ledger, err = openSQLX(ctx, dsn, options)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	if err != nil {
		return nil, err
	}

	if err := ledger.EnsureSchema(ctx); err != nil {
		ledger.Close()
		return nil, err
	}

	return ledger, nil
}

func openPGX(ctx context.Context, dsn string, options []runstore.Option) (*Ledger, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse ledger dsn: %w", err)
	}

	poolConfig.MaxConns = maxConnections
	poolConfig.MinConns = minConnections
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open ledger pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}

	store, err := runstore.NewStoreFromPGXPool(pool, options...)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Ledger{Store: store, close: pool.Close}, nil
}

func openSQLDB(ctx context.Context, dsn string, options []runstore.Option) (*Ledger, error) {
	db, err := sql.Open(config.LedgerDriverPQ, dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	configurePool(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}

	store, err := runstore.NewStoreFromSQLDB(db, options...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Ledger{Store: store, close: func() { _ = db.Close() }}, nil
}

func openSQLX(ctx context.Context, dsn string, options []runstore.Option) (*Ledger, error) {
	db, err := sqlx.Open(config.LedgerDriverPQ, dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	configurePool(db.DB)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}

	store, err := runstore.NewStoreFromSQLX(db, options...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Ledger{Store: store, close: func() { _ = db.Close() }}, nil
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(maxConnections)
	db.SetMaxIdleConns(maxConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	db.SetConnMaxIdleTime(maxConnIdleTime)
}
