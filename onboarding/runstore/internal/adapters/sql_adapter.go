package adapters

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// queryExecer is what sql.DB and sqlx.DB have in common.
type queryExecer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLAdapter implements DBAdapter for database/sql handles, e.g. opened with the lib/pq driver.
type SQLAdapter struct {
	db queryExecer
}

// NewSQLAdapter creates an adapter on db.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// NewSQLXAdapter creates an adapter on a sqlx handle.
func NewSQLXAdapter(db *sqlx.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// Query runs a statement that returns rows.
func (s *SQLAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec runs a statement.
func (s *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return result, nil
}

type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}
