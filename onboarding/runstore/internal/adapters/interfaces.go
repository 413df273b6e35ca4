package adapters

import "context"

// DBAdapter executes fully built SQL statements.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBRows iterates query results.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult reports the effect of a statement.
type DBResult interface {
	RowsAffected() (int64, error)
}
