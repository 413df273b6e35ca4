// Package adapters lets the run ledger work on pgxpool.Pool, sql.DB and sqlx.DB alike.
// Each adapter exposes the two operations the ledger needs, query and exec, over fully built SQL.
package adapters
