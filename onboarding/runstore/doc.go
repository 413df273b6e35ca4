// Package runstore keeps an audit ledger of completed onboarding runs in PostgreSQL.
//
// A Store is built from a pgxpool.Pool, a sql.DB (lib/pq) or a sqlx.DB. EnsureSchema creates the
// ledger table, Record stores the summary of a completed run including every failure, and Recent
// lists the latest runs for the history view of the command line tool.
//
// The ledger is an observer: onboarding never reads it to decide what to do, the aggregation
// service remains the only source of truth for which accounts are members.
package runstore
