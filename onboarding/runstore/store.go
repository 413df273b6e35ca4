package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/cloudsecops/orgonboard/onboarding"
	"github.com/cloudsecops/orgonboard/onboarding/runstore/internal/adapters"
)

const (
	dialectPostgres  = "postgres"
	defaultTableName = "onboarding_runs"

	colRunID             = "run_id"
	colStartedAt         = "started_at"
	colFinishedAt        = "finished_at"
	colDelegatedAdmin    = "delegated_admin"
	colManagementAccount = "management_account"
	colRegion            = "region"
	colDirectoryCount    = "directory_count"
	colRegistryCount     = "registry_count"
	colRequested         = "requested"
	colSucceeded         = "succeeded"
	colFailedCount       = "failed_count"
	colInvited           = "invited"
	colFailures          = "failures"
	colInviteFailures    = "invite_failures"

	logMsgRunRecorded   = "onboarding run recorded"
	logMsgRecordFailed  = "recording onboarding run failed"
	logMsgSchemaEnsured = "ledger schema ensured"
	logAttrTable        = "table"
	logAttrRunID        = "run_id"
	logAttrError        = "error"
)

const schemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
	run_id             uuid PRIMARY KEY,
	started_at         timestamptz NOT NULL,
	finished_at        timestamptz NOT NULL,
	delegated_admin    text NOT NULL,
	management_account text NOT NULL DEFAULT '',
	region             text NOT NULL,
	directory_count    integer NOT NULL,
	registry_count     integer NOT NULL,
	requested          integer NOT NULL,
	succeeded          integer NOT NULL,
	failed_count       integer NOT NULL,
	invited            integer NOT NULL DEFAULT 0,
	failures           jsonb NOT NULL DEFAULT '[]',
	invite_failures    jsonb NOT NULL DEFAULT '[]'
);
ALTER TABLE %[1]s ADD COLUMN IF NOT EXISTS invite_failures jsonb NOT NULL DEFAULT '[]';
CREATE INDEX IF NOT EXISTS %[1]s_started_at_idx ON %[1]s (started_at DESC);`

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrInvalidTableName is returned when the table name is not a plain lower case identifier.
	ErrInvalidTableName = errors.New("table name must be a lower case identifier")

	// ErrInvalidRunID is returned when a summary carries a run id that is not a UUID.
	ErrInvalidRunID = errors.New("run id must be a UUID")

	// ErrInvalidLimit is returned when Recent is asked for less than one run.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrBuildingQueryFailed is returned when goqu cannot build a statement.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrRunAlreadyRecorded is returned when the run id is already in the ledger.
	ErrRunAlreadyRecorded = errors.New("run already recorded")
)

// RunRecord is one ledger row.
type RunRecord struct {
	RunID               string
	StartedAt           time.Time
	FinishedAt          time.Time
	DelegatedAdminID    string
	ManagementAccountID string
	Region              string
	DirectoryCount      int
	RegistryCount       int
	Requested           int
	Succeeded           int
	FailedCount         int
	Invited             int
	Failures            []onboarding.Failure
	InviteFailures      []onboarding.Failure
}

// failureJSON is the stored shape of one failure inside the jsonb columns.
type failureJSON struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

// Store writes and reads the run ledger.
type Store struct {
	db        adapters.DBAdapter
	tableName string
	logger    onboarding.Logger
}

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithTableName sets the ledger table name.
func WithTableName(tableName string) Option {
	return func(s *Store) error {
		if !tableNamePattern.MatchString(tableName) {
			return fmt.Errorf("%w: %q", ErrInvalidTableName, tableName)
		}

		s.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger for ledger operations.
func WithLogger(logger onboarding.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// NewStoreFromPGXPool creates a Store on a pgx pool.
func NewStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (*Store, error) {
	if pool == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(pool), options)
}

// NewStoreFromSQLDB creates a Store on a database/sql handle, e.g. opened with the "postgres" (lib/pq) driver.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options)
}

// NewStoreFromSQLX creates a Store on a sqlx handle.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options)
}

func newStore(db adapters.DBAdapter, options []Option) (*Store, error) {
	s := &Store{db: db, tableName: defaultTableName}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// EnsureSchema creates the ledger table and its index if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(schemaTemplate, s.tableName)); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug(logMsgSchemaEnsured, logAttrTable, s.tableName)
	}

	return nil
}

// Record stores the summary of a completed run.
func (s *Store) Record(ctx context.Context, summary onboarding.Summary) error {
	err := s.record(ctx, summary)

	if s.logger != nil {
		if err != nil {
			s.logger.Error(logMsgRecordFailed, logAttrRunID, summary.RunID, logAttrError, err.Error())
		} else {
			s.logger.Info(logMsgRunRecorded, logAttrRunID, summary.RunID, logAttrTable, s.tableName)
		}
	}

	return err
}

func (s *Store) record(ctx context.Context, summary onboarding.Summary) error {
	if _, err := uuid.Parse(summary.RunID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, summary.RunID)
	}

	sqlQuery, err := s.buildInsertQuery(summary)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, sqlQuery)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunAlreadyRecorded, summary.RunID)
	}

	return nil
}

func (s *Store) buildInsertQuery(summary onboarding.Summary) (string, error) {
	failures, err := encodeFailures(summary.Failed)
	if err != nil {
		return "", err
	}

	inviteFailures, err := encodeFailures(summary.InviteFailed)
	if err != nil {
		return "", err
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(goqu.Record{
			colRunID:             summary.RunID,
			colStartedAt:         summary.StartedAt.UTC(),
			colFinishedAt:        summary.FinishedAt.UTC(),
			colDelegatedAdmin:    summary.DelegatedAdminID,
			colManagementAccount: summary.ManagementAccountID,
			colRegion:            summary.Region,
			colDirectoryCount:    summary.DirectoryCount,
			colRegistryCount:     summary.RegistryCount,
			colRequested:         summary.Requested,
			colSucceeded:         summary.Succeeded,
			colFailedCount:       len(summary.Failed),
			colInvited:           summary.Invited,
			colFailures:          goqu.Cast(goqu.V(string(failures)), "JSONB"),
			colInviteFailures:    goqu.Cast(goqu.V(string(inviteFailures)), "JSONB"),
		}).
		OnConflict(goqu.DoNothing())

	sqlQuery, _, err := insertStmt.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(
			goqu.Cast(goqu.C(colRunID), "TEXT").As(colRunID),
			colStartedAt,
			colFinishedAt,
			colDelegatedAdmin,
			colManagementAccount,
			colRegion,
			colDirectoryCount,
			colRegistryCount,
			colRequested,
			colSucceeded,
			colFailedCount,
			colInvited,
			goqu.Cast(goqu.C(colFailures), "TEXT").As(colFailures),
			goqu.Cast(goqu.C(colInviteFailures), "TEXT").As(colInviteFailures),
		).
		Order(goqu.I(colStartedAt).Desc()).
		Limit(uint(limit))

	sqlQuery, _, err := selectStmt.ToSQL()
	if err != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := s.db.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]RunRecord, 0, limit)
	for rows.Next() {
		var record RunRecord
		var failures, inviteFailures string

		if err := rows.Scan(
			&record.RunID,
			&record.StartedAt,
			&record.FinishedAt,
			&record.DelegatedAdminID,
			&record.ManagementAccountID,
			&record.Region,
			&record.DirectoryCount,
			&record.RegistryCount,
			&record.Requested,
			&record.Succeeded,
			&record.FailedCount,
			&record.Invited,
			&failures,
			&inviteFailures,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if record.Failures, err = decodeFailures(failures); err != nil {
			return nil, fmt.Errorf("decode failures of run %s: %w", record.RunID, err)
		}

		if record.InviteFailures, err = decodeFailures(inviteFailures); err != nil {
			return nil, fmt.Errorf("decode invite failures of run %s: %w", record.RunID, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return records, nil
}

func encodeFailures(failures []onboarding.Failure) ([]byte, error) {
	stored := make([]failureJSON, len(failures))
	for i, failure := range failures {
		stored[i] = failureJSON{AccountID: failure.AccountID, Reason: failure.Reason}
	}

	encoded, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode failures: %w", err)
	}

	return encoded, nil
}

func decodeFailures(raw string) ([]onboarding.Failure, error) {
	if raw == "" {
		return nil, nil
	}

	var stored []failureJSON
	if err := json.UnmarshalFromString(raw, &stored); err != nil {
		return nil, err
	}

	failures := make([]onboarding.Failure, len(stored))
	for i, failure := range stored {
		failures[i] = onboarding.Failure{AccountID: failure.AccountID, Reason: failure.Reason}
	}

	return failures, nil
}
