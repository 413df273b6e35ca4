package runstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsecops/orgonboard/onboarding"
	"github.com/cloudsecops/orgonboard/onboarding/runstore/internal/adapters"
	"github.com/cloudsecops/orgonboard/testutil/spies"
)

type fakeResult int64

func (r fakeResult) RowsAffected() (int64, error) {
	return int64(r), nil
}

type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++

	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d columns into %d destinations", len(row), len(dest))
	}

	for i, value := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = value.(string)
		case *int:
			*d = value.(int)
		case *time.Time:
			*d = value.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}

	return nil
}

func (r *fakeRows) Err() error {
	return r.err
}

func (r *fakeRows) Close() error {
	return nil
}

type fakeDB struct {
	queries  []string
	execs    []string
	rows     *fakeRows
	affected int64
	err      error
}

func (f *fakeDB) Query(_ context.Context, query string) (adapters.DBRows, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}

	return f.rows, nil
}

func (f *fakeDB) Exec(_ context.Context, query string) (adapters.DBResult, error) {
	f.execs = append(f.execs, query)
	if f.err != nil {
		return nil, f.err
	}

	return fakeResult(f.affected), nil
}

const testRunID = "01890a5d-ac96-774b-bcce-b302099a8057"

func completedSummary() onboarding.Summary {
	return onboarding.Summary{
		RunMeta: onboarding.RunMeta{
			RunID:               testRunID,
			DelegatedAdminID:    "030172395295",
			ManagementAccountID: "123456789012",
			Region:              "us-east-1",
			StartedAt:           time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			FinishedAt:          time.Date(2026, 3, 14, 9, 27, 3, 0, time.UTC),
		},
		DirectoryCount: 120,
		RegistryCount:  1,
		Requested:      119,
		Attempted:      119,
		Succeeded:      116,
		Failed: []onboarding.Failure{
			{AccountID: "111111111111", Reason: "InvalidInput"},
			{AccountID: "222222222222", Reason: `quote's "here"`},
			{AccountID: "333333333333", Reason: "AccountIdNotFound"},
		},
		Invited: 115,
		InviteFailed: []onboarding.Failure{
			{AccountID: "444444444444", Reason: "EmailBounced"},
		},
	}
}

func Test_Store_Record_BuildsInsert(t *testing.T) {
	// arrange
	db := &fakeDB{affected: 1}
	logHandler := spies.NewLogHandlerSpy(false)
	store, err := newStore(db, []Option{WithLogger(slog.New(logHandler))})
	require.NoError(t, err)

	// act
	err = store.Record(context.Background(), completedSummary())

	// assert
	require.NoError(t, err)
	require.Len(t, db.execs, 1)

	query := db.execs[0]
	assert.True(t, strings.HasPrefix(query, `INSERT INTO "onboarding_runs"`), query)
	assert.Contains(t, query, `"failed_count"`)
	assert.Contains(t, query, `'`+testRunID+`'`)
	assert.Contains(t, query, `'030172395295'`)
	assert.Contains(t, query, `AS JSONB`)
	assert.Contains(t, query, `"account_id":"222222222222"`)
	assert.Contains(t, query, `quote''s`, "single quotes inside the failures are escaped")
	assert.True(t, strings.HasSuffix(query, "ON CONFLICT DO NOTHING"), query)
	assert.True(t, logHandler.HasLogWithAttr(slog.LevelInfo, "onboarding run recorded", "run_id", testRunID))
}

func Test_Store_Record_KeepsInviteFailuresApartFromMemberFailures(t *testing.T) {
	// arrange
	db := &fakeDB{affected: 1}
	store, err := newStore(db, nil)
	require.NoError(t, err)

	// act
	err = store.Record(context.Background(), completedSummary())

	// assert
	require.NoError(t, err)
	require.Len(t, db.execs, 1)

	query := db.execs[0]
	assert.Contains(t, query, `"invite_failures"`)
	assert.Contains(t, query, `CAST('[{"account_id":"444444444444","reason":"EmailBounced"}]' AS JSONB)`)
	assert.Contains(t, query, `115`, "invited count is stored")
}

func Test_Store_Record_StoresEmptyInviteFailuresAsEmptyArray(t *testing.T) {
	db := &fakeDB{affected: 1}
	store, err := newStore(db, nil)
	require.NoError(t, err)

	summary := completedSummary()
	summary.InviteFailed = nil

	require.NoError(t, store.Record(context.Background(), summary))

	assert.Contains(t, db.execs[0], `CAST('[]' AS JSONB)`)
}

func Test_Store_Record_RejectsInvalidRunID(t *testing.T) {
	db := &fakeDB{affected: 1}
	store, err := newStore(db, nil)
	require.NoError(t, err)

	summary := completedSummary()
	summary.RunID = "not-a-uuid"

	err = store.Record(context.Background(), summary)

	assert.ErrorIs(t, err, ErrInvalidRunID)
	assert.Empty(t, db.execs)
}

func Test_Store_Record_Duplicate(t *testing.T) {
	store, err := newStore(&fakeDB{affected: 0}, nil)
	require.NoError(t, err)

	err = store.Record(context.Background(), completedSummary())

	assert.ErrorIs(t, err, ErrRunAlreadyRecorded)
}

func Test_Store_Record_DatabaseError(t *testing.T) {
	dbErr := errors.New("connection refused")
	logHandler := spies.NewLogHandlerSpy(false)
	store, err := newStore(&fakeDB{err: dbErr}, []Option{WithLogger(slog.New(logHandler))})
	require.NoError(t, err)

	err = store.Record(context.Background(), completedSummary())

	assert.ErrorIs(t, err, dbErr)
	assert.True(t, logHandler.HasLog(slog.LevelError, "recording onboarding run failed"))
}

func Test_Store_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	store, err := newStore(db, []Option{WithTableName("audit_runs")})
	require.NoError(t, err)

	require.NoError(t, store.EnsureSchema(context.Background()))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS audit_runs (")
	assert.Contains(t, db.execs[0], "run_id             uuid PRIMARY KEY")
	assert.Contains(t, db.execs[0], "failures           jsonb")
	assert.Contains(t, db.execs[0], "ALTER TABLE audit_runs ADD COLUMN IF NOT EXISTS invite_failures jsonb")
	assert.Contains(t, db.execs[0], "CREATE INDEX IF NOT EXISTS audit_runs_started_at_idx ON audit_runs")
}

func Test_Store_Recent(t *testing.T) {
	// arrange
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	db := &fakeDB{rows: &fakeRows{rows: [][]any{
		{
			testRunID, started, started.Add(10 * time.Second),
			"030172395295", "123456789012", "us-east-1",
			120, 1, 119, 118, 1, 0,
			`[{"account_id":"111111111111","reason":"InvalidInput"}]`,
			`[{"account_id":"444444444444","reason":"EmailBounced"}]`,
		},
		{
			"01890a5d-ac96-774b-bcce-b302099a8058", started.Add(-time.Hour), started.Add(-time.Hour),
			"030172395295", "", "eu-west-1",
			5, 5, 0, 0, 0, 0,
			`[]`,
			`[]`,
		},
	}}}
	store, err := newStore(db, nil)
	require.NoError(t, err)

	// act
	records, err := store.Recent(context.Background(), 5)

	// assert
	require.NoError(t, err)
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], `CAST("run_id" AS TEXT)`)
	assert.Contains(t, db.queries[0], `ORDER BY "started_at" DESC LIMIT 5`)

	require.Len(t, records, 2)
	assert.Equal(t, RunRecord{
		RunID:               testRunID,
		StartedAt:           started,
		FinishedAt:          started.Add(10 * time.Second),
		DelegatedAdminID:    "030172395295",
		ManagementAccountID: "123456789012",
		Region:              "us-east-1",
		DirectoryCount:      120,
		RegistryCount:       1,
		Requested:           119,
		Succeeded:           118,
		FailedCount:         1,
		Failures:            []onboarding.Failure{{AccountID: "111111111111", Reason: "InvalidInput"}},
		InviteFailures:      []onboarding.Failure{{AccountID: "444444444444", Reason: "EmailBounced"}},
	}, records[0])
	assert.Empty(t, records[1].Failures)
	assert.Empty(t, records[1].InviteFailures)
	assert.Contains(t, db.queries[0], `CAST("invite_failures" AS TEXT)`)
}

func Test_Store_Recent_Errors(t *testing.T) {
	store, err := newStore(&fakeDB{}, nil)
	require.NoError(t, err)

	_, err = store.Recent(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	broken := &fakeDB{rows: &fakeRows{rows: [][]any{{
		testRunID, time.Now(), time.Now(), "a", "b", "c", 1, 1, 1, 1, 0, 0, `{not json`, `[]`,
	}}}}
	store, err = newStore(broken, nil)
	require.NoError(t, err)

	_, err = store.Recent(context.Background(), 1)
	assert.ErrorContains(t, err, "decode failures")

	brokenInvites := &fakeDB{rows: &fakeRows{rows: [][]any{{
		testRunID, time.Now(), time.Now(), "a", "b", "c", 1, 1, 1, 1, 0, 0, `[]`, `[{`,
	}}}}
	store, err = newStore(brokenInvites, nil)
	require.NoError(t, err)

	_, err = store.Recent(context.Background(), 1)
	assert.ErrorContains(t, err, "decode invite failures")

	iterErr := errors.New("conn closed")
	store, err = newStore(&fakeDB{rows: &fakeRows{err: iterErr}}, nil)
	require.NoError(t, err)

	_, err = store.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, iterErr)
}

func Test_Store_Options(t *testing.T) {
	_, err := newStore(&fakeDB{}, []Option{WithTableName("Robert'); DROP TABLE students;--")})
	assert.ErrorIs(t, err, ErrInvalidTableName)

	_, err = NewStoreFromPGXPool(nil)
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)

	_, err = NewStoreFromSQLDB(nil)
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)

	_, err = NewStoreFromSQLX(nil)
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)
}

func Test_encodeFailures_Empty(t *testing.T) {
	encoded, err := encodeFailures(nil)

	require.NoError(t, err)
	assert.Equal(t, "[]", string(encoded))
}
