package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hauldata/fleetqa/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateLoadRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO load_runs`).
		WithArgs(pgxmock.AnyArg(), "log.csv", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateLoadRun(context.Background(), "log.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishLoadRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE load_runs SET records`).
		WithArgs(10, "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishLoadRun(context.Background(), "ghost", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertRecordsUsesCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"driving_logs"}, drivingLogColumns).
		WillReturnResult(2)

	n, err := s.InsertRecords(context.Background(), "run-1", []model.Record{
		{ID: 0, Date: "2019-05-01", VehicleID: "A", Distance: model.Float(450)},
		{ID: 1, Date: "2019-05-02", VehicleID: "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertRecordsEmptyIsNoop(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	n, err := s.InsertRecords(context.Background(), "run-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresStore_ListRecords_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record_id, date, vehicle_id`).
		WillReturnError(errors.New("boom"))

	_, err := s.ListRecords(context.Background(), LogFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProposals(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	reason := "hour typo"
	original, proposed := "25:00:00", "15:00:00"
	rows := pgxmock.NewRows([]string{"record_id", "date", "vehicle_id", "target", "original", "proposed", "reference", "reason"}).
		AddRow(3, "2019-05-01", "MAN TGX", "time", &original, &proposed, (*string)(nil), &reason)

	mock.ExpectQuery(`SELECT record_id, date, vehicle_id, target`).
		WithArgs("MAN TGX").
		WillReturnRows(rows)

	got, err := s.ListProposals(context.Background(), LogFilter{VehicleID: "MAN TGX"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, "15:00:00", got[0].Proposed)
	assert.Nil(t, got[0].Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}
