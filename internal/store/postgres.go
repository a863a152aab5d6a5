package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/hauldata/fleetqa/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS load_runs (
	id        TEXT PRIMARY KEY,
	source    TEXT NOT NULL,
	records   INTEGER NOT NULL DEFAULT 0,
	loaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS driving_logs (
	run_id              TEXT NOT NULL REFERENCES load_runs(id),
	record_id           INTEGER NOT NULL,
	date                TEXT NOT NULL,
	vehicle_id          TEXT NOT NULL,
	distance            DOUBLE PRECISION,
	consumed_fuel       DOUBLE PRECISION,
	fuel_efficiency     DOUBLE PRECISION,
	time                TEXT,
	speed               DOUBLE PRECISION,
	refuel              DOUBLE PRECISION,
	reurea              DOUBLE PRECISION,
	cumulative_distance DOUBLE PRECISION,
	PRIMARY KEY (run_id, record_id)
);

CREATE TABLE IF NOT EXISTS proposals (
	run_id     TEXT NOT NULL REFERENCES load_runs(id),
	record_id  INTEGER NOT NULL,
	date       TEXT NOT NULL,
	vehicle_id TEXT NOT NULL,
	target     TEXT NOT NULL,
	original   TEXT,
	proposed   TEXT,
	reference  TEXT,
	reason     TEXT,
	PRIMARY KEY (run_id, record_id, target)
);

CREATE INDEX IF NOT EXISTS idx_driving_logs_vehicle ON driving_logs(vehicle_id);
CREATE INDEX IF NOT EXISTS idx_driving_logs_date ON driving_logs(date);
CREATE INDEX IF NOT EXISTS idx_proposals_vehicle ON proposals(vehicle_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateLoadRun(ctx context.Context, source string) (*LoadRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO load_runs (id, source, records, loaded_at) VALUES ($1, $2, 0, $3)`,
		id, source, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert load run")
	}
	return &LoadRun{ID: id, Source: source, LoadedAt: now}, nil
}

func (s *PostgresStore) FinishLoadRun(ctx context.Context, runID string, records int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE load_runs SET records = $1 WHERE id = $2`,
		records, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish load run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: load run %s not found", runID)
	}
	return nil
}

var drivingLogColumns = []string{
	"run_id", "record_id", "date", "vehicle_id", "distance", "consumed_fuel",
	"fuel_efficiency", "time", "speed", "refuel", "reurea", "cumulative_distance",
}

// InsertRecords bulk-loads rows through the COPY protocol.
func (s *PostgresStore) InsertRecords(ctx context.Context, runID string, records []model.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			runID, r.ID, r.Date, r.VehicleID,
			nullFloat(r.Distance), nullFloat(r.ConsumedFuel), nullFloat(r.FuelEfficiency),
			nullString(r.Time), nullFloat(r.Speed), nullFloat(r.Refuel),
			nullFloat(r.Reurea), nullFloat(r.CumulativeDistance),
		})
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"driving_logs"}, drivingLogColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy driving logs")
	}
	return int(n), nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter LogFilter) ([]model.Record, error) {
	query, args := buildPostgresQuery(
		`SELECT record_id, date, vehicle_id, distance, consumed_fuel, fuel_efficiency, time, speed, refuel, reurea, cumulative_distance FROM driving_logs`,
		filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var r model.Record
		var t *string
		if err := rows.Scan(&r.ID, &r.Date, &r.VehicleID,
			&r.Distance, &r.ConsumedFuel, &r.FuelEfficiency, &t,
			&r.Speed, &r.Refuel, &r.Reurea, &r.CumulativeDistance); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		if t != nil {
			r.Time = *t
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func (s *PostgresStore) InsertProposals(ctx context.Context, runID string, proposalRows []ProposalRow) (int, error) {
	if len(proposalRows) == 0 {
		return 0, nil
	}
	cols := []string{"run_id", "record_id", "date", "vehicle_id", "target", "original", "proposed", "reference", "reason"}
	rows := make([][]any, 0, len(proposalRows))
	for _, p := range proposalRows {
		rows = append(rows, []any{
			runID, p.ID, p.Date, p.VehicleID, p.Target,
			model.FormatValue(p.Original), model.FormatValue(p.Proposed),
			model.FormatValue(p.Reference), p.Reason,
		})
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"proposals"}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy proposals")
	}
	return int(n), nil
}

func (s *PostgresStore) ListProposals(ctx context.Context, filter LogFilter) ([]ProposalRow, error) {
	query, args := buildPostgresQuery(
		`SELECT record_id, date, vehicle_id, target, original, proposed, reference, reason FROM proposals`,
		filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list proposals")
	}
	defer rows.Close()

	var out []ProposalRow
	for rows.Next() {
		var p ProposalRow
		var original, proposed, reference, reason *string
		if err := rows.Scan(&p.ID, &p.Date, &p.VehicleID, &p.Target, &original, &proposed, &reference, &reason); err != nil {
			return nil, eris.Wrap(err, "postgres: scan proposal")
		}
		p.Original = anyPtr(original)
		p.Proposed = anyPtr(proposed)
		p.Reference = anyPtr(reference)
		if reason != nil {
			p.Reason = *reason
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate proposals")
}

// buildPostgresQuery mirrors buildLogQuery with numbered placeholders.
func buildPostgresQuery(base string, filter LogFilter) (string, []any) {
	var args []any
	q := base
	where := ""
	next := func() string {
		return "$" + strconv.Itoa(len(args))
	}
	if filter.VehicleID != "" {
		args = append(args, filter.VehicleID)
		where = " WHERE vehicle_id = " + next()
	}
	if filter.Month != "" {
		args = append(args, filter.Month+"%")
		if where == "" {
			where = " WHERE date LIKE " + next()
		} else {
			where += " AND date LIKE " + next()
		}
	}
	q += where + " ORDER BY record_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += " LIMIT " + next()
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += " OFFSET " + next()
	}
	return q, args
}

func anyPtr(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
