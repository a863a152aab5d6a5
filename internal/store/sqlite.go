package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hauldata/fleetqa/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS load_runs (
	id        TEXT PRIMARY KEY,
	source    TEXT NOT NULL,
	records   INTEGER NOT NULL DEFAULT 0,
	loaded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS driving_logs (
	run_id              TEXT NOT NULL REFERENCES load_runs(id),
	record_id           INTEGER NOT NULL,
	date                TEXT NOT NULL,
	vehicle_id          TEXT NOT NULL,
	distance            REAL,
	consumed_fuel       REAL,
	fuel_efficiency     REAL,
	time                TEXT,
	speed               REAL,
	refuel              REAL,
	reurea              REAL,
	cumulative_distance REAL,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateLoadRun(ctx context.Context, source string) (*LoadRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO load_runs (id, source, records, loaded_at) VALUES (?, ?, 0, ?)`,
		id, source, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert load run")
	}
	return &LoadRun{ID: id, Source: source, LoadedAt: now}, nil
}

func (s *SQLiteStore) FinishLoadRun(ctx context.Context, runID string, records int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE load_runs SET records = ? WHERE id = ?`,
		records, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish load run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: load run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) InsertRecords(ctx context.Context, runID string, records []model.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO driving_logs
		(run_id, record_id, date, vehicle_id, distance, consumed_fuel, fuel_efficiency, time, speed, refuel, reurea, cumulative_distance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			runID, r.ID, r.Date, r.VehicleID,
			nullFloat(r.Distance), nullFloat(r.ConsumedFuel), nullFloat(r.FuelEfficiency),
			nullString(r.Time), nullFloat(r.Speed), nullFloat(r.Refuel),
			nullFloat(r.Reurea), nullFloat(r.CumulativeDistance),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert record %d", r.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return len(records), nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, filter LogFilter) ([]model.Record, error) {
	query, args := buildLogQuery(
		`SELECT record_id, date, vehicle_id, distance, consumed_fuel, fuel_efficiency, time, speed, refuel, reurea, cumulative_distance FROM driving_logs`,
		filter, "?")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var r model.Record
		var t sql.NullString
		var dist, fuel, eff, speed, refuel, reurea, cum sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Date, &r.VehicleID, &dist, &fuel, &eff, &t, &speed, &refuel, &reurea, &cum); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		r.Time = t.String
		r.Distance = fromNull(dist)
		r.ConsumedFuel = fromNull(fuel)
		r.FuelEfficiency = fromNull(eff)
		r.Speed = fromNull(speed)
		r.Refuel = fromNull(refuel)
		r.Reurea = fromNull(reurea)
		r.CumulativeDistance = fromNull(cum)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func (s *SQLiteStore) InsertProposals(ctx context.Context, runID string, rows []ProposalRow) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO proposals
		(run_id, record_id, date, vehicle_id, target, original, proposed, reference, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, p := range rows {
		_, err := stmt.ExecContext(ctx,
			runID, p.ID, p.Date, p.VehicleID, p.Target,
			model.FormatValue(p.Original), model.FormatValue(p.Proposed),
			model.FormatValue(p.Reference), p.Reason,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert proposal %d/%s", p.ID, p.Target)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return len(rows), nil
}

func (s *SQLiteStore) ListProposals(ctx context.Context, filter LogFilter) ([]ProposalRow, error) {
	query, args := buildLogQuery(
		`SELECT record_id, date, vehicle_id, target, original, proposed, reference, reason FROM proposals`,
		filter, "?")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list proposals")
	}
	defer rows.Close()

	var out []ProposalRow
	for rows.Next() {
		var p ProposalRow
		var original, proposed, reference, reason sql.NullString
		if err := rows.Scan(&p.ID, &p.Date, &p.VehicleID, &p.Target, &original, &proposed, &reference, &reason); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan proposal")
		}
		p.Original = anyString(original)
		p.Proposed = anyString(proposed)
		p.Reference = anyString(reference)
		p.Reason = reason.String
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate proposals")
}

// buildLogQuery appends filter clauses using the given placeholder style.
// SQLite uses "?", Postgres numbered placeholders are built by the caller.
func buildLogQuery(base string, filter LogFilter, placeholder string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.VehicleID != "" {
		clauses = append(clauses, "vehicle_id = "+placeholder)
		args = append(args, filter.VehicleID)
	}
	if filter.Month != "" {
		clauses = append(clauses, "date LIKE "+placeholder)
		args = append(args, filter.Month+"%")
	}
	q := base
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY record_id"
	if filter.Limit > 0 {
		q += " LIMIT " + placeholder
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		q += " OFFSET " + placeholder
		args = append(args, filter.Offset)
	}
	return q, args
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func anyString(v sql.NullString) any {
	if !v.Valid || v.String == "" {
		return nil
	}
	return v.String
}
