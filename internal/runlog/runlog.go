package runlog

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the local execution log. It mirrors what the desktop app keeps in its
// own database so unattended runs stay inspectable after the fact. It is an
// optional sidecar: callers treat every failure here as log-and-continue.
type DB struct{ sql *sql.DB }

// Open opens (or creates) the execution log at path.
func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  worker TEXT NOT NULL,
	  success INTEGER NOT NULL,
	  errors INTEGER NOT NULL,
	  skips INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(ts);
	CREATE TABLE IF NOT EXISTS outcomes (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  worker TEXT NOT NULL,
	  bot TEXT NOT NULL,
	  outcome TEXT NOT NULL,
	  detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_ts ON outcomes(ts);
	`)
	return err
}

// Outcome is one per-bot decision from a worker pass.
type Outcome struct {
	TS      time.Time
	Worker  string
	Bot     string
	Outcome string
	Detail  string
}

// RecordOutcome appends one per-bot outcome row.
func (d *DB) RecordOutcome(ctx context.Context, o Outcome) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO outcomes(ts, worker, bot, outcome, detail) VALUES(?,?,?,?,?)`,
		o.TS.Unix(), o.Worker, o.Bot, o.Outcome, o.Detail)
	return err
}

// RecordRun appends one summary row for a completed worker pass.
func (d *DB) RecordRun(ctx context.Context, ts time.Time, worker string, success, errors, skips int) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO runs(ts, worker, success, errors, skips) VALUES(?,?,?,?,?)`,
		ts.Unix(), worker, success, errors, skips)
	return err
}

// RecentOutcomes returns the newest outcome rows, newest first.
func (d *DB) RecentOutcomes(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT ts, worker, bot, outcome, COALESCE(detail, '') FROM outcomes ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Outcome
	for rows.Next() {
		var o Outcome
		var ts int64
		if err := rows.Scan(&ts, &o.Worker, &o.Bot, &o.Outcome, &o.Detail); err != nil {
			return nil, err
		}
		o.TS = time.Unix(ts, 0).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

// Prune deletes rows older than before and returns how many were removed.
func (d *DB) Prune(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"outcomes", "runs"} {
		res, err := d.sql.ExecContext(ctx, `DELETE FROM `+table+` WHERE ts < ?`, before.Unix())
		if err != nil {
			return total, err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
