// Package persistence provides SQLite-backed storage for the timeline:
// entities, snapshots, authored events, and the simulation run ledger.
// It implements the collaborator interfaces in internal/sim.
package persistence

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/halcyard/chronicle/internal/sim"
)

// DB wraps a SQLite connection for timeline persistence.
type DB struct {
	conn *sqlx.DB
}

// Compile-time checks that DB satisfies the core's collaborator interfaces.
var (
	_ sim.SnapshotStore = (*DB)(nil)
	_ sim.EventSource   = (*DB)(nil)
	_ sim.RunLedger     = (*DB)(nil)
)

// Open opens or creates the database at path. WAL mode with a busy timeout
// allows concurrent branch runs against the same file.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error { return db.conn.Close() }

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL UNIQUE,
		kind          TEXT NOT NULL CHECK (kind IN ('region', 'province')),
		parent_id     INTEGER REFERENCES entities(id),
		founded_day   INTEGER,
		dissolved_day INTEGER
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id             INTEGER NOT NULL REFERENCES entities(id),
		branch                TEXT NOT NULL DEFAULT 'main',
		astro_day             INTEGER NOT NULL,
		snapshot_type         TEXT NOT NULL,
		granularity           TEXT NOT NULL,
		population_total      REAL NOT NULL,
		population_by_species TEXT NOT NULL DEFAULT '{}',
		environmental_factor  REAL NOT NULL DEFAULT 1.0,
		infrastructure_factor REAL NOT NULL DEFAULT 1.0,
		location_factor       REAL NOT NULL DEFAULT 1.0,
		created_at            TEXT NOT NULL,
		UNIQUE (entity_id, branch, astro_day)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_entity_branch_day
		ON snapshots(entity_id, branch, astro_day);

	CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL,
		event_type TEXT NOT NULL,
		entity_id  INTEGER NOT NULL REFERENCES entities(id),
		astro_day  INTEGER NOT NULL,
		end_day    INTEGER,
		effects    TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_entity_day ON events(entity_id, astro_day);
	CREATE INDEX IF NOT EXISTS idx_events_end_day ON events(end_day);

	CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		entity_id     INTEGER NOT NULL REFERENCES entities(id),
		branch        TEXT NOT NULL,
		parent_run_id TEXT,
		start_day     INTEGER NOT NULL,
		end_day       INTEGER NOT NULL,
		progress_day  INTEGER NOT NULL,
		seed          INTEGER NOT NULL,
		granularity   TEXT NOT NULL,
		status        TEXT NOT NULL,
		error         TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_entity ON runs(entity_id);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// now returns the UTC wall-clock timestamp in the stored format.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
