package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

type snapshotRow struct {
	ID                   int64   `db:"id"`
	EntityID             int64   `db:"entity_id"`
	Branch               string  `db:"branch"`
	AstroDay             int64   `db:"astro_day"`
	SnapshotType         string  `db:"snapshot_type"`
	Granularity          string  `db:"granularity"`
	PopulationTotal      float64 `db:"population_total"`
	PopulationBySpecies  string  `db:"population_by_species"`
	EnvironmentalFactor  float64 `db:"environmental_factor"`
	InfrastructureFactor float64 `db:"infrastructure_factor"`
	LocationFactor       float64 `db:"location_factor"`
	CreatedAt            string  `db:"created_at"`
}

func (r snapshotRow) toSnapshot() (*sim.Snapshot, error) {
	bySpecies := map[string]float64{}
	if r.PopulationBySpecies != "" {
		if err := json.Unmarshal([]byte(r.PopulationBySpecies), &bySpecies); err != nil {
			return nil, fmt.Errorf("snapshot %d: decode species breakdown: %w", r.ID, err)
		}
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
	return &sim.Snapshot{
		ID:          r.ID,
		EntityID:    r.EntityID,
		Branch:      r.Branch,
		Day:         r.AstroDay,
		Type:        sim.SnapshotType(r.SnapshotType),
		Granularity: temporal.Granularity(r.Granularity),
		Population: sim.PopulationState{
			Day:                  r.AstroDay,
			Total:                r.PopulationTotal,
			BySpecies:            bySpecies,
			EnvironmentalFactor:  r.EnvironmentalFactor,
			InfrastructureFactor: r.InfrastructureFactor,
			LocationFactor:       r.LocationFactor,
		},
		CreatedAt: createdAt,
	}, nil
}

const insertSnapshotSQL = `INSERT INTO snapshots
	(entity_id, branch, astro_day, snapshot_type, granularity,
	 population_total, population_by_species,
	 environmental_factor, infrastructure_factor, location_factor, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateSnapshot appends a single snapshot. A write to an occupied
// (entity, branch, day) key fails with sim.ErrDuplicateSnapshot; the store
// never overwrites.
func (db *DB) CreateSnapshot(snap *sim.Snapshot) error {
	speciesJSON, err := json.Marshal(snap.Population.BySpecies)
	if err != nil {
		return fmt.Errorf("encode species breakdown: %w", err)
	}
	branch := snap.Branch
	if branch == "" {
		branch = sim.MainBranch
	}
	return retryWrite(func() error {
		res, err := db.conn.Exec(insertSnapshotSQL,
			snap.EntityID, branch, snap.Day, string(snap.Type), string(snap.Granularity),
			snap.Population.Total, string(speciesJSON),
			snap.Population.EnvironmentalFactor, snap.Population.InfrastructureFactor,
			snap.Population.LocationFactor, now(),
		)
		if err != nil {
			return mapSnapshotErr(err, snap)
		}
		if id, err := res.LastInsertId(); err == nil {
			snap.ID = id
		}
		return nil
	})
}

// CreateSnapshotBatch writes a chunk's snapshots in one transaction:
// either every snapshot lands or none do.
func (db *DB) CreateSnapshotBatch(snaps []*sim.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	return retryWrite(func() error {
		tx, err := db.conn.Beginx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Preparex(insertSnapshotSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		ts := now()
		for _, snap := range snaps {
			speciesJSON, err := json.Marshal(snap.Population.BySpecies)
			if err != nil {
				return fmt.Errorf("encode species breakdown: %w", err)
			}
			branch := snap.Branch
			if branch == "" {
				branch = sim.MainBranch
			}
			_, err = stmt.Exec(
				snap.EntityID, branch, snap.Day, string(snap.Type), string(snap.Granularity),
				snap.Population.Total, string(speciesJSON),
				snap.Population.EnvironmentalFactor, snap.Population.InfrastructureFactor,
				snap.Population.LocationFactor, ts,
			)
			if err != nil {
				return mapSnapshotErr(err, snap)
			}
		}
		return tx.Commit()
	})
}

// mapSnapshotErr converts the UNIQUE constraint violation into the core's
// duplicate sentinel so callers can match it with errors.Is.
func mapSnapshotErr(err error, snap *sim.Snapshot) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("entity %d branch %s day %d: %w",
			snap.EntityID, snap.Branch, snap.Day, sim.ErrDuplicateSnapshot)
	}
	return err
}

// SnapshotAt returns the snapshot at exactly (entity, branch, day), or
// (nil, nil) when none exists.
func (db *DB) SnapshotAt(entityID int64, branch string, day int64) (*sim.Snapshot, error) {
	var row snapshotRow
	err := db.conn.Get(&row,
		`SELECT * FROM snapshots WHERE entity_id = ? AND branch = ? AND astro_day = ?`,
		entityID, branch, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toSnapshot()
}

// Interpolated reconstructs population state at day from the nearest
// surrounding snapshots. Population totals are interpolated linearly; the
// species mix shape and the capacity factors come from the nearest-before
// snapshot (nearest-after when nothing precedes day). Returns (nil, nil)
// when the entity has no snapshots on the branch.
func (db *DB) Interpolated(entityID int64, branch string, day int64) (*sim.PopulationState, error) {
	before, err := db.nearestSnapshot(entityID, branch, day, true)
	if err != nil {
		return nil, err
	}
	after, err := db.nearestSnapshot(entityID, branch, day, false)
	if err != nil {
		return nil, err
	}

	switch {
	case before == nil && after == nil:
		return nil, nil
	case before == nil:
		pop := after.Population.Clone()
		pop.Day = day
		return pop, nil
	case after == nil || before.Day == day:
		pop := before.Population.Clone()
		pop.Day = day
		return pop, nil
	}

	// Linear interpolation of the total between the neighbors, with the
	// before-snapshot's composition scaled to match.
	span := float64(after.Day - before.Day)
	frac := float64(day-before.Day) / span
	total := before.Population.Total + (after.Population.Total-before.Population.Total)*frac

	pop := before.Population.Clone()
	pop.Day = day
	if before.Population.Total > 0 {
		scale := total / before.Population.Total
		for species := range pop.BySpecies {
			pop.BySpecies[species] *= scale
		}
	} else if after.Population.Total > 0 {
		scale := total / after.Population.Total
		pop.BySpecies = after.Population.Clone().BySpecies
		for species := range pop.BySpecies {
			pop.BySpecies[species] *= scale
		}
	}
	pop.Total = total
	return pop, nil
}

// nearestSnapshot finds the closest snapshot at-or-before (or strictly
// after) day on the branch.
func (db *DB) nearestSnapshot(entityID int64, branch string, day int64, before bool) (*sim.Snapshot, error) {
	query := `SELECT * FROM snapshots WHERE entity_id = ? AND branch = ? AND astro_day > ?
		ORDER BY astro_day ASC LIMIT 1`
	if before {
		query = `SELECT * FROM snapshots WHERE entity_id = ? AND branch = ? AND astro_day <= ?
			ORDER BY astro_day DESC LIMIT 1`
	}
	var row snapshotRow
	err := db.conn.Get(&row, query, entityID, branch, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toSnapshot()
}

// ListSnapshots returns snapshots for an entity on a branch within
// [startDay, endDay], ordered by day.
func (db *DB) ListSnapshots(entityID int64, branch string, startDay, endDay int64) ([]*sim.Snapshot, error) {
	var rows []snapshotRow
	err := db.conn.Select(&rows,
		`SELECT * FROM snapshots
		 WHERE entity_id = ? AND branch = ? AND astro_day BETWEEN ? AND ?
		 ORDER BY astro_day`,
		entityID, branch, startDay, endDay)
	if err != nil {
		return nil, err
	}
	snaps := make([]*sim.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := row.toSnapshot()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
