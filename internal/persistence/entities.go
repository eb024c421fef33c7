package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/halcyard/chronicle/internal/sim"
)

// CreateEntity registers a region or province. Provinces must reference an
// existing region parent.
func (db *DB) CreateEntity(e *sim.Entity) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("entity %q: unknown kind %q", e.Name, e.Kind)
	}
	if e.Kind == sim.KindProvince && e.ParentID == nil {
		return fmt.Errorf("province %q needs a parent region", e.Name)
	}
	if e.Kind == sim.KindRegion && e.ParentID != nil {
		return fmt.Errorf("region %q cannot have a parent", e.Name)
	}
	return retryWrite(func() error {
		res, err := db.conn.Exec(
			`INSERT INTO entities (name, kind, parent_id, founded_day, dissolved_day)
			 VALUES (?, ?, ?, ?, ?)`,
			e.Name, string(e.Kind), e.ParentID, e.FoundedDay, e.DissolvedDay,
		)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			e.ID = id
		}
		return nil
	})
}

// GetEntity returns an entity by id.
func (db *DB) GetEntity(id int64) (*sim.Entity, error) {
	var e sim.Entity
	err := db.conn.Get(&e, `SELECT * FROM entities WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEntityByName returns an entity by its unique name.
func (db *DB) GetEntityByName(name string) (*sim.Entity, error) {
	var e sim.Entity
	err := db.conn.Get(&e, `SELECT * FROM entities WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntities returns all entities, optionally filtered by kind, ordered
// by name.
func (db *DB) ListEntities(kind sim.EntityKind) ([]sim.Entity, error) {
	var entities []sim.Entity
	var err error
	if kind == "" {
		err = db.conn.Select(&entities, `SELECT * FROM entities ORDER BY name`)
	} else {
		err = db.conn.Select(&entities, `SELECT * FROM entities WHERE kind = ? ORDER BY name`, string(kind))
	}
	if err != nil {
		return nil, err
	}
	return entities, nil
}
