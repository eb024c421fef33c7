package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/halcyard/chronicle/internal/sim"
)

type eventRow struct {
	ID        int64  `db:"id"`
	Title     string `db:"title"`
	EventType string `db:"event_type"`
	EntityID  int64  `db:"entity_id"`
	AstroDay  int64  `db:"astro_day"`
	EndDay    *int64 `db:"end_day"`
	Effects   string `db:"effects"`
	CreatedAt string `db:"created_at"`
}

// CreateEvent stores an authored event. The effects payload is validated
// here so malformed data is rejected at entry, not discovered mid-run.
func (db *DB) CreateEvent(ev *sim.Event) error {
	if err := ev.Effects.Validate(ev.ID); err != nil {
		return err
	}
	if ev.EndDay != nil && *ev.EndDay <= ev.Day {
		return fmt.Errorf("event %q: end day %d must be after day %d", ev.Title, *ev.EndDay, ev.Day)
	}
	effectsJSON, err := json.Marshal(ev.Effects)
	if err != nil {
		return fmt.Errorf("encode effects: %w", err)
	}
	return retryWrite(func() error {
		res, err := db.conn.Exec(
			`INSERT INTO events (title, event_type, entity_id, astro_day, end_day, effects, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.Title, string(ev.Type), ev.EntityID, ev.Day, ev.EndDay, string(effectsJSON), now(),
		)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			ev.ID = id
		}
		return nil
	})
}

// EventsInRange returns every event for the entity whose activation day or
// expiry day falls within [startDay, endDay], ordered by (day, id). Events
// with undecodable effect payloads are skipped with a warning — one
// hand-mangled row must not abort a run.
func (db *DB) EventsInRange(entityID int64, startDay, endDay int64) ([]sim.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		`SELECT * FROM events
		 WHERE entity_id = ?
		   AND (astro_day BETWEEN ? AND ?
		        OR (end_day IS NOT NULL AND end_day BETWEEN ? AND ?))
		 ORDER BY astro_day, id`,
		entityID, startDay, endDay, startDay, endDay)
	if err != nil {
		return nil, err
	}

	events := make([]sim.Event, 0, len(rows))
	for _, row := range rows {
		effects, err := sim.ParseEffects([]byte(row.Effects), row.ID)
		if err != nil {
			slog.Warn("skipping event with invalid effects",
				"event", row.ID, "title", row.Title, "error", err)
			continue
		}
		events = append(events, sim.Event{
			ID:       row.ID,
			Title:    row.Title,
			Type:     sim.EventType(row.EventType),
			EntityID: row.EntityID,
			Day:      row.AstroDay,
			EndDay:   row.EndDay,
			Effects:  effects,
		})
	}
	return events, nil
}

// GetEvent returns one event by id.
func (db *DB) GetEvent(id int64) (*sim.Event, error) {
	var row eventRow
	err := db.conn.Get(&row, `SELECT * FROM events WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	effects, err := sim.ParseEffects([]byte(row.Effects), row.ID)
	if err != nil {
		return nil, err
	}
	return &sim.Event{
		ID:       row.ID,
		Title:    row.Title,
		Type:     sim.EventType(row.EventType),
		EntityID: row.EntityID,
		Day:      row.AstroDay,
		EndDay:   row.EndDay,
		Effects:  effects,
	}, nil
}

// ListEvents returns all events for an entity ordered by day.
func (db *DB) ListEvents(entityID int64) ([]sim.Event, error) {
	return db.EventsInRange(entityID, 0, 1<<62)
}
