package persistence

import (
	"testing"

	"github.com/halcyard/chronicle/internal/sim"
)

func fp(v float64) *float64 { return &v }

func ip(v int64) *int64 { return &v }

func TestCreateEvent_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	ev := &sim.Event{
		Title:    "the red plague",
		Type:     sim.EventNaturalDisaster,
		EntityID: e.ID,
		Day:      3650,
		Effects:  sim.Effects{ShockMultiplier: fp(0.7)},
	}
	if err := db.CreateEvent(ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if ev.ID == 0 {
		t.Fatal("created event should get an id")
	}

	got, err := db.GetEvent(ev.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Title != ev.Title || got.Day != 3650 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Effects.ShockMultiplier == nil || *got.Effects.ShockMultiplier != 0.7 {
		t.Fatalf("effects lost: %+v", got.Effects)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	bad := &sim.Event{
		Title: "impossible", Type: sim.EventMilitary, EntityID: e.ID, Day: 100,
		Effects: sim.Effects{ShockMultiplier: fp(1.5)},
	}
	if err := db.CreateEvent(bad); err == nil {
		t.Error("out-of-contract effects should be rejected at entry")
	}

	inverted := &sim.Event{
		Title: "backwards", Type: sim.EventCultural, EntityID: e.ID,
		Day: 100, EndDay: ip(50),
	}
	if err := db.CreateEvent(inverted); err == nil {
		t.Error("end day before activation day should be rejected")
	}
}

func TestEventsInRange(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")
	other := newTestRegion(t, db, "Dorrim")

	mk := func(entityID, day int64, endDay *int64, title string) {
		t.Helper()
		err := db.CreateEvent(&sim.Event{
			Title: title, Type: sim.EventPolitical, EntityID: entityID,
			Day: day, EndDay: endDay,
		})
		if err != nil {
			t.Fatalf("CreateEvent(%s): %v", title, err)
		}
	}
	mk(e.ID, 5, nil, "early")
	mk(e.ID, 45, nil, "inside")
	mk(e.ID, 1, ip(50), "sustained")   // expiry overlaps the range
	mk(e.ID, 200, nil, "late")
	mk(other.ID, 45, nil, "elsewhere") // other entity

	events, err := db.EventsInRange(e.ID, 40, 60)
	if err != nil {
		t.Fatalf("EventsInRange: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	// Ordered by (day, id): the sustained event activates at day 1.
	if events[0].Title != "sustained" || events[1].Title != "inside" {
		t.Fatalf("wrong events or order: %q, %q", events[0].Title, events[1].Title)
	}
}

func TestEventsInRange_SkipsMangledEffects(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	if err := db.CreateEvent(&sim.Event{
		Title: "good", Type: sim.EventCultural, EntityID: e.ID, Day: 10,
	}); err != nil {
		t.Fatal(err)
	}
	// Mangle a row behind the API's back, as a hand edit would.
	if _, err := db.conn.Exec(
		`INSERT INTO events (title, event_type, entity_id, astro_day, effects, created_at)
		 VALUES ('mangled', 'cultural', ?, 20, 'not json', ?)`, e.ID, now()); err != nil {
		t.Fatal(err)
	}

	events, err := db.EventsInRange(e.ID, 0, 100)
	if err != nil {
		t.Fatalf("one bad row must not fail the query: %v", err)
	}
	if len(events) != 1 || events[0].Title != "good" {
		t.Fatalf("mangled row should be skipped, got %+v", events)
	}
}

func TestListEvents(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	for _, day := range []int64{300, 100, 200} {
		if err := db.CreateEvent(&sim.Event{
			Title: "ev", Type: sim.EventEconomic, EntityID: e.ID, Day: day,
		}); err != nil {
			t.Fatal(err)
		}
	}
	events, err := db.ListEvents(e.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Day != 100 || events[2].Day != 300 {
		t.Fatalf("events not ordered by day: %+v", events)
	}
}
