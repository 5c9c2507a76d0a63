package ingest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"schooltrack/internal/core/model"
	"schooltrack/internal/core/repository"
)

type fakeEngine struct {
	mu       sync.Mutex
	applied  []model.NormalizedEvent
	rebuilds []string // periodKeys, in call order
}

func (f *fakeEngine) Apply(ev model.NormalizedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, ev)
}

func (f *fakeEngine) Rebuild(periodKey, kind string, events []model.NormalizedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilds = append(f.rebuilds, periodKey)
}

func newTestIngestor(cfg Config) (*Ingestor, *fakeEngine) {
	engine := &fakeEngine{}
	return NewIngestor(cfg, engine, repository.NewInMemoryRawEventRepository()), engine
}

func rawEvent(entityID, kind, eventType string, at time.Time) model.RawEvent {
	return model.RawEvent{
		Kind:       kind,
		EventType:  eventType,
		EntityID:   entityID,
		OccurredAt: at,
		Payload:    map[string]interface{}{"status": "present"},
	}
}

func TestIngestNormalizesEventTypes(t *testing.T) {
	in, _ := newTestIngestor(Config{})
	at := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want model.EventType
	}{
		{"insert", model.EventCreated},
		{"update", model.EventUpdated},
		{"delete", model.EventDeleted},
		{"created", model.EventCreated},
	}
	for i, tt := range tests {
		ev, err := in.Ingest(rawEvent(string(rune('a'+i)), "attendance", tt.raw, at.Add(time.Duration(i)*time.Minute)))
		if err != nil {
			t.Fatalf("Ingest(%q) error = %v", tt.raw, err)
		}
		if ev.EventType != tt.want {
			t.Errorf("Ingest(%q) eventType = %q, want %q", tt.raw, ev.EventType, tt.want)
		}
	}
}

func TestIngestDropsMalformed(t *testing.T) {
	in, engine := newTestIngestor(Config{})
	at := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  model.RawEvent
	}{
		{"unknown kind", rawEvent("e1", "homework", "insert", at)},
		{"unknown event type", rawEvent("e2", "attendance", "upsert", at)},
		{"missing entity id", rawEvent("", "attendance", "insert", at)},
		{"missing timestamp", rawEvent("e3", "attendance", "insert", time.Time{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := in.Ingest(tt.raw)
			if !errors.Is(err, ErrMalformedEvent) {
				t.Fatalf("error = %v, want ErrMalformedEvent", err)
			}
			if ev != nil {
				t.Error("dropped event should be nil")
			}
		})
	}
	if len(engine.applied) != 0 {
		t.Errorf("malformed events reached the engine: %d", len(engine.applied))
	}
}

func TestIngestDeduplicatesWithinWindow(t *testing.T) {
	in, engine := newTestIngestor(Config{DedupWindow: 5 * time.Minute})
	at := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	if _, err := in.Ingest(rawEvent("e1", "attendance", "insert", at)); err != nil {
		t.Fatalf("first delivery error = %v", err)
	}
	_, err := in.Ingest(rawEvent("e1", "attendance", "insert", at))
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("second delivery error = %v, want ErrDuplicateEvent", err)
	}
	if len(engine.applied) != 1 {
		t.Errorf("engine saw %d events, want 1", len(engine.applied))
	}
}

func TestIngestDedupMarkExpires(t *testing.T) {
	in, engine := newTestIngestor(Config{DedupWindow: 5 * time.Minute})
	arrival := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	in.now = func() time.Time { return arrival }

	at := time.Date(2026, 3, 9, 7, 55, 0, 0, time.UTC)
	if _, err := in.Ingest(rawEvent("e1", "attendance", "insert", at)); err != nil {
		t.Fatalf("first delivery error = %v", err)
	}

	arrival = arrival.Add(6 * time.Minute)
	if _, err := in.Ingest(rawEvent("e1", "attendance", "insert", at)); err != nil {
		t.Fatalf("redelivery after window error = %v", err)
	}
	if len(engine.applied) != 2 {
		t.Errorf("engine saw %d events, want 2", len(engine.applied))
	}
}

func TestIngestLateEventTriggersRebuild(t *testing.T) {
	in, engine := newTestIngestor(Config{LateTolerance: 24 * time.Hour})
	head := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	if _, err := in.Ingest(rawEvent("e1", "attendance", "insert", head)); err != nil {
		t.Fatalf("head event error = %v", err)
	}

	// 30 hours behind the watermark with a 24h tolerance: rebuild, not apply.
	late := head.Add(-30 * time.Hour)
	ev, err := in.Ingest(rawEvent("e2", "attendance", "insert", late))
	if err != nil {
		t.Fatalf("late event error = %v", err)
	}
	if ev == nil {
		t.Fatal("late event must still be accepted")
	}
	if len(engine.applied) != 1 {
		t.Errorf("late event was applied incrementally; applied = %d", len(engine.applied))
	}
	if len(engine.rebuilds) != 3 {
		t.Fatalf("rebuilds = %v, want day, week and month buckets", engine.rebuilds)
	}
	wantKeys := map[string]bool{"2026-03-08": true, "2026-W10": true, "2026-03": true}
	for _, key := range engine.rebuilds {
		if !wantKeys[key] {
			t.Errorf("unexpected rebuild key %q", key)
		}
	}
}

func TestIngestWithinToleranceAppliesIncrementally(t *testing.T) {
	in, engine := newTestIngestor(Config{LateTolerance: 24 * time.Hour})
	head := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	in.Ingest(rawEvent("e1", "attendance", "insert", head))
	in.Ingest(rawEvent("e2", "attendance", "insert", head.Add(-23*time.Hour)))

	if len(engine.applied) != 2 {
		t.Errorf("applied = %d, want 2", len(engine.applied))
	}
	if len(engine.rebuilds) != 0 {
		t.Errorf("rebuilds = %v, want none", engine.rebuilds)
	}
}

func TestSubmitNeverPanicsOnBadInput(t *testing.T) {
	in, _ := newTestIngestor(Config{})
	in.Submit(model.RawEvent{Kind: "nonsense"})
	in.Submit(model.RawEvent{})
}
