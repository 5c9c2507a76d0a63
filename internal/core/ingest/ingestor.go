// Package ingest normalizes the heterogeneous change feed into the single
// internal event shape, suppresses duplicate deliveries, and routes
// retroactive arrivals to the rebuild path instead of incremental updates.
package ingest

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"schooltrack/internal/core/aggregate"
	"schooltrack/internal/core/model"
	"schooltrack/internal/core/repository"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrDuplicateEvent = errors.New("duplicate event")
)

// Applier is the slice of the aggregation engine the ingestor drives.
type Applier interface {
	Apply(ev model.NormalizedEvent)
	Rebuild(periodKey, kind string, events []model.NormalizedEvent)
}

type Config struct {
	// DedupWindow is how long a delivered (entity, eventType, occurredAt)
	// tuple suppresses redeliveries. At-least-once channels redeliver;
	// aggregates must not double count.
	DedupWindow time.Duration
	// LateTolerance is how far behind the ingest watermark an event may
	// fall and still be applied incrementally. Older events rebuild their
	// buckets from the event store instead.
	LateTolerance time.Duration
}

func DefaultConfig() Config {
	return Config{
		DedupWindow:   5 * time.Minute,
		LateTolerance: 24 * time.Hour,
	}
}

type Ingestor struct {
	cfg    Config
	engine Applier
	events repository.RawEventRepository

	mu        sync.Mutex
	seen      map[string]time.Time // dedup marks, stamped with arrival time
	watermark time.Time            // latest occurredAt applied so far

	now func() time.Time
}

func NewIngestor(cfg Config, engine Applier, events repository.RawEventRepository) *Ingestor {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultConfig().DedupWindow
	}
	if cfg.LateTolerance <= 0 {
		cfg.LateTolerance = DefaultConfig().LateTolerance
	}
	return &Ingestor{
		cfg:    cfg,
		engine: engine,
		events: events,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Ingest accepts one raw event. Malformed events and duplicates are dropped
// with a diagnostic counter and a sentinel error; neither ever halts the
// stream. Late events are applied through the rebuild path. The returned
// event is nil exactly when the raw event was dropped.
func (in *Ingestor) Ingest(raw model.RawEvent) (*model.NormalizedEvent, error) {
	ev, err := normalize(raw)
	if err != nil {
		eventsDropped.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if in.isDuplicate(ev) {
		eventsDropped.WithLabelValues("duplicate").Inc()
		return nil, ErrDuplicateEvent
	}

	stored := raw
	stored.EventType = string(ev.EventType)
	if err := in.events.Append(&stored); err != nil {
		// The live update still proceeds; only a later rebuild of this
		// period would miss the event.
		log.Printf("event store append failed for %s/%s: %v", ev.Kind, ev.EntityID, err)
	}

	in.mu.Lock()
	late := !in.watermark.IsZero() && in.watermark.Sub(ev.OccurredAt) > in.cfg.LateTolerance
	if !late && ev.OccurredAt.After(in.watermark) {
		in.watermark = ev.OccurredAt
	}
	in.mu.Unlock()

	if late {
		eventsLate.Inc()
		in.rebuildFor(ev)
		return &ev, nil
	}

	in.engine.Apply(ev)
	eventsIngested.WithLabelValues(string(ev.Kind)).Inc()
	return &ev, nil
}

// Submit is the fire-and-forget entry point for feed consumers and internal
// emitters: drops are logged, never propagated.
func (in *Ingestor) Submit(raw model.RawEvent) {
	if _, err := in.Ingest(raw); err != nil && !errors.Is(err, ErrDuplicateEvent) {
		log.Printf("ingest dropped %s event for %q: %v", raw.Kind, raw.EntityID, err)
	}
}

func (in *Ingestor) isDuplicate(ev model.NormalizedEvent) bool {
	key := fmt.Sprintf("%s|%s|%d", ev.EntityID, ev.EventType, ev.OccurredAt.UnixNano())
	now := in.now()

	in.mu.Lock()
	defer in.mu.Unlock()
	for k, at := range in.seen {
		if now.Sub(at) > in.cfg.DedupWindow {
			delete(in.seen, k)
		}
	}
	if _, dup := in.seen[key]; dup {
		return true
	}
	in.seen[key] = now
	return false
}

// rebuildFor reconstructs every bucket the late event touches from the raw
// event store. A naive increment would be wrong here: the buckets were
// already read as final for periods this far in the past.
func (in *Ingestor) rebuildFor(ev model.NormalizedEvent) {
	for _, g := range aggregate.Granularities {
		from, to := aggregate.PeriodRange(g, ev.OccurredAt)
		raws, err := in.events.FindByKindInRange(string(ev.Kind), from, to)
		if err != nil {
			log.Printf("rebuild replay fetch failed for %s %s: %v", ev.Kind, aggregate.PeriodKey(g, ev.OccurredAt), err)
			continue
		}
		replay := make([]model.NormalizedEvent, 0, len(raws))
		for _, raw := range raws {
			rev, err := normalize(*raw)
			if err != nil {
				continue
			}
			replay = append(replay, rev)
		}
		in.engine.Rebuild(aggregate.PeriodKey(g, ev.OccurredAt), string(ev.Kind), replay)
	}
}

func normalize(raw model.RawEvent) (model.NormalizedEvent, error) {
	var kind model.EventKind
	switch model.EventKind(raw.Kind) {
	case model.KindAttendance, model.KindPayment, model.KindTrip, model.KindVehicleStatus, model.KindAlert:
		kind = model.EventKind(raw.Kind)
	default:
		return model.NormalizedEvent{}, fmt.Errorf("unknown kind %q", raw.Kind)
	}

	var eventType model.EventType
	switch raw.EventType {
	case "insert", "created":
		eventType = model.EventCreated
	case "update", "updated":
		eventType = model.EventUpdated
	case "delete", "deleted":
		eventType = model.EventDeleted
	default:
		return model.NormalizedEvent{}, fmt.Errorf("unknown eventType %q", raw.EventType)
	}

	if raw.EntityID == "" {
		return model.NormalizedEvent{}, errors.New("missing entityId")
	}
	if raw.OccurredAt.IsZero() {
		return model.NormalizedEvent{}, errors.New("missing occurredAt")
	}

	return model.NormalizedEvent{
		Kind:       kind,
		EntityID:   raw.EntityID,
		EventType:  eventType,
		OccurredAt: raw.OccurredAt.UTC(),
		Fields:     raw.Payload,
	}, nil
}
