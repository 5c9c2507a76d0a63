// Package aggregate maintains the running metric buckets the reporting
// surface reads. Updates are incremental, commutative and associative per
// bucket, so replays and out-of-order delivery (within the ingestor's dedup
// and late-event policy) converge on identical state.
package aggregate

import (
	"sort"
	"sync"
	"time"

	"schooltrack/internal/core/model"
)

type bucketKey struct {
	PeriodKey string
	Kind      string
}

// bucketEntry serializes writers per bucket. Readers copy under the same
// lock; applies and swaps are cheap, so reads never wait on a rebuild.
type bucketEntry struct {
	mu     sync.Mutex
	bucket *model.MetricBucket
}

type Engine struct {
	mu      sync.RWMutex
	buckets map[bucketKey]*bucketEntry
}

func NewEngine() *Engine {
	return &Engine{
		buckets: make(map[bucketKey]*bucketEntry),
	}
}

func (e *Engine) entry(periodKey, kind string) *bucketEntry {
	key := bucketKey{PeriodKey: periodKey, Kind: kind}
	e.mu.RLock()
	entry, ok := e.buckets[key]
	e.mu.RUnlock()
	if ok {
		return entry
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok = e.buckets[key]; ok {
		return entry
	}
	entry = &bucketEntry{bucket: model.NewMetricBucket(periodKey, kind)}
	e.buckets[key] = entry
	return entry
}

// Apply folds one normalized event into the day, week and month buckets for
// its kind. Buckets for different keys update independently; a single bucket
// is mutated under its own lock because the increments span several fields.
func (e *Engine) Apply(ev model.NormalizedEvent) {
	for _, g := range Granularities {
		entry := e.entry(PeriodKey(g, ev.OccurredAt), string(ev.Kind))
		entry.mu.Lock()
		applyToBucket(entry.bucket, ev)
		entry.mu.Unlock()
	}
}

// Snapshot returns a copy of the bucket for (periodKey, kind). It always
// returns immediately with the best available state; a missing bucket comes
// back empty rather than as an error, since "no data yet" is not a fault.
func (e *Engine) Snapshot(periodKey, kind string) model.MetricBucket {
	key := bucketKey{PeriodKey: periodKey, Kind: kind}
	e.mu.RLock()
	entry, ok := e.buckets[key]
	e.mu.RUnlock()
	if !ok {
		return *model.NewMetricBucket(periodKey, kind)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.bucket.Clone()
}

// Rebuild discards the (periodKey, kind) bucket and reconstructs it from the
// given replay. The replacement is built aside and swapped in under the
// bucket lock, so concurrent readers see the old consistent bucket until the
// swap (read-old-until-swap).
func (e *Engine) Rebuild(periodKey, kind string, events []model.NormalizedEvent) {
	g := KeyGranularity(periodKey)
	fresh := model.NewMetricBucket(periodKey, kind)
	for _, ev := range events {
		if string(ev.Kind) != kind || PeriodKey(g, ev.OccurredAt) != periodKey {
			continue
		}
		applyToBucket(fresh, ev)
	}
	entry := e.entry(periodKey, kind)
	entry.mu.Lock()
	entry.bucket = fresh
	entry.mu.Unlock()
}

// Series returns the last n bucketed values of a metric for one kind at one
// granularity, ordered oldest first. Missing values resolve to 0.
func (e *Engine) Series(kind string, g Granularity, metricPath string, n int) []model.TrendPoint {
	e.mu.RLock()
	keys := make([]string, 0)
	for key := range e.buckets {
		if key.Kind == kind && KeyGranularity(key.PeriodKey) == g {
			keys = append(keys, key.PeriodKey)
		}
	}
	e.mu.RUnlock()

	sort.Strings(keys)
	if n > 0 && len(keys) > n {
		keys = keys[len(keys)-n:]
	}

	points := make([]model.TrendPoint, 0, len(keys))
	for _, pk := range keys {
		bucket := e.Snapshot(pk, kind)
		value, _ := Resolve(bucket, metricPath)
		points = append(points, model.TrendPoint{PeriodKey: pk, Value: value})
	}
	return points
}

// applyToBucket maps one event to its fixed set of increments. Created
// events add, deleted events subtract, so any interleaving of the same event
// set lands on the same totals. Updates only move state when the payload
// names both the previous and the new value.
func applyToBucket(b *model.MetricBucket, ev model.NormalizedEvent) {
	var delta int64
	switch ev.EventType {
	case model.EventCreated:
		delta = 1
	case model.EventDeleted:
		delta = -1
	}

	switch ev.Kind {
	case model.KindAttendance:
		if delta != 0 {
			b.RunningCounts["total"] += delta
			if status := fieldString(ev, "status"); status != "" {
				b.RunningCounts[status] += delta
			}
			if fieldBool(ev, "needsReview") {
				b.RunningCounts["needsReview"] += delta
			}
		} else {
			if prev, next := fieldString(ev, "prevStatus"), fieldString(ev, "status"); prev != "" && next != "" && prev != next {
				b.RunningCounts[prev]--
				b.RunningCounts[next]++
			}
			if prev, ok := ev.Fields["prevNeedsReview"].(bool); ok {
				if next := fieldBool(ev, "needsReview"); next != prev {
					if next {
						b.RunningCounts["needsReview"]++
					} else {
						b.RunningCounts["needsReview"]--
					}
				}
			}
		}
	case model.KindPayment:
		if delta != 0 {
			b.RunningCounts["payments"] += delta
			if fieldString(ev, "status") == "completed" {
				b.RunningSums["revenue"] += float64(delta) * fieldFloat(ev, "amount")
				b.RunningCounts["completed"] += delta
			}
		}
	case model.KindTrip:
		if delta != 0 {
			b.RunningCounts["trips"] += delta
			b.RunningCounts["subjectsServed"] += delta * fieldInt(ev, "subjectsServed")
			b.RunningCounts["subjectsEnrolled"] += delta * fieldInt(ev, "subjectsEnrolled")
			b.RunningSums["distanceKm"] += float64(delta) * fieldFloat(ev, "distanceKm")
		}
	case model.KindVehicleStatus:
		if delta != 0 {
			b.RunningCounts["reports"] += delta
			if status := fieldString(ev, "status"); status != "" {
				b.RunningCounts[status] += delta
			}
		}
	case model.KindAlert:
		if delta != 0 {
			b.RunningCounts["raised"] += delta
		}
	}
	b.LastUpdated = time.Now().UTC()
}

func fieldString(ev model.NormalizedEvent, name string) string {
	if v, ok := ev.Fields[name].(string); ok {
		return v
	}
	return ""
}

func fieldBool(ev model.NormalizedEvent, name string) bool {
	v, _ := ev.Fields[name].(bool)
	return v
}

func fieldFloat(ev model.NormalizedEvent, name string) float64 {
	switch v := ev.Fields[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func fieldInt(ev model.NormalizedEvent, name string) int64 {
	return int64(fieldFloat(ev, name))
}
