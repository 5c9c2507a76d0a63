package repository

import (
	"sort"
	"sync"
	"time"

	"schooltrack/internal/core/model"
)

type inMemoryRawEventRepository struct {
	events []*model.RawEvent
	mutex  sync.RWMutex
}

func NewInMemoryRawEventRepository() RawEventRepository {
	return &inMemoryRawEventRepository{}
}

func (r *inMemoryRawEventRepository) Append(event *model.RawEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	copied := *event
	r.events = append(r.events, &copied)
	return nil
}

func (r *inMemoryRawEventRepository) FindByKindInRange(kind string, from, to time.Time) ([]*model.RawEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.RawEvent
	for _, ev := range r.events {
		if ev.Kind != kind {
			continue
		}
		if ev.OccurredAt.Before(from) || !ev.OccurredAt.Before(to) {
			continue
		}
		copied := *ev
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}
