package repository

import (
	"sort"
	"sync"

	"schooltrack/internal/core/model"
)

type inMemoryAlertRepository struct {
	alerts map[string]*model.Alert
	mutex  sync.RWMutex
}

func NewInMemoryAlertRepository() AlertRepository {
	return &inMemoryAlertRepository{
		alerts: make(map[string]*model.Alert),
	}
}

func (r *inMemoryAlertRepository) Create(alert *model.Alert) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	copied := *alert
	r.alerts[alert.ID] = &copied
	return nil
}

func (r *inMemoryAlertRepository) Update(alert *model.Alert) error {
	return r.Create(alert)
}

func (r *inMemoryAlertRepository) FindActive() ([]*model.Alert, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.Alert
	for _, a := range r.alerts {
		if !a.Resolved {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TriggeredAt.After(result[j].TriggeredAt)
	})
	return result, nil
}
