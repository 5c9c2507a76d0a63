package repository

import (
	"sync"
	"time"

	"schooltrack/internal/core/model"
)

type inMemorySchoolRepository struct {
	schools map[string]*model.School
	mutex   sync.RWMutex
}

func NewInMemorySchoolRepository() SchoolRepository {
	return &inMemorySchoolRepository{
		schools: make(map[string]*model.School),
	}
}

func (r *inMemorySchoolRepository) Create(school *model.School) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	copied := *school
	r.schools[school.ID] = &copied
	return nil
}

func (r *inMemorySchoolRepository) Update(school *model.School) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	school.LastUpdate = time.Now().UTC()
	copied := *school
	r.schools[school.ID] = &copied
	return nil
}

func (r *inMemorySchoolRepository) FindByID(id string) (*model.School, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if school, exists := r.schools[id]; exists {
		copied := *school
		return &copied, nil
	}
	return nil, nil
}

func (r *inMemorySchoolRepository) FindAll() ([]*model.School, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	var result []*model.School
	for _, s := range r.schools {
		copied := *s
		result = append(result, &copied)
	}
	return result, nil
}
