package repository

import (
	"sort"
	"sync"

	"schooltrack/internal/core/model"
)

type inMemorySessionRepository struct {
	sessions map[string]*model.AttendanceSession
	mutex    sync.RWMutex
}

func NewInMemorySessionRepository() SessionRepository {
	return &inMemorySessionRepository{
		sessions: make(map[string]*model.AttendanceSession),
	}
}

func (r *inMemorySessionRepository) Create(session *model.AttendanceSession) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *inMemorySessionRepository) Update(session *model.AttendanceSession) error {
	return r.Create(session)
}

func (r *inMemorySessionRepository) FindCurrent(subjectID, date string) (*model.AttendanceSession, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var current *model.AttendanceSession
	for _, s := range r.sessions {
		if s.SubjectID != subjectID || s.Date != date || s.SupersededBy != "" {
			continue
		}
		if current == nil || s.Version > current.Version {
			current = s
		}
	}
	if current == nil {
		return nil, nil
	}
	copied := *current
	return &copied, nil
}

func (r *inMemorySessionRepository) FindBySubject(subjectID string) ([]*model.AttendanceSession, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.AttendanceSession
	for _, s := range r.sessions {
		if s.SubjectID == subjectID {
			copied := *s
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].Version > result[j].Version
	})
	return result, nil
}
