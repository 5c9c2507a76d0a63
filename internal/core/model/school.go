package model

import (
	"time"

	"github.com/google/uuid"
)

// School is the configuration record the attendance engine verifies against:
// one reference location plus the day-boundary policy for late/early
// determination.
type School struct {
	ID         string            `json:"id" bson:"_id"`
	Name       string            `json:"name" bson:"name"`
	Location   ReferenceLocation `json:"location" bson:"location"`
	DayStart   string            `json:"dayStart" bson:"dayStart"` // clock time, 15:04
	DayEnd     string            `json:"dayEnd" bson:"dayEnd"`
	GraceMin   int               `json:"graceMinutes" bson:"graceMinutes"`
	CreatedAt  time.Time         `json:"createdAt" bson:"createdAt"`
	LastUpdate time.Time         `json:"lastUpdate" bson:"lastUpdate"`
}

func NewSchool(name string, location ReferenceLocation) *School {
	now := time.Now().UTC()
	return &School{
		ID:         uuid.NewString(),
		Name:       name,
		Location:   location,
		DayStart:   "08:00",
		DayEnd:     "16:00",
		GraceMin:   15,
		CreatedAt:  now,
		LastUpdate: now,
	}
}
