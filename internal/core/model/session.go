package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	StatusPresent     SessionStatus = "present"
	StatusLate        SessionStatus = "late"
	StatusAbsent      SessionStatus = "absent"
	StatusEarlyPickup SessionStatus = "early_pickup"
)

// CheckRecord stores one check-in or check-out with its verification outcome.
type CheckRecord struct {
	Time    time.Time           `json:"time" bson:"time"`
	Outcome VerificationOutcome `json:"outcome" bson:"outcome"`
}

// AttendanceSession is the check-in/check-out record for one subject on one
// date. Sessions are append-only: a correction creates a new version that
// supersedes the old one, it never rewrites history.
type AttendanceSession struct {
	ID               string        `json:"id" bson:"_id"`
	SubjectID        string        `json:"subjectId" bson:"subjectId"`
	Date             string        `json:"date" bson:"date"` // 2006-01-02, UTC
	CheckIn          *CheckRecord  `json:"checkIn,omitempty" bson:"checkIn,omitempty"`
	CheckOut         *CheckRecord  `json:"checkOut,omitempty" bson:"checkOut,omitempty"`
	Status           SessionStatus `json:"status" bson:"status"`
	DistanceExceeded bool          `json:"distanceExceeded" bson:"distanceExceeded"`
	NeedsReview      bool          `json:"needsReview" bson:"needsReview"`
	Version          int           `json:"version" bson:"version"`
	SupersededBy     string        `json:"supersededBy,omitempty" bson:"supersededBy,omitempty"`
	CreatedAt        time.Time     `json:"createdAt" bson:"createdAt"`
}

func NewAttendanceSession(subjectID, date string) *AttendanceSession {
	return &AttendanceSession{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Date:      date,
		Status:    StatusPresent,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *AttendanceSession) CheckedIn() bool {
	return s.CheckIn != nil
}

func (s *AttendanceSession) Completed() bool {
	return s.CheckOut != nil
}

// Supersede creates the next version of this session and marks the current
// one as superseded. The caller persists both.
func (s *AttendanceSession) Supersede() *AttendanceSession {
	next := *s
	next.ID = uuid.NewString()
	next.Version = s.Version + 1
	next.SupersededBy = ""
	next.CreatedAt = time.Now().UTC()
	s.SupersededBy = next.ID
	return &next
}
