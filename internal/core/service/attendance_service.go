package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"schooltrack/internal/core/geofence"
	"schooltrack/internal/core/model"
	"schooltrack/internal/core/repository"
)

var (
	ErrNoActiveSession = errors.New("no active session for subject")
	ErrSessionClosed   = errors.New("session already closed for this date")
)

// EventSink receives the attendance events the state machine emits; in the
// running system this is the ingestor, which feeds the aggregates.
type EventSink interface {
	Submit(ev model.RawEvent)
}

// AttendancePolicy is the externally supplied day-boundary policy. It is
// passed in at construction; the service reads no ambient configuration.
type AttendancePolicy struct {
	Location model.ReferenceLocation
	DayStart string // clock time, 15:04
	DayEnd   string
	Grace    time.Duration
}

type AttendanceService interface {
	CheckIn(subjectID string, report model.PositionReport) (*model.AttendanceSession, error)
	CheckOut(subjectID string, report model.PositionReport) (*model.AttendanceSession, error)
	// MarkAbsent is the end-of-day sweep entry point: it records an absence
	// for a subject with no session that date.
	MarkAbsent(subjectID, date string) (*model.AttendanceSession, error)
	// Correct supersedes the current session with a corrected status. The
	// prior version is retained, never rewritten.
	Correct(subjectID, date string, status model.SessionStatus) (*model.AttendanceSession, error)
	GetSubjectSessions(subjectID string) ([]*model.AttendanceSession, error)
}

type attendanceService struct {
	sessionRepo repository.SessionRepository
	verifier    *geofence.Verifier
	policy      AttendancePolicy
	sink        EventSink

	mu    sync.Mutex
	locks map[string]*sync.Mutex // serializes transitions per (subject, date)
}

func NewAttendanceService(sessionRepo repository.SessionRepository, policy AttendancePolicy, sink EventSink) AttendanceService {
	return &attendanceService{
		sessionRepo: sessionRepo,
		verifier:    geofence.NewVerifier(),
		policy:      policy,
		sink:        sink,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *attendanceService) lockFor(subjectID, date string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subjectID + "|" + date
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *attendanceService) CheckIn(subjectID string, report model.PositionReport) (*model.AttendanceSession, error) {
	if subjectID == "" {
		return nil, errors.New("invalid subject ID")
	}
	at := report.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	date := at.Format("2006-01-02")

	l := s.lockFor(subjectID, date)
	l.Lock()
	defer l.Unlock()

	existing, err := s.sessionRepo.FindCurrent(subjectID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Completed() || existing.Status == model.StatusAbsent {
			return existing, ErrSessionClosed
		}
		// duplicate submission from a flaky client: same session back
		return existing, nil
	}

	outcome := s.verifier.Verify(report, s.policy.Location)

	session := model.NewAttendanceSession(subjectID, date)
	session.CheckIn = &model.CheckRecord{Time: at, Outcome: outcome}
	session.Status = model.StatusPresent
	if s.afterDayStart(at) {
		session.Status = model.StatusLate
	}
	// An out-of-range check-in stays present with a flag. Absence is an
	// explicit determination, never inferred from one failed fence check.
	session.DistanceExceeded = !outcome.WithinRadius
	session.NeedsReview = outcome.Confidence == model.ConfidenceDegraded

	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	s.emit(session, "insert", at, nil, nil)
	return session, nil
}

func (s *attendanceService) CheckOut(subjectID string, report model.PositionReport) (*model.AttendanceSession, error) {
	if subjectID == "" {
		return nil, errors.New("invalid subject ID")
	}
	at := report.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	date := at.Format("2006-01-02")

	l := s.lockFor(subjectID, date)
	l.Lock()
	defer l.Unlock()

	session, err := s.sessionRepo.FindCurrent(subjectID, date)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	if session.Status == model.StatusAbsent {
		return session, ErrSessionClosed
	}
	if session.Completed() {
		return session, nil
	}

	outcome := s.verifier.Verify(report, s.policy.Location)
	prevStatus := session.Status
	prevReview := session.NeedsReview

	session.CheckOut = &model.CheckRecord{Time: at, Outcome: outcome}
	if s.beforeDayEnd(at) {
		session.Status = model.StatusEarlyPickup
	}
	if !outcome.WithinRadius {
		session.DistanceExceeded = true
	}
	if outcome.Confidence == model.ConfidenceDegraded {
		session.NeedsReview = true
	}

	if err := s.sessionRepo.Update(session); err != nil {
		return nil, err
	}

	s.emit(session, "update", at, &prevStatus, &prevReview)
	return session, nil
}

func (s *attendanceService) MarkAbsent(subjectID, date string) (*model.AttendanceSession, error) {
	if subjectID == "" || date == "" {
		return nil, errors.New("invalid subject ID or date")
	}

	l := s.lockFor(subjectID, date)
	l.Lock()
	defer l.Unlock()

	existing, err := s.sessionRepo.FindCurrent(subjectID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// the subject checked in at some point; the sweep does not undo that
		return existing, ErrSessionClosed
	}

	session := model.NewAttendanceSession(subjectID, date)
	session.Status = model.StatusAbsent
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	s.emit(session, "insert", eventTime(session), nil, nil)
	return session, nil
}

func (s *attendanceService) Correct(subjectID, date string, status model.SessionStatus) (*model.AttendanceSession, error) {
	l := s.lockFor(subjectID, date)
	l.Lock()
	defer l.Unlock()

	current, err := s.sessionRepo.FindCurrent(subjectID, date)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoActiveSession
	}

	prevStatus := current.Status
	prevReview := current.NeedsReview
	next := current.Supersede()
	next.Status = status
	next.NeedsReview = false // a correction is the human review

	if err := s.sessionRepo.Create(next); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(current); err != nil {
		return nil, err
	}

	s.emit(next, "update", eventTime(next), &prevStatus, &prevReview)
	return next, nil
}

func (s *attendanceService) GetSubjectSessions(subjectID string) ([]*model.AttendanceSession, error) {
	if subjectID == "" {
		return nil, errors.New("invalid subject ID")
	}
	return s.sessionRepo.FindBySubject(subjectID)
}

// eventTime anchors an emitted event to the session's own date: the check-in
// time when one exists, otherwise midday on the date. A sweep or correction
// of a past day must land in that day's buckets, not in today's.
func eventTime(session *model.AttendanceSession) time.Time {
	if session.CheckIn != nil {
		return session.CheckIn.Time
	}
	day, err := time.Parse("2006-01-02", session.Date)
	if err != nil {
		return time.Now().UTC()
	}
	return day.Add(12 * time.Hour)
}

func (s *attendanceService) emit(session *model.AttendanceSession, eventType string, at time.Time, prevStatus *model.SessionStatus, prevReview *bool) {
	if s.sink == nil {
		return
	}
	payload := map[string]interface{}{
		"subjectId":   session.SubjectID,
		"date":        session.Date,
		"status":      string(session.Status),
		"needsReview": session.NeedsReview,
	}
	if prevStatus != nil {
		payload["prevStatus"] = string(*prevStatus)
	}
	if prevReview != nil {
		payload["prevNeedsReview"] = *prevReview
	}
	s.sink.Submit(model.RawEvent{
		Kind:       string(model.KindAttendance),
		EventType:  eventType,
		EntityID:   session.ID,
		OccurredAt: at,
		Payload:    payload,
	})
}

// afterDayStart reports whether t is past day start plus grace on t's date.
func (s *attendanceService) afterDayStart(t time.Time) bool {
	threshold, err := clockOn(t, s.policy.DayStart)
	if err != nil {
		return false
	}
	return t.After(threshold.Add(s.policy.Grace))
}

// beforeDayEnd reports whether t is before day end minus grace on t's date.
func (s *attendanceService) beforeDayEnd(t time.Time) bool {
	threshold, err := clockOn(t, s.policy.DayEnd)
	if err != nil {
		return false
	}
	return t.Before(threshold.Add(-s.policy.Grace))
}

func clockOn(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	day = day.UTC()
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}
