package service

import (
	"errors"
	"testing"
	"time"

	"schooltrack/internal/core/aggregate"
	"schooltrack/internal/core/ingest"
	"schooltrack/internal/core/model"
	"schooltrack/internal/core/repository"
)

type recordingSink struct {
	events []model.RawEvent
}

func (r *recordingSink) Submit(ev model.RawEvent) {
	r.events = append(r.events, ev)
}

var testPolicy = AttendancePolicy{
	Location: model.ReferenceLocation{
		Coordinate:   model.Coordinate{Latitude: 0.5143, Longitude: 35.2698},
		RadiusMeters: 30,
		Label:        "main gate",
	},
	DayStart: "08:00",
	DayEnd:   "16:00",
	Grace:    15 * time.Minute,
}

func newTestService() (AttendanceService, *recordingSink) {
	sink := &recordingSink{}
	return NewAttendanceService(repository.NewInMemorySessionRepository(), testPolicy, sink), sink
}

func atGate(capturedAt time.Time) model.PositionReport {
	return model.PositionReport{
		Coordinate:     &model.Coordinate{Latitude: 0.5143, Longitude: 35.2698},
		CapturedAt:     capturedAt,
		AccuracyMeters: 5,
	}
}

func farAway(capturedAt time.Time) model.PositionReport {
	return model.PositionReport{
		Coordinate:     &model.Coordinate{Latitude: 0.5350, Longitude: 35.2698},
		CapturedAt:     capturedAt,
		AccuracyMeters: 5,
	}
}

var morning = time.Date(2026, 3, 9, 7, 50, 0, 0, time.UTC)

func TestCheckInOnTime(t *testing.T) {
	svc, sink := newTestService()

	session, err := svc.CheckIn("staff-1", atGate(morning))
	if err != nil {
		t.Fatalf("CheckIn error = %v", err)
	}
	if session.Status != model.StatusPresent {
		t.Errorf("status = %q, want present", session.Status)
	}
	if session.DistanceExceeded || session.NeedsReview {
		t.Errorf("unexpected flags: distanceExceeded=%v needsReview=%v", session.DistanceExceeded, session.NeedsReview)
	}
	if len(sink.events) != 1 {
		t.Fatalf("emitted %d events, want 1", len(sink.events))
	}
	if sink.events[0].Kind != "attendance" || sink.events[0].EventType != "insert" {
		t.Errorf("emitted event = %s/%s", sink.events[0].Kind, sink.events[0].EventType)
	}
}

func TestCheckInIdempotent(t *testing.T) {
	svc, sink := newTestService()

	first, err := svc.CheckIn("staff-1", atGate(morning))
	if err != nil {
		t.Fatalf("first CheckIn error = %v", err)
	}
	second, err := svc.CheckIn("staff-1", atGate(morning.Add(time.Minute)))
	if err != nil {
		t.Fatalf("duplicate CheckIn error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("duplicate check-in created a new session: %s vs %s", first.ID, second.ID)
	}
	if second.Version != first.Version || second.Status != first.Status {
		t.Error("duplicate check-in changed session state")
	}
	if len(sink.events) != 1 {
		t.Errorf("duplicate check-in emitted %d extra events", len(sink.events)-1)
	}
}

func TestCheckInAfterGraceIsLate(t *testing.T) {
	svc, _ := newTestService()

	session, err := svc.CheckIn("staff-1", atGate(time.Date(2026, 3, 9, 8, 20, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("CheckIn error = %v", err)
	}
	if session.Status != model.StatusLate {
		t.Errorf("status = %q, want late", session.Status)
	}
}

func TestCheckInWithinGraceIsPresent(t *testing.T) {
	svc, _ := newTestService()

	session, err := svc.CheckIn("staff-1", atGate(time.Date(2026, 3, 9, 8, 10, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("CheckIn error = %v", err)
	}
	if session.Status != model.StatusPresent {
		t.Errorf("status = %q, want present", session.Status)
	}
}

func TestCheckInOutOfRangeStaysPresentFlagged(t *testing.T) {
	svc, _ := newTestService()

	session, err := svc.CheckIn("staff-1", farAway(morning))
	if err != nil {
		t.Fatalf("CheckIn error = %v", err)
	}
	if session.Status != model.StatusPresent {
		t.Errorf("status = %q, want present (never auto-absent)", session.Status)
	}
	if !session.DistanceExceeded {
		t.Error("expected the distance-exceeded flag")
	}
}

func TestCheckInMissingCoordinateNeedsReview(t *testing.T) {
	svc, _ := newTestService()

	session, err := svc.CheckIn("staff-1", model.PositionReport{CapturedAt: morning})
	if err != nil {
		t.Fatalf("CheckIn error = %v", err)
	}
	if !session.NeedsReview {
		t.Error("degraded outcome must be flagged for review")
	}
}

func TestCheckOutCompletesSession(t *testing.T) {
	svc, sink := newTestService()

	svc.CheckIn("staff-1", atGate(morning))
	session, err := svc.CheckOut("staff-1", atGate(time.Date(2026, 3, 9, 16, 5, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("CheckOut error = %v", err)
	}
	if !session.Completed() {
		t.Fatal("session not completed after checkout")
	}
	if session.Status != model.StatusPresent {
		t.Errorf("status = %q, want present", session.Status)
	}
	if len(sink.events) != 2 {
		t.Errorf("emitted %d events, want 2", len(sink.events))
	}
	if sink.events[1].EventType != "update" {
		t.Errorf("checkout event type = %q, want update", sink.events[1].EventType)
	}
}

func TestCheckOutEarlyIsEarlyPickup(t *testing.T) {
	svc, _ := newTestService()

	svc.CheckIn("staff-1", atGate(morning))
	session, err := svc.CheckOut("staff-1", atGate(time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("CheckOut error = %v", err)
	}
	if session.Status != model.StatusEarlyPickup {
		t.Errorf("status = %q, want early_pickup", session.Status)
	}
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CheckOut("staff-1", atGate(morning))
	if !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("error = %v, want ErrNoActiveSession", err)
	}
}

func TestCompletedSessionNeverReopens(t *testing.T) {
	svc, _ := newTestService()

	svc.CheckIn("staff-1", atGate(morning))
	done, _ := svc.CheckOut("staff-1", atGate(time.Date(2026, 3, 9, 16, 5, 0, 0, time.UTC)))

	again, err := svc.CheckOut("staff-1", atGate(time.Date(2026, 3, 9, 16, 30, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("repeat CheckOut error = %v", err)
	}
	if again.CheckOut.Time != done.CheckOut.Time {
		t.Error("completed session was mutated by a repeat checkout")
	}

	_, err = svc.CheckIn("staff-1", atGate(time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)))
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("check-in after completion error = %v, want ErrSessionClosed", err)
	}
}

func TestMarkAbsent(t *testing.T) {
	svc, sink := newTestService()

	session, err := svc.MarkAbsent("staff-1", "2026-03-09")
	if err != nil {
		t.Fatalf("MarkAbsent error = %v", err)
	}
	if session.Status != model.StatusAbsent {
		t.Errorf("status = %q, want absent", session.Status)
	}
	if session.CheckedIn() {
		t.Error("absent session has a check-in")
	}
	if len(sink.events) != 1 {
		t.Errorf("emitted %d events, want 1", len(sink.events))
	}
	if got := sink.events[0].OccurredAt.UTC().Format("2006-01-02"); got != "2026-03-09" {
		t.Errorf("absence event occurredAt on %s, want 2026-03-09", got)
	}

	// the sweep never overrides an actual check-in
	svc2, _ := newTestService()
	svc2.CheckIn("staff-2", atGate(morning))
	_, err = svc2.MarkAbsent("staff-2", "2026-03-09")
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("MarkAbsent over a session error = %v, want ErrSessionClosed", err)
	}
}

func TestCorrectSupersedes(t *testing.T) {
	repo := repository.NewInMemorySessionRepository()
	sink := &recordingSink{}
	svc := NewAttendanceService(repo, testPolicy, sink)

	original, _ := svc.CheckIn("staff-1", farAway(morning))
	corrected, err := svc.Correct("staff-1", "2026-03-09", model.StatusAbsent)
	if err != nil {
		t.Fatalf("Correct error = %v", err)
	}
	if corrected.ID == original.ID {
		t.Error("correction mutated the original session instead of superseding it")
	}
	if corrected.Version != original.Version+1 {
		t.Errorf("corrected version = %d, want %d", corrected.Version, original.Version+1)
	}
	if corrected.Status != model.StatusAbsent {
		t.Errorf("corrected status = %q, want absent", corrected.Status)
	}

	current, _ := repo.FindCurrent("staff-1", "2026-03-09")
	if current.ID != corrected.ID {
		t.Errorf("FindCurrent returned %s, want the superseding version %s", current.ID, corrected.ID)
	}

	history, _ := repo.FindBySubject("staff-1")
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2 (original retained)", len(history))
	}

	last := sink.events[len(sink.events)-1]
	if last.Payload["prevStatus"] != string(model.StatusPresent) {
		t.Errorf("correction event prevStatus = %v, want present", last.Payload["prevStatus"])
	}
	if got := last.OccurredAt; got != original.CheckIn.Time {
		t.Errorf("correction event occurredAt = %v, want the check-in time %v", got, original.CheckIn.Time)
	}
}

func TestCorrectPriorDayUpdatesThatDayBucket(t *testing.T) {
	engine := aggregate.NewEngine()
	ingestor := ingest.NewIngestor(ingest.Config{}, engine, repository.NewInMemoryRawEventRepository())
	svc := NewAttendanceService(repository.NewInMemorySessionRepository(), testPolicy, ingestor)

	if _, err := svc.CheckIn("staff-1", atGate(morning)); err != nil {
		t.Fatalf("CheckIn error = %v", err)
	}
	if _, err := svc.Correct("staff-1", "2026-03-09", model.StatusAbsent); err != nil {
		t.Fatalf("Correct error = %v", err)
	}

	day := engine.Snapshot("2026-03-09", "attendance")
	if got := day.RunningCounts["present"]; got != 0 {
		t.Errorf("present on 2026-03-09 = %d, want 0", got)
	}
	if got := day.RunningCounts["absent"]; got != 1 {
		t.Errorf("absent on 2026-03-09 = %d, want 1", got)
	}

	todayKey := aggregate.PeriodKey(aggregate.GranularityDay, time.Now().UTC())
	if todayKey != "2026-03-09" {
		today := engine.Snapshot(todayKey, "attendance")
		if len(today.RunningCounts) != 0 {
			t.Errorf("today's bucket touched by a prior-day correction: %v", today.RunningCounts)
		}
	}
}

func TestCorrectClearsReviewFlag(t *testing.T) {
	svc, sink := newTestService()

	original, err := svc.CheckIn("staff-1", model.PositionReport{CapturedAt: morning})
	if err != nil {
		t.Fatalf("CheckIn error = %v", err)
	}
	if !original.NeedsReview {
		t.Fatal("degraded check-in not flagged for review")
	}

	corrected, err := svc.Correct("staff-1", "2026-03-09", model.StatusPresent)
	if err != nil {
		t.Fatalf("Correct error = %v", err)
	}
	if corrected.NeedsReview {
		t.Error("correction left the review flag set")
	}

	last := sink.events[len(sink.events)-1]
	if last.Payload["prevNeedsReview"] != true || last.Payload["needsReview"] != false {
		t.Errorf("correction event review fields = %v/%v, want true/false",
			last.Payload["prevNeedsReview"], last.Payload["needsReview"])
	}
}

func TestCheckOutDegradedCarriesReviewShift(t *testing.T) {
	svc, sink := newTestService()

	svc.CheckIn("staff-1", atGate(morning))
	session, err := svc.CheckOut("staff-1", model.PositionReport{CapturedAt: time.Date(2026, 3, 9, 16, 5, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("CheckOut error = %v", err)
	}
	if !session.NeedsReview {
		t.Fatal("degraded checkout not flagged for review")
	}

	last := sink.events[len(sink.events)-1]
	if last.Payload["prevNeedsReview"] != false || last.Payload["needsReview"] != true {
		t.Errorf("checkout event review fields = %v/%v, want false/true",
			last.Payload["prevNeedsReview"], last.Payload["needsReview"])
	}
}
