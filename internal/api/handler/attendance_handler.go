package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"schooltrack/internal/cache"
	"schooltrack/internal/core/aggregate"
	"schooltrack/internal/core/model"
	"schooltrack/internal/core/service"
)

type AttendanceHandler struct {
	attendanceService service.AttendanceService
	readCache         *cache.Cache
}

func NewAttendanceHandler(attendanceService service.AttendanceService, readCache *cache.Cache) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
		readCache:         readCache,
	}
}

type checkRequest struct {
	SubjectID      string    `json:"subjectId"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	CapturedAt     time.Time `json:"capturedAt"`
	AccuracyMeters float64   `json:"accuracyMeters"`
}

func (req checkRequest) report() model.PositionReport {
	r := model.PositionReport{
		SubjectID:      req.SubjectID,
		CapturedAt:     req.CapturedAt,
		AccuracyMeters: req.AccuracyMeters,
	}
	if req.Latitude != nil && req.Longitude != nil {
		r.Coordinate = &model.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}
	return r
}

func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SubjectID == "" {
		http.Error(w, "Subject ID required", http.StatusBadRequest)
		return
	}

	session, err := h.attendanceService.CheckIn(req.SubjectID, req.report())
	h.writeSession(w, session, err)
}

func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SubjectID == "" {
		http.Error(w, "Subject ID required", http.StatusBadRequest)
		return
	}

	session, err := h.attendanceService.CheckOut(req.SubjectID, req.report())
	h.writeSession(w, session, err)
}

type markAbsentRequest struct {
	SubjectID string `json:"subjectId"`
	Date      string `json:"date"`
}

func (h *AttendanceHandler) MarkAbsent(w http.ResponseWriter, r *http.Request) {
	var req markAbsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.attendanceService.MarkAbsent(req.SubjectID, req.Date)
	if err == nil {
		h.invalidateSnapshots(r.Context(), req.Date)
	}
	h.writeSession(w, session, err)
}

type correctRequest struct {
	SubjectID string `json:"subjectId"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

func (h *AttendanceHandler) Correct(w http.ResponseWriter, r *http.Request) {
	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status := model.SessionStatus(req.Status)
	switch status {
	case model.StatusPresent, model.StatusLate, model.StatusAbsent, model.StatusEarlyPickup:
	default:
		http.Error(w, "Unknown status", http.StatusBadRequest)
		return
	}

	session, err := h.attendanceService.Correct(req.SubjectID, req.Date, status)
	if err == nil {
		h.invalidateSnapshots(r.Context(), req.Date)
	}
	h.writeSession(w, session, err)
}

// invalidateSnapshots drops the cached attendance snapshots for every period
// the date falls in. A correction or sweep rewrites a bucket that may be well
// in the past; a cached read must not outlive the change.
func (h *AttendanceHandler) invalidateSnapshots(ctx context.Context, date string) {
	if h.readCache == nil {
		return
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return
	}
	for _, g := range aggregate.Granularities {
		key := cache.SnapshotKey(aggregate.PeriodKey(g, day), string(model.KindAttendance))
		if err := h.readCache.Delete(ctx, key); err != nil {
			log.Printf("snapshot cache invalidation failed: %v", err)
		}
	}
}

func (h *AttendanceHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subjectId")
	if subjectID == "" {
		http.Error(w, "Subject ID required", http.StatusBadRequest)
		return
	}

	sessions, err := h.attendanceService.GetSubjectSessions(subjectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

func (h *AttendanceHandler) writeSession(w http.ResponseWriter, session *model.AttendanceSession, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, service.ErrSessionClosed):
		// the existing session is returned so the client can show what it
		// conflicted with
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(session)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}
