package router

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schooltrack/internal/api/handler"
	"schooltrack/internal/api/middleware"
	"schooltrack/internal/cache"
	"schooltrack/internal/core/aggregate"
	"schooltrack/internal/core/alert"
	"schooltrack/internal/core/service"
)

func NewRouter(
	attendanceService service.AttendanceService,
	schoolService service.SchoolService,
	engine *aggregate.Engine,
	evaluator *alert.Evaluator,
	readCache *cache.Cache,
	jwtSecret string,
) http.Handler {
	// Initialize handlers
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, readCache)
	analyticsHandler := handler.NewAnalyticsHandler(engine, evaluator, readCache)
	schoolHandler := handler.NewSchoolHandler(schoolService)
	authMiddleware := middleware.NewAuthMiddleware(jwtSecret)

	// Create router
	mux := http.NewServeMux()

	// Add middleware chain
	withMiddleware := func(h http.Handler) http.Handler {
		return middleware.CORSMiddleware(
			middleware.LoggingMiddleware(
				authMiddleware.Authenticate(h),
			),
		)
	}

	// Health check endpoint, unauthenticated
	mux.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	}))

	// Prometheus scrape endpoint, unauthenticated
	mux.Handle("/metrics", promhttp.Handler())

	// Attendance routes
	mux.Handle("/api/attendance/checkin", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			attendanceHandler.CheckIn(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/attendance/checkout", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			attendanceHandler.CheckOut(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/attendance/absent", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			attendanceHandler.MarkAbsent(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/attendance/correct", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			attendanceHandler.Correct(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/attendance/sessions", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		attendanceHandler.GetSessions(w, r)
	})))

	// Analytics routes - reads never block on aggregation
	mux.Handle("/api/metrics/snapshot", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		analyticsHandler.GetSnapshot(w, r)
	})))

	mux.Handle("/api/metrics/trend", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		analyticsHandler.GetTrend(w, r)
	})))

	mux.Handle("/api/alerts/active", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		analyticsHandler.GetActiveAlerts(w, r)
	})))

	// School configuration routes
	mux.Handle("/api/schools", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			schoolHandler.Create(w, r)
		case http.MethodGet:
			schoolHandler.List(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/schools/get", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		schoolHandler.Get(w, r)
	})))

	mux.Handle("/api/schools/location", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		schoolHandler.UpdateLocation(w, r)
	})))

	return mux
}
