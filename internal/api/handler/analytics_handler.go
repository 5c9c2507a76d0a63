package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"schooltrack/internal/cache"
	"schooltrack/internal/core/aggregate"
	"schooltrack/internal/core/alert"
	"schooltrack/internal/core/model"
	"schooltrack/internal/core/trend"
)

type AnalyticsHandler struct {
	engine    *aggregate.Engine
	evaluator *alert.Evaluator
	cache     *cache.Cache
}

func NewAnalyticsHandler(engine *aggregate.Engine, evaluator *alert.Evaluator, c *cache.Cache) *AnalyticsHandler {
	return &AnalyticsHandler{
		engine:    engine,
		evaluator: evaluator,
		cache:     c,
	}
}

type snapshotResponse struct {
	Bucket          model.MetricBucket `json:"bucket"`
	AttendanceRate  float64            `json:"attendanceRate"`
	UtilizationRate float64            `json:"utilizationRate"`
}

// GetSnapshot serves the current bucket for (period, kind). The engine hands
// back a copy immediately, so this read never waits on aggregation; the
// cache only shaves repeated dashboard polls.
func (h *AnalyticsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	periodKey := r.URL.Query().Get("period")
	kind := r.URL.Query().Get("kind")
	if periodKey == "" || kind == "" {
		http.Error(w, "period and kind required", http.StatusBadRequest)
		return
	}

	key := cache.SnapshotKey(periodKey, kind)
	var resp snapshotResponse
	if err := h.cache.Get(r.Context(), key, &resp); err == nil {
		writeJSON(w, resp)
		return
	} else if !cache.Miss(err) {
		log.Printf("snapshot cache read failed: %v", err)
	}

	bucket := h.engine.Snapshot(periodKey, kind)
	resp = snapshotResponse{
		Bucket:          bucket,
		AttendanceRate:  aggregate.AttendanceRate(bucket),
		UtilizationRate: aggregate.UtilizationRate(bucket),
	}
	_ = h.cache.Set(r.Context(), key, resp, cache.SnapshotTTL)
	writeJSON(w, resp)
}

type trendResponse struct {
	Series     []model.TrendPoint `json:"series"`
	Projection trend.Projection   `json:"projection"`
}

// defaultMetricPath picks the headline metric for a kind when the caller
// does not name one.
func defaultMetricPath(kind string) string {
	switch kind {
	case "attendance":
		return "rate.attendance"
	case "payment":
		return "sums.revenue"
	case "trip":
		return "rate.utilization"
	default:
		return "counts.total"
	}
}

func (h *AnalyticsHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		http.Error(w, "kind required", http.StatusBadRequest)
		return
	}

	n := 12
	if raw := r.URL.Query().Get("periods"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "periods must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	granularity := aggregate.Granularity(r.URL.Query().Get("granularity"))
	switch granularity {
	case aggregate.GranularityDay, aggregate.GranularityWeek, aggregate.GranularityMonth:
	case "":
		granularity = aggregate.GranularityDay
	default:
		http.Error(w, "unknown granularity", http.StatusBadRequest)
		return
	}

	metricPath := r.URL.Query().Get("metric")
	if metricPath == "" {
		metricPath = defaultMetricPath(kind)
	}

	key := cache.TrendKey(kind, string(granularity), metricPath, n)
	var resp trendResponse
	if err := h.cache.Get(r.Context(), key, &resp); err == nil {
		writeJSON(w, resp)
		return
	} else if !cache.Miss(err) {
		log.Printf("trend cache read failed: %v", err)
	}

	series := h.engine.Series(kind, granularity, metricPath, n)
	resp = trendResponse{
		Series:     series,
		Projection: trend.Project(kind, series),
	}
	_ = h.cache.Set(r.Context(), key, resp, cache.TrendTTL)
	writeJSON(w, resp)
}

func (h *AnalyticsHandler) GetActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.evaluator.Active()
	if alerts == nil {
		alerts = []*model.Alert{}
	}
	writeJSON(w, alerts)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
