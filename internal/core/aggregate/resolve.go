package aggregate

import (
	"strings"

	"schooltrack/internal/core/model"
)

// AttendanceRate is present over total. An empty denominator means "no data
// yet", which reads as rate 0, never an error.
func AttendanceRate(b model.MetricBucket) float64 {
	return ratio(b.RunningCounts["present"], b.RunningCounts["total"])
}

// UtilizationRate is subjects with service over subjects enrolled.
func UtilizationRate(b model.MetricBucket) float64 {
	return ratio(b.RunningCounts["subjectsServed"], b.RunningCounts["subjectsEnrolled"])
}

func ratio(num, den int64) float64 {
	if den < 1 {
		den = 1
	}
	return float64(num) / float64(den)
}

// Resolve reads a metric path against a bucket snapshot. Paths are
// "counts.<name>", "sums.<name>", "rate.attendance" or "rate.utilization".
// The second return reports whether the path is addressable; an addressable
// path with no recorded data resolves to 0.
func Resolve(b model.MetricBucket, path string) (float64, bool) {
	group, name, ok := strings.Cut(path, ".")
	if !ok {
		return 0, false
	}
	switch group {
	case "counts":
		return float64(b.RunningCounts[name]), true
	case "sums":
		return b.RunningSums[name], true
	case "rate":
		switch name {
		case "attendance":
			return AttendanceRate(b), true
		case "utilization":
			return UtilizationRate(b), true
		}
	}
	return 0, false
}
