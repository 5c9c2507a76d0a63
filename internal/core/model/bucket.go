package model

import "time"

// MetricBucket accumulates running counts and sums for one (period, kind)
// pair. Buckets are created lazily on first touch and updated incrementally;
// they are only rebuilt wholesale on the explicit rebuild path.
type MetricBucket struct {
	PeriodKey     string             `json:"periodKey" bson:"periodKey"`
	Kind          string             `json:"kind" bson:"kind"`
	RunningSums   map[string]float64 `json:"runningSums" bson:"runningSums"`
	RunningCounts map[string]int64   `json:"runningCounts" bson:"runningCounts"`
	LastUpdated   time.Time          `json:"lastUpdated" bson:"lastUpdated"`
}

func NewMetricBucket(periodKey, kind string) *MetricBucket {
	return &MetricBucket{
		PeriodKey:     periodKey,
		Kind:          kind,
		RunningSums:   make(map[string]float64),
		RunningCounts: make(map[string]int64),
	}
}

// Clone returns a deep copy so readers can hold a snapshot while writers
// keep mutating the live bucket.
func (b *MetricBucket) Clone() MetricBucket {
	out := *b
	out.RunningSums = make(map[string]float64, len(b.RunningSums))
	for k, v := range b.RunningSums {
		out.RunningSums[k] = v
	}
	out.RunningCounts = make(map[string]int64, len(b.RunningCounts))
	for k, v := range b.RunningCounts {
		out.RunningCounts[k] = v
	}
	return out
}

// TrendPoint is one bucketed value in a metric series, ordered by PeriodKey.
type TrendPoint struct {
	PeriodKey string  `json:"periodKey"`
	Value     float64 `json:"value"`
}
