// Package trend projects the next bucket value of a metric series with an
// ordinary least-squares linear fit.
package trend

import (
	"github.com/montanaflynn/stats"

	"schooltrack/internal/core/model"
)

// NonNegativeKinds lists the metric kinds whose projections are clamped at
// zero. Every current kind carries counts or money amounts, which cannot go
// negative; a signed metric kind would be left out of this set.
var NonNegativeKinds = map[string]bool{
	"attendance":    true,
	"payment":       true,
	"trip":          true,
	"vehicleStatus": true,
	"alert":         true,
}

// Projection is the predicted next-period value. LowConfidence marks
// projections built from fewer than two points, which are carried values
// rather than fits.
type Projection struct {
	Next          float64 `json:"next"`
	LowConfidence bool    `json:"lowConfidence"`
}

// Project fits value against index 0..n-1 and evaluates the line at index n.
// Degenerate series still produce usable output: an empty series projects 0
// and a single point projects itself, both flagged low confidence.
func Project(kind string, series []model.TrendPoint) Projection {
	n := len(series)
	switch n {
	case 0:
		return Projection{Next: 0, LowConfidence: true}
	case 1:
		return Projection{Next: clamp(kind, series[0].Value), LowConfidence: true}
	}

	coords := make(stats.Series, n)
	for i, p := range series {
		coords[i] = stats.Coordinate{X: float64(i), Y: p.Value}
	}
	fitted, err := stats.LinearRegression(coords)
	if err != nil || len(fitted) != n {
		return Projection{Next: clamp(kind, series[n-1].Value), LowConfidence: true}
	}

	// The fit is evaluated on the same equally spaced indices, so the next
	// value is one slope step past the last fitted point.
	step := fitted[n-1].Y - fitted[n-2].Y
	return Projection{Next: clamp(kind, fitted[n-1].Y+step)}
}

func clamp(kind string, v float64) float64 {
	if v < 0 && NonNegativeKinds[kind] {
		return 0
	}
	return v
}
