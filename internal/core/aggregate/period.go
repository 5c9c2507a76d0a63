package aggregate

import (
	"fmt"
	"time"
)

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Granularities lists every bucket granularity an event fans out to.
var Granularities = []Granularity{GranularityDay, GranularityWeek, GranularityMonth}

// PeriodKey renders the bucket key for a timestamp at the given granularity.
// Keys sort lexicographically in chronological order within a granularity:
// 2026-03-09, 2026-W11, 2026-03.
func PeriodKey(g Granularity, t time.Time) string {
	t = t.UTC()
	switch g {
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GranularityMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// KeyGranularity infers the granularity a period key was rendered at.
func KeyGranularity(periodKey string) Granularity {
	switch {
	case len(periodKey) == 8 && periodKey[4] == '-' && periodKey[5] == 'W':
		return GranularityWeek
	case len(periodKey) == 7:
		return GranularityMonth
	default:
		return GranularityDay
	}
}

// PeriodRange returns the [start, end) wall-clock range covered by the
// granularity's period containing t. Used by the rebuild path to fetch the
// full replay window.
func PeriodRange(g Granularity, t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	switch g {
	case GranularityWeek:
		// back up to Monday
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(weekday - 1))
		return start, start.AddDate(0, 0, 7)
	case GranularityMonth:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
}
