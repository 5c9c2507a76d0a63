// Package geofence decides whether a reported position is acceptably close
// to a school's reference location.
package geofence

import (
	"errors"
	"fmt"

	"schooltrack/internal/core/geo"
	"schooltrack/internal/core/model"
)

var ErrIncompleteLocation = errors.New("incomplete location data")

// accuracyConfidenceFactor: when the reported GPS accuracy exceeds this
// fraction of the fence radius, the within/without determination is not
// trustworthy enough to act on without review.
const accuracyConfidenceFactor = 0.5

type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify computes the distance between the report and the reference location
// and classifies the outcome. It never fails: bad input degrades the outcome
// instead, because attendance determinations must always produce a recorded
// result.
func (v *Verifier) Verify(report model.PositionReport, ref model.ReferenceLocation) model.VerificationOutcome {
	if report.Coordinate == nil {
		return model.VerificationOutcome{
			WithinRadius: false,
			Confidence:   model.ConfidenceDegraded,
			Diagnosis:    ErrIncompleteLocation.Error(),
		}
	}

	d, err := geo.Distance(*report.Coordinate, ref.Coordinate)
	if err != nil {
		return model.VerificationOutcome{
			WithinRadius: false,
			Confidence:   model.ConfidenceDegraded,
			Diagnosis:    err.Error(),
		}
	}

	outcome := model.VerificationOutcome{
		DistanceMeters: d,
		WithinRadius:   d <= ref.RadiusMeters,
		Confidence:     model.ConfidenceHigh,
	}
	if !outcome.WithinRadius {
		// where the report actually was, for the review trail
		if brg, berr := geo.Bearing(ref.Coordinate, *report.Coordinate); berr == nil {
			outcome.Diagnosis = fmt.Sprintf("%.0fm from %s at bearing %.0f", d, ref.Label, brg)
		}
	}
	if report.AccuracyMeters > ref.RadiusMeters*accuracyConfidenceFactor {
		outcome.Confidence = model.ConfidenceDegraded
	}
	return outcome
}
