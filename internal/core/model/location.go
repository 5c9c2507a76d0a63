package model

import "time"

type Coordinate struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// ReferenceLocation is the circular geofence a school configures for
// attendance verification. Owned by configuration, read-only to the core.
type ReferenceLocation struct {
	Coordinate   Coordinate `json:"coordinate" bson:"coordinate"`
	RadiusMeters float64    `json:"radiusMeters" bson:"radiusMeters"`
	Label        string     `json:"label" bson:"label"`
}

// PositionReport is what a reporting client captured at the moment of a
// check-in or check-out. Coordinate is a pointer so a missing position on
// the wire is distinguishable from (0,0). Immutable once created.
type PositionReport struct {
	SubjectID      string      `json:"subjectId" bson:"subjectId"`
	Coordinate     *Coordinate `json:"coordinate" bson:"coordinate"`
	CapturedAt     time.Time   `json:"capturedAt" bson:"capturedAt"`
	AccuracyMeters float64     `json:"accuracyMeters" bson:"accuracyMeters"`
}

type Confidence string

const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceDegraded Confidence = "degraded"
)

// VerificationOutcome records the result of checking a position report
// against a reference location. Degraded outcomes are still recorded; they
// are flagged for review, never silently treated as a failure.
type VerificationOutcome struct {
	DistanceMeters float64    `json:"distanceMeters" bson:"distanceMeters"`
	WithinRadius   bool       `json:"withinRadius" bson:"withinRadius"`
	Confidence     Confidence `json:"confidence" bson:"confidence"`
	Diagnosis      string     `json:"diagnosis,omitempty" bson:"diagnosis,omitempty"`
}
