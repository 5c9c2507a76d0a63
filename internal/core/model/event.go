package model

import "time"

type EventKind string

const (
	KindAttendance    EventKind = "attendance"
	KindPayment       EventKind = "payment"
	KindTrip          EventKind = "trip"
	KindVehicleStatus EventKind = "vehicleStatus"
	KindAlert         EventKind = "alert"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// RawEvent is a change record as delivered by the sync layer: heterogeneous
// payload, at-least-once delivery, no ordering guarantee. Consumed once by
// the ingestor.
type RawEvent struct {
	Kind       string                 `json:"kind" bson:"kind"`
	EventType  string                 `json:"eventType" bson:"eventType"` // insert|update|delete or created|updated|deleted
	EntityID   string                 `json:"entityId" bson:"entityId"`
	OccurredAt time.Time              `json:"occurredAt" bson:"occurredAt"`
	Payload    map[string]interface{} `json:"payload" bson:"payload"`
}

// NormalizedEvent is the single internal event shape everything downstream
// of the ingestor consumes.
type NormalizedEvent struct {
	Kind       EventKind              `json:"kind"`
	EntityID   string                 `json:"entityId"`
	EventType  EventType              `json:"eventType"`
	OccurredAt time.Time              `json:"occurredAt"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}
