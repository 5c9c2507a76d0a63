package ingest

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schooltrack_events_ingested_total",
			Help: "Events normalized and applied to the aggregation engine.",
		},
		[]string{"kind"},
	)
	eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schooltrack_events_dropped_total",
			Help: "Events dropped during ingestion, by reason.",
		},
		[]string{"reason"},
	)
	eventsLate = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schooltrack_events_late_total",
			Help: "Events routed to the late path and resolved by bucket rebuild.",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsIngested, eventsDropped, eventsLate)
}
