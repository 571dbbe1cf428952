package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EventsCreated         prometheus.Counter
	EventsUpdated         prometheus.Counter
	EventsDeleted         prometheus.Counter
	ChangeEntriesAppended prometheus.Counter
	ProjectionCacheHits   prometheus.Counter
	ProjectionCacheMisses prometheus.Counter
	SaveConflicts         prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EventsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventtrail_events_created_total",
			Help: "Total number of events created.",
		}),
		EventsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventtrail_events_updated_total",
			Help: "Total number of successful event saves.",
		}),
		EventsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventtrail_events_deleted_total",
			Help: "Total number of events deleted.",
		}),
		ChangeEntriesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventtrail_change_entries_appended_total",
			Help: "Total number of audit trail entries appended across all events.",
		}),
		ProjectionCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventtrail_projection_cache_hits_total",
			Help: "Projection cache hits.",
		}),
		ProjectionCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventtrail_projection_cache_misses_total",
			Help: "Projection cache misses.",
		}),
		SaveConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventtrail_save_conflicts_total",
			Help: "Event saves rejected by the optimistic version check.",
		}),
	}
}
