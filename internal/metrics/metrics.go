// Package metrics holds the prometheus collectors of dispatch runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_run_duration_seconds",
		Help:    "Duration of dispatch runs",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Total number of dispatch runs by status",
	}, []string{"status"})

	ActiveRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_active_records",
		Help: "Active records per entity group after the last run",
	}, []string{"group"})

	ClosedRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_closed_records",
		Help: "Closed records per entity group after the last run",
	}, []string{"group"})

	LinksUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_link_stats_updated_total",
		Help: "Suspect link stat rows rewritten by recalculation",
	})

	IngestedEdges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_ingested_edges_total",
		Help: "Edges inserted from relationship sheets",
	})

	LastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run",
	})
)

// ObserveRun records the outcome of one run.
func ObserveRun(started time.Time, err error) {
	RunDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		RunsTotal.WithLabelValues("failed").Inc()
		return
	}
	RunsTotal.WithLabelValues("succeeded").Inc()
	LastSuccess.SetToCurrentTime()
}

// SetGroupSizes publishes active and closed counts of one entity group.
func SetGroupSizes(group string, active, closed int) {
	ActiveRecords.WithLabelValues(group).Set(float64(active))
	ClosedRecords.WithLabelValues(group).Set(float64(closed))
}
