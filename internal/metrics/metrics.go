// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	// ImportRuns counts import pipeline runs by format and outcome.
	ImportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepr_import_runs_total",
		Help: "Import pipeline runs by format and status",
	}, []string{"format", "status"})

	// ImportedLinks counts candidates by what happened to them.
	ImportedLinks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepr_import_links_total",
		Help: "Import candidates by result",
	}, []string{"result"}) // result: imported, skipped, duplicate

	ExportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepr_export_runs_total",
		Help: "Export runs by format and status",
	}, []string{"format", "status"})

	// BackupRuns covers remote backups, restores and local auto-backups.
	BackupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deepr_backup_runs_total",
		Help: "Backup and restore runs by kind and status",
	}, []string{"kind", "status"}) // kind: remote_backup, restore, auto_backup

	RemoteRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deepr_remote_request_duration_seconds",
		Help:    "Duration of remote sync transfers",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// Status maps an operation error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

// ObserveRemote records how long a remote transfer started at start took.
func ObserveRemote(start time.Time) {
	RemoteRequestDuration.Observe(time.Since(start).Seconds())
}
