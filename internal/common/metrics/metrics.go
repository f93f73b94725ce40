package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cotizador_quotes_total",
			Help: "Quote searches by requested tier and outcome (found, empty, invalid, unavailable)",
		},
		[]string{"tier", "outcome"},
	)

	QuoteCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cotizador_quote_candidates",
			Help:    "Number of candidate plans returned per search",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"tier"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "cotizador_quote_duration_seconds",
			Help: "Duration of quote operations in seconds",
		},
		[]string{"operation"},
	)

	ProposalsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cotizador_proposals_total",
			Help: "Proposal documents by outcome",
		},
		[]string{"outcome"},
	)

	LeadsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cotizador_leads_total",
			Help: "Lead records by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cotizador_notifications_total",
			Help: "Lead notifications by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	CatalogRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cotizador_catalog_rows",
			Help: "Rows held by the loaded catalog per table",
		},
		[]string{"table"},
	)
)
