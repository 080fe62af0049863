package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "activityfeed_rows_read_total",
		Help: "Total number of non-blank feed rows read across all loads.",
	})

	RowsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activityfeed_rows_rejected_total",
		Help: "Total number of feed rows rejected, labelled by reason.",
	}, []string{"reason"})

	MetadataDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "activityfeed_metadata_degraded_total",
		Help: "Total number of admitted rows whose metadata did not decode and was emptied.",
	})

	LoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activityfeed_loads_total",
		Help: "Total number of load attempts, labelled by outcome.",
	}, []string{"status"})

	LoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "activityfeed_load_duration_seconds",
		Help:    "Wall time of a load attempt from open to publish.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	LoadsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "activityfeed_load_triggers_rejected_total",
		Help: "Total number of load triggers rejected because the scheduler queue was full.",
	})

	DatasetRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "activityfeed_dataset_records",
		Help: "Number of records in the currently published dataset.",
	})

	LastSuccessfulLoad = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "activityfeed_last_successful_load_timestamp_seconds",
		Help: "Unix time of the last successful publish.",
	})

	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activityfeed_queries_total",
		Help: "Total number of query requests, labelled by endpoint and status code.",
	}, []string{"endpoint", "code"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "activityfeed_query_duration_ms",
		Help:    "Query handling latency in milliseconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"endpoint"})
)
