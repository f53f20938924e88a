package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	predictionsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetops_api_predictions_served_total",
		Help: "Total number of ETA predictions returned to callers.",
	})
	predictionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetops_api_predictions_failed_total",
		Help: "Total number of prediction requests that did not produce an ETA.",
	}, []string{"reason"})
	predictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetops_api_prediction_duration_seconds",
		Help:    "Duration of the full prediction pipeline including the compliance write.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
	})
	modelTrainings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetops_api_model_trainings_total",
		Help: "Total number of times the ETA model was fitted and persisted.",
	})
	complianceBatchesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetops_api_compliance_batches_committed_total",
		Help: "Total number of compliance batches committed.",
	})
	complianceBatchesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetops_api_compliance_batches_failed_total",
		Help: "Total number of compliance batches rolled back or never started.",
	})
	violationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetops_api_violations_recorded_total",
		Help: "Total number of violation records committed.",
	})
	eventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetops_api_prediction_events_published_total",
		Help: "Total number of prediction events published to Redis.",
	})
	jobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetops_api_jobs_enqueued_total",
		Help: "Total number of credential validation jobs enqueued.",
	})
	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetops_worker_jobs_processed_total",
		Help: "Total number of credential validation jobs processed by outcome.",
	}, []string{"outcome"})
)
