package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_checker_analyses_total",
		Help: "Total number of analyses by source type and final label",
	}, []string{"source", "label"})

	Overrides = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_checker_overrides_total",
		Help: "Analyses decided by an absolute override rule",
	}, []string{"rule"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fraud_checker_stage_duration_seconds",
		Help:    "Time spent in each pipeline stage",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	}, []string{"stage"})

	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_checker_cache_requests_total",
		Help: "Result cache lookups by kind and outcome",
	}, []string{"kind", "result"})

	ClassifierDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_checker_classifier_degraded_total",
		Help: "Classifier calls answered by the default verdict",
	}, []string{"reason"})

	OCRPasses = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fraud_checker_ocr_passes",
		Help:    "Number of OCR passes per image",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})

	APIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fraud_checker_api_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10},
	}, []string{"path", "method", "status"})

	MailFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_checker_mail_filtered_total",
		Help: "Messages handled by the SMTP content filter",
	}, []string{"status"})
)
