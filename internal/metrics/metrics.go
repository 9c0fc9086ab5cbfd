package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callinsights_fetch_pages_total",
		Help: "Pages fetched from the telephony API.",
	})

	FetchRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callinsights_fetch_records_total",
		Help: "Call records fetched from the telephony API.",
	})

	FetchAborts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callinsights_fetch_aborts_total",
		Help: "Fetches aborted mid-pagination, returning partial results.",
	})

	ClassifyBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callinsights_classify_batches_total",
		Help: "Classification batches resolved against the customer stores.",
	})

	ClassifyDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callinsights_classify_degraded_total",
		Help: "Classification batches degraded by a backing-store failure.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callinsights_tenant_cache_hits_total",
		Help: "Tenant lookups answered from the cache.",
	})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callinsights_pipeline_duration_seconds",
		Help:    "End-to-end fetch/classify/aggregate pipeline duration.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	ReportsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callinsights_reports_sent_total",
		Help: "Email reports sent, by outcome.",
	}, []string{"outcome"})
)
