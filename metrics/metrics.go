// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts completed requests by method and status code
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gotm_http_requests_total",
		Help: "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	// HTTPDuration tracks request latency
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gotm_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// Tabulations counts IRV runs by outcome (ok, error)
	Tabulations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gotm_tabulations_total",
		Help: "Total IRV tabulations by outcome",
	}, []string{"outcome"})

	// TabulationDuration covers loading ballots and tabulating them
	TabulationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gotm_tabulation_duration_seconds",
		Help:    "IRV tabulation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	})

	// CacheLookups counts result cache lookups by result (hit, miss)
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gotm_result_cache_lookups_total",
		Help: "Result cache lookups by result",
	}, []string{"result"})

	// CacheInvalidations counts dropped cache entries
	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gotm_result_cache_invalidations_total",
		Help: "Result cache invalidations",
	})
)
