package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts list windows served from Redis
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of upstream list windows served from cache",
		},
	)

	// CacheMisses counts lookups that found nothing usable
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of upstream list cache misses",
		},
	)

	// StoredBytes tracks bytes written to the cache
	StoredBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_cache_stored_bytes",
			Help: "Bytes written to the upstream list cache",
		},
	)

	// ConditionalRequestsSent counts revalidation requests
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_conditional_requests_total",
			Help: "Total number of conditional upstream requests sent",
		},
	)

	// NotModifiedResponses counts 304 answers to revalidation
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_not_modified_total",
			Help: "Total number of 304 Not Modified upstream responses",
		},
	)

	// CacheErrors counts Redis failures by operation
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
