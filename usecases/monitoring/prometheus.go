//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics bundles all collectors of the storage backend. A nil
// receiver is valid everywhere and means monitoring is disabled.
type PrometheusMetrics struct {
	Registerer prometheus.Registerer

	// Group collapses the per-store label into a single merged name, for
	// deployments where per-store cardinality is unwanted.
	Group bool

	StoreOperations    *prometheus.HistogramVec
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheSizeBytes     *prometheus.GaugeVec
	CacheEvictions     *prometheus.CounterVec
	TransactionsOpened prometheus.Counter
}

// NewPrometheusMetrics registers all collectors on the given registerer. Pass
// prometheus.DefaultRegisterer unless running several backends in one
// process.
func NewPrometheusMetrics(reg prometheus.Registerer, group bool) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		Registerer: reg,
		Group:      group,
		StoreOperations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graphkv_store_operation_duration_seconds",
			Help:    "Duration of raw store manager operations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"store_name", "operation"}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphkv_cache_hits_total",
			Help: "Slice queries answered from a store cache",
		}, []string{"cache_name"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphkv_cache_misses_total",
			Help: "Slice queries that had to go to the backing store",
		}, []string{"cache_name"}),
		CacheSizeBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graphkv_cache_size_bytes",
			Help: "Approximate retained size per store cache",
		}, []string{"cache_name"}),
		CacheEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphkv_cache_evictions_total",
			Help: "Entries removed from a store cache by expiration or pressure",
		}, []string{"cache_name"}),
		TransactionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "graphkv_transactions_opened_total",
			Help: "Composite backend transactions opened",
		}),
	}
}

// StoreLabel returns the store_name label value to use, honoring Group.
func (pm *PrometheusMetrics) StoreLabel(storeName, merged string) string {
	if pm == nil || pm.Group {
		return merged
	}
	return storeName
}

func (pm *PrometheusMetrics) ObserveStoreOperation(storeName, operation string, seconds float64) {
	if pm == nil {
		return
	}
	pm.StoreOperations.WithLabelValues(storeName, operation).Observe(seconds)
}

func (pm *PrometheusMetrics) CacheHit(cacheName string) {
	if pm == nil {
		return
	}
	pm.CacheHits.WithLabelValues(cacheName).Inc()
}

func (pm *PrometheusMetrics) CacheMiss(cacheName string) {
	if pm == nil {
		return
	}
	pm.CacheMisses.WithLabelValues(cacheName).Inc()
}

func (pm *PrometheusMetrics) SetCacheSize(cacheName string, bytes int64) {
	if pm == nil {
		return
	}
	pm.CacheSizeBytes.WithLabelValues(cacheName).Set(float64(bytes))
}

func (pm *PrometheusMetrics) CacheEviction(cacheName string, count int) {
	if pm == nil {
		return
	}
	pm.CacheEvictions.WithLabelValues(cacheName).Add(float64(count))
}

func (pm *PrometheusMetrics) TransactionOpened() {
	if pm == nil {
		return
	}
	pm.TransactionsOpened.Inc()
}
