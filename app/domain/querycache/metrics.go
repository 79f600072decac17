package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "querycache"

const (
	lookupHit       = "hit"
	lookupMiss      = "miss"
	lookupBypass    = "bypass"
	lookupError     = "error"
	lookupCollapsed = "collapsed"
)

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lookups_total",
			Help:      "Read lookups grouped by outcome",
		},
		[]string{"result"},
	)
	storeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_errors_total",
			Help:      "Cache backend failures grouped by operation",
		},
		[]string{"op"},
	)
	serializationErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "serialization_errors_total",
			Help:      "Results or bindings that could not be encoded or decoded",
		},
	)
	invalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invalidations_total",
			Help:      "Tag invalidations performed",
		},
	)
	invalidatedKeysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invalidated_keys_total",
			Help:      "Cache entries removed by tag invalidation",
		},
	)
	invalidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invalidation_failures_total",
			Help:      "Invalidations that may have left stale entries behind, grouped by stage",
		},
		[]string{"stage"},
	)
	orphanedEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "orphaned_entries_total",
			Help:      "Entries written but neither tagged nor removed",
		},
	)
)
