// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics holds the Prometheus collectors shared across packages.
// Collectors register with the default registry, served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation results.
const (
	ResultOK           = "ok"
	ResultValidation   = "validation"
	ResultUnauthorized = "unauthorized"
	ResultNotFound     = "not_found"
	ResultError        = "error"
)

var (
	TreeBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curator_tree_build_duration_seconds",
		Help:    "Time to fetch and build one hierarchy view",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	TreeNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curator_tree_nodes",
		Help:    "Number of nodes in built hierarchy views",
		Buckets: []float64{1, 10, 100, 1000, 10000},
	})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_mutations_total",
		Help: "Reorder and move operations by outcome",
	}, []string{"op", "result"})

	TreeCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_tree_cache_total",
		Help: "Tree view cache lookups by result",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curator_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveBuild records one tree build.
func ObserveBuild(start time.Time, nodes int) {
	TreeBuildDuration.Observe(time.Since(start).Seconds())
	TreeNodes.Observe(float64(nodes))
}
