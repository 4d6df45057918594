/*
Package metrics provides Prometheus metrics collection and exposition for the
embeddable Datalog database.

The metrics package defines and registers all metrics using the Prometheus
client library, providing observability into query throughput and latency,
running-query pressure, relation catalog size, and transaction/cleanup
behavior. Metrics are exposed via an HTTP endpoint for scraping by Prometheus
servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (running queries)    │          │
	│  │  Counter: Monotonic increases (queries run) │          │
	│  │  Histogram: Distributions (query duration)  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Query: run count, duration, kills          │          │
	│  │  Relation: catalog size, write duration     │          │
	│  │  Evaluator: strata count, fixpoint rounds   │          │
	│  │  Txn: commit duration, cleanup ranges       │          │
	│  │  Import/Export: rows moved, by relation     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Thread-safe for concurrent updates

Gauge Metrics:
  - Instant value that can go up or down
  - Examples: queries running, relations total
  - Operations: Set, Inc, Dec, Add, Sub

Counter Metrics:
  - Monotonically increasing value
  - Examples: queries total, cleanup ranges applied
  - Operations: Inc, Add (cannot decrease)

Histogram Metrics:
  - Distribution of observed values
  - Buckets for latency percentiles (p50, p95, p99)
  - Examples: query duration, relation write duration
  - Includes: sum, count, buckets

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

Collector:
  - Ticks every 15s, samples the running-query registry into
    strata_queries_running and the catalog's relation count into
    strata_relations_total (see RelationCounter)

# Metrics Catalog

Query Metrics:

strata_queries_total{outcome}:
  - Type: Counter
  - Labels: outcome (ok, error, killed)
  - Description: total number of scripts run, by outcome
  - Example: strata_queries_total{outcome="ok"} 5000

strata_query_duration_seconds{outcome}:
  - Type: Histogram
  - Description: script run duration in seconds

strata_queries_running:
  - Type: Gauge
  - Description: number of queries currently registered as running
  - Example: strata_queries_running 3

strata_queries_killed_total:
  - Type: Counter
  - Description: total number of queries killed via the running-query registry

Relation Metrics:

strata_relations_total:
  - Type: Gauge
  - Description: total number of stored relations in the catalog

strata_relation_write_duration_seconds{op}:
  - Type: Histogram
  - Labels: op (create, put, rm, replace, ensure, ensure_not)
  - Description: time taken to execute a store-relation directive

Evaluator Metrics:

strata_strata_evaluated:
  - Type: Histogram
  - Description: number of strata evaluated per script run

strata_fixpoint_iterations:
  - Type: Histogram
  - Description: number of semi-naive fixpoint iterations per stratum

Transaction Metrics:

strata_txn_commit_duration_seconds:
  - Type: Histogram
  - Description: time taken to commit a script's transaction

strata_cleanup_ranges_applied_total:
  - Type: Counter
  - Description: total number of post-commit key-range cleanups applied

Import/Export Metrics:

strata_import_rows_total{relation}:
  - Type: Counter
  - Description: total number of rows imported, by relation

strata_export_rows_total{relation}:
  - Type: Counter
  - Description: total number of rows exported, by relation

# Usage

Recording a query run:

	import "github.com/cuemby/strata/pkg/metrics"

	timer := metrics.NewTimer()
	result, err := orchestrator.Run(s, stmts, opts)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	timer.ObserveDurationVec(metrics.QueryDuration, outcome)

Exposing the metrics endpoint:

	import (
		"net/http"

		"github.com/cuemby/strata/pkg/metrics"
	)

	http.Handle("/metrics", metrics.Handler())

# Recommended PromQL Queries

Query throughput and errors:
  - Run rate: rate(strata_queries_total[1m])
  - Error rate: rate(strata_queries_total{outcome="error"}[1m])
  - p95 latency: histogram_quantile(0.95, strata_query_duration_seconds_bucket)
  - p99 latency: histogram_quantile(0.99, strata_query_duration_seconds_bucket)

Catalog pressure:
  - Relations: strata_relations_total
  - Relation write p95: histogram_quantile(0.95, strata_relation_write_duration_seconds_bucket)

Concurrency and cancellation:
  - Concurrent queries: strata_queries_running
  - Kill rate: rate(strata_queries_killed_total[5m])

# Alerting Guidelines

Elevated error rate:
  - Alert: rate(strata_queries_total{outcome="error"}[5m]) > 0.1

Query backlog:
  - Alert: strata_queries_running > 50

Cleanup starvation (post-commit ranges piling up):
  - Alert: rate(strata_cleanup_ranges_applied_total[5m]) == 0 and strata_relations_total > 0
*/
package metrics
