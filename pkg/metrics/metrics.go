// Package metrics provides centralized Prometheus metrics registry for the item feed.
// All metrics are defined in their respective packages (fetch, pipeline, client,
// server, ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the item feed.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry /metrics is served from.
var Gatherer = prometheus.DefaultGatherer

// Metrics Documentation
//
// Pipeline Metrics (pkg/pipeline):
//   - itemfeed_updates_published_total{kind} (Counter): Updates published by kind (append_items, update_detail)
//   - itemfeed_triggers_total{stage} (Counter): Load-more triggers by stage (raw, debounced)
//   - itemfeed_detail_failures_isolated_total (Counter): Detail failures dropped instead of failing the stream
//   - itemfeed_pipelines_active (Gauge): Number of running pipelines
//   - itemfeed_pipeline_runs_total{state} (Counter): Finished runs by terminal state (completed, failed, cancelled)
//
// Fetch Metrics (pkg/fetch):
//   - itemfeed_page_fetches_total{result} (Counter): Page fetches by result (ok, error, cancelled)
//   - itemfeed_page_fetch_duration_seconds (Histogram): Page fetch duration
//   - itemfeed_detail_fetches_total{result} (Counter): Detail fetches by result (ok, not_found, error, cancelled)
//   - itemfeed_detail_fetch_duration_seconds (Histogram): Detail fetch duration
//   - itemfeed_detail_fetches_in_flight (Gauge): Detail fetches currently in flight
//
// Rate Limit Metrics (pkg/ratelimit):
//   - itemfeed_rate_limit_waits_total{limiter} (Counter): Requests delayed by a limiter
//   - itemfeed_rate_limit_wait_seconds{limiter} (Histogram): Time spent waiting for a limiter
//
// Items API Client Metrics (pkg/client):
//   - itemfeed_api_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - itemfeed_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - itemfeed_api_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Items API Server Metrics (pkg/server):
//   - itemfeed_http_requests_total{route, status} (Counter): Requests served by route and status
//   - itemfeed_http_request_duration_seconds{route} (Histogram): Request duration by route
//
// Example Prometheus Queries:
//
//   # Detail fan-out pressure
//   itemfeed_detail_fetches_in_flight
//
//   # Page fetch error rate
//   rate(itemfeed_page_fetches_total{result="error"}[5m])
//
//   # Failed pipeline runs
//   increase(itemfeed_pipeline_runs_total{state="failed"}[1h])
//
//   # P95 detail latency
//   histogram_quantile(0.95, rate(itemfeed_detail_fetch_duration_seconds_bucket[5m]))
