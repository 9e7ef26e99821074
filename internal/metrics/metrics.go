package metrics

import (
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // Optimizations counts coordinator optimization runs by trigger and outcome
    Optimizations = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "route_optimizations_total", Help: "Route optimization runs by trigger and outcome."},
        []string{"trigger", "outcome"},
    )
    // StaleResults counts optimization results discarded by the freshness check
    StaleResults = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "route_stale_results_total", Help: "Optimization results discarded as stale."},
    )
    // ProviderCalls counts directions provider calls by outcome
    ProviderCalls = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "directions_provider_calls_total", Help: "Directions provider calls by outcome."},
        []string{"outcome"},
    )
    // ProviderLatency tracks directions provider call latency in seconds
    ProviderLatency = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "directions_provider_latency_seconds", Help: "Directions provider call latency in seconds.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}},
    )

    // WebhookDeliveries counts webhook delivery outcomes by event type and status
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
    // WebhookLatency tracks webhook delivery latencies in milliseconds
    WebhookLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"event_type", "status"},
    )
)

// ObserveProviderCall records one directions call.
func ObserveProviderCall(d time.Duration, err error) {
    ProviderLatency.Observe(d.Seconds())
    outcome := "ok"
    if err != nil { outcome = "error" }
    ProviderCalls.WithLabelValues(outcome).Inc()
}

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(Optimizations)
        Registry.MustRegister(StaleResults)
        Registry.MustRegister(ProviderCalls)
        Registry.MustRegister(ProviderLatency)
        Registry.MustRegister(WebhookDeliveries)
        Registry.MustRegister(WebhookLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
