package main

import (
    "bufio"
    "context"
    "log"
    "net"
    "net/http"
    "os"
    "strconv"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "routepilot/internal/api"
    "routepilot/internal/config"
    "routepilot/internal/directions"
    "routepilot/internal/metrics"
    "routepilot/internal/plan"
    "routepilot/internal/stops"
)

func main() {
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil {
        log.Fatalf("failed to load config: %v", err)
    }
    metrics.RegisterDefault()

    stopStore := stops.NewStore()

    var optimizer plan.Optimizer
    if cfg.Provider.APIKey != "" {
        opts := []directions.GoogleOption{
            directions.WithRateLimit(cfg.Provider.RateRPS, cfg.Provider.RateBurst),
            directions.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Provider.TimeoutSeconds) * time.Second}),
        }
        if cfg.Provider.BaseURL != "" {
            opts = append(opts, directions.WithBaseURL(cfg.Provider.BaseURL))
        }
        provider, err := directions.NewGoogleProvider(cfg.Provider.APIKey, opts...)
        if err != nil {
            log.Fatalf("failed to init directions provider: %v", err)
        }
        optimizer = directions.NewClient(provider)
    } else {
        log.Printf("no provider API key configured; using local straight-line ordering")
        optimizer = plan.NewLocalOptimizer()
    }

    coord := plan.NewCoordinator(stopStore, optimizer,
        plan.WithTimeout(time.Duration(cfg.Plan.TimeoutSeconds)*time.Second))

    srv, err := api.NewServer(cfg, stopStore, coord)
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }
    coord.SetNotifier(srv)
    if err := srv.RestoreSession(context.Background()); err != nil {
        log.Printf("session restore failed: %v", err)
    }
    coord.Start()
    defer coord.Close()

    mux := http.NewServeMux()

    // Stops
    mux.HandleFunc("/v1/stops", srv.StopsHandler)
    mux.HandleFunc("/v1/stops/import", srv.StopsImportHandler)
    mux.HandleFunc("/v1/stops/", srv.StopByIDHandler) // includes /complete, /skip

    // Route planning
    mux.HandleFunc("/v1/route/plan", srv.RoutePlanHandler)
    mux.HandleFunc("/v1/route/swap", srv.RouteSwapHandler)
    mux.HandleFunc("/v1/route/active", srv.RouteActiveHandler)
    mux.HandleFunc("/v1/route/status", srv.RouteStatusHandler)
    mux.HandleFunc("/v1/route/events/stream", srv.RouteEventsHandler)
    mux.HandleFunc("/v1/route/ws", srv.RouteWSHandler)

    // Driver position
    mux.HandleFunc("/v1/location", srv.LocationHandler)

    // Webhook subscriptions
    mux.HandleFunc("/v1/subscriptions", srv.SubscriptionsHandler)
    mux.HandleFunc("/v1/subscriptions/", srv.SubscriptionByIDHandler)

    // Health
    mux.HandleFunc("/healthz", srv.HealthHandler)
    mux.HandleFunc("/readyz", srv.ReadyHandler)

    // Observability
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    mux.HandleFunc("/debug/info", srv.DebugJSON)

    addr := ":" + cfg.Port

    httpSrv := &http.Server{
        Addr:              addr,
        Handler:           logMiddleware(mux),
        ReadHeaderTimeout: 5 * time.Second,
    }

    log.Printf("API listening on %s", addr)
    // Start webhook worker
    worker := srv.NewWebhookWorker(cfg.Webhook.MaxAttempts)
    worker.Start()
    if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatalf("server error: %v", err)
    }
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, status: 200}
        next.ServeHTTP(rec, r)
        dur := time.Since(start)
        status := strconv.Itoa(rec.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(dur.Seconds())
        log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
    })
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

// Flush and Hijack pass through so SSE and websocket upgrades keep working
// behind the recorder.
func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    if h, ok := r.ResponseWriter.(http.Hijacker); ok { return h.Hijack() }
    return nil, nil, http.ErrNotSupported
}
