// Package api implements the HTTP surface of the route planning service.
package api

import (
    "context"
    "errors"
    "strings"

    "routepilot/internal/config"
    "routepilot/internal/plan"
    "routepilot/internal/stops"
    "routepilot/internal/store"
    "routepilot/internal/webhooks"
)

type Server struct {
    Stops     *stops.Store
    Coord     *plan.Coordinator
    Store     store.Store
    Pub       *webhooks.Publisher
    Broker    EventBroker
    Positions *PositionCache
}

// NewServer wires the persistence and fan-out layers. If DatabaseURL is
// unset, uses the in-memory store; if RedisURL is unset, events fan out
// in-process only.
func NewServer(cfg config.Config, st *stops.Store, coord *plan.Coordinator) (*Server, error) {
    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        if cfg.Migrate {
            _ = sp.MigrateDir("db/migrations")
        }
        s = sp
    }
    var broker EventBroker
    if cfg.RedisURL != "" {
        if rb, err := NewRedisBroker(cfg.RedisURL); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }
    return &Server{
        Stops:     st,
        Coord:     coord,
        Store:     s,
        Pub:       webhooks.NewPublisher(s),
        Broker:    broker,
        Positions: NewPositionCache(),
    }, nil
}

// RestoreSession reloads the stop list persisted by a previous process.
// Missing snapshots are fine; a fresh session starts empty.
func (s *Server) RestoreSession(ctx context.Context) error {
    snap, err := s.Store.LoadSession(ctx)
    if err != nil {
        if errors.Is(err, store.ErrNotFound) { return nil }
        return err
    }
    s.Stops.Restore(snap.Stops)
    return nil
}

// NewWebhookWorker creates the background delivery worker.
func (s *Server) NewWebhookWorker(maxAttempts int) *webhooks.Worker {
    w := webhooks.NewWorker(s.Store)
    if maxAttempts > 0 { w.MaxAttempts = maxAttempts }
    return w
}
