package api

import (
    "context"
    "time"

    "routepilot/internal/store"
)

// Notify fans a coordinator event out to stream clients and the webhook
// queue, then snapshots the session. Satisfies plan.Notifier.
func (s *Server) Notify(eventType string, data map[string]any) {
    s.Broker.Publish(SSEEvent{Type: eventType, Data: data})
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    s.Pub.Emit(ctx, eventType, data)
    s.persist(ctx)
}

// persist writes the current stop list to the session store. Failures are
// tolerated; the in-memory state is authoritative while the process lives.
func (s *Server) persist(ctx context.Context) {
    _ = s.Store.SaveSession(ctx, store.SessionSnapshot{
        Stops:      s.Stops.Snapshot(),
        Generation: s.Stops.Generation(),
        SavedAt:    time.Now().UTC(),
    })
}
