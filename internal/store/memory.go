package store

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"

    "routepilot/internal/model"
)

type memDelivery struct {
    WebhookDelivery
    NextAttemptAt time.Time
    LastError     string
}

// Memory is the in-process Store used when no DATABASE_URL is set.
type Memory struct {
    mu         sync.Mutex
    session    SessionSnapshot
    hasSession bool
    pods       map[string]model.ProofOfDelivery
    subs       map[string]model.Subscription
    deliveries map[string]*memDelivery
}

func NewMemory() *Memory {
    return &Memory{
        pods:       map[string]model.ProofOfDelivery{},
        subs:       map[string]model.Subscription{},
        deliveries: map[string]*memDelivery{},
    }
}

func (m *Memory) SaveSession(ctx context.Context, snap SessionSnapshot) error {
    m.mu.Lock(); defer m.mu.Unlock()
    cp := snap
    cp.Stops = append([]model.Stop(nil), snap.Stops...)
    if cp.SavedAt.IsZero() { cp.SavedAt = time.Now().UTC() }
    m.session = cp
    m.hasSession = true
    return nil
}

func (m *Memory) LoadSession(ctx context.Context) (SessionSnapshot, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if !m.hasSession { return SessionSnapshot{}, ErrNotFound }
    cp := m.session
    cp.Stops = append([]model.Stop(nil), m.session.Stops...)
    return cp, nil
}

func (m *Memory) CreatePoD(ctx context.Context, stopID string, pod model.ProofOfDelivery) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    m.pods[stopID] = pod
    return id, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: append([]string(nil), req.Events...), Secret: req.Secret}
    m.subs[s.ID] = s
    return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []model.Subscription{}
    for _, s := range m.subs {
        for _, ev := range s.Events {
            if ev == eventType || ev == "*" { out = append(out, s); break }
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if limit <= 0 || limit > 500 { limit = 100 }
    ids := make([]string, 0, len(m.subs))
    for id := range m.subs { ids = append(ids, id) }
    sort.Strings(ids)
    var out []model.Subscription
    for _, id := range ids {
        if cursor != "" && id <= cursor { continue }
        out = append(out, m.subs[id])
        if len(out) == limit { break }
    }
    next := ""
    if len(out) == limit { next = out[len(out)-1].ID }
    return out, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if _, ok := m.subs[id]; !ok { return ErrNotFound }
    delete(m.subs, id)
    return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    m.deliveries[id] = &memDelivery{
        WebhookDelivery: WebhookDelivery{ID: id, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"},
        NextAttemptAt:   time.Now(),
    }
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now()
    out := []WebhookDelivery{}
    for _, d := range m.deliveries {
        if d.Status != "pending" && d.Status != "retry" { continue }
        if d.NextAttemptAt.After(now) { continue }
        out = append(out, d.WebhookDelivery)
        if len(out) == limit { break }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d, ok := m.deliveries[id]
    if !ok { return ErrNotFound }
    if success {
        d.Status = "delivered"
        return nil
    }
    d.Attempts++
    d.Status = "retry"
    d.LastError = lastError
    if nextAttemptAt != nil {
        d.NextAttemptAt = *nextAttemptAt
    } else {
        d.NextAttemptAt = time.Now().Add(time.Minute)
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d, ok := m.deliveries[id]
    if !ok { return ErrNotFound }
    d.Status = "failed"
    d.LastError = lastError
    return nil
}
