package store

import (
    "context"
    "errors"
    "time"

    "routepilot/internal/model"
)

var ErrNotFound = errors.New("not found")

// SessionSnapshot is the persisted state of a driver session: the stop list
// in its current order plus the generation it was captured at.
type SessionSnapshot struct {
    Stops      []model.Stop `json:"stops"`
    Generation uint64       `json:"generation"`
    SavedAt    time.Time    `json:"savedAt"`
}

// Store persists session snapshots, proof-of-delivery records, webhook
// subscriptions and the webhook delivery queue.
type Store interface {
    SaveSession(ctx context.Context, snap SessionSnapshot) error
    LoadSession(ctx context.Context) (SessionSnapshot, error)

    CreatePoD(ctx context.Context, stopID string, pod model.ProofOfDelivery) (string, error)

    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
    ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error)
    DeleteSubscription(ctx context.Context, id string) error

    EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}
