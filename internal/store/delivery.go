package store

// WebhookDelivery is a queued webhook attempt.
type WebhookDelivery struct {
    ID             string
    SubscriptionID string
    EventType      string
    URL            string
    Secret         string
    Payload        []byte
    Status         string
    Attempts       int
}
