package store

import (
    "context"
    "testing"
    "time"

    "routepilot/internal/model"
)

func TestMemorySessionRoundTrip(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    if _, err := m.LoadSession(ctx); err != ErrNotFound {
        t.Fatalf("empty store: want ErrNotFound, got %v", err)
    }
    snap := SessionSnapshot{
        Stops:      []model.Stop{{ID: "s1", Label: "Stop 1", Status: model.StatusPending}},
        Generation: 7,
    }
    if err := m.SaveSession(ctx, snap); err != nil { t.Fatalf("SaveSession: %v", err) }
    got, err := m.LoadSession(ctx)
    if err != nil { t.Fatalf("LoadSession: %v", err) }
    if got.Generation != 7 || len(got.Stops) != 1 || got.Stops[0].ID != "s1" {
        t.Fatalf("unexpected snapshot: %+v", got)
    }
    if got.SavedAt.IsZero() { t.Fatalf("SavedAt not stamped") }
}

func TestMemorySubscriptionsByEvent(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    s1, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://a.example/hook", Events: []string{"route.updated"}})
    m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://b.example/hook", Events: []string{"stop.completed"}})
    wild, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://c.example/hook", Events: []string{"*"}})

    subs, err := m.GetSubscriptionsForEvent(ctx, "route.updated")
    if err != nil { t.Fatalf("GetSubscriptionsForEvent: %v", err) }
    if len(subs) != 2 { t.Fatalf("want 2 matches, got %d", len(subs)) }
    found := map[string]bool{}
    for _, s := range subs { found[s.ID] = true }
    if !found[s1.ID] || !found[wild.ID] { t.Fatalf("wrong matches: %v", found) }

    if err := m.DeleteSubscription(ctx, s1.ID); err != nil { t.Fatalf("DeleteSubscription: %v", err) }
    if err := m.DeleteSubscription(ctx, s1.ID); err != ErrNotFound { t.Fatalf("want ErrNotFound, got %v", err) }
}

func TestMemoryWebhookQueue(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    id, err := m.EnqueueWebhook(ctx, "", "route.updated", "https://a.example/hook", "sec", []byte(`{}`))
    if err != nil { t.Fatalf("EnqueueWebhook: %v", err) }

    due, err := m.FetchDueWebhookDeliveries(ctx, 10)
    if err != nil { t.Fatalf("FetchDue: %v", err) }
    if len(due) != 1 || due[0].ID != id { t.Fatalf("want one due delivery, got %+v", due) }

    next := time.Now().Add(time.Hour)
    if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil { t.Fatalf("Mark: %v", err) }
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 0 { t.Fatalf("retry scheduled in future should not be due") }

    if err := m.FailWebhookDelivery(ctx, id, "gave up", 500, 3); err != nil { t.Fatalf("Fail: %v", err) }
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 0 { t.Fatalf("failed delivery should not be due") }
}
