package api

import (
    "sync"
)

// SSEEvent is a session event fanned out to SSE and websocket clients.
type SSEEvent struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data"`
}

type EventBroker interface {
    Subscribe() chan SSEEvent
    Unsubscribe(ch chan SSEEvent)
    Publish(evt SSEEvent)
}

// Broker is the in-process EventBroker. The service runs one driver
// session, so there is a single topic.
type Broker struct {
    mu   sync.Mutex
    subs map[chan SSEEvent]struct{}
}

func NewBroker() *Broker {
    return &Broker{subs: map[chan SSEEvent]struct{}{}}
}

func (b *Broker) Subscribe() chan SSEEvent {
    ch := make(chan SSEEvent, 8)
    b.mu.Lock()
    b.subs[ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(ch chan SSEEvent) {
    b.mu.Lock()
    if _, ok := b.subs[ch]; ok {
        delete(b.subs, ch)
        close(ch)
    }
    b.mu.Unlock()
}

func (b *Broker) Publish(evt SSEEvent) {
    b.mu.Lock()
    for ch := range b.subs {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}
