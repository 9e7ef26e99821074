// Package plan owns the active route: it decides when re-optimization runs,
// serializes provider calls, and fences results against concurrent stop-list
// mutations so a stale answer is never applied.
package plan

import (
	"context"
	"log"
	"sync"
	"time"

	"routepilot/internal/metrics"
	"routepilot/internal/model"
	"routepilot/internal/stops"
)

// Optimizer is the sequencing dependency, satisfied by directions.Client.
type Optimizer interface {
	Optimize(ctx context.Context, origin model.Coordinate, pending []model.Stop) (model.RouteResult, error)
}

// Notifier receives coordinator events for fan-out (SSE, websocket, webhooks).
type Notifier interface {
	Notify(eventType string, data map[string]any)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(string, map[string]any) {}

// Event types published by the coordinator.
const (
	EventRouteOptimizing = "route.optimizing"
	EventRouteUpdated    = "route.updated"
	EventRouteFailed     = "route.failed"
	EventRouteCompleted  = "route.completed"
	EventStopCompleted   = "stop.completed"
	EventStopSkipped     = "stop.skipped"
)

// Triggers, used for metrics labels and re-trigger bookkeeping.
const (
	triggerInitial    = "initial"
	triggerCompletion = "completion"
	triggerRefresh    = "refresh"
)

// Coordinator arbitrates the single active RouteResult for a session.
//
// Concurrency discipline: at most one optimization is in flight. Every run
// captures the stop-store generation at submission; on resolution the result
// is applied only when the generation is unchanged, otherwise it is discarded
// and the run repeats against fresh state. Stop-status changes observed while
// a run is in flight therefore can never resurface a completed stop.
type Coordinator struct {
	store     *stops.Store
	optimizer Optimizer
	notify    Notifier
	timeout   time.Duration

	mu         sync.Mutex
	active     *model.RouteResult
	optimizing bool
	retrigger  bool
	origin     model.Coordinate
	originSet  bool
	manualGen  uint64
	manualSet  bool

	changes chan stops.Change
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Option tweaks coordinator construction.
type Option func(*Coordinator)

// WithNotifier wires event fan-out.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notify = n }
}

// WithTimeout bounds each optimization run.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

func NewCoordinator(store *stops.Store, optimizer Optimizer, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		optimizer: optimizer,
		notify:    NopNotifier{},
		timeout:   45 * time.Second,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetNotifier replaces the event sink. Call before Start.
func (c *Coordinator) SetNotifier(n Notifier) {
	if n != nil {
		c.notify = n
	}
}

// Start subscribes to stop-store changes and begins observing completions.
func (c *Coordinator) Start() {
	c.changes = c.store.Subscribe()
	c.wg.Add(1)
	go c.watch()
}

// Close detaches from the store and waits for the watcher to exit. Any
// optimization still in flight resolves against a closed coordinator and is
// discarded by the generation check as usual.
func (c *Coordinator) Close() {
	close(c.stopCh)
	c.store.Unsubscribe(c.changes)
	c.wg.Wait()
}

// ActiveRoute returns the current navigation order, or nil when none is set.
func (c *Coordinator) ActiveRoute() *model.RouteResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	cp := *c.active
	cp.OrderedStops = append([]model.Stop(nil), c.active.OrderedStops...)
	cp.DecodedPolyline = append([]model.Coordinate(nil), c.active.DecodedPolyline...)
	return &cp
}

// IsOptimizing reports whether a provider call is in flight.
func (c *Coordinator) IsOptimizing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.optimizing
}

// Status is the compact health view for polling clients.
func (c *Coordinator) Status() model.RouteStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.RouteStatus{
		Optimizing: c.optimizing,
		Generation: c.store.Generation(),
		HasRoute:   c.active != nil,
	}
}

// RequestInitialPlan records the origin, clears any previous route, and
// kicks off an asynchronous optimization. Fire-and-forget: clients observe
// the result through ActiveRoute or the event stream.
func (c *Coordinator) RequestInitialPlan(origin model.Coordinate) {
	c.mu.Lock()
	c.origin = origin
	c.originSet = true
	c.active = nil
	c.manualSet = false
	c.mu.Unlock()
	c.store.SetRouteStarted(true)
	c.launch(triggerInitial)
}

// RequestManualSwap swaps two adjacent pending stops and installs the
// user's explicit order as the active route without any provider call.
// A swap touching a non-pending stop is rejected by the store and leaves
// all state unchanged.
func (c *Coordinator) RequestManualSwap(indexA, indexB int) error {
	if err := c.store.SwapAdjacent(indexA, indexB); err != nil {
		return err
	}

	res := ManualOrder(c.store.Pending())
	c.mu.Lock()
	c.active = &res
	// Remember the generation this order was installed at. While it is the
	// latest mutation, no refresh may override the user's explicit order.
	c.manualGen = c.store.Generation()
	c.manualSet = true
	c.mu.Unlock()
	metrics.Optimizations.WithLabelValues("manual", "ok").Inc()
	c.notify.Notify(EventRouteUpdated, map[string]any{
		"source": "manual",
		"order":  res.StopIDs(),
	})
	return nil
}

// watch reacts to stop-store mutations. Only status transitions trigger
// re-optimization here; manual reorders are handled synchronously by
// RequestManualSwap and appends wait for an explicit plan request.
func (c *Coordinator) watch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		case ch, ok := <-c.changes:
			if !ok {
				return
			}
			if ch.Kind == stops.ChangeStatus {
				c.onStatusChange(ch)
			}
		}
	}
}

// onStatusChange handles a stop leaving pending. The active route is cleared
// immediately so stale geometry never lingers, then the remaining pending
// set decides whether a provider call is worthwhile.
func (c *Coordinator) onStatusChange(ch stops.Change) {
	c.mu.Lock()
	c.active = nil
	originKnown := c.originSet
	c.mu.Unlock()

	evt := EventStopCompleted
	if ch.Status == model.StatusSkipped {
		evt = EventStopSkipped
	}
	c.notify.Notify(evt, map[string]any{"stopId": ch.StopID, "generation": ch.Generation})

	// Exclude the just-changed stop by identity rather than trusting its
	// status field in any snapshot taken concurrently.
	remaining := excludeByID(c.store.Pending(), ch.StopID)
	if len(remaining) == 0 {
		c.store.SetRouteStarted(false)
		c.notify.Notify(EventRouteCompleted, map[string]any{"generation": ch.Generation})
		return
	}
	if len(remaining) == 1 || !originKnown {
		// Nothing to sequence; the sole remaining stop is its own order.
		return
	}
	c.launch(triggerCompletion)
}

// launch starts an optimization run unless one is already in flight, in
// which case the run is deferred until the in-flight one resolves.
func (c *Coordinator) launch(trigger string) {
	c.mu.Lock()
	if !c.originSet {
		c.mu.Unlock()
		return
	}
	if c.optimizing {
		c.retrigger = true
		c.mu.Unlock()
		return
	}
	c.optimizing = true
	origin := c.origin
	c.mu.Unlock()

	gen := c.store.Generation()
	pending := routable(c.store.Pending())

	c.notify.Notify(EventRouteOptimizing, map[string]any{"trigger": trigger, "stops": len(pending)})

	c.wg.Add(1)
	go c.run(trigger, origin, pending, gen)
}

// refresh re-runs optimization after a run resolved against moved state.
// It stands down when the superseding mutation should hold on its own: a
// manual order installed at the current generation stays the user's order,
// and a routable pending set of one or zero has nothing left to sequence.
func (c *Coordinator) refresh() {
	c.mu.Lock()
	manual := c.manualSet && c.manualGen == c.store.Generation()
	c.mu.Unlock()
	if manual {
		return
	}
	if len(routable(c.store.Pending())) <= 1 {
		return
	}
	c.launch(triggerRefresh)
}

func (c *Coordinator) run(trigger string, origin model.Coordinate, pending []model.Stop, gen uint64) {
	defer c.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.optimizer.Optimize(ctx, origin, pending)

	c.mu.Lock()
	c.optimizing = false
	retrig := c.retrigger
	c.retrigger = false
	stale := c.store.Generation() != gen
	if stale {
		c.mu.Unlock()
		metrics.StaleResults.Inc()
		metrics.Optimizations.WithLabelValues(trigger, "stale").Inc()
		// The stop set moved under us; the computed order may reference a
		// completed stop. Discard and recompute against fresh state.
		c.refresh()
		return
	}
	if err != nil {
		c.mu.Unlock()
		metrics.Optimizations.WithLabelValues(trigger, "error").Inc()
		log.Printf("optimization failed (%s): %v", trigger, err)
		c.notify.Notify(EventRouteFailed, map[string]any{"trigger": trigger, "error": err.Error()})
		if retrig {
			c.refresh()
		}
		return
	}
	c.active = &res
	c.mu.Unlock()
	metrics.Optimizations.WithLabelValues(trigger, "ok").Inc()
	c.notify.Notify(EventRouteUpdated, map[string]any{
		"source":    "optimizer",
		"order":     res.StopIDs(),
		"distanceM": res.TotalDistanceM,
		"durationS": res.TotalDurationS,
	})
	if retrig {
		c.refresh()
	}
}

func excludeByID(list []model.Stop, id string) []model.Stop {
	out := make([]model.Stop, 0, len(list))
	for _, s := range list {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// routable filters to stops eligible for the optimizer: pending with a
// real geocode. Stops without one stay in the display list but are never
// submitted.
func routable(list []model.Stop) []model.Stop {
	out := make([]model.Stop, 0, len(list))
	for _, s := range list {
		if s.Routable() {
			out = append(out, s)
		}
	}
	return out
}
