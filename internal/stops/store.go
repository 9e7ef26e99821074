// Package stops owns the mutable, ordered stop list shared by the UI-facing
// handlers and the route coordinator. All mutations are synchronous and bump
// a generation counter used to fence in-flight optimizations.
package stops

import (
    "errors"
    "sync"
    "time"

    "routepilot/internal/model"
)

var (
    ErrNotFound       = errors.New("stop not found")
    ErrTerminalStatus = errors.New("stop already done or skipped")
    ErrBadTransition  = errors.New("invalid status transition")
    ErrRouteStarted   = errors.New("route already started")
    ErrBadOrder       = errors.New("order is not a permutation of current stops")
    ErrBadSwap        = errors.New("swap requires adjacent pending stops")
)

// ChangeKind tags a change notification.
type ChangeKind string

const (
    ChangeAppend  ChangeKind = "append"
    ChangeRemove  ChangeKind = "remove"
    ChangeStatus  ChangeKind = "status"
    ChangeReorder ChangeKind = "reorder"
)

// Change is delivered to subscribers after each mutation. Generation is the
// counter value after the mutation was applied.
type Change struct {
    Kind       ChangeKind
    StopID     string
    Status     model.StopStatus
    Generation uint64
}

// Store is the single source of truth for the session's stop list.
type Store struct {
    mu           sync.Mutex
    stops        []model.Stop
    gen          uint64
    routeStarted bool
    subs         map[chan Change]struct{}
}

func NewStore() *Store {
    return &Store{subs: map[chan Change]struct{}{}}
}

// Subscribe registers a change listener. The channel is buffered; slow
// consumers lose intermediate notifications, never the generation counter.
func (s *Store) Subscribe() chan Change {
    ch := make(chan Change, 16)
    s.mu.Lock()
    s.subs[ch] = struct{}{}
    s.mu.Unlock()
    return ch
}

func (s *Store) Unsubscribe(ch chan Change) {
    s.mu.Lock()
    if _, ok := s.subs[ch]; ok {
        delete(s.subs, ch)
        close(ch)
    }
    s.mu.Unlock()
}

// notify fans out under the lock; sends never block.
func (s *Store) notify(c Change) {
    for ch := range s.subs {
        select { case ch <- c: default: }
    }
}

// Generation returns the current fencing token value.
func (s *Store) Generation() uint64 {
    s.mu.Lock(); defer s.mu.Unlock()
    return s.gen
}

// All returns the stop list in display order.
func (s *Store) All() []model.Stop {
    s.mu.Lock(); defer s.mu.Unlock()
    return append([]model.Stop(nil), s.stops...)
}

// Pending returns the pending stops in display order.
func (s *Store) Pending() []model.Stop {
    s.mu.Lock(); defer s.mu.Unlock()
    return s.pendingLocked()
}

func (s *Store) pendingLocked() []model.Stop {
    out := []model.Stop{}
    for _, st := range s.stops {
        if st.Status == model.StatusPending { out = append(out, st) }
    }
    return out
}

// Get returns a stop by id.
func (s *Store) Get(id string) (model.Stop, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    for _, st := range s.stops {
        if st.ID == id { return st, nil }
    }
    return model.Stop{}, ErrNotFound
}

// Append adds imported stops to the end of the display order.
func (s *Store) Append(in ...model.Stop) {
    if len(in) == 0 { return }
    s.mu.Lock()
    s.stops = append(s.stops, in...)
    s.gen++
    c := Change{Kind: ChangeAppend, Generation: s.gen}
    if len(in) == 1 { c.StopID = in[0].ID }
    s.notify(c)
    s.mu.Unlock()
}

// Remove deletes a stop. Only permitted before the route is started.
func (s *Store) Remove(id string) error {
    s.mu.Lock(); defer s.mu.Unlock()
    if s.routeStarted { return ErrRouteStarted }
    for i, st := range s.stops {
        if st.ID == id {
            s.stops = append(s.stops[:i], s.stops[i+1:]...)
            s.gen++
            s.notify(Change{Kind: ChangeRemove, StopID: id, Generation: s.gen})
            return nil
        }
    }
    return ErrNotFound
}

// MarkStatus transitions a stop out of pending. done carries the proof
// payload; skipped carries none. Terminal states never transition again.
func (s *Store) MarkStatus(id string, status model.StopStatus, pod *model.PoDIn) error {
    if status != model.StatusDone && status != model.StatusSkipped {
        return ErrBadTransition
    }
    s.mu.Lock(); defer s.mu.Unlock()
    for i := range s.stops {
        if s.stops[i].ID != id { continue }
        if s.stops[i].Status.Terminal() { return ErrTerminalStatus }
        s.stops[i].Status = status
        if status == model.StatusDone {
            p := &model.ProofOfDelivery{Timestamp: time.Now().UTC()}
            if pod != nil {
                p.Note = pod.Note
                p.PhotoRef = pod.PhotoRef
            }
            s.stops[i].PoD = p
        }
        s.gen++
        s.notify(Change{Kind: ChangeStatus, StopID: id, Status: status, Generation: s.gen})
        return nil
    }
    return ErrNotFound
}

// Reorder replaces the display order. ids must be a permutation of the
// current stop set; identity, status and proof payloads are untouched.
func (s *Store) Reorder(ids []string) error {
    s.mu.Lock(); defer s.mu.Unlock()
    if len(ids) != len(s.stops) { return ErrBadOrder }
    byID := make(map[string]model.Stop, len(s.stops))
    for _, st := range s.stops { byID[st.ID] = st }
    next := make([]model.Stop, 0, len(ids))
    for _, id := range ids {
        st, ok := byID[id]
        if !ok { return ErrBadOrder }
        delete(byID, id)
        next = append(next, st)
    }
    s.stops = next
    s.gen++
    s.notify(Change{Kind: ChangeReorder, Generation: s.gen})
    return nil
}

// SwapAdjacent swaps the stops at display positions a and b. The positions
// must be neighbors and both stops pending; completed and skipped stops stay
// pinned where they were recorded.
func (s *Store) SwapAdjacent(a, b int) error {
    s.mu.Lock(); defer s.mu.Unlock()
    if a > b { a, b = b, a }
    if a < 0 || b >= len(s.stops) || b-a != 1 { return ErrBadSwap }
    if s.stops[a].Status != model.StatusPending || s.stops[b].Status != model.StatusPending {
        return ErrBadSwap
    }
    s.stops[a], s.stops[b] = s.stops[b], s.stops[a]
    s.gen++
    s.notify(Change{Kind: ChangeReorder, Generation: s.gen})
    return nil
}

// SetRouteStarted marks the session as in-flight; removal is locked out.
func (s *Store) SetRouteStarted(v bool) {
    s.mu.Lock()
    s.routeStarted = v
    s.mu.Unlock()
}

// RouteStarted reports whether delivery execution has begun.
func (s *Store) RouteStarted() bool {
    s.mu.Lock(); defer s.mu.Unlock()
    return s.routeStarted
}

// Snapshot returns the full list for persistence.
func (s *Store) Snapshot() []model.Stop {
    return s.All()
}

// Restore replaces the list from a persisted snapshot. The generation bump
// invalidates anything computed before the restore.
func (s *Store) Restore(list []model.Stop) {
    s.mu.Lock()
    s.stops = append([]model.Stop(nil), list...)
    s.gen++
    s.mu.Unlock()
}
