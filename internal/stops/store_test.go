package stops

import (
    "testing"

    "routepilot/internal/model"
)

func geo(lat, lng float64) *model.GeoPoint { return &model.GeoPoint{Lat: lat, Lng: lng} }

func seed(t *testing.T, n int) *Store {
    t.Helper()
    s := NewStore()
    for i := 0; i < n; i++ {
        s.Append(model.Stop{ID: string(rune('a' + i)), Status: model.StatusPending, Geo: geo(40+float64(i)/100, -74)})
    }
    return s
}

func order(s *Store) string {
    out := ""
    for _, st := range s.All() { out += st.ID }
    return out
}

func TestGenerationBumpsOnEveryMutation(t *testing.T) {
    s := seed(t, 3)
    g := s.Generation()
    if g == 0 { t.Fatal("seed should have bumped generation") }
    if err := s.MarkStatus("a", model.StatusDone, nil); err != nil { t.Fatal(err) }
    if s.Generation() != g+1 { t.Fatalf("mark: want %d, got %d", g+1, s.Generation()) }
    if err := s.SwapAdjacent(1, 2); err != nil { t.Fatal(err) }
    if s.Generation() != g+2 { t.Fatalf("swap: want %d, got %d", g+2, s.Generation()) }
}

func TestMarkStatusTerminalIsFinal(t *testing.T) {
    s := seed(t, 2)
    if err := s.MarkStatus("a", model.StatusDone, &model.PoDIn{Note: "porch"}); err != nil {
        t.Fatalf("MarkStatus: %v", err)
    }
    st, _ := s.Get("a")
    if st.PoD == nil || st.PoD.Note != "porch" || st.PoD.Timestamp.IsZero() {
        t.Fatalf("proof not attached: %+v", st.PoD)
    }
    if err := s.MarkStatus("a", model.StatusSkipped, nil); err != ErrTerminalStatus {
        t.Fatalf("want ErrTerminalStatus, got %v", err)
    }
    if err := s.MarkStatus("a", model.StatusDone, nil); err != ErrTerminalStatus {
        t.Fatalf("re-complete: want ErrTerminalStatus, got %v", err)
    }
    // skip carries no proof
    if err := s.MarkStatus("b", model.StatusSkipped, nil); err != nil { t.Fatal(err) }
    st, _ = s.Get("b")
    if st.PoD != nil { t.Fatalf("skipped stop should carry no proof") }
}

func TestMarkStatusRejectsPendingTarget(t *testing.T) {
    s := seed(t, 1)
    if err := s.MarkStatus("a", model.StatusPending, nil); err != ErrBadTransition {
        t.Fatalf("want ErrBadTransition, got %v", err)
    }
}

func TestRemoveLockedAfterRouteStart(t *testing.T) {
    s := seed(t, 2)
    s.SetRouteStarted(true)
    if err := s.Remove("a"); err != ErrRouteStarted {
        t.Fatalf("want ErrRouteStarted, got %v", err)
    }
    s.SetRouteStarted(false)
    if err := s.Remove("a"); err != nil { t.Fatalf("Remove: %v", err) }
    if _, err := s.Get("a"); err != ErrNotFound { t.Fatalf("want ErrNotFound, got %v", err) }
}

func TestReorderRequiresPermutation(t *testing.T) {
    s := seed(t, 3)
    if err := s.Reorder([]string{"c", "a", "b"}); err != nil { t.Fatalf("Reorder: %v", err) }
    if got := order(s); got != "cab" { t.Fatalf("order: %s", got) }
    if err := s.Reorder([]string{"a", "b"}); err != ErrBadOrder { t.Fatalf("short: %v", err) }
    if err := s.Reorder([]string{"a", "b", "b"}); err != ErrBadOrder { t.Fatalf("dup: %v", err) }
    if err := s.Reorder([]string{"a", "b", "x"}); err != ErrBadOrder { t.Fatalf("unknown: %v", err) }
    if got := order(s); got != "cab" { t.Fatalf("failed reorder must not change order: %s", got) }
}

func TestSwapAdjacent(t *testing.T) {
    s := seed(t, 4)
    if err := s.SwapAdjacent(1, 2); err != nil { t.Fatalf("swap: %v", err) }
    if got := order(s); got != "acbd" { t.Fatalf("order: %s", got) }
    // order of arguments does not matter
    if err := s.SwapAdjacent(2, 1); err != nil { t.Fatalf("swap reversed args: %v", err) }
    if got := order(s); got != "abcd" { t.Fatalf("order: %s", got) }
    if err := s.SwapAdjacent(0, 2); err != ErrBadSwap { t.Fatalf("non-adjacent: %v", err) }
    if err := s.SwapAdjacent(3, 4); err != ErrBadSwap { t.Fatalf("out of range: %v", err) }
    if err := s.MarkStatus("b", model.StatusDone, nil); err != nil { t.Fatal(err) }
    if err := s.SwapAdjacent(0, 1); err != ErrBadSwap { t.Fatalf("terminal neighbor: %v", err) }
}

func TestSubscribeSeesStatusChange(t *testing.T) {
    s := seed(t, 2)
    ch := s.Subscribe()
    defer s.Unsubscribe(ch)
    if err := s.MarkStatus("b", model.StatusDone, nil); err != nil { t.Fatal(err) }
    c := <-ch
    if c.Kind != ChangeStatus || c.StopID != "b" || c.Status != model.StatusDone {
        t.Fatalf("unexpected change: %+v", c)
    }
    if c.Generation != s.Generation() { t.Fatalf("change generation stale: %d vs %d", c.Generation, s.Generation()) }
}

func TestNotifyNeverBlocks(t *testing.T) {
    s := seed(t, 1)
    ch := s.Subscribe()
    defer s.Unsubscribe(ch)
    // Overflow the buffer; Append must not block even with no reader.
    for i := 0; i < 100; i++ {
        s.Append(model.Stop{ID: string(rune('A' + i%26)), Status: model.StatusPending})
    }
}

func TestRestoreBumpsGeneration(t *testing.T) {
    s := seed(t, 2)
    snap := s.Snapshot()
    g := s.Generation()
    s.Restore(snap)
    if s.Generation() != g+1 { t.Fatalf("restore must bump generation") }
    if got := order(s); got != "ab" { t.Fatalf("restore lost stops: %s", got) }
}
