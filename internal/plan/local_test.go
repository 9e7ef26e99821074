package plan

import (
	"context"
	"errors"
	"testing"

	"routepilot/internal/directions"
	"routepilot/internal/model"
)

func TestLocalOptimizerOrdersByProximity(t *testing.T) {
	l := NewLocalOptimizer()
	// Stops laid out on a line north of the origin; nearest-first is optimal.
	pending := []model.Stop{
		pendingStop("far", 40.90),
		pendingStop("near", 40.71),
		pendingStop("mid", 40.80),
	}
	res, err := l.Optimize(context.Background(), testOrigin, pending)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	ids := res.StopIDs()
	if ids[0] != "near" || ids[1] != "mid" || ids[2] != "far" {
		t.Fatalf("order: %v", ids)
	}
	if res.TotalDistanceM <= 0 {
		t.Fatalf("distance estimate missing: %f", res.TotalDistanceM)
	}
	if res.Polyline != "" || res.TotalDurationS != 0 {
		t.Fatalf("local results carry no geometry or durations: %+v", res)
	}
}

func TestLocalOptimizerPermutation(t *testing.T) {
	l := NewLocalOptimizer()
	pending := []model.Stop{
		pendingStop("a", 40.75),
		pendingStop("b", 40.71),
		pendingStop("c", 40.79),
		pendingStop("d", 40.73),
	}
	res, err := l.Optimize(context.Background(), testOrigin, pending)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	seen := map[string]bool{}
	for _, id := range res.StopIDs() {
		if seen[id] {
			t.Fatalf("duplicate stop %s in order", id)
		}
		seen[id] = true
	}
	if len(seen) != len(pending) {
		t.Fatalf("order is not a permutation: %v", res.StopIDs())
	}
}

func TestLocalOptimizerEdgeCases(t *testing.T) {
	l := NewLocalOptimizer()
	res, err := l.Optimize(context.Background(), testOrigin, nil)
	if err != nil || !res.Empty() {
		t.Fatalf("empty: %v %v", res, err)
	}
	res, err = l.Optimize(context.Background(), testOrigin, []model.Stop{pendingStop("only", 40.71)})
	if err != nil || len(res.OrderedStops) != 1 {
		t.Fatalf("single: %v %v", res, err)
	}
	bad := model.Stop{ID: "x", Status: model.StatusPending}
	if _, err := l.Optimize(context.Background(), testOrigin, []model.Stop{bad}); !errors.Is(err, directions.ErrUnroutableStop) {
		t.Fatalf("want ErrUnroutableStop, got %v", err)
	}
}

func TestManualOrderIsVerbatim(t *testing.T) {
	pending := []model.Stop{pendingStop("z", 40.9), pendingStop("a", 40.1), pendingStop("m", 40.5)}
	res := ManualOrder(pending)
	ids := res.StopIDs()
	if ids[0] != "z" || ids[1] != "a" || ids[2] != "m" {
		t.Fatalf("manual order must preserve input order: %v", ids)
	}
	if res.Polyline != "" || res.TotalDistanceM != 0 || res.TotalDurationS != 0 || len(res.DecodedPolyline) != 0 {
		t.Fatalf("manual order must carry no estimates: %+v", res)
	}
	// The result owns its slice; mutating it must not touch the input.
	res.OrderedStops[0].Label = "changed"
	if pending[0].Label == "changed" {
		t.Fatal("manual order aliases caller slice")
	}
}
