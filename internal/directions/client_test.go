package directions

import (
	"context"
	"errors"
	"testing"

	"routepilot/internal/geo"
	"routepilot/internal/model"
)

type fakeProvider struct {
	optimized ProviderRoute
	direct    ProviderRoute
	err       error
	calls     int
}

func (f *fakeProvider) ComputeOptimizedRoute(ctx context.Context, origin model.Coordinate, waypoints []model.Coordinate, destination model.Coordinate) (ProviderRoute, error) {
	f.calls++
	return f.optimized, f.err
}

func (f *fakeProvider) ComputeRoute(ctx context.Context, origin, destination model.Coordinate) (ProviderRoute, error) {
	f.calls++
	return f.direct, f.err
}

func stop(id string, lat, lng float64) model.Stop {
	return model.Stop{ID: id, Status: model.StatusPending, Geo: &model.GeoPoint{Lat: lat, Lng: lng}}
}

var origin = model.Coordinate{Latitude: 40.70, Longitude: -74.00}

func TestOptimizeAppliesWaypointOrder(t *testing.T) {
	poly := geo.EncodePolyline([]model.Coordinate{{Latitude: 40.70, Longitude: -74.00}, {Latitude: 40.73, Longitude: -74.03}})
	fp := &fakeProvider{optimized: ProviderRoute{
		WaypointOrder:   []int{2, 0, 1},
		Legs:            []ProviderLeg{{DistanceM: 100, DurationS: 60}, {DistanceM: 200, DurationS: 120}, {DistanceM: 300, DurationS: 180}, {DistanceM: 50, DurationS: 30}},
		EncodedPolyline: poly,
	}}
	c := NewClient(fp)

	pending := []model.Stop{stop("a", 40.71, -74.01), stop("b", 40.72, -74.02), stop("c", 40.73, -74.03), stop("d", 40.74, -74.04)}
	res, err := c.Optimize(context.Background(), origin, pending)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	want := []string{"c", "a", "b", "d"}
	got := res.StopIDs()
	if len(got) != len(want) {
		t.Fatalf("order length: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: want %v, got %v", want, got)
		}
	}
	if res.TotalDistanceM != 650 || res.TotalDurationS != 390 {
		t.Fatalf("totals: %f %f", res.TotalDistanceM, res.TotalDurationS)
	}
	if len(res.DecodedPolyline) != 2 {
		t.Fatalf("polyline not decoded: %d points", len(res.DecodedPolyline))
	}
}

func TestOptimizeEmptyAndSingleShortCircuit(t *testing.T) {
	fp := &fakeProvider{direct: ProviderRoute{Legs: []ProviderLeg{{DistanceM: 120, DurationS: 90}}}}
	c := NewClient(fp)

	res, err := c.Optimize(context.Background(), origin, nil)
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("empty input should yield empty result: %+v", res)
	}
	if fp.calls != 0 {
		t.Fatalf("empty input must not call provider (%d calls)", fp.calls)
	}

	res, err = c.Optimize(context.Background(), origin, []model.Stop{stop("only", 40.71, -74.01)})
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if len(res.OrderedStops) != 1 || res.OrderedStops[0].ID != "only" {
		t.Fatalf("single stop order: %+v", res.OrderedStops)
	}
	if res.TotalDistanceM != 120 {
		t.Fatalf("single stop should use direct route totals: %f", res.TotalDistanceM)
	}
}

func TestOptimizeSingleStopToleratesProviderFailure(t *testing.T) {
	fp := &fakeProvider{err: ErrProviderUnavailable}
	c := NewClient(fp)
	res, err := c.Optimize(context.Background(), origin, []model.Stop{stop("only", 40.71, -74.01)})
	if err != nil {
		t.Fatalf("single stop ordering is determined; provider failure must not surface: %v", err)
	}
	if len(res.OrderedStops) != 1 || res.Polyline != "" {
		t.Fatalf("expected bare single-stop result: %+v", res)
	}
}

func TestOptimizeRejectsUngecodedStop(t *testing.T) {
	c := NewClient(&fakeProvider{})
	bad := model.Stop{ID: "x", Status: model.StatusPending}
	if _, err := c.Optimize(context.Background(), origin, []model.Stop{bad}); !errors.Is(err, ErrUnroutableStop) {
		t.Fatalf("want ErrUnroutableStop, got %v", err)
	}
}

func TestOptimizePropagatesProviderError(t *testing.T) {
	fp := &fakeProvider{err: ErrProviderRejected}
	c := NewClient(fp)
	pending := []model.Stop{stop("a", 40.71, -74.01), stop("b", 40.72, -74.02)}
	if _, err := c.Optimize(context.Background(), origin, pending); !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("want ErrProviderRejected, got %v", err)
	}
}

func TestOptimizeMalformedWaypointOrder(t *testing.T) {
	pending := []model.Stop{stop("a", 40.71, -74.01), stop("b", 40.72, -74.02), stop("c", 40.73, -74.03)}
	legs := []ProviderLeg{{DistanceM: 1, DurationS: 1}}
	cases := map[string][]int{
		"short":        {0},
		"out of range": {0, 5},
		"duplicate":    {0, 0},
		"negative":     {0, -1},
	}
	for name, order := range cases {
		fp := &fakeProvider{optimized: ProviderRoute{WaypointOrder: order, Legs: legs}}
		c := NewClient(fp)
		if _, err := c.Optimize(context.Background(), origin, pending); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%s: want ErrMalformedResponse, got %v", name, err)
		}
	}
}

func TestOptimizeMalformedRoute(t *testing.T) {
	pending := []model.Stop{stop("a", 40.71, -74.01), stop("b", 40.72, -74.02)}
	// no legs
	fp := &fakeProvider{optimized: ProviderRoute{WaypointOrder: []int{0}}}
	if _, err := NewClient(fp).Optimize(context.Background(), origin, pending); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("no legs: want ErrMalformedResponse, got %v", err)
	}
	// undecodable geometry
	fp = &fakeProvider{optimized: ProviderRoute{WaypointOrder: []int{0}, Legs: []ProviderLeg{{DistanceM: 1, DurationS: 1}}, EncodedPolyline: "\x01"}}
	if _, err := NewClient(fp).Optimize(context.Background(), origin, pending); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("bad polyline: want ErrMalformedResponse, got %v", err)
	}
}
