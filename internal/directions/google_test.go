package directions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"routepilot/internal/model"
)

func newTestProvider(t *testing.T, url string) *GoogleProvider {
	t.Helper()
	g, err := NewGoogleProvider("test-key", WithBaseURL(url), WithRateLimit(1000, 1000))
	if err != nil {
		t.Fatalf("NewGoogleProvider: %v", err)
	}
	return g
}

func TestComputeOptimizedRouteRequestShape(t *testing.T) {
	var gotPath, gotKey, gotMask string
	var gotBody computeRoutesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotMask = r.Header.Get("X-Goog-FieldMask")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"routes":[{
			"optimizedIntermediateWaypointIndex":[1,0],
			"legs":[{"distanceMeters":100,"duration":"60s"},{"distanceMeters":250.5,"duration":"120s"},{"distanceMeters":80,"duration":"45.5s"}],
			"polyline":{"encodedPolyline":""}
		}]}`))
	}))
	defer srv.Close()

	g := newTestProvider(t, srv.URL)
	wps := []model.Coordinate{{Latitude: 40.71, Longitude: -74.01}, {Latitude: 40.72, Longitude: -74.02}}
	route, err := g.ComputeOptimizedRoute(context.Background(), origin, wps, model.Coordinate{Latitude: 40.73, Longitude: -74.03})
	if err != nil {
		t.Fatalf("ComputeOptimizedRoute: %v", err)
	}
	if gotPath != "/directions/v2:computeRoutes" {
		t.Fatalf("path: %s", gotPath)
	}
	if gotKey != "test-key" || gotMask == "" {
		t.Fatalf("headers: key=%q mask=%q", gotKey, gotMask)
	}
	if !gotBody.OptimizeWaypointOrder || len(gotBody.Intermediates) != 2 {
		t.Fatalf("request body: optimize=%v intermediates=%d", gotBody.OptimizeWaypointOrder, len(gotBody.Intermediates))
	}
	if gotBody.TravelMode != "DRIVE" || gotBody.RoutingPreference != "TRAFFIC_AWARE" {
		t.Fatalf("mode/preference: %s %s", gotBody.TravelMode, gotBody.RoutingPreference)
	}
	if len(route.WaypointOrder) != 2 || route.WaypointOrder[0] != 1 {
		t.Fatalf("waypoint order: %v", route.WaypointOrder)
	}
	if len(route.Legs) != 3 || route.Legs[1].DistanceM != 250.5 || route.Legs[2].DurationS != 45.5 {
		t.Fatalf("legs: %+v", route.Legs)
	}
}

func TestComputeRetriesOn500ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(500)
			return
		}
		_, _ = w.Write([]byte(`{"routes":[{"legs":[{"distanceMeters":10,"duration":"5s"}]}]}`))
	}))
	defer srv.Close()

	g := newTestProvider(t, srv.URL)
	if _, err := g.ComputeRoute(context.Background(), origin, model.Coordinate{Latitude: 40.71, Longitude: -74.01}); err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("want 3 attempts, got %d", calls)
	}
}

func TestComputeDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"error":{"message":"bad field mask"}}`))
	}))
	defer srv.Close()

	g := newTestProvider(t, srv.URL)
	_, err := g.ComputeRoute(context.Background(), origin, model.Coordinate{Latitude: 40.71, Longitude: -74.01})
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("want ErrProviderRejected, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("4xx must not retry: %d attempts", calls)
	}
}

func TestComputeEmptyRoutesIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[]}`))
	}))
	defer srv.Close()
	g := newTestProvider(t, srv.URL)
	if _, err := g.ComputeRoute(context.Background(), origin, model.Coordinate{Latitude: 40.71, Longitude: -74.01}); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("want ErrMalformedResponse, got %v", err)
	}
}

func TestParseDurationSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"450s", 450, true},
		{"45.5s", 45.5, true},
		{"0s", 0, true},
		{"", 0, true},
		{"450", 0, false},
		{"abc s", 0, false},
	}
	for _, c := range cases {
		got, err := parseDurationSeconds(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Fatalf("%q: got %f, %v", c.in, got, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("%q: expected error", c.in)
		}
	}
}
