package directions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"routepilot/internal/metrics"
	"routepilot/internal/model"
)

const routesFieldMask = "routes.optimizedIntermediateWaypointIndex,routes.legs.distanceMeters,routes.legs.duration,routes.polyline.encodedPolyline"

// GoogleProvider implements Provider against the Google Routes API v2
// computeRoutes endpoint. Safe for concurrent use.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// GoogleOption tweaks provider construction.
type GoogleOption func(*GoogleProvider)

// WithBaseURL overrides the endpoint, used by tests.
func WithBaseURL(u string) GoogleOption {
	return func(g *GoogleProvider) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *GoogleProvider) { g.http = c }
}

// WithRateLimit caps outbound request rate. The public quota is per-minute;
// callers pass it converted to per-second.
func WithRateLimit(rps float64, burst int) GoogleOption {
	return func(g *GoogleProvider) { g.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func NewGoogleProvider(apiKey string, opts ...GoogleOption) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("directions: api key is empty")
	}
	g := &GoogleProvider{
		apiKey:  apiKey,
		baseURL: "https://routes.googleapis.com",
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(45), 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type waypoint struct {
	Location struct {
		LatLng latLng `json:"latLng"`
	} `json:"location"`
}

func toWaypoint(c model.Coordinate) waypoint {
	var w waypoint
	w.Location.LatLng = latLng{Latitude: c.Latitude, Longitude: c.Longitude}
	return w
}

type computeRoutesRequest struct {
	Origin                waypoint   `json:"origin"`
	Destination           waypoint   `json:"destination"`
	Intermediates         []waypoint `json:"intermediates,omitempty"`
	TravelMode            string     `json:"travelMode"`
	RoutingPreference     string     `json:"routingPreference"`
	OptimizeWaypointOrder bool       `json:"optimizeWaypointOrder,omitempty"`
}

type computeRoutesResponse struct {
	Routes []struct {
		OptimizedIntermediateWaypointIndex []int `json:"optimizedIntermediateWaypointIndex"`
		Legs                               []struct {
			DistanceMeters float64 `json:"distanceMeters"`
			Duration       string  `json:"duration"`
		} `json:"legs"`
		Polyline struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

func (g *GoogleProvider) ComputeOptimizedRoute(ctx context.Context, origin model.Coordinate, waypoints []model.Coordinate, destination model.Coordinate) (ProviderRoute, error) {
	req := computeRoutesRequest{
		Origin:                toWaypoint(origin),
		Destination:           toWaypoint(destination),
		TravelMode:            "DRIVE",
		RoutingPreference:     "TRAFFIC_AWARE",
		OptimizeWaypointOrder: len(waypoints) > 0,
	}
	for _, w := range waypoints {
		req.Intermediates = append(req.Intermediates, toWaypoint(w))
	}
	return g.compute(ctx, req)
}

func (g *GoogleProvider) ComputeRoute(ctx context.Context, origin, destination model.Coordinate) (ProviderRoute, error) {
	req := computeRoutesRequest{
		Origin:            toWaypoint(origin),
		Destination:       toWaypoint(destination),
		TravelMode:        "DRIVE",
		RoutingPreference: "TRAFFIC_AWARE",
	}
	return g.compute(ctx, req)
}

func (g *GoogleProvider) compute(ctx context.Context, reqBody computeRoutesRequest) (ProviderRoute, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return ProviderRoute{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return ProviderRoute{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}
	start := time.Now()
	resp, err := g.doWithRetry(ctx, payload)
	metrics.ObserveProviderCall(time.Since(start), err)
	if err != nil {
		return ProviderRoute{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ProviderRoute{}, fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Routes) == 0 {
		return ProviderRoute{}, fmt.Errorf("%w: no routes in response", ErrMalformedResponse)
	}
	route := parsed.Routes[0]
	out := ProviderRoute{
		WaypointOrder:   route.OptimizedIntermediateWaypointIndex,
		EncodedPolyline: route.Polyline.EncodedPolyline,
	}
	for _, leg := range route.Legs {
		sec, err := parseDurationSeconds(leg.Duration)
		if err != nil {
			return ProviderRoute{}, fmt.Errorf("%w: leg duration %q", ErrMalformedResponse, leg.Duration)
		}
		if leg.DistanceMeters < 0 || sec < 0 {
			return ProviderRoute{}, fmt.Errorf("%w: negative leg metrics", ErrMalformedResponse)
		}
		out.Legs = append(out.Legs, ProviderLeg{DistanceM: leg.DistanceMeters, DurationS: sec})
	}
	return out, nil
}

// doWithRetry retries transient failures (network errors, 429, 5xx) with
// exponential backoff while respecting context cancellation.
func (g *GoogleProvider) doWithRetry(ctx context.Context, payload []byte) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 250 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/directions/v2:computeRoutes", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", g.apiKey)
		// Field mask is mandatory; omitting it is an API error.
		req.Header.Set("X-Goog-FieldMask", routesFieldMask)

		resp, err := g.http.Do(req)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}

		retry := false
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			var netErr net.Error
			if errors.As(err, &netErr) {
				retry = true
			}
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: status %d: %s", ErrProviderRejected, resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode == 429 || resp.StatusCode >= 500 {
				retry = true
			}
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

// parseDurationSeconds parses the API's "450s" duration strings.
func parseDurationSeconds(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if !strings.HasSuffix(s, "s") {
		return 0, fmt.Errorf("unexpected duration format %q", s)
	}
	var sec float64
	if _, err := fmt.Sscanf(strings.TrimSuffix(s, "s"), "%f", &sec); err != nil {
		return 0, err
	}
	return sec, nil
}
