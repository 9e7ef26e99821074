// Package directions adapts the external mapping provider into the canonical
// RouteResult contract. All provider-shaped data is parsed and validated at
// this boundary; nothing above it sees raw provider responses.
package directions

import (
	"context"
	"errors"

	"routepilot/internal/model"
)

// Typed failures surfaced to the coordinator. Callers treat all three as
// "keep the previous route"; none of them blocks the delivery workflow.
var (
	// ErrProviderUnavailable: transport-level failure reaching the provider.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrProviderRejected: provider reachable but returned a non-success
	// routing status (invalid waypoints, no feasible route, quota, auth).
	ErrProviderRejected = errors.New("routing provider rejected request")
	// ErrMalformedResponse: response missing or contradicting expected fields.
	ErrMalformedResponse = errors.New("malformed routing provider response")
	// ErrUnroutableStop: a stop without a geocode reached the optimizer.
	// This is a caller contract violation, not a provider condition.
	ErrUnroutableStop = errors.New("stop has no geocode")
)

// ProviderLeg is the per-leg cost between consecutive route points.
type ProviderLeg struct {
	DistanceM float64
	DurationS float64
}

// ProviderRoute is the normalized provider answer. WaypointOrder is the
// optimized permutation over the submitted intermediate waypoints; it is
// empty for direct origin→destination queries.
type ProviderRoute struct {
	WaypointOrder   []int
	Legs            []ProviderLeg
	EncodedPolyline string
}

// Provider is the narrow interface over the external directions service.
type Provider interface {
	// ComputeOptimizedRoute submits origin, intermediate waypoints and a
	// final destination with waypoint reordering enabled, traffic-aware,
	// car travel mode.
	ComputeOptimizedRoute(ctx context.Context, origin model.Coordinate, waypoints []model.Coordinate, destination model.Coordinate) (ProviderRoute, error)
	// ComputeRoute queries a direct origin→destination route.
	ComputeRoute(ctx context.Context, origin, destination model.Coordinate) (ProviderRoute, error)
}
