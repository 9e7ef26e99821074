package directions

import (
	"context"
	"fmt"

	"routepilot/internal/geo"
	"routepilot/internal/model"
)

// Client turns a pending stop set plus the driver's position into a
// RouteResult via the provider. It performs no mutation of the stop list and
// never returns a partially populated result: the answer is either a fully
// valid RouteResult or a typed error.
type Client struct {
	provider Provider
}

func NewClient(p Provider) *Client {
	return &Client{provider: p}
}

// Optimize sequences the pending stops from origin.
//
// Zero pending stops yield a trivial empty result and one pending stop is
// returned directly, both without waypoint optimization. Otherwise the last
// pending stop is the destination and the rest are reorderable waypoints.
func (c *Client) Optimize(ctx context.Context, origin model.Coordinate, pending []model.Stop) (model.RouteResult, error) {
	for _, s := range pending {
		if s.Geo == nil {
			return model.RouteResult{}, fmt.Errorf("%w: %s", ErrUnroutableStop, s.ID)
		}
	}

	switch len(pending) {
	case 0:
		return model.RouteResult{OrderedStops: []model.Stop{}}, nil
	case 1:
		return c.singleStop(ctx, origin, pending[0])
	}

	dest := pending[len(pending)-1]
	waypointStops := pending[:len(pending)-1]
	waypoints := make([]model.Coordinate, len(waypointStops))
	for i, s := range waypointStops {
		waypoints[i] = s.Geo.Coord()
	}

	route, err := c.provider.ComputeOptimizedRoute(ctx, origin, waypoints, dest.Geo.Coord())
	if err != nil {
		return model.RouteResult{}, err
	}

	ordered, err := applyWaypointOrder(waypointStops, route.WaypointOrder)
	if err != nil {
		return model.RouteResult{}, err
	}
	ordered = append(ordered, dest)

	return assemble(ordered, route)
}

// singleStop skips waypoint optimization entirely; geometry comes from a
// direct route query when the provider answers, else stays empty. A provider
// failure here is not an error: the ordering is already determined.
func (c *Client) singleStop(ctx context.Context, origin model.Coordinate, stop model.Stop) (model.RouteResult, error) {
	route, err := c.provider.ComputeRoute(ctx, origin, stop.Geo.Coord())
	if err != nil {
		return model.RouteResult{OrderedStops: []model.Stop{stop}}, nil
	}
	res, err := assemble([]model.Stop{stop}, route)
	if err != nil {
		return model.RouteResult{OrderedStops: []model.Stop{stop}}, nil
	}
	return res, nil
}

// applyWaypointOrder reorders the waypoint subset by the provider's
// permutation. Anything other than an exact permutation of the submitted
// indices is a malformed response.
func applyWaypointOrder(waypointStops []model.Stop, order []int) ([]model.Stop, error) {
	if len(order) != len(waypointStops) {
		return nil, fmt.Errorf("%w: waypoint order has %d entries for %d waypoints", ErrMalformedResponse, len(order), len(waypointStops))
	}
	seen := make([]bool, len(waypointStops))
	out := make([]model.Stop, 0, len(waypointStops)+1)
	for _, idx := range order {
		if idx < 0 || idx >= len(waypointStops) || seen[idx] {
			return nil, fmt.Errorf("%w: waypoint order is not a permutation", ErrMalformedResponse)
		}
		seen[idx] = true
		out = append(out, waypointStops[idx])
	}
	return out, nil
}

// assemble builds the final RouteResult: summed leg costs plus decoded
// geometry. A route with no legs or an undecodable path is malformed.
func assemble(ordered []model.Stop, route ProviderRoute) (model.RouteResult, error) {
	if len(route.Legs) == 0 {
		return model.RouteResult{}, fmt.Errorf("%w: no legs in route", ErrMalformedResponse)
	}
	res := model.RouteResult{OrderedStops: ordered, Polyline: route.EncodedPolyline}
	for _, leg := range route.Legs {
		res.TotalDistanceM += leg.DistanceM
		res.TotalDurationS += leg.DurationS
	}
	if route.EncodedPolyline != "" {
		decoded, err := geo.DecodePolyline(route.EncodedPolyline)
		if err != nil {
			return model.RouteResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		res.DecodedPolyline = decoded
	}
	return res, nil
}
