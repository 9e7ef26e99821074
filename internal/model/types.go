package model

import "time"

// Core domain types for the route planning session

// StopStatus is the delivery state of a stop. done and skipped are terminal.
type StopStatus string

const (
    StatusPending StopStatus = "pending"
    StatusDone    StopStatus = "done"
    StatusSkipped StopStatus = "skipped"
)

// Terminal reports whether a status permits no further transitions.
func (s StopStatus) Terminal() bool { return s == StatusDone || s == StatusSkipped }

// GeoPoint is a geocoded position. Absent (nil) until geocoding succeeds.
type GeoPoint struct {
    Lat float64 `json:"lat"`
    Lng float64 `json:"lng"`
}

// Coordinate is the rendering-facing coordinate pair. When a stop carries a
// GeoPoint the two must agree; a stop without one may hold a fallback value
// for display but is never submitted to the optimizer.
type Coordinate struct {
    Latitude  float64 `json:"latitude"`
    Longitude float64 `json:"longitude"`
}

// Coord converts a GeoPoint into its Coordinate mirror.
func (g GeoPoint) Coord() Coordinate { return Coordinate{Latitude: g.Lat, Longitude: g.Lng} }

// ProofOfDelivery is attached to a stop when it is marked done.
type ProofOfDelivery struct {
    Timestamp time.Time `json:"ts"`
    Note      string    `json:"note,omitempty"`
    PhotoRef  string    `json:"photoRef,omitempty"`
}

// Stop is a single delivery destination.
type Stop struct {
    ID         string           `json:"id"`
    Label      string           `json:"label"`
    RawAddress string           `json:"rawAddress"`
    Geo        *GeoPoint        `json:"geo,omitempty"`
    Coordinate Coordinate       `json:"coordinate"`
    Status     StopStatus       `json:"status"`
    Notes      string           `json:"notes,omitempty"`
    PoD        *ProofOfDelivery `json:"pod,omitempty"`
}

// Routable reports whether the stop may be submitted to the optimizer.
func (s Stop) Routable() bool { return s.Status == StatusPending && s.Geo != nil }

// RouteResult is the canonical output of any ordering operation, whether
// provider-optimized or manual. OrderedStops is always an exact permutation
// of the pending stops that were submitted.
type RouteResult struct {
    OrderedStops    []Stop       `json:"orderedStops"`
    Polyline        string       `json:"polyline,omitempty"`
    DecodedPolyline []Coordinate `json:"decodedPolyline,omitempty"`
    TotalDistanceM  float64      `json:"totalDistanceM"`
    TotalDurationS  float64      `json:"totalDurationS"`
}

// Empty reports whether the result carries no stops (trivial plan).
func (r RouteResult) Empty() bool { return len(r.OrderedStops) == 0 }

// StopIDs returns the visiting order as ids.
func (r RouteResult) StopIDs() []string {
    ids := make([]string, len(r.OrderedStops))
    for i, s := range r.OrderedStops {
        ids[i] = s.ID
    }
    return ids
}

// StopIn is the import payload for a stop. Geocode is supplied by the
// address-import pipeline upstream of this service.
type StopIn struct {
    Label      string    `json:"label,omitempty"`
    RawAddress string    `json:"rawAddress"`
    Geo        *GeoPoint `json:"geo,omitempty"`
    Notes      string    `json:"notes,omitempty"`
}

// PoDIn is the completion payload for marking a stop done.
type PoDIn struct {
    Note     string `json:"note,omitempty"`
    PhotoRef string `json:"photoRef,omitempty"`
}

// PlanRequest asks for a fresh optimized plan from the given origin.
type PlanRequest struct {
    Origin Coordinate `json:"origin"`
}

// SwapRequest asks for an adjacent manual swap in the pending sequence.
type SwapRequest struct {
    IndexA int `json:"indexA"`
    IndexB int `json:"indexB"`
}

// RouteStatus is the coordinator state surfaced to clients.
type RouteStatus struct {
    Optimizing bool   `json:"optimizing"`
    Generation uint64 `json:"generation"`
    HasRoute   bool   `json:"hasRoute"`
}

// SubscriptionRequest registers a webhook endpoint for session events.
type SubscriptionRequest struct {
    URL    string   `json:"url"`
    Events []string `json:"events"`
    Secret string   `json:"secret"`
}

type Subscription struct {
    ID     string   `json:"id"`
    URL    string   `json:"url"`
    Events []string `json:"events"`
    Secret string   `json:"secret,omitempty"`
}
