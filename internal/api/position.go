package api

import (
	"sync"

	"routepilot/internal/model"
)

// DriverPosition is the latest reported position of the driver.
type DriverPosition struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	TS  string  `json:"ts"`
}

// PositionCache keeps the most recent driver position. It seeds the plan
// origin when a plan request carries no explicit origin.
type PositionCache struct {
	mu  sync.Mutex
	pos DriverPosition
	set bool
}

func NewPositionCache() *PositionCache { return &PositionCache{} }

// Upsert stores the latest position.
func (c *PositionCache) Upsert(lat, lng float64, ts string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = DriverPosition{Lat: lat, Lng: lng, TS: ts}
	c.set = true
}

// Latest returns the latest position, if any has been reported.
func (c *PositionCache) Latest() (DriverPosition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos, c.set
}

// Origin returns the latest position as a plan origin.
func (c *PositionCache) Origin() (model.Coordinate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return model.Coordinate{}, false
	}
	return model.Coordinate{Latitude: c.pos.Lat, Longitude: c.pos.Lng}, true
}
