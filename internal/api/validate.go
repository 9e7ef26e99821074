package api

import (
	"fmt"

	"routepilot/internal/model"
)

func validateStopIn(in model.StopIn) error {
	if in.RawAddress == "" && in.Geo == nil {
		return fmt.Errorf("stop needs a rawAddress or a geocode")
	}
	if in.Geo != nil {
		if in.Geo.Lat < -90 || in.Geo.Lat > 90 {
			return fmt.Errorf("lat out of range: %v", in.Geo.Lat)
		}
		if in.Geo.Lng < -180 || in.Geo.Lng > 180 {
			return fmt.Errorf("lng out of range: %v", in.Geo.Lng)
		}
	}
	return nil
}

func validateOrigin(c model.Coordinate) error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("origin out of range: %v,%v", c.Latitude, c.Longitude)
	}
	if c.Latitude == 0 && c.Longitude == 0 {
		return fmt.Errorf("origin required")
	}
	return nil
}

func validateSubscription(req model.SubscriptionRequest) error {
	if req.URL == "" {
		return fmt.Errorf("url required")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("at least one event type required")
	}
	return nil
}
