package plan

import "routepilot/internal/model"

// ManualOrder builds a RouteResult honoring the user's explicit pending-stop
// order verbatim. No provider call is made, so geometry and totals are
// reported empty/zero rather than replaying stale values that would imply a
// path matching the new order.
func ManualOrder(pendingInUserOrder []model.Stop) model.RouteResult {
	return model.RouteResult{
		OrderedStops: append([]model.Stop(nil), pendingInUserOrder...),
	}
}
