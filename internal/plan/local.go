package plan

import (
	"context"

	"routepilot/internal/directions"
	"routepilot/internal/geo"
	"routepilot/internal/model"
)

// LocalOptimizer orders stops with a nearest-neighbor pass followed by
// 2-opt over straight-line distance. It is the offline stand-in when no
// directions provider is configured; results carry distance estimates but
// no road geometry or durations.
type LocalOptimizer struct {
	Iterations int
}

func NewLocalOptimizer() *LocalOptimizer { return &LocalOptimizer{Iterations: 5} }

func (l *LocalOptimizer) Optimize(ctx context.Context, origin model.Coordinate, pending []model.Stop) (model.RouteResult, error) {
	for _, st := range pending {
		if st.Geo == nil {
			return model.RouteResult{}, directions.ErrUnroutableStop
		}
	}
	if len(pending) == 0 {
		return model.RouteResult{OrderedStops: []model.Stop{}}, nil
	}
	if len(pending) == 1 {
		return model.RouteResult{
			OrderedStops:   []model.Stop{pending[0]},
			TotalDistanceM: geo.HaversineMeters(origin, pending[0].Geo.Coord()),
		}, nil
	}
	order := nearestNeighbor(origin, pending)
	order = improve2Opt(origin, pending, order, l.Iterations)
	out := make([]model.Stop, len(order))
	for i, idx := range order {
		out[i] = pending[idx]
	}
	total := geo.HaversineMeters(origin, out[0].Geo.Coord())
	for i := 0; i < len(out)-1; i++ {
		total += geo.HaversineMeters(out[i].Geo.Coord(), out[i+1].Geo.Coord())
	}
	return model.RouteResult{OrderedStops: out, TotalDistanceM: total}, nil
}

func nearestNeighbor(origin model.Coordinate, stops []model.Stop) []int {
	n := len(stops)
	order := make([]int, 0, n)
	used := make([]bool, n)
	cur := origin
	for len(order) < n {
		best, bestDist := -1, 0.0
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			d := geo.HaversineMeters(cur, stops[i].Geo.Coord())
			if best == -1 || d < bestDist {
				best, bestDist = i, d
			}
		}
		used[best] = true
		order = append(order, best)
		cur = stops[best].Geo.Coord()
	}
	return order
}

// improve2Opt applies a bounded 2-opt pass over the nearest-neighbor tour.
func improve2Opt(origin model.Coordinate, stops []model.Stop, order []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	best := append([]int(nil), order...)
	bestDist := tourDistance(origin, stops, best)
	n := len(order)
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				d := tourDistance(origin, stops, cand)
				if d+1e-3 < bestDist {
					best = cand
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

func tourDistance(origin model.Coordinate, stops []model.Stop, order []int) float64 {
	total := geo.HaversineMeters(origin, stops[order[0]].Geo.Coord())
	for i := 0; i < len(order)-1; i++ {
		total += geo.HaversineMeters(stops[order[i]].Geo.Coord(), stops[order[i+1]].Geo.Coord())
	}
	return total
}
