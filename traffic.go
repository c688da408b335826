package citygrid

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/voidshard/citygrid/internal/grid"
)

// Road loads are an abstract counter, resampled at random on a timer. There
// are no vehicles; nothing moves along the roads.

// minTravelTime keeps every road tile strictly positive to traverse
const minTravelTime = 0.01

// travelTime returns how long it takes to cross a road record.
//
//	loadFactor = load / capacity
//	multiplier = 1                  if loadFactor <= threshold
//	           = 1 + e^loadFactor   otherwise
//	time       = max(0.01, base * multiplier)
//
// Anything that isn't a 1x1 road with positive capacity is impassable (+Inf).
func travelTime(rec *grid.Record, base, threshold float64) float64 {
	if rec == nil || !rec.IsRoad() || rec.Capacity <= 0 {
		return math.Inf(1)
	}

	lf := float64(rec.Load) / float64(rec.Capacity)
	mult := 1.0
	if lf > threshold {
		mult = 1.0 + math.Exp(lf)
	}

	return math.Max(minTravelTime, base*mult)
}

// TravelTime returns the traffic aware cost of entering the given tile
// (+Inf for anything other than a road tile).
func (c *City) TravelTime(tile image.Point) float64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.travelTimeAt(tile)
}

// travelTimeAt is TravelTime without locking
func (c *City) travelTimeAt(tile image.Point) float64 {
	if !c.occ.IsRoad(tile) {
		return math.Inf(1)
	}
	return travelTime(c.occ.RecordAt(tile), c.cfg.TrafficBaseCost, c.cfg.CongestionThreshold)
}

// RefreshTraffic resamples the load of every road tile uniformly in
// [0, grid.MaxLoad], then calls any OnTrafficRefresh callbacks.
func (c *City) RefreshTraffic() {
	c.lock.Lock()
	for _, p := range c.occ.Roads() {
		rec := c.occ.RecordAt(p)
		rec.Load = c.rng.Intn(grid.MaxLoad + 1)
	}
	c.log.Debug("traffic refreshed", "roads", c.occ.RoadCount())
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.lock.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnTrafficRefresh registers fn to be called (without the lock held) after
// every traffic refresh; a good place to re-query paths.
func (c *City) OnTrafficRefresh(fn func()) {
	if fn == nil {
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.listeners = append(c.listeners, fn)
}

// RunTraffic refreshes traffic every Config.TrafficRefresh until ctx is done.
// Returns ctx.Err().
func (c *City) RunTraffic(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TrafficRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.RefreshTraffic()
		}
	}
}
