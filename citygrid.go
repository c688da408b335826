package citygrid

import (
	"context"
	"image"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/voidshard/citygrid/internal/grid"
)

// City holds our tile grid, what is placed on it & the road network running
// through it. All exported methods are safe for concurrent use; mutations are
// made under a single lock so no partially placed footprint is ever visible.
//
// Renderer methods are called with the lock held & must not call back into
// the City.
type City struct {
	lock sync.RWMutex

	cfg      *Config
	seed     int64
	renderer Renderer
	log      *slog.Logger

	occ *grid.Occupancy
	rng *rand.Rand // traffic resampling & user edits

	stats *Stats
	sites []image.Point

	// handles waiting for ActivateBatch
	pending []activation

	// called after each traffic refresh
	listeners []func()

	// most recently started generation run & how many runs we've started
	gen  *Generator
	runs int64
}

// activation is a queued handle, remembered with the record that made it so
// we can skip it if the record is demolished before activation.
type activation struct {
	origin image.Point
	id     grid.RecordID
	handle Handle
}

// New creates a new (empty) City from the given configuration.
// The config is copied & validated; nothing is built until Generate is called.
func New(cfg *Config, r Renderer) (*City, error) {
	if cfg == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "no config given")
	}

	mine := *cfg
	if cfg.Catalogs != nil {
		cats := *cfg.Catalogs
		mine.Catalogs = &cats
	}
	err := mine.Validate()
	if err != nil {
		return nil, err
	}

	if mine.Seed == 0 {
		mine.Seed = time.Now().UnixNano()
	}
	if r == nil {
		r = nopRenderer{}
	}

	c := &City{
		cfg:      &mine,
		seed:     mine.Seed,
		renderer: r,
		log:      slog.Default(),
		rng:      rand.New(rand.NewSource(mine.Seed + 1)),
		pending:  []activation{},
	}
	c.occ = grid.NewOccupancy(mine.Width, mine.Height, c.log)
	c.occ.SetRemoveHook(c.onRemove)
	c.stats = newStats("", c.seed)

	return c, nil
}

// SetLogger sets the logger used for generation progress & warnings
func (c *City) SetLogger(log *slog.Logger) {
	if log == nil {
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.log = log
	c.occ.SetLogger(log)
}

// Seed returns the base seed. The n-th generation run on this City (from 0)
// uses Seed()+n, so regenerating gives a new layout while a fresh City with the
// same seed replays the first run exactly. Stats().Seed is the seed of the last run.
func (c *City) Seed() int64 {
	return c.seed
}

// Bounds returns the map area
func (c *City) Bounds() image.Rectangle {
	return c.occ.Index().Bounds()
}

// Config returns a copy of the (validated) configuration
func (c *City) Config() Config {
	return *c.cfg
}

// Generate (re)builds the whole city, running a Generator to completion.
// Cancelling ctx stops between steps; the city is left self-consistent but
// partially built. Starting another generation also stops this one.
func (c *City) Generate(ctx context.Context) error {
	g := c.NewGenerator()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		status, err := g.Step()
		if err != nil {
			return err
		}
		if status == Done {
			return nil
		}
	}
}

// Phase returns the phase of the most recent generation run
func (c *City) Phase() Phase {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.gen == nil {
		return PhaseReset
	}
	return c.gen.phase
}

// Progress returns roughly how far along the most recent run is in [0,1]
func (c *City) Progress() float64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.gen == nil {
		return 0
	}
	return c.gen.progress()
}

// Stats returns a copy of stats about the most recent generation run
func (c *City) Stats() Stats {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := c.stats.copy()
	out.Healed = c.occ.Healed()
	return out
}

// Sites returns the voronoi sites of the most recent generation run
func (c *City) Sites() []image.Point {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make([]image.Point, len(c.sites))
	copy(out, c.sites)
	return out
}

// RoadTiles returns a snapshot of the road tile set
func (c *City) RoadTiles() map[image.Point]struct{} {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make(map[image.Point]struct{}, c.occ.RoadCount())
	for _, p := range c.occ.Roads() {
		out[p] = struct{}{}
	}
	return out
}

// Zone returns the zone of the given tile (Empty if out of bounds)
func (c *City) Zone(tile image.Point) ZoneType {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.occ.Index().Get(tile)
}

// Placement returns whatever covers the given tile (any tile of a footprint)
func (c *City) Placement(tile image.Point) (*Placement, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	rec, ok := c.occ.Resolve(tile)
	if !ok {
		return nil, false
	}
	return newPlacement(rec), true
}

// Placements returns every placement, ordered by origin (row-major)
func (c *City) Placements() []*Placement {
	c.lock.RLock()
	defer c.lock.RUnlock()
	recs := c.occ.Records()
	out := make([]*Placement, len(recs))
	for i, rec := range recs {
		out[i] = newPlacement(rec)
	}
	return out
}

// Place puts a size x size object of the given zone at origin, demolishing
// anything already in the footprint first. Roads must be 1x1.
func (c *City) Place(origin image.Point, size int, zone ZoneType, variant string) (*Placement, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	rec, err := c.place(origin, size, zone, variant, 0, c.rng)
	if err != nil {
		return nil, err
	}
	return newPlacement(rec), nil
}

// Demolish removes whatever covers the given tile, returning false if there
// was nothing there.
func (c *City) Demolish(tile image.Point) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.occ.RemoveAt(tile) != nil
}

// Verify audits the occupancy model, returning every violation found
func (c *City) Verify() []error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.occ.Verify()
}

// Pending returns how many handles are waiting to be activated
func (c *City) Pending() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.pending)
}

// ActivateBatch activates up to Config.ActivationBatch queued handles,
// oldest first. Handles whose placement was demolished in the meantime are
// dropped without counting towards the batch. Returns how many were activated.
func (c *City) ActivateBatch() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	done := 0
	for len(c.pending) > 0 && done < c.cfg.ActivationBatch {
		next := c.pending[0]
		c.pending = c.pending[1:]

		rec := c.occ.RecordAt(next.origin)
		if rec == nil || rec.ID != next.id {
			continue
		}
		c.renderer.Activate(next.handle)
		done++
	}

	return done
}

// place writes a record via the occupancy model & hands it to the renderer.
// Caller must hold the lock.
func (c *City) place(origin image.Point, size int, zone ZoneType, variant string, orientation int, rng *rand.Rand) (*grid.Record, error) {
	rec, err := c.occ.Place(origin, size, zone, rng)
	if err != nil {
		return nil, err
	}
	rec.Variant = variant
	rec.Orientation = orientation
	c.stats.increment(zone)

	rec.Handle = c.renderer.Instantiate(origin, size, zone, variant)
	if rec.Handle != nil {
		c.pending = append(c.pending, activation{origin: origin, id: rec.ID, handle: rec.Handle})
	}

	return rec, nil
}

// claimRoad makes p a road tile. Tiles that are already roads are left as
// they are (keeping their traffic state). Returns true if a road was added.
// Caller must hold the lock.
func (c *City) claimRoad(p image.Point, rng *rand.Rand) bool {
	if c.occ.IsRoad(p) {
		return false
	}
	_, err := c.place(p, 1, Road, "", 0, rng)
	if err != nil {
		c.log.Warn("failed to claim road tile", "tile", p, "err", err)
		return false
	}
	return true
}

// onRemove is called by the occupancy model for every removed record
func (c *City) onRemove(rec *grid.Record) {
	c.stats.decrement(rec.Zone)
	if rec.Handle != nil {
		c.renderer.Destroy(rec.Handle)
	}
}
