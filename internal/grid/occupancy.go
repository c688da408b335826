package grid

import (
	"fmt"
	"image"
	"log/slog"
	"sort"

	"github.com/pkg/errors"
)

const (
	// MinCapacity & MaxCapacity bound a road tile's capacity (inclusive)
	MinCapacity = 5
	MaxCapacity = 20

	// MaxLoad bounds a road tile's current load (inclusive, min is 0)
	MaxLoad = 30
)

var (
	// ErrOutOfBounds is returned when a footprint does not fit inside the grid
	ErrOutOfBounds = errors.New("footprint out of bounds")

	// ErrInvalidPlacement is returned for sizes / zones we can't place
	ErrInvalidPlacement = errors.New("invalid placement")
)

// Rand is the subset of *rand.Rand we need
type Rand interface {
	Intn(n int) int
}

// RecordID uniquely identifies a placement for the lifetime of an Occupancy
type RecordID uint64

// Record represents one placed object (a road segment or a building).
// Records are owned by Occupancy & keyed by their origin (Area.Min).
type Record struct {
	ID          RecordID
	Area        image.Rectangle
	Zone        ZoneType
	Orientation int    // degrees, one of 0, 90, 180, 270
	Variant     string // asset variant chosen for this object

	// roads only
	Capacity int
	Load     int

	// opaque renderer handle, the core never looks inside
	Handle any
}

// Origin is the minimum coordinate tile of the footprint
func (r *Record) Origin() image.Point {
	return r.Area.Min
}

// Size is the footprint width (footprints are square)
func (r *Record) Size() int {
	return r.Area.Dx()
}

// IsRoad is true for 1x1 road records
func (r *Record) IsRoad() bool {
	return r.Zone == Road && r.Area.Dx() == 1 && r.Area.Dy() == 1
}

// Occupancy maps every covered tile to the origin of the record covering it
// and each origin to its Record. It is the sole writer of the Index.
//
// Invariants (see Verify):
//   - a tile has an owner entry iff it is covered by some record
//   - Index.Get(tile) == Empty iff the tile has no owner entry
//   - roads holds exactly the origins of 1x1 Road records
type Occupancy struct {
	index   *Index
	owner   map[image.Point]image.Point
	records map[image.Point]*Record
	roads   map[image.Point]struct{}

	nextID RecordID
	healed int

	log      *slog.Logger
	onRemove func(*Record)
}

// NewOccupancy returns an empty occupancy model over a width x height grid
func NewOccupancy(width, height int, log *slog.Logger) *Occupancy {
	if log == nil {
		log = slog.Default()
	}
	return &Occupancy{
		index:   NewIndex(width, height),
		owner:   map[image.Point]image.Point{},
		records: map[image.Point]*Record{},
		roads:   map[image.Point]struct{}{},
		log:     log,
	}
}

// Index returns the zone index. Callers must treat it as read only.
func (o *Occupancy) Index() *Index {
	return o.index
}

// SetLogger replaces the logger used for consistency warnings
func (o *Occupancy) SetLogger(log *slog.Logger) {
	if log != nil {
		o.log = log
	}
}

// SetRemoveHook sets a func called with every record after it has been removed.
func (o *Occupancy) SetRemoveHook(fn func(*Record)) {
	o.onRemove = fn
}

// Healed returns how many times we've had to repair an inconsistency
func (o *Occupancy) Healed() int {
	return o.healed
}

// CanPlace is true iff every tile of the footprint is in bounds, Empty and unowned.
func (o *Occupancy) CanPlace(origin image.Point, size int) bool {
	if size < 1 {
		return false
	}
	area := Footprint(origin, size)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			p := image.Pt(x, y)
			if !o.index.InBounds(p) || o.index.Get(p) != Empty {
				return false
			}
			if _, ok := o.owner[p]; ok {
				return false
			}
		}
	}
	return true
}

// Place clears the footprint (demolishing anything in it) and then writes a new
// record, as a single operation. Nothing is mutated if an error is returned.
// Roads must be 1x1 & draw capacity / load from rng.
func (o *Occupancy) Place(origin image.Point, size int, zone ZoneType, rng Rand) (*Record, error) {
	if size < 1 || size > 3 {
		return nil, errors.Wrapf(ErrInvalidPlacement, "size %d", size)
	}
	if zone == Empty || !zone.Valid() {
		return nil, errors.Wrapf(ErrInvalidPlacement, "zone %s", zone)
	}
	if zone == Road && size != 1 {
		return nil, errors.Wrapf(ErrInvalidPlacement, "road of size %d", size)
	}

	area := Footprint(origin, size)
	if !o.index.InBounds(area.Min) || !o.index.InBounds(area.Max.Sub(image.Pt(1, 1))) {
		return nil, errors.Wrapf(ErrOutOfBounds, "%v in %v", area, o.index.Bounds())
	}

	// clear first, so no partially overlapping record survives
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			p := image.Pt(x, y)
			_, owned := o.owner[p]
			if owned || o.index.Get(p) != Empty {
				o.RemoveAt(p)
			}
		}
	}

	o.nextID++
	rec := &Record{ID: o.nextID, Area: area, Zone: zone}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			p := image.Pt(x, y)
			o.owner[p] = origin
			o.index.set(p, zone)
		}
	}
	o.records[origin] = rec

	if rec.IsRoad() {
		rec.Capacity = MinCapacity + (MaxCapacity-MinCapacity)/2
		if rng != nil {
			rec.Capacity = MinCapacity + rng.Intn(MaxCapacity-MinCapacity+1)
			rec.Load = rng.Intn(MaxLoad + 1)
		}
		o.roads[origin] = struct{}{}
	}

	return rec, nil
}

// RemoveAt removes whatever record covers p (p may be any tile of the footprint).
// Calling this on an empty tile is a no-op, which makes it safe to call
// speculatively before a Place. Returns the removed record, if any.
func (o *Occupancy) RemoveAt(p image.Point) *Record {
	origin, ok := o.owner[p]
	if !ok {
		if o.index.Get(p) != Empty {
			o.log.Error("tile marked but not owned, clearing", "tile", p, "zone", o.index.Get(p))
			o.index.set(p, Empty)
			o.healed++
		}
		return nil
	}

	rec, ok := o.records[origin]
	if !ok {
		o.log.Error("tile owned by missing record, clearing", "tile", p, "origin", origin)
		for t, org := range o.owner {
			if org != origin {
				continue
			}
			delete(o.owner, t)
			delete(o.roads, t)
			o.index.set(t, Empty)
		}
		o.healed++
		return nil
	}

	o.clear(rec)
	return rec
}

// clear unlinks every tile of rec and drops the record itself.
// A footprint escaping the grid counts as one heal; only in bounds tiles are touched.
func (o *Occupancy) clear(rec *Record) {
	origin := rec.Origin()
	if !rec.Area.In(o.index.Bounds()) {
		o.log.Error("record footprint escapes grid", "origin", origin, "area", rec.Area, "bounds", o.index.Bounds())
		o.healed++
	}
	for y := rec.Area.Min.Y; y < rec.Area.Max.Y; y++ {
		for x := rec.Area.Min.X; x < rec.Area.Max.X; x++ {
			p := image.Pt(x, y)
			if !o.index.InBounds(p) {
				continue
			}
			if org, ok := o.owner[p]; ok && org == origin {
				delete(o.owner, p)
				o.index.set(p, Empty)
			}
			delete(o.roads, p)
		}
	}
	delete(o.records, origin)

	if o.onRemove != nil {
		o.onRemove(rec)
	}
}

// RecordAt is a direct lookup by origin
func (o *Occupancy) RecordAt(origin image.Point) *Record {
	rec, _ := o.records[origin]
	return rec
}

// Resolve returns the record covering any tile p
func (o *Occupancy) Resolve(p image.Point) (*Record, bool) {
	origin, ok := o.owner[p]
	if !ok {
		return nil, false
	}
	rec, ok := o.records[origin]
	return rec, ok
}

// Owner returns the origin of the record covering p
func (o *Occupancy) Owner(p image.Point) (image.Point, bool) {
	origin, ok := o.owner[p]
	return origin, ok
}

// Occupied is true if some record covers p
func (o *Occupancy) Occupied(p image.Point) bool {
	_, ok := o.owner[p]
	return ok
}

// IsRoad is true if p is the origin of a tracked 1x1 road
func (o *Occupancy) IsRoad(p image.Point) bool {
	_, ok := o.roads[p]
	return ok
}

// RoadCount returns the size of the road tile set
func (o *Occupancy) RoadCount() int {
	return len(o.roads)
}

// Roads returns a sorted (row-major) copy of the road tile set
func (o *Occupancy) Roads() []image.Point {
	out := make([]image.Point, 0, len(o.roads))
	for p := range o.roads {
		out = append(out, p)
	}
	sortPoints(out)
	return out
}

// Records returns all records sorted by origin (row-major)
func (o *Occupancy) Records() []*Record {
	origins := make([]image.Point, 0, len(o.records))
	for p := range o.records {
		origins = append(origins, p)
	}
	sortPoints(origins)

	out := make([]*Record, len(origins))
	for i, p := range origins {
		out[i] = o.records[p]
	}
	return out
}

// Count returns the number of records of the given zone
func (o *Occupancy) Count(z ZoneType) int {
	n := 0
	for _, rec := range o.records {
		if rec.Zone == z {
			n++
		}
	}
	return n
}

// Reset removes every record (firing the remove hook for each)
func (o *Occupancy) Reset() {
	for _, rec := range o.Records() {
		o.clear(rec)
	}
	o.owner = map[image.Point]image.Point{}
	o.records = map[image.Point]*Record{}
	o.roads = map[image.Point]struct{}{}
	o.index.reset()
}

// Verify audits every invariant & returns a list of violations (empty if none).
func (o *Occupancy) Verify() []error {
	errs := []error{}

	for i := 0; i < o.index.Area(); i++ {
		p := o.index.Point(i)
		_, owned := o.owner[p]
		empty := o.index.Get(p) == Empty
		if owned == empty {
			errs = append(errs, fmt.Errorf("tile %v owned=%v but zone is %s", p, owned, o.index.Get(p)))
		}
	}

	for p, origin := range o.owner {
		rec, ok := o.records[origin]
		if !ok {
			errs = append(errs, fmt.Errorf("tile %v points at missing origin %v", p, origin))
			continue
		}
		if !p.In(rec.Area) {
			errs = append(errs, fmt.Errorf("tile %v outside footprint %v of its record", p, rec.Area))
		}
		if o.index.Get(p) != rec.Zone {
			errs = append(errs, fmt.Errorf("tile %v zone %s != record zone %s", p, o.index.Get(p), rec.Zone))
		}
	}

	for origin, rec := range o.records {
		if rec.Origin() != origin {
			errs = append(errs, fmt.Errorf("record keyed %v has origin %v", origin, rec.Origin()))
		}
		for y := rec.Area.Min.Y; y < rec.Area.Max.Y; y++ {
			for x := rec.Area.Min.X; x < rec.Area.Max.X; x++ {
				p := image.Pt(x, y)
				if org, ok := o.owner[p]; !ok || org != origin {
					errs = append(errs, fmt.Errorf("footprint tile %v of %v not owned by it", p, origin))
				}
			}
		}
		_, tracked := o.roads[origin]
		if rec.IsRoad() != tracked {
			errs = append(errs, fmt.Errorf("record %v road=%v but tracked=%v", origin, rec.IsRoad(), tracked))
		}
	}

	for p := range o.roads {
		if rec, ok := o.records[p]; !ok || !rec.IsRoad() {
			errs = append(errs, fmt.Errorf("road set holds %v which is not a road origin", p))
		}
	}

	return errs
}

// sortPoints orders points row-major (y, then x)
func sortPoints(in []image.Point) {
	sort.Slice(in, func(a, b int) bool {
		if in[a].Y != in[b].Y {
			return in[a].Y < in[b].Y
		}
		return in[a].X < in[b].X
	})
}
