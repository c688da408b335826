package citygrid

import (
	"image"
	"image/color"

	"github.com/boljen/go-bitmap"
	"github.com/fogleman/gg"
	"golang.org/x/image/colornames"
)

const (
	// bit numbers for each tile in our bitmap
	bitRoad   = 0
	bitOrigin = 1
	bitPath   = 2

	bitsPerTile = 3

	// max load factor we shade towards ColourScheme.Congested
	congestedAt = 2.0
)

// CityMap is a graphical snapshot of a City. It's detached from the City, so
// it won't change as the City does.
type CityMap interface {
	// Image returns an image with the given colour scheme
	Image(scheme *ColourScheme) image.Image

	// SavePNG writes Image() to disk
	SavePNG(fpath string, scheme *ColourScheme) error

	// WithPath returns a copy of the map with the given path overlaid
	WithPath(path []image.Point) CityMap

	Zone(x, y int) ZoneType
	IsRoad(x, y int) bool
	IsOrigin(x, y int) bool
	OnPath(x, y int) bool
}

// ColourScheme defines how various features in a city should be coloured.
type ColourScheme struct {
	// pixels per tile
	Scale int

	Roads     color.Color
	Congested color.Color // roads shade towards this as their load rises
	Outlines  color.Color // drawn around each building footprint
	Path      color.Color
	Zones     map[ZoneType]color.Color
}

// DefaultScheme returns a reasonable default ColourScheme.
func DefaultScheme() *ColourScheme {
	return &ColourScheme{
		Scale:     8,
		Roads:     colornames.Dimgray,
		Congested: colornames.Crimson,
		Outlines:  colornames.Black,
		Path:      colornames.Gold,
		Zones: map[ZoneType]color.Color{
			Empty:       colornames.Whitesmoke,
			Residential: colornames.Steelblue,
			Commercial:  colornames.Hotpink,
			Industrial:  colornames.Firebrick,
		},
	}
}

// imageMap is a particular implementation of CityMap
type imageMap struct {
	bounds image.Rectangle
	zones  []ZoneType

	// bitsPerTile flags per tile, see bit* consts
	flags bitmap.Bitmap

	// load factor per tile (roads only)
	loads []float64

	// building footprints
	buildings []image.Rectangle

	path []image.Point
}

// Map returns a snapshot of the city as a CityMap
func (c *City) Map() CityMap {
	c.lock.RLock()
	defer c.lock.RUnlock()

	idx := c.occ.Index()
	m := newMap(idx.Bounds())

	for i := 0; i < idx.Area(); i++ {
		m.zones[i] = idx.Get(idx.Point(i))
	}

	for _, rec := range c.occ.Records() {
		i := idx.Offset(rec.Origin())
		m.flags.Set(i*bitsPerTile+bitOrigin, true)
		if rec.IsRoad() {
			m.flags.Set(i*bitsPerTile+bitRoad, true)
			m.loads[i] = newPlacement(rec).LoadFactor()
		} else {
			m.buildings = append(m.buildings, rec.Area)
		}
	}

	return m
}

// newMap returns a new (empty) map with the given bounds
func newMap(bounds image.Rectangle) *imageMap {
	area := bounds.Dx() * bounds.Dy()
	return &imageMap{
		bounds:    bounds,
		zones:     make([]ZoneType, area),
		flags:     bitmap.New(area * bitsPerTile),
		loads:     make([]float64, area),
		buildings: []image.Rectangle{},
	}
}

// WithPath returns a copy of the map with the given path overlaid
func (m *imageMap) WithPath(path []image.Point) CityMap {
	out := &imageMap{
		bounds:    m.bounds,
		zones:     m.zones,
		flags:     bitmap.Bitmap(m.flags.Data(true)),
		loads:     m.loads,
		buildings: m.buildings,
		path:      make([]image.Point, len(path)),
	}
	copy(out.path, path)

	for _, p := range path {
		i := out.offset(p.X, p.Y)
		if i < 0 {
			continue
		}
		out.flags.Set(i*bitsPerTile+bitPath, true)
	}

	return out
}

// Image returns the CityMap coloured with the given scheme
func (m *imageMap) Image(scheme *ColourScheme) image.Image {
	return m.draw(scheme).Image()
}

// SavePNG renders the map with the given scheme & writes it to disk
func (m *imageMap) SavePNG(fpath string, scheme *ColourScheme) error {
	return m.draw(scheme).SavePNG(fpath)
}

func (m *imageMap) draw(scheme *ColourScheme) *gg.Context {
	if scheme == nil {
		scheme = DefaultScheme()
	}
	scale := scheme.Scale
	if scale < 1 {
		scale = 1
	}
	s := float64(scale)

	ctx := gg.NewContext(m.bounds.Dx()*scale, m.bounds.Dy()*scale)
	if bg, ok := scheme.Zones[Empty]; ok {
		ctx.SetColor(bg)
		ctx.Clear()
	}

	// fill every tile by zone, roads shaded by load
	for y := m.bounds.Min.Y; y < m.bounds.Max.Y; y++ {
		for x := m.bounds.Min.X; x < m.bounds.Max.X; x++ {
			i := m.offset(x, y)
			z := m.zones[i]

			var col color.Color
			if z == Road && scheme.Roads != nil {
				col = scheme.Roads
				if scheme.Congested != nil {
					col = lerpColour(scheme.Roads, scheme.Congested, m.loads[i]/congestedAt)
				}
			} else if z != Empty {
				col, _ = scheme.Zones[z]
			}
			if col == nil {
				continue
			}

			ctx.SetColor(col)
			ctx.DrawRectangle(float64(x-m.bounds.Min.X)*s, float64(y-m.bounds.Min.Y)*s, s, s)
			ctx.Fill()
		}
	}

	// outline buildings so neighbours of the same zone are distinguishable
	if scheme.Outlines != nil && scale > 2 {
		ctx.SetColor(scheme.Outlines)
		ctx.SetLineWidth(1)
		for _, b := range m.buildings {
			ctx.DrawRectangle(
				float64(b.Min.X-m.bounds.Min.X)*s+0.5,
				float64(b.Min.Y-m.bounds.Min.Y)*s+0.5,
				float64(b.Dx())*s-1,
				float64(b.Dy())*s-1,
			)
			ctx.Stroke()
		}
	}

	// path as a line through tile centres
	if scheme.Path != nil && len(m.path) > 0 {
		ctx.SetColor(scheme.Path)
		ctx.SetLineWidth(s / 3)
		ctx.SetLineCapRound()
		for i, p := range m.path {
			cx := (float64(p.X-m.bounds.Min.X) + 0.5) * s
			cy := (float64(p.Y-m.bounds.Min.Y) + 0.5) * s
			if i == 0 {
				ctx.MoveTo(cx, cy)
			} else {
				ctx.LineTo(cx, cy)
			}
		}
		if len(m.path) == 1 {
			ctx.DrawCircle((float64(m.path[0].X-m.bounds.Min.X)+0.5)*s, (float64(m.path[0].Y-m.bounds.Min.Y)+0.5)*s, s/3)
			ctx.Fill()
		} else {
			ctx.Stroke()
		}
	}

	return ctx
}

// Zone returns the zone at x,y (Empty if out of bounds)
func (m *imageMap) Zone(x, y int) ZoneType {
	i := m.offset(x, y)
	if i < 0 {
		return Empty
	}
	return m.zones[i]
}

// IsRoad returns if there is a road at x,y
func (m *imageMap) IsRoad(x, y int) bool {
	return m.flag(x, y, bitRoad)
}

// IsOrigin returns if x,y is the minimum corner of some placement
func (m *imageMap) IsOrigin(x, y int) bool {
	return m.flag(x, y, bitOrigin)
}

// OnPath returns if x,y is on the overlaid path
func (m *imageMap) OnPath(x, y int) bool {
	return m.flag(x, y, bitPath)
}

func (m *imageMap) flag(x, y, bit int) bool {
	i := m.offset(x, y)
	if i < 0 {
		return false
	}
	return m.flags.Get(i*bitsPerTile + bit)
}

// offset returns the tile index of x,y or -1 if out of bounds
func (m *imageMap) offset(x, y int) int {
	if !image.Pt(x, y).In(m.bounds) {
		return -1
	}
	return (y-m.bounds.Min.Y)*m.bounds.Dx() + (x - m.bounds.Min.X)
}
