package grid

import (
	"image"
)

// ZoneType is what a tile is currently used for.
// Every in-bounds tile has exactly one ZoneType at any time.
type ZoneType uint8

const (
	Empty ZoneType = iota
	Road
	Residential
	Commercial
	Industrial
)

var zoneNames = [...]string{
	Empty:       "empty",
	Road:        "road",
	Residential: "residential",
	Commercial:  "commercial",
	Industrial:  "industrial",
}

// String returns the lower case name of the zone
func (z ZoneType) String() string {
	if int(z) >= len(zoneNames) {
		return "unknown"
	}
	return zoneNames[z]
}

// Valid returns if z is one of the known zone types
func (z ZoneType) Valid() bool {
	return int(z) < len(zoneNames)
}

// IsBuilding returns true for zones that are placed as buildings
func (z ZoneType) IsBuilding() bool {
	return z == Residential || z == Commercial || z == Industrial
}

// Footprint returns the area covered by a size x size object whose
// minimum corner is origin.
func Footprint(origin image.Point, size int) image.Rectangle {
	return image.Rect(origin.X, origin.Y, origin.X+size, origin.Y+size)
}

// Neighbours4 returns the four orthogonal neighbours of p in a fixed order
// (right, left, down, up). Bounds are not checked.
func Neighbours4(p image.Point) [4]image.Point {
	return [4]image.Point{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
}

// Manhattan distance between a & b
func Manhattan(a, b image.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
