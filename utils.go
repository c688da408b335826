package citygrid

import (
	"image"
	"image/color"

	"github.com/unixpickle/model3d/model2d"
)

// toCoord converts a tile to a model2d coord
func toCoord(p image.Point) model2d.Coord {
	return model2d.Coord{X: float64(p.X), Y: float64(p.Y)}
}

// toPoint is the inversion of toCoord (coords are always whole numbers here)
func toPoint(c model2d.Coord) image.Point {
	return image.Pt(int(c.X), int(c.Y))
}

// lerpColour blends a towards b by t in [0,1]
func lerpColour(a, b color.Color, t float64) color.Color {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	mix := func(x, y uint32) uint16 {
		return uint16(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA64{R: mix(ar, br), G: mix(ag, bg), B: mix(ab, bb), A: mix(aa, ba)}
}

// minint returns the lowest of two ints
func minint(a, b int) int {
	if a < b {
		return a
	}
	return b
}
