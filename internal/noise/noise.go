package noise

import (
	"image"
	"math/rand"

	"github.com/aquilax/go-perlin"
)

const (
	alpha   = 2.0
	beta    = 2.0
	octaves = 3

	// offsets are drawn from [0, maxOffset) on each axis
	maxOffset = 10000.0
)

// Offset shifts where on the (infinite) noise plane we sample from, so two maps
// with the same seed but different offsets look unrelated.
type Offset struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// RandomOffset draws an offset from the given rng.
func RandomOffset(rng *rand.Rand) Offset {
	return Offset{X: rng.Float64() * maxOffset, Y: rng.Float64() * maxOffset}
}

// Sampler wraps a perlin generator and normalises output to [0,1]
type Sampler struct {
	p *perlin.Perlin
}

// NewSampler returns a sampler seeded with the given seed
func NewSampler(seed int64) *Sampler {
	return &Sampler{p: perlin.NewPerlin(alpha, beta, octaves, seed)}
}

// Sample returns smooth noise in [0,1] at the given coordinate
func (s *Sampler) Sample(x, y float64) float64 {
	v := (s.p.Noise2D(x, y) + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BranchPoints walks a w*h grid in row-major order (y outer, x inner) and returns
// every tile whose noise value is strictly above threshold. Tiles are mapped onto
// the noise plane as offset + (x/w, y/h) * scale.
// If free is non-nil only tiles it accepts are considered.
func (s *Sampler) BranchPoints(w, h int, scale, threshold float64, offset Offset, free func(image.Point) bool) []image.Point {
	out := []image.Point{}
	if w <= 0 || h <= 0 {
		return out
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := image.Pt(x, y)
			if free != nil && !free(p) {
				continue
			}
			nx := offset.X + float64(x)/float64(w)*scale
			ny := offset.Y + float64(y)/float64(h)*scale
			if s.Sample(nx, ny) > threshold {
				out = append(out, p)
			}
		}
	}

	return out
}
