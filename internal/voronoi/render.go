package voronoi

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
)

// ErrNoSites is returned when asked to draw a diagram without sites
var ErrNoSites = errors.New("diagram has no sites")

// cell fill colours, cycled by site index
var palette = []color.Color{
	colornames.Lightsteelblue,
	colornames.Palegreen,
	colornames.Khaki,
	colornames.Lightsalmon,
	colornames.Plum,
	colornames.Paleturquoise,
	colornames.Wheat,
	colornames.Lightpink,
}

var (
	boundaryColour = colornames.Dimgray
	edgeColour     = colornames.Crimson
	siteColour     = colornames.Navy
)

// Image draws the diagram at `scale` pixels per tile: every tile filled by the
// site it's nearest to, tiles bordering another cell darkened, the polygonal
// cell edges on top & a dot on each site.
func (v *Diagram) Image(scale int) (image.Image, error) {
	ctx, err := v.draw(scale)
	if err != nil {
		return nil, err
	}
	return ctx.Image(), nil
}

// DebugRender writes Image(scale) to the given path as a PNG
func (v *Diagram) DebugRender(fpath string, scale int) error {
	ctx, err := v.draw(scale)
	if err != nil {
		return err
	}
	return errors.Wrapf(ctx.SavePNG(fpath), "writing %s", fpath)
}

func (v *Diagram) draw(scale int) (*gg.Context, error) {
	if len(v.sites) == 0 {
		return nil, ErrNoSites
	}
	if scale < 1 {
		scale = 1
	}
	s := float64(scale)
	w, h := v.bounds.Dx(), v.bounds.Dy()

	labels := v.labels()
	at := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return -1
		}
		return labels[y*w+x]
	}

	ctx := gg.NewContext(w*scale, h*scale)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			label := at(x, y)
			col := palette[label%len(palette)]
			for _, n := range [][2]int{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
				other := at(n[0], n[1])
				if other >= 0 && other != label {
					col = boundaryColour
					break
				}
			}
			ctx.SetColor(col)
			ctx.DrawRectangle(float64(x)*s, float64(y)*s, s, s)
			ctx.Fill()
		}
	}

	ox, oy := float64(v.bounds.Min.X), float64(v.bounds.Min.Y)
	ctx.SetColor(edgeColour)
	ctx.SetLineWidth(1)
	for _, cell := range v.Cells() {
		for _, seg := range cell.Edges {
			ctx.DrawLine((seg[0].X-ox)*s, (seg[0].Y-oy)*s, (seg[1].X-ox)*s, (seg[1].Y-oy)*s)
			ctx.Stroke()
		}
	}

	ctx.SetColor(siteColour)
	for _, site := range v.sites {
		c := tileCentre(site)
		ctx.DrawCircle((c.X-ox)*s, (c.Y-oy)*s, s/3+0.5)
		ctx.Fill()
	}

	return ctx, nil
}

// labels returns NearestIndex for every tile, row-major from bounds.Min
func (v *Diagram) labels() []int {
	w, h := v.bounds.Dx(), v.bounds.Dy()
	out := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = v.NearestIndex(v.bounds.Min.X+x, v.bounds.Min.Y+y)
		}
	}
	return out
}
