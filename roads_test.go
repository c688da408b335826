package citygrid

import (
	"image"
	"testing"

	"github.com/voidshard/citygrid/internal/grid"
)

// runPhase drives a generator through a single phase
func runPhase(t *testing.T, g *Generator, phase Phase) {
	t.Helper()
	g.phase = phase
	for i := 0; g.phase == phase; i++ {
		if i > 100000 {
			t.Fatalf("phase %s never finished", phase)
		}
		if _, err := g.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
}

func hline(x0, x1, y int) []image.Point {
	out := []image.Point{}
	for x := x0; x <= x1; x++ {
		out = append(out, image.Pt(x, y))
	}
	return out
}

func TestRepair_MergesDisjointComponents(t *testing.T) {
	c := newTestCity(t, testConfig(60, 20), nil)
	left := hline(2, 6, 10)
	right := hline(37, 41, 10) // 30 tiles on from the left component
	mustPlaceRoads(t, c, left...)
	mustPlaceRoads(t, c, right...)

	if n := len(roadComponents(c.occ)); n != 2 {
		t.Fatalf("expected 2 components to start with, got %d", n)
	}
	before := c.occ.RoadCount()

	g := c.NewGenerator()
	runPhase(t, g, PhaseConnectivity)

	if n := len(roadComponents(c.occ)); n != 1 {
		t.Fatalf("expected 1 component after repair, got %d", n)
	}
	if c.occ.RoadCount() < before {
		t.Fatalf("road count shrank from %d to %d", before, c.occ.RoadCount())
	}
	for _, p := range append(left, right...) {
		if !c.occ.IsRoad(p) {
			t.Fatalf("pre-existing road %v was lost", p)
		}
	}

	stats := c.Stats()
	if stats.Components != 1 || stats.MergeFailures != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	assertConsistent(t, c)
}

func TestRepair_MergesMany(t *testing.T) {
	c := newTestCity(t, testConfig(40, 40), nil)
	for y := 2; y < 40; y += 6 {
		for x := 2; x < 36; x += 9 {
			mustPlaceRoads(t, c, hline(x, x+2, y)...)
		}
	}
	before := c.occ.RoadCount()

	g := c.NewGenerator()
	runPhase(t, g, PhaseConnectivity)

	if n := len(roadComponents(c.occ)); n != 1 {
		t.Fatalf("expected 1 component after repair, got %d", n)
	}
	if c.occ.RoadCount() < before {
		t.Fatal("road count shrank")
	}
	assertConsistent(t, c)
}

func TestRepair_BlockedIsNotFatal(t *testing.T) {
	c := newTestCity(t, testConfig(30, 20), nil)

	// a column of buildings nothing can path through
	for y := 0; y < 20; y++ {
		if _, err := c.Place(image.Pt(15, y), 1, Industrial, "wall"); err != nil {
			t.Fatal(err)
		}
	}
	mustPlaceRoads(t, c, hline(2, 6, 10)...)
	mustPlaceRoads(t, c, hline(20, 24, 10)...)
	before := c.occ.RoadCount()

	g := c.NewGenerator()
	runPhase(t, g, PhaseConnectivity)

	stats := c.Stats()
	if stats.Components != 2 || stats.MergeFailures != 1 {
		t.Fatalf("expected 2 components & 1 failure, got %+v", stats)
	}
	if c.occ.RoadCount() != before {
		t.Fatalf("failed merge changed road count %d -> %d", before, c.occ.RoadCount())
	}
	assertConsistent(t, c)
}

func TestRoadComponents(t *testing.T) {
	occ := grid.NewOccupancy(10, 10, nil)
	place := func(pts ...image.Point) {
		for _, p := range pts {
			if _, err := occ.Place(p, 1, grid.Road, nil); err != nil {
				t.Fatal(err)
			}
		}
	}
	place(image.Pt(0, 0), image.Pt(1, 0), image.Pt(1, 1)) // L shape
	place(image.Pt(5, 5), image.Pt(6, 6))                 // diagonal, so two components
	place(image.Pt(9, 0), image.Pt(9, 1), image.Pt(9, 2)) // column

	comps := roadComponents(occ)
	if len(comps) != 4 {
		t.Fatalf("expected 4 components, got %d: %v", len(comps), comps)
	}

	// found in row-major order of their first tile
	firsts := []image.Point{{0, 0}, {9, 0}, {5, 5}, {6, 6}}
	sizes := []int{3, 3, 1, 1}
	for i, comp := range comps {
		if comp[0] != firsts[i] || len(comp) != sizes[i] {
			t.Fatalf("component %d: expected %d tiles from %v, got %v", i, sizes[i], firsts[i], comp)
		}
	}
}

func TestIsCellBoundary(t *testing.T) {
	idx := grid.NewIndex(4, 1)
	nearest := []int{0, 0, 1, 1}

	want := []bool{false, true, true, false}
	for x := 0; x < 4; x++ {
		if got := isCellBoundary(idx, nearest, image.Pt(x, 0)); got != want[x] {
			t.Fatalf("tile %d: expected boundary=%v", x, want[x])
		}
	}
}

func TestEdgeAnchors(t *testing.T) {
	anchors := edgeAnchors(20, 30)
	if len(anchors) != 8 {
		t.Fatalf("expected 8 anchors, got %d", len(anchors))
	}
	for _, a := range anchors {
		if a.X < 1 || a.Y < 1 || a.X > 18 || a.Y > 28 {
			t.Fatalf("anchor %v is on the outer ring or off the map", a)
		}
	}
	if len(edgeAnchors(2, 10)) != 0 {
		t.Fatal("expected no anchors without an inner ring")
	}
}

func TestNearestAnchor_FirstWinsTies(t *testing.T) {
	g := &Generator{anchorSet: map[image.Point]struct{}{}}
	g.addAnchor(image.Pt(5, 0))
	g.addAnchor(image.Pt(0, 5))
	g.addAnchor(image.Pt(5, 0)) // duplicate ignored

	if len(g.anchors) != 2 {
		t.Fatalf("expected duplicates to be dropped, got %v", g.anchors)
	}

	got, ok := g.nearestAnchor(image.Pt(0, 0))
	if !ok || got != image.Pt(5, 0) {
		t.Fatalf("expected the first added anchor to win the tie, got %v", got)
	}

	empty := &Generator{anchorSet: map[image.Point]struct{}{}}
	if _, ok := empty.nearestAnchor(image.Pt(0, 0)); ok {
		t.Fatal("expected no anchor")
	}
}

func TestSamplePoints(t *testing.T) {
	in := hline(0, 99, 0)
	out := samplePoints(in, 10)
	if len(out) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(out))
	}
	for i, p := range out {
		if p.X != i*10 {
			t.Fatalf("sample %d: expected x=%d, got %v", i, i*10, p)
		}
	}
	if len(samplePoints(in[:5], 10)) != 5 {
		t.Fatal("small inputs should be returned whole")
	}
}

func TestFixedCost(t *testing.T) {
	c := newTestCity(t, testConfig(12, 12), nil)
	mustPlaceRoads(t, c, image.Pt(1, 1))
	if _, err := c.Place(image.Pt(5, 5), 2, Commercial, "store"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		tile image.Point
		want float64
	}{
		{image.Pt(1, 1), roadCost},
		{image.Pt(0, 0), emptyCost},
		{image.Pt(6, 6), infinity},
		{image.Pt(-1, 0), infinity},
		{image.Pt(0, 12), infinity},
	}
	for _, tc := range cases {
		if got := c.CostOf(tc.tile); got != tc.want {
			t.Fatalf("CostOf(%v) = %v, expected %v", tc.tile, got, tc.want)
		}
	}
}
