package grid

import (
	"errors"
	"image"
	"math/rand"
	"testing"
)

func newTestOccupancy(t *testing.T, w, h int) *Occupancy {
	t.Helper()
	return NewOccupancy(w, h, nil)
}

func mustPlace(t *testing.T, o *Occupancy, origin image.Point, size int, zone ZoneType) *Record {
	t.Helper()
	rec, err := o.Place(origin, size, zone, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("place %v size %d: %v", origin, size, err)
	}
	return rec
}

func assertConsistent(t *testing.T, o *Occupancy) {
	t.Helper()
	for _, err := range o.Verify() {
		t.Error(err)
	}
}

func TestIndex_OutOfBounds(t *testing.T) {
	g := NewIndex(4, 3)

	for _, p := range []image.Point{{-1, 0}, {0, -1}, {4, 0}, {0, 3}} {
		if g.InBounds(p) {
			t.Fatalf("%v should be out of bounds", p)
		}
		if g.set(p, Road) {
			t.Fatalf("set out of bounds %v should be a no-op", p)
		}
		if g.Get(p) != Empty {
			t.Fatalf("get out of bounds %v should be Empty", p)
		}
	}

	if !g.set(image.Pt(3, 2), Road) || g.Get(image.Pt(3, 2)) != Road {
		t.Fatal("expected in bounds set / get to round trip")
	}
	if g.Offset(image.Pt(3, 2)) != 11 || g.Point(11) != image.Pt(3, 2) {
		t.Fatal("offset / point should be row-major inverses")
	}
}

func TestCanPlace(t *testing.T) {
	o := newTestOccupancy(t, 10, 10)
	mustPlace(t, o, image.Pt(2, 2), 1, Road)

	cases := []struct {
		name   string
		origin image.Point
		size   int
		want   bool
	}{
		{"clear 3x3", image.Pt(5, 5), 3, true},
		{"touches road", image.Pt(1, 1), 2, false},
		{"escapes right edge", image.Pt(8, 0), 3, false},
		{"negative origin", image.Pt(-1, 0), 1, false},
		{"zero size", image.Pt(0, 0), 0, false},
		{"last tile", image.Pt(9, 9), 1, true},
	}
	for _, c := range cases {
		if got := o.CanPlace(c.origin, c.size); got != c.want {
			t.Errorf("%s: CanPlace(%v, %d) = %v, want %v", c.name, c.origin, c.size, got, c.want)
		}
	}
}

func TestPlace_FootprintAtomicity(t *testing.T) {
	o := newTestOccupancy(t, 8, 8)
	before := map[image.Point]ZoneType{}
	for i := 0; i < o.index.Area(); i++ {
		before[o.index.Point(i)] = o.index.Get(o.index.Point(i))
	}

	rec := mustPlace(t, o, image.Pt(3, 3), 3, Commercial)

	for i := 0; i < o.index.Area(); i++ {
		p := o.index.Point(i)
		if p.In(rec.Area) {
			origin, ok := o.Owner(p)
			if !ok || origin != image.Pt(3, 3) {
				t.Fatalf("tile %v should map to origin (3,3), got %v %v", p, origin, ok)
			}
			if o.index.Get(p) != Commercial {
				t.Fatalf("tile %v should be commercial, got %s", p, o.index.Get(p))
			}
			continue
		}
		if o.index.Get(p) != before[p] || o.Occupied(p) {
			t.Fatalf("tile %v outside the footprint changed", p)
		}
	}
	assertConsistent(t, o)
}

func TestPlace_Rejections(t *testing.T) {
	o := newTestOccupancy(t, 5, 5)

	_, err := o.Place(image.Pt(4, 4), 2, Residential, nil)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	_, err = o.Place(image.Pt(0, 0), 2, Road, nil)
	if !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement for 2x2 road, got %v", err)
	}
	_, err = o.Place(image.Pt(0, 0), 1, Empty, nil)
	if !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement for empty zone, got %v", err)
	}
	_, err = o.Place(image.Pt(0, 0), 4, Industrial, nil)
	if !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement for 4x4, got %v", err)
	}

	if len(o.Records()) != 0 {
		t.Fatal("rejected placements must not mutate anything")
	}
	assertConsistent(t, o)
}

func TestRemoveAt_CoveredTileRemovesWholeBuilding(t *testing.T) {
	o := newTestOccupancy(t, 10, 10)
	mustPlace(t, o, image.Pt(3, 3), 2, Residential)

	rec := o.RemoveAt(image.Pt(4, 4))
	if rec == nil || rec.Origin() != image.Pt(3, 3) {
		t.Fatalf("expected the 2x2 at (3,3) to be removed, got %v", rec)
	}

	for _, p := range []image.Point{{3, 3}, {4, 3}, {3, 4}, {4, 4}} {
		if o.index.Get(p) != Empty || o.Occupied(p) {
			t.Fatalf("tile %v should be empty & unowned", p)
		}
	}
	if o.RecordAt(image.Pt(3, 3)) != nil {
		t.Fatal("record should be gone")
	}
	assertConsistent(t, o)
}

func TestRemoveAt_Idempotent(t *testing.T) {
	o := newTestOccupancy(t, 4, 4)
	mustPlace(t, o, image.Pt(1, 1), 1, Road)

	if rec := o.RemoveAt(image.Pt(0, 0)); rec != nil {
		t.Fatalf("expected nothing removed, got %v", rec)
	}
	if rec := o.RemoveAt(image.Pt(-5, 9)); rec != nil {
		t.Fatal("out of bounds remove should be a no-op")
	}
	if o.RoadCount() != 1 || o.Healed() != 0 {
		t.Fatal("no-op remove changed state")
	}
	assertConsistent(t, o)
}

func TestPlace_DemolishesOverlaps(t *testing.T) {
	o := newTestOccupancy(t, 10, 10)
	removed := []*Record{}
	o.SetRemoveHook(func(r *Record) { removed = append(removed, r) })

	mustPlace(t, o, image.Pt(0, 0), 3, Industrial)
	mustPlace(t, o, image.Pt(4, 4), 1, Road)

	// a road through the corner of the 3x3 wipes out the whole building
	mustPlace(t, o, image.Pt(2, 2), 1, Road)

	if len(removed) != 1 || removed[0].Zone != Industrial {
		t.Fatalf("expected the industrial block to be demolished, got %v", removed)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			p := image.Pt(x, y)
			if p == image.Pt(2, 2) {
				continue
			}
			if o.Occupied(p) {
				t.Fatalf("tile %v should have been cleared", p)
			}
		}
	}
	if o.RoadCount() != 2 {
		t.Fatalf("expected 2 roads, got %d", o.RoadCount())
	}
	assertConsistent(t, o)
}

func TestRoadSetAccuracy(t *testing.T) {
	o := newTestOccupancy(t, 12, 12)
	rng := rand.New(rand.NewSource(7))

	zones := []ZoneType{Road, Road, Road, Residential, Commercial, Industrial}
	for i := 0; i < 400; i++ {
		p := image.Pt(rng.Intn(12), rng.Intn(12))
		switch rng.Intn(3) {
		case 0:
			o.RemoveAt(p)
		default:
			z := zones[rng.Intn(len(zones))]
			size := 1
			if z != Road {
				size = 1 + rng.Intn(3)
			}
			o.Place(p, size, z, rng) // out of bounds failures are fine
		}
	}

	want := map[image.Point]bool{}
	for _, rec := range o.Records() {
		if rec.IsRoad() {
			want[rec.Origin()] = true
		}
	}
	got := o.Roads()
	if len(got) != len(want) {
		t.Fatalf("road set has %d entries, expected %d", len(got), len(want))
	}
	for _, p := range got {
		if !want[p] {
			t.Fatalf("road set contains non-road %v", p)
		}
	}
	assertConsistent(t, o)
}

func TestPlace_RoadTrafficRanges(t *testing.T) {
	o := newTestOccupancy(t, 30, 30)
	rng := rand.New(rand.NewSource(99))
	for x := 0; x < 30; x++ {
		for y := 0; y < 30; y++ {
			rec, err := o.Place(image.Pt(x, y), 1, Road, rng)
			if err != nil {
				t.Fatal(err)
			}
			if rec.Capacity < MinCapacity || rec.Capacity > MaxCapacity {
				t.Fatalf("capacity %d out of range", rec.Capacity)
			}
			if rec.Load < 0 || rec.Load > MaxLoad {
				t.Fatalf("load %d out of range", rec.Load)
			}
		}
	}
}

func TestRemoveAt_HealsStrayMarks(t *testing.T) {
	o := newTestOccupancy(t, 5, 5)

	// corrupt: zone set with no owner
	o.index.set(image.Pt(1, 1), Commercial)
	o.RemoveAt(image.Pt(1, 1))
	if o.index.Get(image.Pt(1, 1)) != Empty {
		t.Fatal("stray zone should have been cleared")
	}

	// corrupt: owner entries for a record that doesn't exist
	o.owner[image.Pt(3, 3)] = image.Pt(2, 2)
	o.owner[image.Pt(2, 2)] = image.Pt(2, 2)
	o.index.set(image.Pt(3, 3), Residential)
	o.index.set(image.Pt(2, 2), Residential)
	o.RemoveAt(image.Pt(3, 3))

	if o.Occupied(image.Pt(2, 2)) || o.Occupied(image.Pt(3, 3)) {
		t.Fatal("orphaned owner entries should be swept")
	}
	if o.Healed() != 2 {
		t.Fatalf("expected 2 heals, got %d", o.Healed())
	}
	assertConsistent(t, o)
}

func TestRemoveAt_HealsFootprintOffGrid(t *testing.T) {
	o := newTestOccupancy(t, 5, 5)
	removed := []*Record{}
	o.SetRemoveHook(func(r *Record) { removed = append(removed, r) })

	// corrupt: a 3x3 at (3,3) hangs two tiles off the bottom right corner
	origin := image.Pt(3, 3)
	rec := &Record{ID: 99, Area: Footprint(origin, 3), Zone: Industrial}
	o.records[origin] = rec
	inside := []image.Point{{3, 3}, {4, 3}, {3, 4}, {4, 4}}
	for _, p := range inside {
		o.owner[p] = origin
		o.index.set(p, Industrial)
	}
	if len(o.Verify()) == 0 {
		t.Fatal("expected the corrupt record to fail Verify")
	}

	got := o.RemoveAt(image.Pt(4, 4))
	if got != rec {
		t.Fatalf("expected the off grid record back, got %+v", got)
	}
	if o.Healed() != 1 {
		t.Fatalf("expected 1 heal, got %d", o.Healed())
	}
	for _, p := range inside {
		if o.Occupied(p) || o.index.Get(p) != Empty {
			t.Fatalf("tile %v not cleared", p)
		}
	}
	if o.RecordAt(origin) != nil {
		t.Fatal("record should be dropped")
	}
	if len(removed) != 1 || removed[0] != rec {
		t.Fatalf("expected the remove hook to fire once, got %d", len(removed))
	}
	assertConsistent(t, o)
}

func TestReset(t *testing.T) {
	o := newTestOccupancy(t, 6, 6)
	count := 0
	o.SetRemoveHook(func(*Record) { count++ })

	mustPlace(t, o, image.Pt(0, 0), 2, Residential)
	mustPlace(t, o, image.Pt(3, 3), 1, Road)
	o.Reset()

	if count != 2 {
		t.Fatalf("expected remove hook for both records, got %d", count)
	}
	if len(o.Records()) != 0 || o.RoadCount() != 0 {
		t.Fatal("reset should drop everything")
	}
	assertConsistent(t, o)
}
