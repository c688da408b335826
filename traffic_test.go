package citygrid

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voidshard/citygrid/internal/grid"
)

var infinity = math.Inf(1)

func roadRecord(capacity, load int) *grid.Record {
	return &grid.Record{
		Area:     grid.Footprint(image.Pt(0, 0), 1),
		Zone:     grid.Road,
		Capacity: capacity,
		Load:     load,
	}
}

func TestTravelTime(t *testing.T) {
	cases := []struct {
		name      string
		rec       *grid.Record
		base      float64
		threshold float64
		want      float64
	}{
		{"under threshold", roadRecord(10, 5), 1, 1, 1},
		{"at threshold", roadRecord(10, 10), 1, 1, 1},
		{"congested", roadRecord(10, 20), 1, 1, 1 + math.Exp(2)},
		{"base scales", roadRecord(10, 20), 2, 1, 2 * (1 + math.Exp(2))},
		{"zero threshold", roadRecord(10, 1), 1, 0, 1 + math.Exp(0.1)},
		{"floor", roadRecord(10, 0), 0, 1, minTravelTime},
		{"no capacity", roadRecord(0, 0), 1, 1, infinity},
		{"negative capacity", roadRecord(-1, 0), 1, 1, infinity},
		{"nil", nil, 1, 1, infinity},
		{"building", &grid.Record{Area: grid.Footprint(image.Pt(0, 0), 1), Zone: grid.Commercial, Capacity: 10}, 1, 1, infinity},
		{"big road", &grid.Record{Area: grid.Footprint(image.Pt(0, 0), 2), Zone: grid.Road, Capacity: 10}, 1, 1, infinity},
	}

	for _, tc := range cases {
		got := travelTime(tc.rec, tc.base, tc.threshold)
		if math.IsInf(tc.want, 1) {
			if !math.IsInf(got, 1) {
				t.Fatalf("%s: expected +Inf, got %v", tc.name, got)
			}
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	// the congested case from above, as a human would write it down
	if got := travelTime(roadRecord(10, 20), 1, 1); math.Abs(got-8.389) > 0.001 {
		t.Fatalf("expected ~8.389, got %v", got)
	}
}

func TestCity_TravelTime(t *testing.T) {
	c := newTestCity(t, testConfig(12, 12), nil)
	mustPlaceRoads(t, c, image.Pt(2, 2))
	if _, err := c.Place(image.Pt(5, 5), 1, Residential, "house"); err != nil {
		t.Fatal(err)
	}

	rec := c.occ.RecordAt(image.Pt(2, 2))
	rec.Capacity = 10
	rec.Load = 5
	if got := c.TravelTime(image.Pt(2, 2)); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	rec.Load = 20
	if got := c.TravelTime(image.Pt(2, 2)); math.Abs(got-(1+math.Exp(2))) > 1e-9 {
		t.Fatalf("expected 1+e^2, got %v", got)
	}

	for _, p := range []image.Point{{5, 5}, {0, 0}, {-3, 4}} {
		if got := c.TravelTime(p); !math.IsInf(got, 1) {
			t.Fatalf("expected %v to be impassable, got %v", p, got)
		}
	}
}

func TestRefreshTraffic(t *testing.T) {
	c := newTestCity(t, testConfig(20, 20), nil)
	mustPlaceRoads(t, c, hline(0, 19, 3)...)

	var calls int32
	c.OnTrafficRefresh(func() { atomic.AddInt32(&calls, 1) })
	c.OnTrafficRefresh(nil) // ignored

	changed := false
	before := map[image.Point]int{}
	for _, p := range c.Placements() {
		before[p.Origin] = p.Load
	}

	for i := 0; i < 5; i++ {
		c.RefreshTraffic()
		for _, p := range c.Placements() {
			if p.Load < 0 || p.Load > grid.MaxLoad {
				t.Fatalf("load %d out of range at %v", p.Load, p.Origin)
			}
			if p.Capacity < grid.MinCapacity || p.Capacity > grid.MaxCapacity {
				t.Fatalf("capacity %d out of range at %v", p.Capacity, p.Origin)
			}
			if p.Load != before[p.Origin] {
				changed = true
			}
		}
	}

	if !changed {
		t.Fatal("refreshing 20 roads 5 times never changed a load")
	}
	if n := atomic.LoadInt32(&calls); n != 5 {
		t.Fatalf("expected 5 callbacks, got %d", n)
	}
}

func TestRunTraffic(t *testing.T) {
	cfg := testConfig(12, 12)
	cfg.TrafficRefresh = time.Second
	c := newTestCity(t, cfg, nil)
	mustPlaceRoads(t, c, image.Pt(1, 1))

	refreshed := make(chan struct{}, 1)
	c.OnTrafficRefresh(func() {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.RunTraffic(ctx) }()

	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("traffic never refreshed")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunTraffic did not stop")
	}
}

func TestRefreshTraffic_ConcurrentQueries(t *testing.T) {
	c := newTestCity(t, testConfig(30, 30), nil)
	if err := c.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	roads := c.occ.Roads()
	start, end := roads[0], roads[len(roads)-1]

	// the slowest a single tile can be: least capacity, most load
	worst := travelTime(roadRecord(grid.MinCapacity, grid.MaxLoad), c.cfg.TrafficBaseCost, c.cfg.CongestionThreshold)

	const rounds = 50
	errs := make(chan error, 8)
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			c.RefreshTraffic()
		}
	}()

	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				path, cost, ok := c.Route(start, end)
				if !ok {
					errs <- fmt.Errorf("no route %v -> %v", start, end)
					return
				}
				steps := float64(len(path) - 1)
				if cost < steps*minTravelTime || cost > steps*worst {
					errs <- fmt.Errorf("cost %v outside [%v, %v] for %d steps", cost, steps*minTravelTime, steps*worst, len(path)-1)
					return
				}
				for _, p := range path {
					if tt := c.TravelTime(p); tt < minTravelTime || tt > worst {
						errs <- fmt.Errorf("travel time %v at %v outside [%v, %v]", tt, p, minTravelTime, worst)
						return
					}
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			for _, p := range c.Placements() {
				if p.Zone == Road && (p.Load < 0 || p.Load > grid.MaxLoad) {
					errs <- fmt.Errorf("load %d out of range at %v", p.Load, p.Origin)
					return
				}
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
