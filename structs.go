package citygrid

import (
	"image"

	"github.com/voidshard/citygrid/internal/grid"
)

// Stats holds generic stats about the most recent generation run
type Stats struct {
	// Run uniquely identifies a generation run (also logged as `run`)
	Run  string
	Seed int64

	// inputs to the road network
	Sites        int
	BranchPoints int

	// local failures; we log these & carry on
	BranchFailures int `json:",omitempty"`
	AnchorFailures int `json:",omitempty"`
	MergeFailures  int `json:",omitempty"`

	// Components is the number of road components left after repair
	// (1 for a fully connected network)
	Components int

	// Healed is how many consistency violations were detected & cleared
	Healed int `json:",omitempty"`

	// number of records of each zone
	ZoneCounts map[ZoneType]int
}

// newStats returns blank Stats
func newStats(run string, seed int64) *Stats {
	return &Stats{Run: run, Seed: seed, ZoneCounts: map[ZoneType]int{}}
}

// increment ZoneCounts by 1
func (s *Stats) increment(z ZoneType) {
	count, _ := s.ZoneCounts[z]
	s.ZoneCounts[z] = count + 1
}

// decrement ZoneCounts by 1
func (s *Stats) decrement(z ZoneType) {
	count, _ := s.ZoneCounts[z]
	if count <= 1 {
		delete(s.ZoneCounts, z)
		return
	}
	s.ZoneCounts[z] = count - 1
}

// copy returns a deep copy, safe to hand to callers
func (s *Stats) copy() Stats {
	out := *s
	out.ZoneCounts = make(map[ZoneType]int, len(s.ZoneCounts))
	for k, v := range s.ZoneCounts {
		out.ZoneCounts[k] = v
	}
	return out
}

// Placement is a read only view of a placed object.
type Placement struct {
	// Origin is the minimum corner of the footprint
	Origin      image.Point
	Size        int
	Zone        ZoneType
	Orientation int    // degrees; 0, 90, 180 or 270
	Variant     string `json:",omitempty"`

	// roads only
	Capacity int `json:",omitempty"`
	Load     int `json:",omitempty"`
}

// Area returns the footprint of the placement
func (p *Placement) Area() image.Rectangle {
	return grid.Footprint(p.Origin, p.Size)
}

// LoadFactor is Load / Capacity (0 for non roads)
func (p *Placement) LoadFactor() float64 {
	if p.Capacity <= 0 {
		return 0
	}
	return float64(p.Load) / float64(p.Capacity)
}

func newPlacement(rec *grid.Record) *Placement {
	return &Placement{
		Origin:      rec.Origin(),
		Size:        rec.Size(),
		Zone:        rec.Zone,
		Orientation: rec.Orientation,
		Variant:     rec.Variant,
		Capacity:    rec.Capacity,
		Load:        rec.Load,
	}
}
