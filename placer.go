package citygrid

import (
	"image"
	"math/rand"

	"github.com/voidshard/citygrid/internal/grid"
)

// building footprint sizes, largest first
var footprintSizes = []int{3, 2, 1}

// orientations a building may face, in degrees
var orientations = []int{0, 90, 180, 270}

// fitBuilding tries to place a building with minimum corner `origin`,
// largest footprint first. Sizes with an empty catalog are skipped.
// The first size that fits wins; zone, variant & orientation are uniform random.
//
// This is first fit rather than best packing; a 3x3 that fits is always taken
// even if two 2x2s would cover more ground. Caller must hold the lock.
func (c *City) fitBuilding(origin image.Point, rng *rand.Rand) (*grid.Record, bool) {
	idx := c.occ.Index()
	if idx.Get(origin) != Empty || c.occ.Occupied(origin) {
		return nil, false
	}

	for _, size := range footprintSizes {
		catalog := c.cfg.Catalogs.forSize(size)
		if len(catalog) == 0 {
			continue
		}
		if !c.occ.CanPlace(origin, size) {
			continue
		}

		zone := buildingZones[rng.Intn(len(buildingZones))]
		variant := catalog[rng.Intn(len(catalog))]
		orientation := orientations[rng.Intn(len(orientations))]

		rec, err := c.place(origin, size, zone, variant, orientation, rng)
		if err != nil {
			// CanPlace passed, so this is a bug rather than a full tile
			c.log.Error("failed to place building", "origin", origin, "size", size, "err", err)
			return nil, false
		}
		return rec, true
	}

	return nil, false
}
