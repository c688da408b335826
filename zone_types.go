package citygrid

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/voidshard/citygrid/internal/grid"
)

// ZoneType indicates what occupies a tile. Roads are always 1x1, the building
// zones can be 1x1, 2x2 or 3x3.
type ZoneType = grid.ZoneType

const (
	Empty       = grid.Empty       // nothing
	Road        = grid.Road        // a single road tile
	Residential = grid.Residential // homes, flats, apartment blocks
	Commercial  = grid.Commercial  // shops, offices, markets
	Industrial  = grid.Industrial  // factories, warehouses, depots
)

var (
	// ErrUnknownZone is returned by ParseZoneType for names we don't recognise
	ErrUnknownZone = errors.New("unknown zone type")

	allZones = []ZoneType{
		Empty, Road, Residential, Commercial, Industrial,
	}

	// zones the placer picks from (uniformly)
	buildingZones = []ZoneType{
		Residential, Commercial, Industrial,
	}

	zoneindex = map[string]ZoneType{}
)

func init() {
	for _, z := range allZones {
		zoneindex[z.String()] = z
	}
}

// ParseZoneType is the inversion of ZoneType.String()
func ParseZoneType(s string) (ZoneType, error) {
	z, ok := zoneindex[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Empty, errors.Wrapf(ErrUnknownZone, "%q", s)
	}
	return z, nil
}

// AllZoneTypes returns all known ZoneType enums
func AllZoneTypes() []ZoneType {
	out := make([]ZoneType, len(allZones))
	copy(out, allZones)
	return out
}

// BuildingZoneTypes returns the zones a building may be assigned
func BuildingZoneTypes() []ZoneType {
	out := make([]ZoneType, len(buildingZones))
	copy(out, buildingZones)
	return out
}
