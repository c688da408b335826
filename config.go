package citygrid

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/voidshard/citygrid/internal/noise"
)

const (
	// MinMapSize is the smallest width / height we accept
	MinMapSize = 10

	// MinTrafficRefresh is the shortest allowed traffic refresh interval
	MinTrafficRefresh = time.Second
)

var (
	// ErrInvalidConfig implies some setting is out of its allowed range.
	// Nothing is mutated when this is returned.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrMissingCatalogs implies no asset catalogs were given.
	ErrMissingCatalogs = errors.New("missing asset catalogs")
)

// Catalogs lists asset variant identifiers for each footprint size.
// Any list may be empty, in which case buildings of that size are never placed.
// Roads don't need a catalog.
type Catalogs struct {
	Small  []string `yaml:"small" json:",omitempty"`  // 1x1
	Medium []string `yaml:"medium" json:",omitempty"` // 2x2
	Large  []string `yaml:"large" json:",omitempty"`  // 3x3
}

// forSize returns the catalog for a given footprint size
func (c *Catalogs) forSize(size int) []string {
	switch size {
	case 1:
		return c.Small
	case 2:
		return c.Medium
	case 3:
		return c.Large
	}
	return nil
}

// Config holds configuration for a city.
// Zero values for the batch settings are replaced with defaults, everything else
// is validated as given.
type Config struct {
	// Width & Height of the map in tiles, both at least MinMapSize
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// SiteSpacing is the size of the grid cells we drop one voronoi site into.
	// Must be at least 1.
	SiteSpacing int `yaml:"site_spacing"`

	// SiteJitter moves each site randomly by up to +/- this many tiles on each
	// axis. Clamped to [0, SiteSpacing/2].
	SiteJitter int `yaml:"site_jitter"`

	// NoiseScale is how many noise "periods" fit across the map; higher values
	// give more, smaller clusters of branch points.
	NoiseScale float64 `yaml:"noise_scale"`

	// NoiseThreshold in [0,1]; tiles whose noise exceeds this become branch
	// points. Higher values mean fewer branches.
	NoiseThreshold float64 `yaml:"noise_threshold"`

	// NoiseOffset shifts where we sample on the noise plane.
	// Optional, if not given one is chosen from the seed.
	NoiseOffset *noise.Offset `yaml:"noise_offset,omitempty"`

	// ConnectEdges connects a fixed set of anchors near the map border to the
	// road network, so roads always run out to the edges.
	ConnectEdges bool `yaml:"connect_edges"`

	// BatchSize is the number of tiles scanned per generation Step
	BatchSize int `yaml:"batch_size"`

	// PathBatch is the number of path searches run per generation Step
	PathBatch int `yaml:"path_batch"`

	// ActivationBatch is the max number of renderer handles activated per
	// call to ActivateBatch
	ActivationBatch int `yaml:"activation_batch"`

	// MergeSamples bounds how many tiles of a disconnected road component we
	// consider when looking for the closest point to the main network.
	MergeSamples int `yaml:"merge_samples"`

	// TrafficBaseCost is the travel time of an uncongested road tile
	TrafficBaseCost float64 `yaml:"traffic_base_cost"`

	// CongestionThreshold is the load factor (load / capacity) above which
	// travel time starts rising exponentially.
	CongestionThreshold float64 `yaml:"congestion_threshold"`

	// TrafficRefresh is how often road loads are resampled by RunTraffic.
	// At least MinTrafficRefresh.
	TrafficRefresh time.Duration `yaml:"traffic_refresh"`

	// Seed for rng (random number chosen if not set)
	Seed int64 `yaml:"seed"`

	// Catalogs of asset variants, required.
	Catalogs *Catalogs `yaml:"catalogs"`
}

// DefaultConfig returns a reasonable default Config for a 100x100 city
func DefaultConfig() *Config {
	return &Config{
		Width:               100,
		Height:              100,
		SiteSpacing:         20,
		SiteJitter:          5,
		NoiseScale:          6,
		NoiseThreshold:      0.7,
		ConnectEdges:        true,
		BatchSize:           500,
		PathBatch:           4,
		ActivationBatch:     50,
		MergeSamples:        64,
		TrafficBaseCost:     1.0,
		CongestionThreshold: 1.0,
		TrafficRefresh:      5 * time.Second,
		Catalogs: &Catalogs{
			Small:  []string{"house", "kiosk", "workshop"},
			Medium: []string{"terrace", "store", "depot"},
			Large:  []string{"tower", "mall", "factory"},
		},
	}
}

// LoadConfig reads a yaml config from disk. Settings not present in the file
// keep their DefaultConfig values.
func LoadConfig(fpath string) (*Config, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", fpath)
	}

	cfg := DefaultConfig()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", fpath)
	}

	return cfg, nil
}

// Validate checks settings are within their allowed ranges (filling in
// defaults for zero batch sizes & clamping jitter as it goes).
func (c *Config) Validate() error {
	if c.Catalogs == nil {
		return ErrMissingCatalogs
	}
	if c.Width < MinMapSize || c.Height < MinMapSize {
		return errors.Wrapf(ErrInvalidConfig, "map size %dx%d, min is %dx%d", c.Width, c.Height, MinMapSize, MinMapSize)
	}
	if c.SiteSpacing < 1 {
		return errors.Wrapf(ErrInvalidConfig, "site spacing %d, min is 1", c.SiteSpacing)
	}
	if c.NoiseThreshold < 0 || c.NoiseThreshold > 1 {
		return errors.Wrapf(ErrInvalidConfig, "noise threshold %v outside [0,1]", c.NoiseThreshold)
	}
	if c.NoiseScale <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "noise scale %v must be positive", c.NoiseScale)
	}
	if c.TrafficBaseCost < 0 {
		return errors.Wrapf(ErrInvalidConfig, "traffic base cost %v is negative", c.TrafficBaseCost)
	}
	if c.CongestionThreshold < 0 {
		return errors.Wrapf(ErrInvalidConfig, "congestion threshold %v is negative", c.CongestionThreshold)
	}
	if c.TrafficRefresh < MinTrafficRefresh {
		return errors.Wrapf(ErrInvalidConfig, "traffic refresh %v, min is %v", c.TrafficRefresh, MinTrafficRefresh)
	}
	if c.BatchSize < 0 || c.PathBatch < 0 || c.ActivationBatch < 0 || c.MergeSamples < 0 {
		return errors.Wrap(ErrInvalidConfig, "batch sizes must not be negative")
	}

	if c.SiteJitter < 0 {
		c.SiteJitter = 0
	}
	if c.SiteJitter > c.SiteSpacing/2 {
		c.SiteJitter = c.SiteSpacing / 2
	}

	def := DefaultConfig()
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.PathBatch == 0 {
		c.PathBatch = def.PathBatch
	}
	if c.ActivationBatch == 0 {
		c.ActivationBatch = def.ActivationBatch
	}
	if c.MergeSamples == 0 {
		c.MergeSamples = def.MergeSamples
	}

	return nil
}
