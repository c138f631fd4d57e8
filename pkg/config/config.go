package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"datastage/pkg/types"
	"datastage/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Config is the cluster profile: the storage tiers available on this cluster
// and the datasets known to live on them. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	Cluster  string        `yaml:"cluster"`
	Tiers    []TierSpec    `yaml:"tiers"`
	Datasets []DatasetSpec `yaml:"datasets"`
}

type TierSpec struct {
	Name          string `yaml:"name"`
	Root          string `yaml:"root"`
	Writable      bool   `yaml:"writable"`
	SpeedRank     int    `yaml:"speed_rank"`
	CapacityClass string `yaml:"capacity_class"`
	// Capacity is an optional human-friendly size like "300GiB".
	Capacity string `yaml:"capacity,omitempty"`
}

type DatasetSpec struct {
	ID    string   `yaml:"id"`
	Files []string `yaml:"files"`
	// Size is the dataset's declared on-disk size, e.g. "155GiB". Optional.
	Size string `yaml:"size,omitempty"`
	// AvailableOn names read-only tiers known (by prior inventory) to hold
	// this dataset's files already.
	AvailableOn []string `yaml:"available_on,omitempty"`
	// Roots overrides the dataset directory inside specific tiers. Without
	// an override the directory is <tier root>/<dataset id>.
	Roots    map[string]string `yaml:"roots,omitempty"`
	TooLarge bool              `yaml:"too_large,omitempty"`
}

// LoadConfig reads and validates a cluster profile. Environment variables in
// tier roots and dataset root overrides are expanded, so profiles can refer
// to $SCRATCH and $SLURM_TMPDIR directly.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for i := range cfg.Tiers {
		cfg.Tiers[i].Root = os.ExpandEnv(cfg.Tiers[i].Root)
	}
	for i := range cfg.Datasets {
		for tier, root := range cfg.Datasets[i].Roots {
			cfg.Datasets[i].Roots[tier] = os.ExpandEnv(root)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a tier-only profile from the SLURM environment, matching
// the layout used on SLURM clusters: node-local $SLURM_TMPDIR/data and shared
// $SCRATCH/data. Datasets still have to come from a profile file.
func LoadFromEnv() (*Config, error) {
	tmpdir := os.Getenv("SLURM_TMPDIR")
	scratch := os.Getenv("SCRATCH")
	if tmpdir == "" || scratch == "" {
		return nil, fmt.Errorf("SLURM_TMPDIR and SCRATCH must be set when no config file is given (are you on a login node?)")
	}

	cfg := &Config{
		Cluster: getEnv("DATASTAGE_CLUSTER", "slurm"),
		Tiers: []TierSpec{
			{Name: "local", Root: filepath.Join(tmpdir, "data"), Writable: true, SpeedRank: 0, CapacityClass: "small"},
			{Name: "scratch", Root: filepath.Join(scratch, "data"), Writable: true, SpeedRank: 1, CapacityClass: "large"},
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the profile for the mistakes that would otherwise surface
// as confusing resolution behavior much later.
func (c *Config) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("config: no tiers defined")
	}

	names := make(map[string]bool, len(c.Tiers))
	ranks := make(map[int]string, len(c.Tiers))
	writable := false
	for _, t := range c.Tiers {
		if t.Name == "" {
			return fmt.Errorf("config: tier with empty name")
		}
		if t.Root == "" {
			return fmt.Errorf("config: tier %q has no root", t.Name)
		}
		if names[t.Name] {
			return fmt.Errorf("config: duplicate tier name %q", t.Name)
		}
		names[t.Name] = true
		if prev, dup := ranks[t.SpeedRank]; dup {
			return fmt.Errorf("config: tiers %q and %q share speed_rank %d", prev, t.Name, t.SpeedRank)
		}
		ranks[t.SpeedRank] = t.Name
		if t.Writable {
			writable = true
		}
		switch types.CapacityClass(t.CapacityClass) {
		case types.CapacitySmall, types.CapacityLarge, types.CapacityUnbounded:
		default:
			return fmt.Errorf("config: tier %q has unknown capacity_class %q", t.Name, t.CapacityClass)
		}
		if t.Capacity != "" {
			if _, err := utils.ParseDataSize(t.Capacity); err != nil {
				return fmt.Errorf("config: tier %q capacity: %w", t.Name, err)
			}
		}
	}
	if !writable {
		return fmt.Errorf("config: no writable tier defined")
	}

	seen := make(map[string]bool, len(c.Datasets))
	for _, d := range c.Datasets {
		if d.ID == "" {
			return fmt.Errorf("config: dataset with empty id")
		}
		if seen[d.ID] {
			return fmt.Errorf("config: duplicate dataset id %q", d.ID)
		}
		seen[d.ID] = true
		if len(d.Files) == 0 {
			return fmt.Errorf("config: dataset %q has no required files", d.ID)
		}
		for _, f := range d.Files {
			if filepath.IsAbs(f) {
				return fmt.Errorf("config: dataset %q required path %q must be relative", d.ID, f)
			}
			clean := filepath.Clean(f)
			if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
				return fmt.Errorf("config: dataset %q required path %q escapes the dataset root", d.ID, f)
			}
		}
		if d.Size != "" {
			if _, err := utils.ParseDataSize(d.Size); err != nil {
				return fmt.Errorf("config: dataset %q size: %w", d.ID, err)
			}
		}
		for _, tier := range d.AvailableOn {
			if !names[tier] {
				return fmt.Errorf("config: dataset %q available_on unknown tier %q", d.ID, tier)
			}
		}
		for tier := range d.Roots {
			if !names[tier] {
				return fmt.Errorf("config: dataset %q overrides root for unknown tier %q", d.ID, tier)
			}
		}
	}

	return nil
}

// TierSet returns the configured tiers as domain objects, sorted fastest
// first. Call only after Validate has passed.
func (c *Config) TierSet() []types.Tier {
	tiers := make([]types.Tier, 0, len(c.Tiers))
	for _, t := range c.Tiers {
		var capacity int64
		if t.Capacity != "" {
			capacity, _ = utils.ParseDataSize(t.Capacity)
		}
		tiers = append(tiers, types.Tier{
			Name:          t.Name,
			Root:          t.Root,
			Writable:      t.Writable,
			SpeedRank:     t.SpeedRank,
			CapacityClass: types.CapacityClass(t.CapacityClass),
			Capacity:      capacity,
		})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].SpeedRank < tiers[j].SpeedRank })
	return tiers
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
