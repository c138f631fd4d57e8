// Package registry holds the static, per-cluster knowledge the resolver
// works from: which tiers exist, which relative paths make up a complete
// copy of each dataset, which read-only tiers already hold a dataset, and
// which datasets must never be promoted to the fastest tier.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"datastage/pkg/config"
	"datastage/pkg/types"
	"datastage/pkg/utils"
)

// UnknownDatasetError reports a dataset with no registered required-file set,
// neither by exact ID nor by name fallback. Resolution cannot proceed without
// knowing which files matter, so this surfaces immediately.
type UnknownDatasetError struct {
	Dataset types.DatasetID
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("unknown dataset %q: no required files registered for it on this cluster", e.Dataset)
}

// Dataset is one registered dataset: its required files plus the static
// placement knowledge attached to it.
type Dataset struct {
	ID    types.DatasetID
	Files []string
	// Size is the declared on-disk size in bytes, 0 when undeclared.
	Size int64
	// TooLarge marks the dataset as exempt from promotion to the fastest
	// tier regardless of declared sizes.
	TooLarge bool

	availableOn []string
	roots       map[string]string
}

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	cluster  string
	tiers    []types.Tier // sorted fastest first
	datasets map[types.DatasetID]*Dataset
}

// New builds a registry from a validated cluster profile.
func New(cfg *config.Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		cluster:  cfg.Cluster,
		tiers:    cfg.TierSet(),
		datasets: make(map[types.DatasetID]*Dataset, len(cfg.Datasets)),
	}

	for _, d := range cfg.Datasets {
		ds := &Dataset{
			ID:          types.DatasetID(d.ID),
			Files:       append([]string(nil), d.Files...),
			TooLarge:    d.TooLarge,
			availableOn: append([]string(nil), d.AvailableOn...),
			roots:       make(map[string]string, len(d.Roots)),
		}
		if d.Size != "" {
			size, err := utils.ParseDataSize(d.Size)
			if err != nil {
				return nil, fmt.Errorf("dataset %q: %w", d.ID, err)
			}
			ds.Size = size
		}
		for tier, root := range d.Roots {
			ds.roots[tier] = root
		}
		r.datasets[ds.ID] = ds
	}

	return r, nil
}

// Cluster returns the profile's cluster name.
func (r *Registry) Cluster() string { return r.cluster }

// Tiers returns all tiers, fastest first.
func (r *Registry) Tiers() []types.Tier { return r.tiers }

// FastestWritable returns the fastest tier that can be written to, normally
// the node-local ephemeral disk.
func (r *Registry) FastestWritable() *types.Tier {
	for i := range r.tiers {
		if r.tiers[i].Writable {
			return &r.tiers[i]
		}
	}
	return nil
}

// WritableTiers returns the writable tiers, fastest first.
func (r *Registry) WritableTiers() []*types.Tier {
	var out []*types.Tier
	for i := range r.tiers {
		if r.tiers[i].Writable {
			out = append(out, &r.tiers[i])
		}
	}
	return out
}

// DownloadTier returns the slowest writable tier, the conventional place to
// download datasets that no tier holds yet: shared scratch survives the job
// and is visible to every node, unlike the node-local tier.
func (r *Registry) DownloadTier() *types.Tier {
	tiers := r.WritableTiers()
	if len(tiers) == 0 {
		return nil
	}
	return tiers[len(tiers)-1]
}

// Lookup finds a dataset by exact ID, falling back to a case-insensitive
// name match for callers that hold a differently-cased handle on the same
// dataset. An ambiguous fallback match is a registry configuration error.
func (r *Registry) Lookup(id types.DatasetID) (*Dataset, error) {
	if ds, ok := r.datasets[id]; ok {
		return ds, nil
	}

	var match *Dataset
	folded := strings.ToLower(string(id))
	for key, ds := range r.datasets {
		if strings.ToLower(string(key)) == folded {
			if match != nil {
				return nil, fmt.Errorf("dataset %q matches both %q and %q by name: fix the registry to use one id", id, match.ID, ds.ID)
			}
			match = ds
		}
	}
	if match == nil {
		return nil, &UnknownDatasetError{Dataset: id}
	}
	return match, nil
}

// Datasets returns all registered datasets sorted by ID.
func (r *Registry) Datasets() []*Dataset {
	out := make([]*Dataset, 0, len(r.datasets))
	for _, ds := range r.datasets {
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AvailableTiers returns the tiers the availability map claims already hold
// the dataset, fastest first. The claim is static inventory knowledge; the
// resolver still re-checks it against the filesystem.
func (r *Registry) AvailableTiers(ds *Dataset) []*types.Tier {
	var out []*types.Tier
	for i := range r.tiers {
		for _, name := range ds.availableOn {
			if r.tiers[i].Name == name {
				out = append(out, &r.tiers[i])
			}
		}
	}
	return out
}

// DatasetRootIn returns the directory that holds (or would hold) the dataset
// inside the given tier, honoring per-dataset root overrides.
func (r *Registry) DatasetRootIn(ds *Dataset, tier *types.Tier) string {
	if root, ok := ds.roots[tier.Name]; ok {
		return root
	}
	return tier.DatasetRoot(ds.ID)
}

// TooLargeFor reports whether the dataset must not be promoted into the
// given tier: either flagged explicitly, or its declared size exceeds the
// tier's declared capacity.
func (r *Registry) TooLargeFor(ds *Dataset, tier *types.Tier) bool {
	if ds.TooLarge {
		return true
	}
	return ds.Size > 0 && tier.Capacity > 0 && ds.Size > tier.Capacity
}
