// Package resolver decides which storage tier's root path a dataset should
// be loaded from, and whether its files need to be promoted to a faster
// tier first.
package resolver

import (
	"os"

	"datastage/pkg/registry"
	"datastage/pkg/storage"
	"datastage/pkg/types"

	"go.uber.org/zap"
)

type Resolver struct {
	reg    *registry.Registry
	logger *zap.Logger
}

func New(reg *registry.Registry, logger *zap.Logger) *Resolver {
	return &Resolver{reg: reg, logger: logger}
}

// Resolve walks the tiers in priority order and returns the first location
// that actually holds the dataset's required files, together with any
// promotion needed before that location becomes valid. Priority order:
//
//  1. fastest writable tier, as-is (warm from a previous job on this node);
//  2. slower writable tiers (scratch), promoted unless the dataset is too
//     large for the fastest tier, in which case it is read in place;
//  3. read-only tiers the availability map claims hold the dataset, with
//     the same size handling;
//  4. the caller-supplied root, unchanged;
//  5. the current working directory, unchanged;
//  6. not found — a valid terminal state, not an error.
//
// An unregistered dataset fails with UnknownDatasetError before any
// filesystem access.
func (r *Resolver) Resolve(id types.DatasetID, callerRoot string) (types.ResolvedLocation, error) {
	ds, err := r.reg.Lookup(id)
	if err != nil {
		return types.ResolvedLocation{}, err
	}

	fast := r.reg.FastestWritable()
	fastRoot := r.reg.DatasetRootIn(ds, fast)
	checked := map[string]bool{fast.Name: true}

	if storage.AllPresent(ds.Files, fastRoot) {
		r.logger.Info("Dataset already present in fastest tier",
			zap.String("dataset", string(ds.ID)),
			zap.String("tier", fast.Name),
			zap.String("root", fastRoot))
		return types.ResolvedLocation{Found: true, Tier: fast, Root: fastRoot}, nil
	}

	for _, tier := range r.reg.WritableTiers() {
		if checked[tier.Name] {
			continue
		}
		checked[tier.Name] = true
		if loc, ok := r.fromSlowerTier(ds, tier, fast, fastRoot); ok {
			return loc, nil
		}
	}

	for _, tier := range r.reg.AvailableTiers(ds) {
		if checked[tier.Name] {
			continue
		}
		checked[tier.Name] = true
		if loc, ok := r.fromSlowerTier(ds, tier, fast, fastRoot); ok {
			return loc, nil
		}
	}

	if callerRoot != "" && storage.AllPresent(ds.Files, callerRoot) {
		r.logger.Info("Dataset found in caller-supplied root",
			zap.String("dataset", string(ds.ID)),
			zap.String("root", callerRoot))
		return types.ResolvedLocation{Found: true, Root: callerRoot}, nil
	}

	if cwd, err := os.Getwd(); err == nil && storage.AllPresent(ds.Files, cwd) {
		r.logger.Info("Dataset found in working directory",
			zap.String("dataset", string(ds.ID)),
			zap.String("root", cwd))
		return types.ResolvedLocation{Found: true, Root: cwd}, nil
	}

	r.logger.Warn("Dataset files not found in any tier",
		zap.String("dataset", string(ds.ID)),
		zap.String("caller_root", callerRoot))
	return types.ResolvedLocation{Found: false}, nil
}

// fromSlowerTier checks one tier slower than the fastest and, when it holds
// the dataset, decides between reading in place and promoting upward.
func (r *Resolver) fromSlowerTier(ds *registry.Dataset, tier, fast *types.Tier, fastRoot string) (types.ResolvedLocation, bool) {
	root := r.reg.DatasetRootIn(ds, tier)
	if !storage.AllPresent(ds.Files, root) {
		return types.ResolvedLocation{}, false
	}

	if r.reg.TooLargeFor(ds, fast) {
		r.logger.Info("Dataset too large for fastest tier, reading in place",
			zap.String("dataset", string(ds.ID)),
			zap.String("tier", tier.Name),
			zap.String("root", root))
		return types.ResolvedLocation{Found: true, Tier: tier, Root: root}, true
	}

	r.logger.Info("Dataset found in slower tier, promotion needed",
		zap.String("dataset", string(ds.ID)),
		zap.String("source_tier", tier.Name),
		zap.String("dest_tier", fast.Name))
	return types.ResolvedLocation{
		Found: true,
		Tier:  fast,
		Root:  fastRoot,
		Promotion: &types.Promotion{
			Dataset: ds.ID,
			Source:  root,
			Dest:    fastRoot,
			Files:   ds.Files,
		},
	}, true
}
