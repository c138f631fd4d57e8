// Package dataset wraps dataset constructors so that the root directory
// they receive has already been resolved against the cluster's storage
// tiers, with any promotion to faster storage done on the way.
package dataset

import (
	"context"
	"errors"

	"datastage/pkg/registry"
	"datastage/pkg/resolver"
	"datastage/pkg/storage"
	"datastage/pkg/types"

	"go.uber.org/zap"
)

// Constructor builds a dataset object from a root directory. The concrete
// dataset semantics belong to the caller's library; this package only
// decides which root to hand it.
type Constructor[D any] func(ctx context.Context, root string) (D, error)

// Adapter ties the resolver and the promoter together behind a single
// entry point.
type Adapter struct {
	reg      *registry.Registry
	resolver *resolver.Resolver
	promoter *storage.Promoter
	logger   *zap.Logger
}

func NewAdapter(reg *registry.Registry, logger *zap.Logger) *Adapter {
	return &Adapter{
		reg:      reg,
		resolver: resolver.New(reg, logger),
		promoter: storage.NewPromoter(logger),
		logger:   logger,
	}
}

// Materialize resolves the dataset, runs any promotion the resolution calls
// for, and returns the root directory to construct the dataset from.
//
// Error handling follows three distinct paths. An unknown dataset or an
// incomplete promotion source fails outright. An I/O failure while copying
// into the fastest tier is caught here, and only here: the source tier was
// already validated, so the dataset is read in place from it instead. When
// no location holds the dataset at all, the returned root is the download
// directory in the slowest writable tier, overriding any caller-supplied
// root so the eventual download lands somewhere every job can reuse.
func (a *Adapter) Materialize(ctx context.Context, id types.DatasetID, callerRoot string) (string, error) {
	loc, err := a.resolver.Resolve(id, callerRoot)
	if err != nil {
		return "", err
	}

	if !loc.Found {
		ds, err := a.reg.Lookup(id)
		if err != nil {
			return "", err
		}
		download := a.reg.DatasetRootIn(ds, a.reg.DownloadTier())
		if callerRoot != "" && callerRoot != download {
			a.logger.Warn("Dataset not found on cluster, using download directory instead of caller root",
				zap.String("dataset", string(id)),
				zap.String("caller_root", callerRoot),
				zap.String("root", download))
		}
		return download, nil
	}

	if loc.Promotion == nil {
		return loc.Root, nil
	}

	if err := a.promoter.Promote(ctx, loc.Promotion.Files, loc.Promotion.Source, loc.Promotion.Dest); err != nil {
		var perr *storage.PromotionError
		if errors.As(err, &perr) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", err
		}
		// Copy into the fast tier failed (disk full, permissions). The
		// source root satisfied the oracle, so read from it directly.
		a.logger.Warn("Promotion to fastest tier failed, reading dataset in place",
			zap.String("dataset", string(id)),
			zap.String("root", loc.Promotion.Source),
			zap.Error(err))
		return loc.Promotion.Source, nil
	}

	return loc.Root, nil
}

// Adapt wraps a base constructor so that invoking it resolves and stages
// the dataset first, substituting the materialized root for the
// caller-supplied one. Pass an empty root to let resolution pick freely.
func Adapt[D any](a *Adapter, id types.DatasetID, base Constructor[D]) Constructor[D] {
	return func(ctx context.Context, root string) (D, error) {
		resolved, err := a.Materialize(ctx, id, root)
		if err != nil {
			var zero D
			return zero, err
		}
		return base(ctx, resolved)
	}
}
