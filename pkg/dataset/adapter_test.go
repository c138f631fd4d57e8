package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"datastage/pkg/config"
	"datastage/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func testAdapter(t *testing.T) (*Adapter, string, string) {
	t.Helper()
	local := t.TempDir()
	scratch := t.TempDir()

	cfg := &config.Config{
		Cluster: "test",
		Tiers: []config.TierSpec{
			{Name: "local", Root: local, Writable: true, SpeedRank: 0, CapacityClass: "small"},
			{Name: "scratch", Root: scratch, Writable: true, SpeedRank: 1, CapacityClass: "large"},
		},
		Datasets: []config.DatasetSpec{
			{ID: "d", Files: []string{"data.bin"}},
		},
	}
	reg, err := registry.New(cfg)
	require.NoError(t, err)
	return NewAdapter(reg, zap.NewNop()), local, scratch
}

func stage(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o644))
	}
}

func TestMaterializePromotesToFastTier(t *testing.T) {
	a, local, scratch := testAdapter(t)
	stage(t, filepath.Join(scratch, "d"), "data.bin")

	root, err := a.Materialize(context.Background(), "d", "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(local, "d"), root)
	data, err := os.ReadFile(filepath.Join(local, "d", "data.bin"))
	require.NoError(t, err)
	assert.Equal(t, "data.bin", string(data), "promoted copy matches the scratch contents")
}

func TestMaterializeWarmFastTierSkipsCopy(t *testing.T) {
	a, local, _ := testAdapter(t)
	stage(t, filepath.Join(local, "d"), "data.bin")

	root, err := a.Materialize(context.Background(), "d", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(local, "d"), root)
}

func TestMaterializeFallsBackWhenFastTierCopyFails(t *testing.T) {
	a, local, scratch := testAdapter(t)
	stage(t, filepath.Join(scratch, "d"), "data.bin")

	// Block the promotion's mkdir with a plain I/O error: a stray file is
	// sitting where the dataset directory should go.
	require.NoError(t, os.WriteFile(filepath.Join(local, "d"), []byte("in the way"), 0o644))

	root, err := a.Materialize(context.Background(), "d", "")
	require.NoError(t, err, "an I/O failure on the fast tier is not fatal")
	assert.Equal(t, filepath.Join(scratch, "d"), root, "falls back to the validated source root")
}

func TestMaterializeNotFoundUsesDownloadRoot(t *testing.T) {
	a, _, scratch := testAdapter(t)

	root, err := a.Materialize(context.Background(), "d", "/home/user/mydata")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(scratch, "d"), root,
		"downloads land in shared scratch even when a caller root was given")
}

func TestMaterializeCallerRootWins(t *testing.T) {
	a, _, _ := testAdapter(t)

	callerRoot := t.TempDir()
	stage(t, callerRoot, "data.bin")

	root, err := a.Materialize(context.Background(), "d", callerRoot)
	require.NoError(t, err)
	assert.Equal(t, callerRoot, root)
}

func TestMaterializeUnknownDataset(t *testing.T) {
	a, _, _ := testAdapter(t)

	_, err := a.Materialize(context.Background(), "nope", "")
	var unknown *registry.UnknownDatasetError
	require.ErrorAs(t, err, &unknown)
}

func TestAdaptSubstitutesResolvedRoot(t *testing.T) {
	a, local, scratch := testAdapter(t)
	stage(t, filepath.Join(scratch, "d"), "data.bin")

	type fake struct{ root string }
	ctor := Adapt(a, "d", func(ctx context.Context, root string) (*fake, error) {
		return &fake{root: root}, nil
	})

	ds, err := ctor(context.Background(), "/home/user/ignored")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(local, "d"), ds.root,
		"the wrapped constructor receives the resolved root, not the caller's")
}

func TestAdaptPropagatesErrors(t *testing.T) {
	a, _, _ := testAdapter(t)

	ctor := Adapt(a, "nope", func(ctx context.Context, root string) (string, error) {
		t.Fatal("base constructor must not run for unknown datasets")
		return "", nil
	})

	_, err := ctor(context.Background(), "")
	var unknown *registry.UnknownDatasetError
	assert.ErrorAs(t, err, &unknown)
}
