package config

import (
	"os"
	"path/filepath"
	"testing"

	"datastage/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `
cluster: mila
tiers:
  - name: local
    root: "${TEST_TMPDIR}/data"
    writable: true
    speed_rank: 0
    capacity_class: small
    capacity: 300GiB
  - name: scratch
    root: /scratch/data
    writable: true
    speed_rank: 1
    capacity_class: large
  - name: network
    root: /network/datasets
    writable: false
    speed_rank: 2
    capacity_class: unbounded
datasets:
  - id: mnist
    files: [MNIST]
    size: 116MiB
    available_on: [network]
    roots:
      network: /network/datasets/torchvision
  - id: imagenet
    files: [train.tar, val.tar]
    size: 155GiB
    available_on: [network]
    too_large: true
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_TMPDIR", "/tmp/job42")

	cfg, err := LoadConfig(writeProfile(t, sampleProfile))
	require.NoError(t, err)

	assert.Equal(t, "mila", cfg.Cluster)
	require.Len(t, cfg.Tiers, 3)
	assert.Equal(t, "/tmp/job42/data", cfg.Tiers[0].Root, "env vars in tier roots should expand")

	require.Len(t, cfg.Datasets, 2)
	assert.Equal(t, []string{"MNIST"}, cfg.Datasets[0].Files)
	assert.True(t, cfg.Datasets[1].TooLarge)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTierSetSortedBySpeed(t *testing.T) {
	cfg := &Config{
		Tiers: []TierSpec{
			{Name: "network", Root: "/n", SpeedRank: 2, CapacityClass: "unbounded"},
			{Name: "local", Root: "/l", Writable: true, SpeedRank: 0, CapacityClass: "small", Capacity: "1GiB"},
			{Name: "scratch", Root: "/s", Writable: true, SpeedRank: 1, CapacityClass: "large"},
		},
	}
	require.NoError(t, cfg.Validate())

	tiers := cfg.TierSet()
	require.Len(t, tiers, 3)
	assert.Equal(t, "local", tiers[0].Name)
	assert.Equal(t, "scratch", tiers[1].Name)
	assert.Equal(t, "network", tiers[2].Name)
	assert.Equal(t, int64(1024*1024*1024), tiers[0].Capacity)
	assert.Equal(t, types.CapacitySmall, tiers[0].CapacityClass)
}

func TestValidateRejectsBadProfiles(t *testing.T) {
	local := TierSpec{Name: "local", Root: "/l", Writable: true, SpeedRank: 0, CapacityClass: "small"}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no tiers", Config{}},
		{"duplicate tier name", Config{Tiers: []TierSpec{local, {Name: "local", Root: "/x", Writable: true, SpeedRank: 1, CapacityClass: "large"}}}},
		{"duplicate speed rank", Config{Tiers: []TierSpec{local, {Name: "other", Root: "/x", Writable: true, SpeedRank: 0, CapacityClass: "large"}}}},
		{"no writable tier", Config{Tiers: []TierSpec{{Name: "ro", Root: "/r", SpeedRank: 0, CapacityClass: "unbounded"}}}},
		{"unknown capacity class", Config{Tiers: []TierSpec{{Name: "l", Root: "/l", Writable: true, SpeedRank: 0, CapacityClass: "huge"}}}},
		{"bad capacity", Config{Tiers: []TierSpec{{Name: "l", Root: "/l", Writable: true, SpeedRank: 0, CapacityClass: "small", Capacity: "lots"}}}},
		{"dataset without files", Config{Tiers: []TierSpec{local}, Datasets: []DatasetSpec{{ID: "d"}}}},
		{"duplicate dataset", Config{Tiers: []TierSpec{local}, Datasets: []DatasetSpec{{ID: "d", Files: []string{"f"}}, {ID: "d", Files: []string{"f"}}}}},
		{"absolute required path", Config{Tiers: []TierSpec{local}, Datasets: []DatasetSpec{{ID: "d", Files: []string{"/etc/passwd"}}}}},
		{"escaping required path", Config{Tiers: []TierSpec{local}, Datasets: []DatasetSpec{{ID: "d", Files: []string{"../other"}}}}},
		{"bad dataset size", Config{Tiers: []TierSpec{local}, Datasets: []DatasetSpec{{ID: "d", Files: []string{"f"}, Size: "big"}}}},
		{"availability names unknown tier", Config{Tiers: []TierSpec{local}, Datasets: []DatasetSpec{{ID: "d", Files: []string{"f"}, AvailableOn: []string{"network"}}}}},
		{"root override for unknown tier", Config{Tiers: []TierSpec{local}, Datasets: []DatasetSpec{{ID: "d", Files: []string{"f"}, Roots: map[string]string{"network": "/n"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SLURM_TMPDIR", "/tmp/slurm.123")
	t.Setenv("SCRATCH", "/scratch/user")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.Len(t, cfg.Tiers, 2)
	assert.Equal(t, filepath.Join("/tmp/slurm.123", "data"), cfg.Tiers[0].Root)
	assert.Equal(t, filepath.Join("/scratch/user", "data"), cfg.Tiers[1].Root)
	assert.True(t, cfg.Tiers[0].Writable)
	assert.Empty(t, cfg.Datasets)
}

func TestLoadFromEnvOutsideJob(t *testing.T) {
	t.Setenv("SLURM_TMPDIR", "")
	t.Setenv("SCRATCH", "")

	_, err := LoadFromEnv()
	assert.Error(t, err, "login nodes have no SLURM_TMPDIR and must not silently get one")
}
