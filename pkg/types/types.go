package types

import "path/filepath"

type DatasetID string

// CapacityClass is a coarse description of how much a tier can hold.
type CapacityClass string

const (
	CapacitySmall     CapacityClass = "small"     // node-local ephemeral disk
	CapacityLarge     CapacityClass = "large"     // shared scratch
	CapacityUnbounded CapacityClass = "unbounded" // read-only network store
)

// Tier is a storage location with a fixed relative speed and writability.
// Tiers are ordered by SpeedRank for resolution; lower is faster.
type Tier struct {
	Name          string
	Root          string
	Writable      bool
	SpeedRank     int
	CapacityClass CapacityClass
	Capacity      int64 // declared capacity in bytes, 0 when unknown
}

// DatasetRoot returns the directory inside the tier that holds the given
// dataset's files.
func (t *Tier) DatasetRoot(id DatasetID) string {
	return filepath.Join(t.Root, string(id))
}

// Promotion describes a pending copy of a dataset's required files from a
// slower tier root into a faster one. Nothing has been copied yet when a
// Promotion is returned from resolution.
type Promotion struct {
	Dataset DatasetID
	Source  string   // dataset root in the slower tier, already validated
	Dest    string   // dataset root in the faster tier
	Files   []string // required relative paths to copy
}

// ResolvedLocation is the outcome of resolving a dataset against the tiers.
// When Found is false no tier, caller root, or working directory holds the
// dataset and the caller should fall back to its own download path.
type ResolvedLocation struct {
	Found bool
	Tier  *Tier  // nil when the root is a caller-supplied or working directory
	Root  string // directory to hand to the dataset constructor
	// Promotion is non-nil when Root only becomes valid after the copy runs.
	Promotion *Promotion
}
