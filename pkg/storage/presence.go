package storage

import (
	"os"
	"path/filepath"
)

// AllPresent reports whether every relative path in required exists under
// base, as a file, directory, or symlink. A missing base directory simply
// means nothing is present. Pure filesystem read; safe to call repeatedly
// and concurrently.
func AllPresent(required []string, base string) bool {
	for _, rel := range required {
		if _, err := os.Lstat(filepath.Join(base, rel)); err != nil {
			return false
		}
	}
	return true
}

// Missing returns the required relative paths that do not exist under base,
// in the order they were registered. Used for error context when a tier
// claimed by the availability map turns out to be incomplete.
func Missing(required []string, base string) []string {
	var missing []string
	for _, rel := range required {
		if _, err := os.Lstat(filepath.Join(base, rel)); err != nil {
			missing = append(missing, rel)
		}
	}
	return missing
}
