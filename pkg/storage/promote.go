package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// PromotionError reports a promotion whose source did not actually hold the
// complete required-file set: the availability registry and the filesystem
// disagree. Promoting anyway would hand the caller an incomplete dataset, so
// this is surfaced instead of downgraded.
type PromotionError struct {
	Source  string
	Missing []string
}

func (e *PromotionError) Error() string {
	return fmt.Sprintf("promotion source %s is incomplete: missing %s", e.Source, strings.Join(e.Missing, ", "))
}

// Promoter copies a dataset's required files from a slower tier root into a
// faster one. It never overwrites or removes anything: destination files are
// treated as immutable once created, so concurrent promoters from separate
// jobs converge on the same final state without locking, and an interrupted
// run is resumed by simply promoting again.
type Promoter struct {
	logger *zap.Logger
}

func NewPromoter(logger *zap.Logger) *Promoter {
	return &Promoter{logger: logger}
}

// Promote copies every path in required from source to dest. Directories are
// merged recursively into any pre-existing destination directory; files are
// copied only when absent at the destination; symlinks are recreated as
// links, never dereferenced. The source must already satisfy AllPresent or
// the copy fails up front with PromotionError.
func (p *Promoter) Promote(ctx context.Context, required []string, source, dest string) error {
	if missing := Missing(required, source); len(missing) > 0 {
		return &PromotionError{Source: source, Missing: missing}
	}

	p.logger.Info("Promoting dataset files",
		zap.String("source", source),
		zap.String("dest", dest),
		zap.Int("paths", len(required)))

	for _, rel := range required {
		if err := ctx.Err(); err != nil {
			return err
		}

		srcPath := filepath.Join(source, rel)
		destPath := filepath.Join(dest, rel)

		info, err := os.Lstat(srcPath)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", srcPath, err)
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory for %s: %w", destPath, err)
		}

		switch {
		case info.IsDir():
			err = p.copyTree(ctx, srcPath, destPath)
		case info.Mode()&os.ModeSymlink != 0:
			err = copyLink(srcPath, destPath)
		default:
			err = copyFile(srcPath, destPath, info.Mode())
		}
		if err != nil {
			return err
		}

		p.logger.Debug("Promoted path",
			zap.String("path", rel),
			zap.String("dest", destPath))
	}

	return nil
}

// copyTree merges the contents of srcDir into destDir recursively. Existing
// destination entries are kept, so partial copies from earlier runs are
// completed rather than clobbered.
func (p *Promoter) copyTree(ctx context.Context, srcDir, destDir string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", srcDir, err)
	}
	if err := os.MkdirAll(destDir, info.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", destDir, err)
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", srcDir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		srcPath := filepath.Join(srcDir, entry.Name())
		destPath := filepath.Join(destDir, entry.Name())

		switch {
		case entry.IsDir():
			err = p.copyTree(ctx, srcPath, destPath)
		case entry.Type()&os.ModeSymlink != 0:
			err = copyLink(srcPath, destPath)
		default:
			fi, statErr := entry.Info()
			if statErr != nil {
				return fmt.Errorf("failed to stat %s: %w", srcPath, statErr)
			}
			err = copyFile(srcPath, destPath, fi.Mode())
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// copyFile copies src to dest unless dest already exists. O_EXCL makes the
// existence check and the create one atomic step, so two jobs promoting the
// same dataset at once cannot corrupt an already-complete file.
func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode.Perm())
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		// The partial file is ours; removing it keeps a retry from seeing
		// a truncated copy as already done.
		os.Remove(dest)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	return nil
}

// copyLink recreates a symlink at dest pointing at src's target. The link is
// copied as a link; the target is never read through.
func copyLink(src, dest string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", src, err)
	}
	if err := os.Symlink(target, dest); err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("failed to create link %s: %w", dest, err)
	}
	return nil
}
