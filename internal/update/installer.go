package update

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrExtractionFailed wraps archive extraction errors.
var ErrExtractionFailed = fmt.Errorf("extraction failed")

// extractZip extracts the archive at archivePath into destDir, creating it
// if needed. Entry paths are confined to destDir to block path traversal.
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive: %v", ErrExtractionFailed, err)
	}
	defer func() { _ = r.Close() }()

	//nolint:gosec // G301: plugin files need standard directory permissions
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("%w: create destination: %v", ErrExtractionFailed, err)
	}

	cleanDest := filepath.Clean(destDir)
	for _, f := range r.File {
		path := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(path, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("%w: illegal entry path %q", ErrExtractionFailed, f.Name)
		}

		if f.FileInfo().IsDir() {
			//nolint:gosec // G301
			if err := os.MkdirAll(path, 0755); err != nil {
				return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			continue
		}

		//nolint:gosec // G301
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		if err := extractEntry(f, path); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtractionFailed, f.Name, err)
		}
	}

	return nil
}

func extractEntry(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry: %w", err)
	}
	defer func() { _ = rc.Close() }()

	//nolint:gosec // G304: path is confined to the extraction directory
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	//nolint:gosec // G110: package size is capped at download time
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("write file: %w", err)
	}
	return out.Close()
}

// copyDir recursively copies srcDir onto destDir, overwriting existing files
// but never deleting files absent from srcDir. The merge is additive by
// design: user-added files inside the plugin tree survive an upgrade, at the
// cost of stale files from previous versions lingering until removed by hand.
func copyDir(srcDir, destDir string) error {
	return filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		target := filepath.Join(destDir, rel)

		if d.IsDir() {
			//nolint:gosec // G301
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	//nolint:gosec // G304: both paths are derived from directories we control
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	//nolint:gosec // G304
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	return out.Close()
}
