package update

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeArchive(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, "pkg.zip")
	if err := os.WriteFile(path, zipBytes(t, files), 0o600); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func TestExtractZip(t *testing.T) {
	tmp := t.TempDir()
	archive := writeArchive(t, tmp, map[string]string{
		"root.txt":              "root",
		"sub/dir/deep.txt":      "deep",
		"ai_diffusion/__init__": "init",
	})

	dest := filepath.Join(tmp, "out")
	if err := extractZip(archive, dest); err != nil {
		t.Fatalf("extractZip() error: %v", err)
	}

	for name, want := range map[string]string{
		"root.txt":              "root",
		"sub/dir/deep.txt":      "deep",
		"ai_diffusion/__init__": "init",
	} {
		content, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("missing extracted file %s: %v", name, err)
			continue
		}
		if string(content) != want {
			t.Errorf("%s = %q, want %q", name, content, want)
		}
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	// zipBytes cannot write entries with ../ via Create, so build one by hand.
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{Name: "../evil.txt"}
	entry, err := w.CreateHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.Write([]byte("escape")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	tmp := t.TempDir()
	archive := filepath.Join(tmp, "evil.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	err = extractZip(archive, filepath.Join(tmp, "out"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("error = %v, want ErrExtractionFailed", err)
	}
	if _, statErr := os.Stat(filepath.Join(tmp, "evil.txt")); statErr == nil {
		t.Error("traversal entry escaped the extraction directory")
	}
}

func TestExtractZipCorruptArchive(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "broken.zip")
	if err := os.WriteFile(archive, []byte("definitely not a zip"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := extractZip(archive, filepath.Join(tmp, "out")); !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("error = %v, want ErrExtractionFailed", err)
	}
}

func TestCopyDirMerge(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	mustWrite := func(dir, name, content string) {
		t.Helper()
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	mustWrite(src, "a.txt", "new a")
	mustWrite(src, "nested/b.txt", "new b")
	mustWrite(dest, "a.txt", "old a")
	mustWrite(dest, "user.txt", "user data")

	if err := copyDir(src, dest); err != nil {
		t.Fatalf("copyDir() error: %v", err)
	}

	read := func(name string) string {
		t.Helper()
		content, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(content)
	}

	if got := read("a.txt"); got != "new a" {
		t.Errorf("a.txt = %q, want overwritten", got)
	}
	if got := read("nested/b.txt"); got != "new b" {
		t.Errorf("nested/b.txt = %q, want copied", got)
	}
	if got := read("user.txt"); got != "user data" {
		t.Errorf("user.txt = %q, want untouched", got)
	}
}

func TestCopyDirMissingSource(t *testing.T) {
	if err := copyDir(filepath.Join(t.TempDir(), "nope"), t.TempDir()); err == nil {
		t.Error("expected error for missing source directory")
	}
}
