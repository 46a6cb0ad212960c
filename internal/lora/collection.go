package lora

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	apperrors "kritactl/internal/errors"
	"kritactl/internal/props"
)

// modelExtensions lists the file extensions treated as LoRA model files.
var modelExtensions = map[string]struct{}{
	".safetensors": {},
	".ckpt":        {},
	".pt":          {},
}

// MetaStore persists per-file metadata between sessions.
type MetaStore interface {
	Load(ctx context.Context) (map[string]Meta, error)
	Save(ctx context.Context, id string, meta Meta) error
}

// Collection is the in-memory set of LoRA files. It merges scan results
// with stored metadata and notifies observers through Revision whenever
// its contents change.
type Collection struct {
	mu    sync.Mutex
	files []File
	store MetaStore

	// Revision increments on every content change; subscribe to it to
	// rebuild derived views.
	Revision *props.Property[uint64]
}

// NewCollection creates an empty collection. store may be nil, in which
// case metadata is kept in memory only.
func NewCollection(store MetaStore) *Collection {
	return &Collection{
		store:    store,
		Revision: props.NewProperty(uint64(0)),
	}
}

// Scan walks dir for model files and rebuilds the collection. Files with
// stored metadata that are no longer on disk are kept with
// SourceUnavailable so their settings are not silently lost.
func (c *Collection) Scan(ctx context.Context, dir string) error {
	meta := map[string]Meta{}
	if c.store != nil {
		loaded, err := c.store.Load(ctx)
		if err != nil {
			return apperrors.New(apperrors.CodeMetadataFailed, "load LoRA metadata", err)
		}
		meta = loaded
	}

	seen := map[string]struct{}{}
	var files []File
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := modelExtensions[strings.ToLower(filepath.Ext(p))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}
		id := filepath.ToSlash(rel)
		seen[id] = struct{}{}
		files = append(files, newFile(id, SourceLocal, meta))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scan %s: %w", dir, err)
	}

	// Keep metadata-bearing entries that vanished from disk.
	for id := range meta {
		if _, ok := seen[id]; !ok {
			files = append(files, newFile(id, SourceUnavailable, meta))
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})

	c.mu.Lock()
	c.files = files
	c.mu.Unlock()
	c.bump()
	return nil
}

func newFile(id string, source FileSource, meta map[string]Meta) File {
	f := File{
		ID:       id,
		Name:     displayName(id),
		Source:   source,
		Strength: DefaultStrength,
	}
	if m, ok := meta[id]; ok {
		f.Triggers = m.Triggers
		f.Strength = m.Strength
	}
	return f
}

// Files returns a copy of the current contents.
func (c *Collection) Files() []File {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]File, len(c.files))
	copy(out, c.files)
	return out
}

// Get returns the file with the given ID.
func (c *Collection) Get(id string) (File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.files {
		if f.ID == id {
			return f, nil
		}
	}
	return File{}, apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("no LoRA file with id %q", id), nil)
}

// SetTriggers updates the trigger words for a file and persists them.
func (c *Collection) SetTriggers(ctx context.Context, id, triggers string) error {
	return c.setMeta(ctx, id, func(f *File) {
		f.Triggers = triggers
	})
}

// SetStrength updates the strength for a file and persists it.
func (c *Collection) SetStrength(ctx context.Context, id string, strength float64) error {
	if err := validateStrength(strength); err != nil {
		return err
	}
	return c.setMeta(ctx, id, func(f *File) {
		f.Strength = strength
	})
}

func (c *Collection) setMeta(ctx context.Context, id string, apply func(*File)) error {
	c.mu.Lock()
	idx := -1
	for i := range c.files {
		if c.files[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("no LoRA file with id %q", id), nil)
	}
	apply(&c.files[idx])
	meta := Meta{Triggers: c.files[idx].Triggers, Strength: c.files[idx].Strength}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, id, meta); err != nil {
			return apperrors.New(apperrors.CodeMetadataFailed, "save LoRA metadata", err)
		}
	}
	c.bump()
	return nil
}

func (c *Collection) bump() {
	c.Revision.Set(c.Revision.Get() + 1)
}
