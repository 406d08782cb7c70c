// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrResourceNotFound is returned by operations addressing a resource
// by name when no scanned resource matches.
var ErrResourceNotFound = errors.New("resource not found")

// Folder is a tracked directory of assets with optional sidecar
// metadata. It is safe for concurrent use; Refresh replaces the scanned
// snapshot atomically, so readers never observe a half-built list.
type Folder struct {
	id     string
	dir    string
	logger *log.Logger

	mu        sync.RWMutex
	resources []*Resource
}

// NewFolder creates a Folder rooted at dir. The id names the collection
// ("mods", "resourcepacks", ...) and doubles as the prefix under which
// its assets live relative to the game root. No scan happens until the
// first Refresh.
func NewFolder(id, dir string, logger *log.Logger) *Folder {
	if logger == nil {
		logger = log.Default()
	}
	return &Folder{
		id:     id,
		dir:    dir,
		logger: logger.With("folder", id),
	}
}

// ID returns the collection identifier.
func (f *Folder) ID() string { return f.id }

// Dir returns the absolute folder directory.
func (f *Folder) Dir() string { return f.dir }

// IndexDir returns the directory holding sidecar metadata files.
func (f *Folder) IndexDir() string { return filepath.Join(f.dir, IndexDirName) }

// Refresh rescans the folder and its metadata index. It is the
// request/response join point callers rely on: when Refresh returns,
// Resources reflects the directory as it was during the scan. A folder
// directory that does not exist yields an empty collection.
func (f *Folder) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	index, err := loadIndex(f.IndexDir())
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.replace(nil)
			return nil
		}
		return fmt.Errorf("scan folder %s: %w", f.dir, err)
	}

	scanned := make([]*Resource, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || entry.Name() == IndexDirName {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			f.logger.Warn("skipping unreadable entry", "name", entry.Name(), "err", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		name := EnabledName(entry.Name())
		scanned = append(scanned, &Resource{
			Path:     filepath.Join(f.dir, entry.Name()),
			Name:     name,
			Enabled:  !IsDisabledName(entry.Name()),
			Size:     info.Size(),
			Metadata: index[name],
		})
	}

	sort.Slice(scanned, func(i, j int) bool { return scanned[i].Name < scanned[j].Name })
	f.replace(scanned)

	f.logger.Debug("folder refreshed", "resources", len(scanned))
	return nil
}

func (f *Folder) replace(resources []*Resource) {
	f.mu.Lock()
	f.resources = resources
	f.mu.Unlock()
}

// Resources returns the snapshot taken by the last Refresh, sorted by
// canonical name.
func (f *Folder) Resources() []*Resource {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Resource, len(f.resources))
	copy(out, f.resources)
	return out
}

// Find returns the resource with the given canonical name.
func (f *Folder) Find(name string) (*Resource, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, res := range f.resources {
		if res.Name == name {
			return res, true
		}
	}
	return nil, false
}

// SetEnabled toggles a resource by renaming it to or from its
// .disabled form. Toggling to the current state is a no-op. The caller
// must Refresh afterwards to observe the change in Resources.
func (f *Folder) SetEnabled(name string, enabled bool) error {
	res, ok := f.Find(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, name)
	}
	if res.Enabled == enabled {
		return nil
	}

	target := filepath.Join(f.dir, res.Name)
	if !enabled {
		target += DisabledSuffix
	}
	if err := os.Rename(res.Path, target); err != nil {
		return fmt.Errorf("toggle %s: %w", name, err)
	}
	f.logger.Info("resource toggled", "name", name, "enabled", enabled)
	return nil
}

// Install copies the file at srcPath into the folder, with optional
// sidecar metadata. An existing file with the same name is replaced.
func (f *Folder) Install(srcPath string, meta *Metadata) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create folder %s: %w", f.dir, err)
	}

	name := filepath.Base(srcPath)
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}
	defer src.Close() //nolint:errcheck // read-only handle

	dst, err := os.Create(filepath.Join(f.dir, name))
	if err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()                                  //nolint:errcheck // already failing
		os.Remove(filepath.Join(f.dir, name))        //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("install %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}

	if meta != nil {
		if meta.Filename == "" {
			meta.Filename = EnabledName(name)
		}
		if err := WriteMetadata(f.IndexDir(), meta); err != nil {
			return err
		}
	}

	f.logger.Info("resource installed", "name", name, "tracked", meta != nil)
	return nil
}

// Uninstall removes a resource's file and, unless keepMetadata is set,
// its sidecar entry.
func (f *Folder) Uninstall(name string, keepMetadata bool) error {
	res, ok := f.Find(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, name)
	}

	if err := os.Remove(res.Path); err != nil {
		return fmt.Errorf("uninstall %s: %w", name, err)
	}

	if !keepMetadata {
		metaPath := filepath.Join(f.IndexDir(), metadataFileName(name))
		if err := os.Remove(metaPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove metadata for %s: %w", name, err)
		}
	}

	f.logger.Info("resource uninstalled", "name", name, "kept_metadata", keepMetadata)
	return nil
}
