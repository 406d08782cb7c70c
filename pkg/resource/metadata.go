// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// IndexDirName is the directory inside a resource folder that holds
// one sidecar metadata file per tracked asset.
const IndexDirName = ".index"

// metadataExt is the extension of sidecar metadata files.
const metadataExt = ".toml"

// Download describes where a tracked asset's bytes live remotely and
// the hash the origin reported for them.
type Download struct {
	// URL is the direct download location. Empty when the origin is
	// unknown.
	URL string `toml:"url"`

	// HashFormat names the algorithm of Hash: "sha1" or "sha512".
	HashFormat string `toml:"hash-format"`

	// Hash is the hex-encoded content hash as reported by the origin.
	Hash string `toml:"hash"`
}

// Metadata is the sidecar index entry for one tracked asset.
type Metadata struct {
	// Name is the human-readable project name.
	Name string `toml:"name"`

	// Filename is the canonical on-disk file name the entry tracks,
	// without any .disabled suffix.
	Filename string `toml:"filename"`

	// Side constrains which game side needs the asset. An empty value
	// is treated as SideBoth.
	Side Side `toml:"side,omitempty"`

	// Download carries the remote origin information, when known.
	Download Download `toml:"download"`
}

// EffectiveSide resolves the empty default to SideBoth.
func (m *Metadata) EffectiveSide() Side {
	if m.Side == "" {
		return SideBoth
	}
	return m.Side
}

// ReadMetadata parses a single sidecar file.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}

	var meta Metadata
	if err := toml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}

	switch meta.Side {
	case "", SideBoth, SideClient, SideServer:
	default:
		return nil, fmt.Errorf("parse metadata %s: unknown side %q", path, meta.Side)
	}

	return &meta, nil
}

// WriteMetadata persists a sidecar entry into the given index
// directory, creating it if needed. The file is named after the entry's
// Filename with the asset extension replaced by .toml.
func WriteMetadata(indexDir string, meta *Metadata) error {
	if meta.Filename == "" {
		return errors.New("metadata has no filename")
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("create index dir %s: %w", indexDir, err)
	}

	data, err := toml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", meta.Filename, err)
	}

	path := filepath.Join(indexDir, metadataFileName(meta.Filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	return nil
}

// metadataFileName maps an asset file name to its sidecar file name.
func metadataFileName(assetName string) string {
	base := EnabledName(assetName)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + metadataExt
}

// loadIndex reads every sidecar file in indexDir and returns the
// entries keyed by canonical asset file name. A missing index directory
// yields an empty map: untracked folders are normal.
func loadIndex(indexDir string) (map[string]*Metadata, error) {
	entries, err := os.ReadDir(indexDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]*Metadata{}, nil
		}
		return nil, fmt.Errorf("read index dir %s: %w", indexDir, err)
	}

	index := make(map[string]*Metadata, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != metadataExt {
			continue
		}
		meta, err := ReadMetadata(filepath.Join(indexDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if meta.Filename == "" {
			// Entry tracks nothing; skip rather than fail the scan.
			continue
		}
		index[meta.Filename] = meta
	}
	return index, nil
}
