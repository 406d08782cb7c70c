// SPDX-License-Identifier: MPL-2.0

package mrpack

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"mrpack-cli/internal/cueval"
	"mrpack-cli/pkg/instance"
	"mrpack-cli/pkg/resource"
)

const (
	// FormatVersion is the mrpack index format this exporter emits.
	FormatVersion = 1

	// Game is the fixed game identifier of the index.
	Game = "minecraft"

	// IndexFileName is the index entry name at the archive root.
	IndexFileName = "modrinth.index.json"

	// OverridesPrefix is the archive folder holding embedded raw files.
	OverridesPrefix = "overrides/"
)

//go:embed index_schema.cue
var indexSchema []byte

// EnvSupport is one slot of a file's side-requirement object.
type EnvSupport string

const (
	EnvRequired    EnvSupport = "required"
	EnvOptional    EnvSupport = "optional"
	EnvUnsupported EnvSupport = "unsupported"
)

// Env states what each game side must do with a file.
type Env struct {
	Client EnvSupport `json:"client"`
	Server EnvSupport `json:"server"`
}

// IndexHashes carries both hash variants of an index entry.
type IndexHashes struct {
	Sha1   string `json:"sha1"`
	Sha512 string `json:"sha512"`
}

// IndexFile is one remotely hosted file of the pack.
type IndexFile struct {
	Path      string      `json:"path"`
	Env       Env         `json:"env"`
	Downloads []string    `json:"downloads"`
	Hashes    IndexHashes `json:"hashes"`
	FileSize  int64       `json:"fileSize"`
}

// Index is the modrinth.index.json document.
type Index struct {
	FormatVersion int               `json:"formatVersion"`
	Game          string            `json:"game"`
	Name          string            `json:"name"`
	VersionID     string            `json:"versionId"`
	Summary       string            `json:"summary,omitempty"`
	Dependencies  map[string]string `json:"dependencies"`
	Files         []IndexFile       `json:"files"`
}

// dependencyKeys maps recognized component uids to their mrpack
// dependency names. Components outside this set never become
// dependencies.
var dependencyKeys = map[string]string{
	instance.UIDMinecraft: "minecraft",
	instance.UIDFabric:    "fabric-loader",
	instance.UIDQuilt:     "quilt-loader",
	instance.UIDForge:     "forge",
	instance.UIDNeoForge:  "neoforge",
}

// IndexOptions carries the user-facing pack identity fields.
type IndexOptions struct {
	Name      string
	VersionID string
	Summary   string
}

// BuildIndex assembles the pack index from the instance's components
// and the resolver's output. Entries are emitted in path order so two
// exports of the same instance produce identical documents.
func BuildIndex(opts IndexOptions, components []instance.Component, resolved map[string]ResolvedFile) Index {
	deps := make(map[string]string)
	for _, component := range components {
		if key, ok := dependencyKeys[component.UID]; ok {
			deps[key] = component.Version
		}
	}

	paths := maps.Keys(resolved)
	slices.Sort(paths)

	files := make([]IndexFile, 0, len(paths))
	for _, path := range paths {
		rf := resolved[path]

		env := Env{Client: EnvRequired, Server: EnvRequired}
		outPath := path
		if resource.IsDisabledName(path) {
			outPath = resource.EnabledName(path)
			env.Client = EnvOptional
			env.Server = EnvOptional
		}
		// A server-only mod still works on a client, but a client-only
		// one must never be installed server-side. Applies on top of
		// the optional rule above.
		if rf.Side == resource.SideClient {
			env.Server = EnvUnsupported
		}

		files = append(files, IndexFile{
			Path:      outPath,
			Env:       env,
			Downloads: []string{rf.URL},
			Hashes:    IndexHashes{Sha1: rf.Sha1, Sha512: rf.Sha512},
			FileSize:  rf.Size,
		})
	}

	return Index{
		FormatVersion: FormatVersion,
		Game:          Game,
		Name:          opts.Name,
		VersionID:     opts.VersionID,
		Summary:       opts.Summary,
		Dependencies:  deps,
		Files:         files,
	}
}

// Encode marshals the index as the JSON document stored in the
// archive.
func (idx Index) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode pack index: %w", err)
	}
	return data, nil
}

// ParseIndex decodes and validates an index document, e.g. one read
// back out of an existing archive.
func ParseIndex(data []byte) (Index, error) {
	if err := ValidateIndex(data); err != nil {
		return Index{}, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, fmt.Errorf("decode pack index: %w", err)
	}
	return idx, nil
}

// ValidateIndex checks an index document against the embedded schema.
func ValidateIndex(data []byte) error {
	return cueval.ValidateJSON(indexSchema, "#Index", data, IndexFileName)
}
