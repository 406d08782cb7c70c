// SPDX-License-Identifier: MPL-2.0

// Package resource manages tracked folders of instance assets (mods,
// resource packs, shader packs). Each asset may carry sidecar metadata
// in the folder's .index directory describing where its bytes can be
// downloaded from and which game side needs it.
package resource

import (
	"strings"
)

// DisabledSuffix marks an asset as present but inactive. The launcher
// toggles assets by renaming them, so "sodium.jar.disabled" is the
// disabled form of "sodium.jar".
const DisabledSuffix = ".disabled"

// Side constrains which game side an asset applies to.
type Side string

const (
	// SideBoth is the default: the asset is used by client and server.
	SideBoth Side = "both"
	// SideClient marks a client-only asset (e.g. shaders). A pack
	// consumer must not install it on a server.
	SideClient Side = "client"
	// SideServer marks a server-only asset. Server-only does not imply
	// the asset is broken on the client, only that the client does not
	// need it.
	SideServer Side = "server"
)

// Resource is a single tracked asset inside a Folder.
type Resource struct {
	// Path is the absolute path of the file on disk, including the
	// .disabled suffix when the resource is disabled.
	Path string

	// Name is the canonical file name with any .disabled suffix
	// stripped. Two resources in one folder never share a Name.
	Name string

	// Enabled reports whether the file currently carries its canonical
	// name rather than the .disabled form.
	Enabled bool

	// Size is the file size in bytes at scan time.
	Size int64

	// Metadata is the parsed sidecar entry, or nil when the asset is
	// untracked (dropped in by hand, no index entry).
	Metadata *Metadata
}

// EnabledName strips the disabled marker from a file name. It returns
// the name unchanged when the marker is absent.
func EnabledName(name string) string {
	return strings.TrimSuffix(name, DisabledSuffix)
}

// IsDisabledName reports whether a file name carries the disabled
// marker.
func IsDisabledName(name string) bool {
	return strings.HasSuffix(name, DisabledSuffix)
}
