// SPDX-License-Identifier: MPL-2.0

package instance

// Component uids recognized by the exporter. Anything else in the
// profile (LWJGL, intermediary mappings, ...) is carried but ignored
// when deriving pack dependencies.
const (
	UIDMinecraft = "net.minecraft"
	UIDFabric    = "net.fabricmc.fabric-loader"
	UIDQuilt     = "org.quiltmc.quilt-loader"
	UIDForge     = "net.minecraftforge"
	UIDNeoForge  = "net.neoforged"
)

// Component is one entry of the instance's platform profile.
type Component struct {
	// UID identifies the component ("net.minecraft",
	// "net.fabricmc.fabric-loader", ...).
	UID string `json:"uid"`

	// Version is the installed version string.
	Version string `json:"version"`

	// CachedName is the human-readable name, when the launcher cached
	// one.
	CachedName string `json:"cachedName,omitempty"`
}

// Profile is the mmc-pack.json content.
type Profile struct {
	FormatVersion int         `json:"formatVersion"`
	Components    []Component `json:"components"`
}
