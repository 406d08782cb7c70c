// SPDX-License-Identifier: MPL-2.0

// Package instance models a local game installation directory: its
// settings file, its component profile (game version plus any mod
// loader) and its tracked resource folders.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"mrpack-cli/pkg/resource"
)

const (
	// SettingsFileName is the per-instance settings file at the
	// instance root.
	SettingsFileName = "instance.toml"

	// profileFileName is the component profile at the instance root.
	profileFileName = "mmc-pack.json"

	// gameDirName is the subdirectory holding the actual game files.
	// Instances created by older launchers keep everything at the root
	// instead; GameRoot falls back to that layout.
	gameDirName = "minecraft"
)

// resourceFolderIDs are the tracked collections under the game root,
// in the order they are reported.
var resourceFolderIDs = []string{"mods", "resourcepacks", "shaderpacks"}

// Settings is the instance.toml content.
type Settings struct {
	// Name is the display name of the instance.
	Name string `toml:"name"`

	// Notes is free-form user text.
	Notes string `toml:"notes,omitempty"`
}

// Instance is a loaded game installation.
type Instance struct {
	root     string
	gameRoot string
	settings Settings
	profile  Profile
	folders  []*resource.Folder
}

// Load reads an instance from dir. The settings file is optional (the
// directory name stands in for the display name); the component
// profile is required because an export cannot emit dependencies
// without it.
func Load(dir string, logger *log.Logger) (*Instance, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve instance dir: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("instance dir %s is not a directory", dir)
	}

	inst := &Instance{root: root}

	data, err := os.ReadFile(filepath.Join(root, SettingsFileName))
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &inst.settings); err != nil {
			return nil, fmt.Errorf("parse %s: %w", SettingsFileName, err)
		}
	case errors.Is(err, os.ErrNotExist):
		inst.settings.Name = filepath.Base(root)
	default:
		return nil, fmt.Errorf("read %s: %w", SettingsFileName, err)
	}
	if inst.settings.Name == "" {
		inst.settings.Name = filepath.Base(root)
	}

	profile, err := loadProfile(filepath.Join(root, profileFileName))
	if err != nil {
		return nil, err
	}
	inst.profile = profile

	gameRoot := filepath.Join(root, gameDirName)
	if info, err := os.Stat(gameRoot); err != nil || !info.IsDir() {
		gameRoot = root
	}
	inst.gameRoot = gameRoot

	for _, id := range resourceFolderIDs {
		inst.folders = append(inst.folders, resource.NewFolder(id, filepath.Join(gameRoot, id), logger))
	}

	return inst, nil
}

// Root returns the instance directory.
func (i *Instance) Root() string { return i.root }

// GameRoot returns the directory containing the game files; this is
// the root all export paths are relative to.
func (i *Instance) GameRoot() string { return i.gameRoot }

// Settings returns the parsed instance settings.
func (i *Instance) Settings() Settings { return i.settings }

// Name returns the instance display name.
func (i *Instance) Name() string { return i.settings.Name }

// Components returns the active platform components in profile order.
func (i *Instance) Components() []Component { return i.profile.Components }

// ComponentVersion returns the version of the component with the given
// uid, if present.
func (i *Instance) ComponentVersion(uid string) (string, bool) {
	for _, c := range i.profile.Components {
		if c.UID == uid {
			return c.Version, true
		}
	}
	return "", false
}

// ResourceFolders returns the instance's tracked resource collections.
// Folders whose directory does not exist are still returned; they scan
// to empty.
func (i *Instance) ResourceFolders() []*resource.Folder {
	out := make([]*resource.Folder, len(i.folders))
	copy(out, i.folders)
	return out
}

// loadProfile parses the component profile file.
func loadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read component profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse component profile: %w", err)
	}
	if len(profile.Components) == 0 {
		return Profile{}, errors.New("component profile lists no components")
	}
	return profile, nil
}
