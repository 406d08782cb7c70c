// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"os"
	"path/filepath"
	"testing"
)

const testProfile = `{
  "formatVersion": 1,
  "components": [
    {"uid": "net.minecraft", "version": "1.20.1", "cachedName": "Minecraft"},
    {"uid": "net.fabricmc.fabric-loader", "version": "0.15.0"}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, SettingsFileName), "name = \"My Instance\"\nnotes = \"hi\"")
	writeFile(t, filepath.Join(root, "mmc-pack.json"), testProfile)
	if err := os.MkdirAll(filepath.Join(root, "minecraft"), 0o755); err != nil {
		t.Fatal(err)
	}

	inst, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if inst.Name() != "My Instance" {
		t.Errorf("Name() = %q", inst.Name())
	}
	if inst.Settings().Notes != "hi" {
		t.Errorf("Notes = %q", inst.Settings().Notes)
	}
	if inst.GameRoot() != filepath.Join(root, "minecraft") {
		t.Errorf("GameRoot() = %s, want the minecraft subdirectory", inst.GameRoot())
	}

	components := inst.Components()
	if len(components) != 2 || components[0].UID != UIDMinecraft || components[0].CachedName != "Minecraft" {
		t.Errorf("Components() = %+v", components)
	}

	version, ok := inst.ComponentVersion(UIDFabric)
	if !ok || version != "0.15.0" {
		t.Errorf("ComponentVersion(fabric) = %q, %v", version, ok)
	}
	if _, ok := inst.ComponentVersion(UIDForge); ok {
		t.Error("ComponentVersion(forge) unexpectedly present")
	}

	folders := inst.ResourceFolders()
	if len(folders) != 3 {
		t.Fatalf("ResourceFolders() = %d, want 3", len(folders))
	}
	want := []string{"mods", "resourcepacks", "shaderpacks"}
	for i, folder := range folders {
		if folder.ID() != want[i] {
			t.Errorf("folder[%d] = %s, want %s", i, folder.ID(), want[i])
		}
		if filepath.Dir(folder.Dir()) != inst.GameRoot() {
			t.Errorf("folder %s dir = %s, want under game root", folder.ID(), folder.Dir())
		}
	}
}

func TestLoad_FlatLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mmc-pack.json"), testProfile)

	inst, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if inst.GameRoot() != inst.Root() {
		t.Errorf("GameRoot() = %s, want the instance root itself", inst.GameRoot())
	}
}

func TestLoad_DefaultName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "SkyFactory")
	writeFile(t, filepath.Join(root, "mmc-pack.json"), testProfile)

	inst, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if inst.Name() != "SkyFactory" {
		t.Errorf("Name() = %q, want directory name fallback", inst.Name())
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing profile", func(t *testing.T) {
		if _, err := Load(t.TempDir(), nil); err == nil {
			t.Error("expected error: the component profile is required")
		}
	})

	t.Run("empty profile", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "mmc-pack.json"), `{"formatVersion":1,"components":[]}`)
		if _, err := Load(root, nil); err == nil {
			t.Error("expected error for profile without components")
		}
	})

	t.Run("malformed profile", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "mmc-pack.json"), "{")
		if _, err := Load(root, nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed settings", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, SettingsFileName), "name = ")
		writeFile(t, filepath.Join(root, "mmc-pack.json"), testProfile)
		if _, err := Load(root, nil); err == nil {
			t.Error("expected error")
		}
	})
}
