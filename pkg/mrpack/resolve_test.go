// SPDX-License-Identifier: MPL-2.0

package mrpack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"mrpack-cli/internal/modrinth"
	"mrpack-cli/pkg/instance"
	"mrpack-cli/pkg/resource"
)

const testProfile = `{
  "formatVersion": 1,
  "components": [
    {"uid": "net.minecraft", "version": "1.20.1"},
    {"uid": "net.fabricmc.fabric-loader", "version": "0.15.0"}
  ]
}`

// newTestInstance builds a flat-layout instance (game files directly at
// the root) and loads it.
func newTestInstance(t *testing.T) *instance.Instance {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mmc-pack.json"), testProfile)

	inst, err := instance.Load(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

func trackResource(t *testing.T, inst *instance.Instance, folder, filename string, meta *resource.Metadata) {
	t.Helper()
	meta.Filename = filename
	indexDir := filepath.Join(inst.GameRoot(), folder, resource.IndexDirName)
	if err := resource.WriteMetadata(indexDir, meta); err != nil {
		t.Fatal(err)
	}
}

func TestResolveLocal_TrackedResource(t *testing.T) {
	inst := newTestInstance(t)
	root := inst.GameRoot()
	jar := writeFile(t, filepath.Join(root, "mods", "a.jar"), "hello world")
	trackResource(t, inst, "mods", "a.jar", &resource.Metadata{
		Name: "A",
		Side: resource.SideClient,
		Download: resource.Download{
			URL:        "https://cdn.modrinth.com/data/abc/versions/1/a.jar",
			HashFormat: "sha1",
			Hash:       helloWorldSha1,
		},
	})

	r := NewResolver(nil, nil, nil)
	resolved, pending, err := r.ResolveLocal(context.Background(), inst, []string{jar}, nil)
	if err != nil {
		t.Fatalf("ResolveLocal() error = %v", err)
	}

	if len(pending) != 0 {
		t.Errorf("pending = %v, want empty", pending)
	}
	entry, ok := resolved["mods/a.jar"]
	if !ok {
		t.Fatalf("resolved = %v, want mods/a.jar entry", resolved)
	}
	if entry.Sha1 != helloWorldSha1 {
		t.Errorf("Sha1 = %s, want metadata hash %s", entry.Sha1, helloWorldSha1)
	}
	if entry.Sha512 != helloWorldSha512 {
		t.Errorf("Sha512 = %s, want computed %s", entry.Sha512, helloWorldSha512)
	}
	if entry.Size != int64(len("hello world")) {
		t.Errorf("Size = %d, want %d", entry.Size, len("hello world"))
	}
	if entry.Side != resource.SideClient {
		t.Errorf("Side = %s, want client", entry.Side)
	}
}

func TestResolveLocal_PendingQueue(t *testing.T) {
	inst := newTestInstance(t)
	root := inst.GameRoot()

	jar := writeFile(t, filepath.Join(root, "mods", "b.jar"), "b content")
	disabled := writeFile(t, filepath.Join(root, "mods", "c.jar.disabled"), "c content")
	readme := writeFile(t, filepath.Join(root, "mods", "readme.txt"), "notes")
	cfg := writeFile(t, filepath.Join(root, "config", "x.cfg"), "x")

	r := NewResolver(nil, nil, nil)
	resolved, pending, err := r.ResolveLocal(context.Background(), inst, []string{jar, disabled, readme, cfg}, nil)
	if err != nil {
		t.Fatalf("ResolveLocal() error = %v", err)
	}

	if len(resolved) != 0 {
		t.Errorf("resolved = %v, want empty", resolved)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %v, want the two eligible mods", pending)
	}
	for _, path := range []string{jar, disabled} {
		rel, relErr := RelPath(root, path)
		if relErr != nil {
			t.Fatal(relErr)
		}
		want, _, hashErr := HashFileSha512(path)
		if hashErr != nil {
			t.Fatal(hashErr)
		}
		if pending[rel] != want {
			t.Errorf("pending[%s] = %s, want %s", rel, pending[rel], want)
		}
	}
}

func TestResolveLocal_DisallowedHost(t *testing.T) {
	inst := newTestInstance(t)
	jar := writeFile(t, filepath.Join(inst.GameRoot(), "mods", "a.jar"), "hello world")
	trackResource(t, inst, "mods", "a.jar", &resource.Metadata{
		Name: "A",
		Download: resource.Download{
			URL:        "https://example.com/a.jar",
			HashFormat: "sha512",
			Hash:       helloWorldSha512,
		},
	})

	r := NewResolver(nil, nil, nil)
	resolved, pending, err := r.ResolveLocal(context.Background(), inst, []string{jar}, nil)
	if err != nil {
		t.Fatalf("ResolveLocal() error = %v", err)
	}

	// A foreign-host download cannot be referenced from the index; the
	// file still qualifies for the remote lookup by hash.
	if len(resolved) != 0 {
		t.Errorf("resolved = %v, want empty", resolved)
	}
	if pending["mods/a.jar"] != helloWorldSha512 {
		t.Errorf("pending = %v, want mods/a.jar queued", pending)
	}
}

func TestResolveLocal_FilterSkipsTracked(t *testing.T) {
	inst := newTestInstance(t)
	writeFile(t, filepath.Join(inst.GameRoot(), "mods", "a.jar"), "hello world")
	trackResource(t, inst, "mods", "a.jar", &resource.Metadata{
		Name: "A",
		Download: resource.Download{
			URL:        "https://cdn.modrinth.com/data/abc/versions/1/a.jar",
			HashFormat: "sha1",
			Hash:       helloWorldSha1,
		},
	})

	filter := func(rel string) bool { return rel == "mods/a.jar" }

	r := NewResolver(nil, nil, nil)
	resolved, pending, err := r.ResolveLocal(context.Background(), inst, nil, filter)
	if err != nil {
		t.Fatalf("ResolveLocal() error = %v", err)
	}
	if len(resolved) != 0 || len(pending) != 0 {
		t.Errorf("resolved = %v, pending = %v, want both empty", resolved, pending)
	}
}

func TestResolveLocal_UnreadableTrackedDemoted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission-based tests are unreliable on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("skipping: root can read any file regardless of permissions")
	}

	inst := newTestInstance(t)
	jar := writeFile(t, filepath.Join(inst.GameRoot(), "mods", "a.jar"), "hello world")
	trackResource(t, inst, "mods", "a.jar", &resource.Metadata{
		Name: "A",
		Download: resource.Download{
			URL:        "https://cdn.modrinth.com/data/abc/versions/1/a.jar",
			HashFormat: "sha1",
			Hash:       helloWorldSha1,
		},
	})
	if err := os.Chmod(jar, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.Chmod(jar, 0o644) //nolint:errcheck // best-effort cleanup
	})

	r := NewResolver(nil, nil, nil)
	resolved, pending, err := r.ResolveLocal(context.Background(), inst, []string{jar}, nil)
	if err != nil {
		t.Fatalf("ResolveLocal() error = %v, want unreadable file demoted, not fatal", err)
	}
	if len(resolved) != 0 || len(pending) != 0 {
		t.Errorf("resolved = %v, pending = %v, want the unreadable file in neither", resolved, pending)
	}
}

func TestResolveLocal_MissingCandidateDemoted(t *testing.T) {
	inst := newTestInstance(t)
	ghost := filepath.Join(inst.GameRoot(), "mods", "ghost.jar")

	r := NewResolver(nil, nil, nil)
	resolved, pending, err := r.ResolveLocal(context.Background(), inst, []string{ghost}, nil)
	if err != nil {
		t.Fatalf("ResolveLocal() error = %v, want unhashable candidate demoted, not fatal", err)
	}
	if len(resolved) != 0 || len(pending) != 0 {
		t.Errorf("resolved = %v, pending = %v, want both empty", resolved, pending)
	}
}

func TestResolveLocal_Cancelled(t *testing.T) {
	inst := newTestInstance(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(nil, nil, nil)
	if _, _, err := r.ResolveLocal(ctx, inst, nil, nil); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestResolveRemote(t *testing.T) {
	knownHash := helloWorldSha512
	unknownHash := "f" + helloWorldSha512[1:]

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/version_files" {
			t.Errorf("path = %s, want /version_files", req.URL.Path)
		}
		var body struct {
			Hashes    []string `json:"hashes"`
			Algorithm string   `json:"algorithm"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Algorithm != "sha512" {
			t.Errorf("algorithm = %s, want sha512", body.Algorithm)
		}
		if len(body.Hashes) != 2 {
			t.Errorf("hashes = %v, want both pending hashes", body.Hashes)
		}

		// Two files on the matching version: the primary one is a
		// different artifact, the non-primary one carries our hash.
		resp := map[string]modrinth.Version{
			knownHash: {
				ID: "ver1",
				Files: []modrinth.VersionFile{
					{
						Primary: true,
						URL:     "https://cdn.modrinth.com/data/abc/versions/ver1/sources.jar",
						Hashes:  modrinth.Hashes{Sha512: "deadbeef"},
					},
					{
						Primary: false,
						URL:     "https://cdn.modrinth.com/data/abc/versions/ver1/b.jar",
						Size:    42,
						Hashes:  modrinth.Hashes{Sha1: helloWorldSha1, Sha512: knownHash},
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer srv.Close()

	pending := map[string]string{
		"mods/b.jar": knownHash,
		"mods/u.jar": unknownHash,
	}
	resolved := make(map[string]ResolvedFile)

	r := NewResolver(modrinth.NewClient(srv.URL), nil, nil)
	if err := r.ResolveRemote(context.Background(), pending, resolved); err != nil {
		t.Fatalf("ResolveRemote() error = %v", err)
	}

	entry, ok := resolved["mods/b.jar"]
	if !ok {
		t.Fatalf("resolved = %v, want mods/b.jar entry", resolved)
	}
	if entry.URL != "https://cdn.modrinth.com/data/abc/versions/ver1/b.jar" {
		t.Errorf("URL = %s, want the hash-matched file, not the primary", entry.URL)
	}
	if entry.Sha512 != knownHash || entry.Sha1 != helloWorldSha1 || entry.Size != 42 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Side != resource.SideBoth {
		t.Errorf("Side = %s, want both", entry.Side)
	}
	if _, ok := resolved["mods/u.jar"]; ok {
		t.Error("unknown hash must stay unresolved")
	}
}

func TestResolveRemote_EmptyPendingSkipsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected for an empty pending queue")
	}))
	defer srv.Close()

	r := NewResolver(modrinth.NewClient(srv.URL), nil, nil)
	if err := r.ResolveRemote(context.Background(), nil, map[string]ResolvedFile{}); err != nil {
		t.Errorf("ResolveRemote() error = %v", err)
	}
}

func TestResolveRemote_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(modrinth.NewClient(srv.URL), nil, nil)
	err := r.ResolveRemote(context.Background(), map[string]string{"mods/b.jar": helloWorldSha512}, map[string]ResolvedFile{})
	if err == nil {
		t.Error("expected error from failing lookup")
	}
}

func TestEligibleExtension(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{"mods/a.jar", true},
		{"mods/a.jar.disabled", true},
		{"mods/a.litemod", true},
		{"resourcepacks/pack.zip", true},
		{"mods/readme.txt", false},
		{"mods/a.jar.bak", false},
	}
	for _, tt := range tests {
		if got := eligibleExtension(tt.rel); got != tt.want {
			t.Errorf("eligibleExtension(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}
