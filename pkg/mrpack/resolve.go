// SPDX-License-Identifier: MPL-2.0

package mrpack

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"mrpack-cli/internal/modrinth"
	"mrpack-cli/pkg/instance"
	"mrpack-cli/pkg/resource"
)

// packExtensions are the file types eligible for remote substitution,
// each optionally carrying the .disabled suffix on top.
var packExtensions = []string{".jar", ".litemod", ".zip"}

// ResolvedFile represents a candidate file whose bytes are available
// from a remote host, so the archive references it instead of embedding
// it.
type ResolvedFile struct {
	Sha1   string
	Sha512 string
	URL    string
	Size   int64
	Side   resource.Side
}

// Resolver decides which candidate files can be represented as remote
// references.
type Resolver struct {
	client       *modrinth.Client
	allowedHosts []string
	logger       *log.Logger
}

// NewResolver creates a Resolver. Empty allowedHosts falls back to the
// Modrinth CDN hosts; a nil logger uses the default.
func NewResolver(client *modrinth.Client, allowedHosts []string, logger *log.Logger) *Resolver {
	if len(allowedHosts) == 0 {
		allowedHosts = modrinth.DefaultAllowedHosts
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{client: client, allowedHosts: allowedHosts, logger: logger}
}

// ResolveLocal runs the metadata pass and builds the pending-hash
// queue. For every tracked resource with a recognized download host it
// records a resolved entry, reusing the metadata hash for its format
// and computing the missing variant. Remaining candidates under a
// resource folder prefix with an eligible extension are hashed and
// queued for the remote lookup.
//
// Per-file hashing failures demote the file to unresolved (it will be
// embedded raw) rather than failing the export. A failed folder
// refresh is fatal: resolving against stale metadata is worse than not
// exporting.
func (r *Resolver) ResolveLocal(ctx context.Context, inst *instance.Instance, files []string, filter FilterFunc) (map[string]ResolvedFile, map[string]string, error) {
	resolved := make(map[string]ResolvedFile)
	pending := make(map[string]string)
	gameRoot := inst.GameRoot()

	var prefixes []string
	for _, folder := range inst.ResourceFolders() {
		if err := folder.Refresh(ctx); err != nil {
			return nil, nil, fmt.Errorf("refresh %s: %w", folder.ID(), err)
		}

		folderRel, err := RelPath(gameRoot, folder.Dir())
		if err != nil {
			return nil, nil, err
		}
		prefixes = append(prefixes, folderRel+"/")

		for _, res := range folder.Resources() {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}

			meta := res.Metadata
			if meta == nil {
				continue
			}
			if meta.Download.URL == "" || !modrinth.HostAllowed(meta.Download.URL, r.allowedHosts) {
				continue
			}

			rel, err := RelPath(gameRoot, res.Path)
			if err != nil {
				return nil, nil, err
			}
			if filter != nil && filter(rel) {
				continue
			}

			r.logger.Debug("resolving from metadata index", "path", rel)

			entry := ResolvedFile{
				URL:  meta.Download.URL,
				Side: meta.EffectiveSide(),
			}
			switch meta.Download.HashFormat {
			case "sha1":
				entry.Sha1 = meta.Download.Hash
			case "sha512":
				entry.Sha512 = meta.Download.Hash
			}

			// Fill whichever variant the metadata did not provide. The
			// metadata-supplied hash stays authoritative.
			hashes, err := HashFile(res.Path)
			if err != nil {
				r.logger.Warn("could not hash tracked resource, embedding raw", "path", rel, "err", err)
				continue
			}
			if entry.Sha1 == "" {
				entry.Sha1 = hashes.Sha1
			}
			if entry.Sha512 == "" {
				entry.Sha512 = hashes.Sha512
			}
			entry.Size = hashes.Size

			resolved[rel] = entry
		}
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		rel, err := RelPath(gameRoot, file)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := resolved[rel]; ok {
			continue
		}
		if !underAnyPrefix(rel, prefixes) || !eligibleExtension(rel) {
			continue
		}

		sha512, _, err := HashFileSha512(file)
		if err != nil {
			r.logger.Warn("could not hash candidate, embedding raw", "path", rel, "err", err)
			continue
		}
		r.logger.Debug("queueing for remote lookup", "path", rel)
		pending[rel] = sha512
	}

	return resolved, pending, nil
}

// ResolveRemote issues the single batch lookup for the pending queue
// and records a resolved entry for every hash the service recognizes.
// It selects the descriptor whose strong hash matches the query, never
// trusting a version's primary-file flag alone. Transport and decode
// failures are fatal to the export.
func (r *Resolver) ResolveRemote(ctx context.Context, pending map[string]string, resolved map[string]ResolvedFile) error {
	if len(pending) == 0 {
		return nil
	}

	hashes := maps.Values(pending)
	slices.Sort(hashes)

	versions, err := r.client.VersionsByHashes(ctx, hashes, "sha512")
	if err != nil {
		return fmt.Errorf("find versions for hashes: %w", err)
	}

	relPaths := maps.Keys(pending)
	slices.Sort(relPaths)
	for _, rel := range relPaths {
		hash := pending[rel]
		version, ok := versions[hash]
		if !ok {
			continue
		}
		file, ok := version.FileBySha512(hash)
		if !ok {
			continue
		}

		resolved[rel] = ResolvedFile{
			Sha1:   file.Hashes.Sha1,
			Sha512: hash,
			URL:    file.URL,
			Size:   file.Size,
			Side:   resource.SideBoth,
		}
		r.logger.Debug("resolved via remote lookup", "path", rel, "url", file.URL)
	}

	return nil
}

// underAnyPrefix reports whether rel lives under one of the resource
// folder prefixes.
func underAnyPrefix(rel string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

// eligibleExtension reports whether rel has a file type allowed for
// remote substitution, with or without the disabled marker.
func eligibleExtension(rel string) bool {
	name := resource.EnabledName(rel)
	for _, ext := range packExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
