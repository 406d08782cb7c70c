// SPDX-License-Identifier: MPL-2.0

// Package mrpack implements the Modrinth modpack export pipeline.
//
// An export walks an instance's game directory, decides for every file
// whether it can be referenced from a remote host instead of being
// embedded, and assembles a .mrpack archive: raw files under an
// "overrides/" prefix plus a generated modrinth.index.json describing
// the remotely hosted ones.
//
// The pipeline runs as a single ExportTask progressing through a fixed
// sequence of states:
//
//	Idle -> CollectingFiles -> ResolvingHashes -> QueryingRemote -> BuildingArchive
//
// QueryingRemote is skipped when local metadata resolved everything.
// Cancellation is context-based and yields ErrAborted; no partial
// archive is ever left at the output path.
package mrpack
