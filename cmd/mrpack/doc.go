// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for mrpack.
//
// This package implements the Cobra command hierarchy: the root
// command, the export pipeline driver, archive inspection, and the
// headless resource-folder listing.
package cmd
