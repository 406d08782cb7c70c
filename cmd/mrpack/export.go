// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"mrpack-cli/internal/modrinth"
	"mrpack-cli/pkg/instance"
	"mrpack-cli/pkg/mrpack"
)

var (
	// exportName is the pack display name; defaults to the instance name
	exportName string
	// exportVersionID is the pack version label
	exportVersionID string
	// exportSummary is the optional pack summary
	exportSummary string
	// exportOutput is the output archive path
	exportOutput string
	// exportExcludes are additional exclusion globs
	exportExcludes []string
)

// exportCmd drives the export pipeline for one instance.
var exportCmd = &cobra.Command{
	Use:   "export <instance-dir>",
	Short: "Export an instance as a .mrpack archive",
	Long: `Export a local instance directory as a Modrinth modpack.

Files tracked by the instance's metadata index with a recognized
download host are referenced remotely. Untracked mods, resource packs
and shader packs are hashed and looked up against Modrinth in one
batch; whatever remains is embedded raw under ` + ValueStyle.Render("overrides/") + `.

Examples:
  mrpack export ./MyInstance --name "My Pack" --version-id 1.0.0
  mrpack export ./MyInstance --version-id 1.0.0 -o packs/my-pack.mrpack
  mrpack export ./MyInstance --version-id 1.0.0 --exclude "config/secret/**"`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportName, "name", "", "pack name (defaults to the instance name)")
	exportCmd.Flags().StringVar(&exportVersionID, "version-id", "", "pack version label")
	exportCmd.Flags().StringVar(&exportSummary, "summary", "", "short pack description")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output archive path (defaults to <name>-<version>.mrpack)")
	exportCmd.Flags().StringArrayVar(&exportExcludes, "exclude", nil, "glob pattern to exclude (repeatable)")

	_ = exportCmd.MarkFlagRequired("version-id")
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := log.Default()

	inst, err := instance.Load(args[0], logger)
	if err != nil {
		return err
	}

	name := exportName
	if name == "" {
		name = inst.Name()
	}

	output := exportOutput
	if output == "" {
		output = sanitizeFileName(name) + "-" + sanitizeFileName(exportVersionID) + ".mrpack"
	}

	patterns := make([]string, 0, len(cfg.Export.Excludes)+len(exportExcludes))
	patterns = append(patterns, cfg.Export.Excludes...)
	patterns = append(patterns, exportExcludes...)
	filter, err := mrpack.FilterGlobs(patterns)
	if err != nil {
		return err
	}

	task := mrpack.NewExportTask(inst, mrpack.ExportOptions{
		IndexOptions: mrpack.IndexOptions{
			Name:      name,
			VersionID: exportVersionID,
			Summary:   exportSummary,
		},
		OutputPath:   output,
		Filter:       filter,
		AllowedHosts: cfg.Modrinth.AllowedHosts,
		Client:       modrinth.NewClient(cfg.Modrinth.BaseURL),
		Logger:       logger,
		Events: mrpack.Events{
			OnFile: func(archivePath string) {
				logger.Debug("adding", "path", archivePath)
			},
		},
	})

	if err := task.Run(cmd.Context()); err != nil {
		if errors.Is(err, mrpack.ErrAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Export aborted."))
			return &ExitError{Code: 130, Err: err}
		}
		return err
	}

	abs, err := filepath.Abs(output)
	if err != nil {
		abs = output
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Export complete: ")+ValueStyle.Render(abs))
	return nil
}

// sanitizeFileName makes a pack name safe as a file name component.
func sanitizeFileName(s string) string {
	mapper := func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}
	out := strings.Map(mapper, s)
	out = strings.Trim(out, "-.")
	if out == "" {
		out = "pack"
	}
	return out
}
