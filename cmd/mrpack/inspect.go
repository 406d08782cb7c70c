// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"mrpack-cli/internal/ziputil"
	"mrpack-cli/pkg/mrpack"
)

// inspectRaw skips markdown rendering and prints the plain report
var inspectRaw bool

// inspectCmd validates an existing archive's index and reports its
// contents.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mrpack>",
	Short: "Validate and summarize an existing pack archive",
	Long: `Read the index out of a .mrpack archive, validate it against the
format schema, and print a summary of dependencies and files.

Examples:
  mrpack inspect ./my-pack.mrpack
  mrpack inspect ./my-pack.mrpack --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false, "print the report as plain markdown")
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := ziputil.ReadEntry(args[0], mrpack.IndexFileName)
	if err != nil {
		return err
	}

	index, err := mrpack.ParseIndex(data)
	if err != nil {
		return fmt.Errorf("invalid pack index: %w", err)
	}

	report := indexReport(index)
	if inspectRaw {
		fmt.Fprint(cmd.OutOrStdout(), report)
		return nil
	}

	rendered, err := glamour.Render(report, "auto")
	if err != nil {
		// Fall back to the plain report rather than failing the
		// inspection over a rendering problem.
		fmt.Fprint(cmd.OutOrStdout(), report)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

// indexReport renders a pack index as a markdown document.
func indexReport(index mrpack.Index) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", index.Name)
	if index.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", index.Summary)
	}
	fmt.Fprintf(&b, "- Version: `%s`\n", index.VersionID)
	fmt.Fprintf(&b, "- Format: %d (%s)\n\n", index.FormatVersion, index.Game)

	if len(index.Dependencies) > 0 {
		b.WriteString("## Dependencies\n\n")
		keys := make([]string, 0, len(index.Dependencies))
		for k := range index.Dependencies {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s `%s`\n", k, index.Dependencies[k])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Files (%d)\n\n", len(index.Files))
	for _, f := range index.Files {
		fmt.Fprintf(&b, "- `%s` (client: %s, server: %s, %d bytes)\n",
			f.Path, f.Env.Client, f.Env.Server, f.FileSize)
	}

	return b.String()
}
