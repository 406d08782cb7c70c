// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"mrpack-cli/pkg/instance"
	"mrpack-cli/pkg/resource"
)

// resourcesWatch keeps the listing live until interrupted
var resourcesWatch bool

// resourcesCmd lists the instance's tracked resource collections.
var resourcesCmd = &cobra.Command{
	Use:   "resources <instance-dir>",
	Short: "List an instance's resource folders and their contents",
	Long: `Scan the instance's resource folders (mods, resourcepacks,
shaderpacks) and list every asset with its enabled state and whether a
metadata index entry tracks it.

With --watch the command keeps running and reprints the listing
whenever a folder changes on disk.

Examples:
  mrpack resources ./MyInstance
  mrpack resources ./MyInstance --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runResources,
}

func init() {
	resourcesCmd.Flags().BoolVarP(&resourcesWatch, "watch", "w", false, "keep running and reprint on folder changes")
}

func runResources(cmd *cobra.Command, args []string) error {
	logger := log.Default()

	inst, err := instance.Load(args[0], logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, folder := range inst.ResourceFolders() {
		if err := folder.Refresh(cmd.Context()); err != nil {
			return err
		}
	}
	printResources(out, inst)

	if !resourcesWatch {
		return nil
	}

	watcher, err := resource.NewWatcher(resource.WatcherConfig{
		Folders: inst.ResourceFolders(),
		Logger:  logger,
		OnRefresh: func(folderIDs []string) {
			logger.Info("folders changed", "folders", folderIDs)
			printResources(out, inst)
		},
	})
	if err != nil {
		return err
	}
	return watcher.Run(cmd.Context())
}

func printResources(out io.Writer, inst *instance.Instance) {
	fmt.Fprintln(out, TitleStyle.Render(inst.Name()))

	for _, folder := range inst.ResourceFolders() {
		resources := folder.Resources()
		fmt.Fprintf(out, "\n%s (%d)\n", SubtitleStyle.Render(folder.ID()), len(resources))

		for _, res := range resources {
			state := SuccessStyle.Render("enabled")
			if !res.Enabled {
				state = WarningStyle.Render("disabled")
			}
			tracked := SubtitleStyle.Render("untracked")
			if res.Metadata != nil {
				tracked = "tracked"
				if res.Metadata.Download.URL != "" {
					tracked = "tracked, " + ValueStyle.Render(res.Metadata.Download.URL)
				}
			}
			fmt.Fprintf(out, "  %s  %s  %s\n", res.Name, state, tracked)
		}
	}
}
