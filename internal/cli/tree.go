package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/foldersync/internal/oplog"
	"github.com/roach88/foldersync/internal/tree"
)

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "tree <snapshot-file>",
		Short: "Render a workspace tree snapshot",
		Long: `Render a workspace tree snapshot as an indented listing, siblings in
stored order. With --workspace the unprocessed operations queued for
that workspace are overlaid, showing the tree as the client sees it
rather than as the remote last confirmed it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(rootOpts, cmd, args[0], workspace)
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "overlay queued operations for this workspace")
	return cmd
}

func runTree(opts *RootOptions, cmd *cobra.Command, path, workspace string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading snapshot", err)
	}
	t, err := tree.UnmarshalSnapshot(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing snapshot", err)
	}

	if workspace != "" {
		cfg, err := loadConfig(opts)
		if err != nil {
			return err
		}
		log, err := oplog.Open(cfg.Log.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening operation log", err)
		}
		defer log.Close()

		ops, err := log.ListUnprocessed(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "listing operations", err)
		}
		overlaid := 0
		for _, op := range ops {
			if op.Workspace != workspace {
				continue
			}
			t.Apply(op.Change)
			overlaid++
		}
		formatter.VerboseLog("overlaid %d queued operation(s)", overlaid)
	}

	if formatter.Format == "json" {
		return formatter.Success(t.Snapshot())
	}
	return formatter.Success(renderTree(t))
}

// renderTree prints the tree depth-first, two spaces per level.
func renderTree(t *tree.Tree) string {
	var b strings.Builder
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		children, _ := t.Children(id)
		for _, child := range children {
			item, _ := t.Item(child)
			indent := strings.Repeat("  ", depth)
			if item.Kind == tree.KindFolder {
				fmt.Fprintf(&b, "%s%s/ (%s)\n", indent, item.Name, item.ID)
			} else {
				fmt.Fprintf(&b, "%s%s\n", indent, item.ID)
			}
			walk(child, depth+1)
		}
	}
	walk("", 0)

	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return "empty workspace"
	}
	return out
}
