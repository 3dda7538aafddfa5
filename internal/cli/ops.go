package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/foldersync/internal/oplog"
)

// opView is the JSON shape of one listed operation.
type opView struct {
	ID        string `json:"id"`
	Workspace string `json:"workspace"`
	Kind      string `json:"kind"`
	ChangeRef string `json:"change_ref"`
	Processed string `json:"processed_at,omitempty"`
	Created   string `json:"created"`
}

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	var unprocessedOnly bool

	cmd := &cobra.Command{
		Use:   "ops",
		Short: "List queued operations",
		Long: `List operations in the durable queue, oldest first.

By default every operation is shown, processed or not; --unprocessed
restricts the listing to the tail the next sweep will deliver.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOps(rootOpts, cmd, unprocessedOnly)
		},
	}

	cmd.Flags().BoolVar(&unprocessedOnly, "unprocessed", false, "show only undelivered operations")
	return cmd
}

func runOps(opts *RootOptions, cmd *cobra.Command, unprocessedOnly bool) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log, err := oplog.Open(cfg.Log.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening operation log", err)
	}
	defer log.Close()

	ctx := cmd.Context()
	var ops []oplog.Operation
	if unprocessedOnly {
		ops, err = log.ListUnprocessed(ctx)
	} else {
		ops, err = log.List(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "listing operations", err)
	}
	formatter.VerboseLog("loaded %d operation(s) from %s", len(ops), cfg.Log.Path)

	views := make([]opView, len(ops))
	for i, op := range ops {
		views[i] = opView{
			ID:        op.ID,
			Workspace: op.Workspace,
			Kind:      string(op.Change.Kind),
			ChangeRef: op.ChangeRef,
			Created:   op.Created.Format("2006-01-02 15:04:05"),
		}
		if op.ProcessedAt != nil {
			views[i].Processed = op.ProcessedAt.Format("2006-01-02 15:04:05")
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(views)
	}
	return formatter.Success(renderOps(views))
}

func renderOps(views []opView) string {
	if len(views) == 0 {
		return "no operations"
	}
	var b strings.Builder
	for _, v := range views {
		status := "pending"
		if v.Processed != "" {
			status = "done " + v.Processed
		}
		fmt.Fprintf(&b, "%s  %-16s  %-12s  %s  [%s]\n", v.Created, v.Kind, v.Workspace, v.ID, status)
	}
	return strings.TrimRight(b.String(), "\n")
}
