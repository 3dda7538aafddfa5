package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/foldersync/internal/oplog"
)

// NewPruneCommand creates the prune command.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	var olderThanDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old processed operations from the queue",
		Long: `Delete processed operations past the retention window. Unprocessed
operations are never touched. The window comes from the configuration's
log.prune_after_days unless --older-than overrides it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(rootOpts, cmd, olderThanDays)
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than", -1, "retention window in days (overrides configuration)")
	return cmd
}

func runPrune(opts *RootOptions, cmd *cobra.Command, olderThanDays int) error {
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

	retention := cfg.PruneAfter()
	if olderThanDays >= 0 {
		retention = time.Duration(olderThanDays) * 24 * time.Hour
	}
	if retention == 0 {
		return formatter.Success("retention disabled, nothing pruned")
	}

	log, err := oplog.Open(cfg.Log.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening operation log", err)
	}
	defer log.Close()

	cutoff := time.Now().Add(-retention)
	formatter.VerboseLog("pruning operations processed before %s", cutoff.Format(time.RFC3339))

	pruned, err := log.PruneProcessed(cmd.Context(), cutoff)
	if err != nil {
		return WrapExitError(ExitCommandError, "pruning", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]int64{"pruned": pruned})
	}
	return formatter.Success(fmt.Sprintf("pruned %d operation(s)", pruned))
}
