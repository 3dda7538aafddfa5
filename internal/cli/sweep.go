package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/foldersync/internal/oplog"
	"github.com/roach88/foldersync/internal/processor"
	"github.com/roach88/foldersync/internal/remote"
)

// sweepResult is the JSON shape of a sweep report.
type sweepResult struct {
	Delivered int `json:"delivered"`
	Remaining int `json:"remaining"`
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Deliver queued operations to the remote API",
		Long: `Probe the remote API and, if reachable, deliver the unprocessed
operation tail in creation order. Stops at the first operation the
remote rejects transiently; run again to retry from there.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(rootOpts, cmd)
		},
	}
	return cmd
}

func runSweep(opts *RootOptions, cmd *cobra.Command) error {
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
	logger := newLogger(cfg, opts.Verbose)

	log, err := oplog.Open(cfg.Log.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening operation log", err)
	}
	defer log.Close()

	client, err := remote.NewClient(remote.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.Timeout(),
		Logger:  logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "building API client", err)
	}

	ctx := cmd.Context()
	before, err := log.CountUnprocessed(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "counting operations", err)
	}
	if before == 0 {
		return formatter.Success("queue empty, nothing to deliver")
	}

	if !client.Healthy(ctx) {
		formatter.Error("remote API unreachable")
		return WrapExitError(ExitFailure, "remote API unreachable", nil)
	}

	// The offline-to-online transition triggers the sweep.
	proc := processor.New(processor.Config{Log: log, Remote: client, Logger: logger})
	proc.SetOnline(true)
	proc.Wait()

	after, err := log.CountUnprocessed(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "counting operations", err)
	}

	result := sweepResult{Delivered: before - after, Remaining: after}
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		if err := formatter.Success(fmt.Sprintf("delivered %d operation(s), %d remaining", result.Delivered, result.Remaining)); err != nil {
			return err
		}
	}

	if after > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d operation(s) still queued", after), nil)
	}
	return nil
}
