package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/werf/cmondog/pkg/config"
	"github.com/werf/cmondog/pkg/monitor"
)

func newJobCommand(a *app) *cobra.Command {
	jobCmd := &cobra.Command{Use: "job", Short: "Follow jobs of the controller"}

	var logMode, timestamps bool
	jobCmd.PersistentFlags().BoolVar(&timestamps, "timestamps", false, "prefix job messages with their creation time")

	waitCmd := &cobra.Command{
		Use:   "wait JOB_ID",
		Short: "Wait for the job to end, showing its progress",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("log") {
				a.opts.Log = logMode
			}
			return a.watchJob(cmd, args[0], a.opts.Log)
		},
	}
	waitCmd.Flags().BoolVar(&logMode, "log", false, "print the job messages instead of a progress line")
	jobCmd.AddCommand(waitCmd)

	logCmd := &cobra.Command{
		Use:   "log JOB_ID",
		Short: "Print the job messages until the job ends",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watchJob(cmd, args[0], true)
		},
	}
	jobCmd.AddCommand(logCmd)

	return jobCmd
}

func (a *app) watchJob(cmd *cobra.Command, arg string, logMode bool) error {
	if cmd.Flags().Changed("timestamps") {
		a.opts.LogTimestamps, _ = cmd.Flags().GetBool("timestamps")
	}

	jobID, err := parseID("job", arg)
	if err != nil {
		return err
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}

	watcher := monitor.NewWatcher(client, logMode, monitor.NewOptions(a.opts, a.syntaxHighlight(a.opts)))

	result, err := watcher.Watch(cmd.Context(), jobID)
	if err != nil {
		return fmt.Errorf("watching job %d interrupted: %w", jobID, err)
	}

	switch result.ExitStatus {
	case monitor.Ok:
		return nil
	case monitor.JobFailed:
		return &exitError{status: result.ExitStatus, msg: fmt.Sprintf("job %d failed", jobID)}
	case monitor.AccessDenied:
		return &exitError{status: result.ExitStatus, msg: fmt.Sprintf("access denied while watching job %d", jobID)}
	default:
		return &exitError{status: result.ExitStatus, msg: fmt.Sprintf("gave up watching job %d after repeated failures", jobID)}
	}
}

func parseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return 0, config.Errorf("bad %s id %q", kind, arg)
	}
	return id, nil
}
