package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/werf/cmondog/pkg/config"
	"github.com/werf/cmondog/pkg/debug"
	"github.com/werf/cmondog/pkg/display"
	"github.com/werf/cmondog/pkg/monitor"
	"github.com/werf/cmondog/pkg/rpc"
	"github.com/werf/cmondog/pkg/utils"
)

// exitError carries a non-zero exit status out of a command.
type exitError struct {
	status monitor.ExitStatus
	msg    string
}

func (e *exitError) Error() string {
	return e.msg
}

type globalFlags struct {
	configPath string
	controller string
	rpcToken   string
	user       string
	password   string
	color      string
	interval   time.Duration
	debug      bool
}

type app struct {
	flags globalFlags
	opts  *config.Options
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand(&app{}).ExecuteContext(ctx)
	stop()

	os.Exit(int(exitStatus(err)))
}

func exitStatus(err error) monitor.ExitStatus {
	if err == nil {
		return monitor.Ok
	}

	display.ErrF("Error: %s\n", err)

	var exitErr *exitError
	var configErr *config.Error
	switch {
	case errors.As(err, &exitErr):
		return exitErr.status
	case errors.As(err, &configErr):
		return monitor.BadOptions
	default:
		return monitor.Failed
	}
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cmondog",
		Short:         "Watch controller jobs and draw node statistics in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadOptions(cmd)
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return config.WrapError(err, "%s", cmd.CommandPath())
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.configPath, "config", "", fmt.Sprintf("config file (default %s)", config.DefaultPath()))
	flags.StringVar(&a.flags.controller, "controller", config.DefaultController, "controller address")
	flags.StringVar(&a.flags.rpcToken, "rpc-token", "", "RPC token of the controller")
	flags.StringVar(&a.flags.user, "cmon-user", "", "user name to authenticate with")
	flags.StringVar(&a.flags.password, "password", "", "password to authenticate with")
	flags.StringVar(&a.flags.color, "color", config.ColorAuto, "colorize output: auto, always or never")
	flags.DurationVar(&a.flags.interval, "interval", config.DefaultInterval, "pause between two polls of a job")
	flags.BoolVar(&a.flags.debug, "debug", false, "print request traces to stderr")

	rootCmd.AddCommand(newJobCommand(a))
	rootCmd.AddCommand(newNodeCommand(a))
	rootCmd.AddCommand(newGraphCommand(a))
	rootCmd.AddCommand(newPingCommand(a))

	return rootCmd
}

// usageArgs reports bad positional arguments as option errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return config.WrapError(err, "%s", cmd.CommandPath())
		}
		return nil
	}
}

// loadOptions layers the config file, the environment and the flags the user
// actually set, in that order.
func (a *app) loadOptions(cmd *cobra.Command) error {
	if a.flags.debug {
		debug.Enable()
	}

	opts, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("controller") {
		opts.Controller = a.flags.controller
	}
	if flags.Changed("rpc-token") {
		opts.RPCToken = a.flags.rpcToken
	}
	if flags.Changed("cmon-user") {
		opts.User = a.flags.user
	}
	if flags.Changed("password") {
		opts.Password = a.flags.password
	}
	if flags.Changed("color") {
		opts.Color = a.flags.color
	}
	if flags.Changed("interval") {
		opts.Interval = a.flags.interval
	}

	if err := opts.Validate(); err != nil {
		return err
	}

	debug.Printf("controller %s, user %q, syntax highlight: %s\n", opts.Controller, opts.User, debug.YesNo(a.syntaxHighlight(opts)))

	a.opts = opts
	return nil
}

func (a *app) syntaxHighlight(opts *config.Options) bool {
	return opts.UseSyntaxHighlight(utils.IsTerminal())
}

func (a *app) newClient() (*rpc.Client, error) {
	return rpc.NewClient(rpc.ClientOptions{
		Controller:        a.opts.Controller,
		RPCToken:          a.opts.RPCToken,
		User:              a.opts.User,
		Password:          a.opts.Password,
		InsecureTLS:       a.opts.InsecureTLS,
		RequestsPerSecond: a.opts.RequestsPerSecond,
	})
}
