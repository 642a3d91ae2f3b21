package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/werf/logboek"

	"github.com/werf/cmondog/pkg/rpc"
	"github.com/werf/cmondog/pkg/utils"
)

const pingInterval = 500 * time.Millisecond

func newPingCommand(a *app) *cobra.Command {
	var wait bool

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the controller answers",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			return ping(cmd.Context(), client, a.opts.Controller, wait)
		},
	}
	pingCmd.Flags().BoolVar(&wait, "wait", false, "repeat until the controller answers")

	return pingCmd
}

func ping(ctx context.Context, client *rpc.Client, controller string, wait bool) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		err := pingOnce(ctx, client, controller)
		if err == nil || !wait {
			return err
		}
		logboek.Context(ctx).Warn().LogF("%s\n", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func pingOnce(ctx context.Context, client *rpc.Client, controller string) error {
	reply, err := client.Ping(ctx)
	if err == nil && reply.AuthRequired && client.Authenticate(ctx) {
		reply, err = client.Ping(ctx)
	}
	if err != nil {
		return fmt.Errorf("ping %s: %w", controller, err)
	}
	if !reply.IsOk {
		return fmt.Errorf("ping %s: %s", controller, reply.ErrorString)
	}

	logboek.Context(ctx).Default().LogF("PONG %s %s\n", utils.BlueString("%s", controller), reply.RequestProcessed)

	return nil
}
