package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/werf/logboek"

	"github.com/werf/cmondog/pkg/config"
	"github.com/werf/cmondog/pkg/display"
	"github.com/werf/cmondog/pkg/graph"
	"github.com/werf/cmondog/pkg/monitor"
	"github.com/werf/cmondog/pkg/rpc"
	"github.com/werf/cmondog/pkg/utils"
)

var templatesTableRatio = []float64{.16, .16, .30, .38}

func newNodeCommand(a *app) *cobra.Command {
	nodeCmd := &cobra.Command{Use: "node", Short: "Inspect the nodes of a cluster"}

	var clusterID int
	var graphName string
	var graphOpts config.GraphOptions

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Draw a statistic of the cluster nodes as a bar chart",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.opts.Graph
			if cmd.Flags().Changed("width") {
				opts.Width = graphOpts.Width
			}
			if cmd.Flags().Changed("height") {
				opts.Height = graphOpts.Height
			}
			if cmd.Flags().Changed("aggregate") {
				opts.Aggregate = graphOpts.Aggregate
			}

			return a.nodeGraph(cmd.Context(), clusterID, graphName, opts)
		},
	}
	graphCmd.Flags().IntVar(&clusterID, "cluster-id", -1, "cluster to draw the graph for")
	graphCmd.Flags().StringVar(&graphName, "graph", "", "graph template, see \"cmondog graph templates\"")
	graphCmd.Flags().IntVar(&graphOpts.Width, "width", config.DefaultGraphWidth, "chart width in columns")
	graphCmd.Flags().IntVar(&graphOpts.Height, "height", config.DefaultGraphHeight, "chart height in rows")
	graphCmd.Flags().StringVar(&graphOpts.Aggregate, "aggregate", "", "how samples sharing a column are combined: average, max or min")
	nodeCmd.AddCommand(graphCmd)

	return nodeCmd
}

func (a *app) nodeGraph(ctx context.Context, clusterID int, graphName string, opts config.GraphOptions) error {
	if clusterID < 0 {
		return config.Errorf("--cluster-id is required")
	}
	if graphName == "" {
		return config.Errorf("--graph is required")
	}

	template, err := graph.LookupTemplate(graphName)
	if err != nil {
		return err
	}

	g, err := template.NewGraph(opts)
	if err != nil {
		return err
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}

	reply, err := fetchStats(ctx, client, clusterID, template.Stat)
	if err != nil {
		return err
	}

	g.AppendValues(template.Values(reply)...)
	if g.NValues() == 0 {
		logboek.Context(ctx).Warn().LogF("No %s samples for cluster %d.\n", template.Field, clusterID)
		return nil
	}

	if err := g.Print(display.Out); err != nil {
		return err
	}

	logboek.Context(ctx).Default().LogF("%s samples, maximum %s\n", humanize.Comma(int64(g.NValues())), humanize.FtoaWithDigits(g.Max(), 2))

	return nil
}

// fetchStats renews the session once when the controller asks for it.
func fetchStats(ctx context.Context, client *rpc.Client, clusterID int, statName string) (*rpc.StatsReply, error) {
	reply, err := client.Stats(ctx, clusterID, statName)
	if err == nil && reply.AuthRequired && client.Authenticate(ctx) {
		reply, err = client.Stats(ctx, clusterID, statName)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get %s of cluster %d: %w", statName, clusterID, err)
	}

	if !reply.IsOk {
		if reply.AuthRequired {
			return nil, &exitError{status: monitor.AccessDenied, msg: fmt.Sprintf("access denied reading %s of cluster %d", statName, clusterID)}
		}
		return nil, fmt.Errorf("unable to get %s of cluster %d: %s", statName, clusterID, reply.ErrorString)
	}

	return reply, nil
}

func newGraphCommand(_ *app) *cobra.Command {
	graphCmd := &cobra.Command{Use: "graph", Short: "Graph templates"}

	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "List the graph templates",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			t := utils.NewTable(templatesTableRatio...)
			t.SetWidth(logboek.Context(ctx).Streams().ContentWidth() - 1)
			t.Header(utils.BoldString("NAME"), utils.BoldString("STAT"), utils.BoldString("TITLE"), utils.BoldString("DESCRIPTION"))

			var rows [][]interface{}
			for _, template := range graph.Templates() {
				rows = append(rows, []interface{}{template.Name, template.Stat, template.Title, template.Description})
			}
			t.Rows(rows...)

			logboek.Context(ctx).Log(t.Render())

			return nil
		},
	}
	graphCmd.AddCommand(templatesCmd)

	return graphCmd
}
