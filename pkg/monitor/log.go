package monitor

import (
	"context"
	"io"

	"github.com/samber/lo"

	"github.com/werf/cmondog/pkg/display"
	"github.com/werf/cmondog/pkg/rpc"
	"github.com/werf/cmondog/pkg/utils"
)

const logTimestampFormat = "2006-01-02 15:04:05"

// LogMonitor follows a job by printing its messages as they arrive.
type LogMonitor struct {
	gateway rpc.Gateway
	opts    Options
}

func NewLogMonitor(gateway rpc.Gateway, opts Options) *LogMonitor {
	return &LogMonitor{gateway: gateway, opts: opts}
}

type logState struct {
	retryPolicy

	printedLogCount int
}

func (m *LogMonitor) Watch(ctx context.Context, jobID int) (Result, error) {
	out := m.opts.out()
	state := &logState{retryPolicy: retryPolicy{gateway: m.gateway}}

	for {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}

		batch, err := m.gateway.JobLogBatch(ctx, jobID, rpc.DefaultLogBatchLimit, state.printedLogCount)
		if err != nil && ctx.Err() != nil {
			return cancelled(ctx.Err())
		}

		var reply *rpc.Reply
		if batch != nil {
			reply = &batch.Reply
		}

		switch next, status := state.check(ctx, reply, err); next {
		case abort:
			return Result{Outcome: Aborted, ExitStatus: status}, nil
		case retry:
			continue
		}

		if batch.Count() > 0 {
			m.printEntries(out, batch.Entries)
			state.printedLogCount += batch.Count()
		}

		if lo.Contains(rpc.TerminalJobStatuses(), string(batch.JobStatus)) {
			if batch.JobStatus == rpc.JobStatusFailed {
				return Result{Outcome: Terminal, ExitStatus: JobFailed}, nil
			}
			return Result{Outcome: Terminal, ExitStatus: Ok}, nil
		}

		if err := sleep(ctx, m.opts.Interval); err != nil {
			return cancelled(err)
		}
	}
}

func (m *LogMonitor) printEntries(out io.Writer, entries []rpc.LogEntry) {
	lines := lo.Map(entries, func(entry rpc.LogEntry, _ int) display.LogLine {
		line := display.LogLine{Message: m.formatMessage(entry)}
		if !entry.Created.IsZero() {
			line.Timestamp = entry.Created.Local().Format(logTimestampFormat)
		}
		return line
	})

	display.OutputLogLines(out, lines, m.opts.LogTimestamps)
}

func (m *LogMonitor) formatMessage(entry rpc.LogEntry) string {
	if !m.opts.SyntaxHighlight {
		return entry.Message
	}

	switch {
	case entry.IsError():
		return utils.RedString("%s", entry.Message)
	case entry.IsWarning():
		return utils.YellowString("%s", entry.Message)
	default:
		return entry.Message
	}
}
