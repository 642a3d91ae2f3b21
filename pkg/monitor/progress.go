package monitor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/werf/cmondog/pkg/display"
	"github.com/werf/cmondog/pkg/indicators"
	"github.com/werf/cmondog/pkg/rpc"
)

var spinner = [...]string{"/", "-", "\\", "|"}

const progressBarWidth = 20

// ProgressMonitor follows a job by redrawing a single progress line.
type ProgressMonitor struct {
	gateway rpc.Gateway
	opts    Options
}

func NewProgressMonitor(gateway rpc.Gateway, opts Options) *ProgressMonitor {
	return &ProgressMonitor{gateway: gateway, opts: opts}
}

type progressState struct {
	retryPolicy

	titlePrinted         bool
	previousRenderedLine string
	spinnerPhase         int
}

func (m *ProgressMonitor) Watch(ctx context.Context, jobID int) (Result, error) {
	out := m.opts.out()
	state := &progressState{retryPolicy: retryPolicy{gateway: m.gateway}}

	if m.opts.SyntaxHighlight {
		display.HideCursor(out)
		defer display.ShowCursor(out)
	}
	defer func() {
		if state.previousRenderedLine != "" {
			fmt.Fprintln(out)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}

		snapshot, err := m.gateway.JobSnapshot(ctx, jobID)
		if err != nil && ctx.Err() != nil {
			return cancelled(ctx.Err())
		}

		var reply *rpc.Reply
		if snapshot != nil {
			reply = &snapshot.Reply
		}

		switch next, status := state.check(ctx, reply, err); next {
		case abort:
			return Result{Outcome: Aborted, ExitStatus: status}, nil
		case retry:
			continue
		}

		m.render(out, state, snapshot)

		if snapshot.Finished() {
			if snapshot.IsFailed() {
				return Result{Outcome: Terminal, ExitStatus: JobFailed}, nil
			}
			return Result{Outcome: Terminal, ExitStatus: Ok}, nil
		}

		if err := sleep(ctx, m.opts.Interval); err != nil {
			return cancelled(err)
		}
	}
}

func (m *ProgressMonitor) render(out io.Writer, state *progressState, snapshot *rpc.JobSnapshot) {
	if !state.titlePrinted && snapshot.Title != "" {
		// A progress line is parked under the cursor, wipe it first.
		if state.previousRenderedLine != "" {
			display.ClearLine(out)
			state.previousRenderedLine = ""
		}
		fmt.Fprintf(out, "%s\n", display.Bold(snapshot.Title, m.opts.SyntaxHighlight))
		state.titlePrinted = true
	}

	line := m.progressLine(snapshot)
	if line == "" {
		return
	}
	if m.opts.SkipUnchangedLines && line == state.previousRenderedLine {
		return
	}

	display.OverwriteLine(out, spinner[state.spinnerPhase], line)
	state.spinnerPhase = (state.spinnerPhase + 1) % len(spinner)
	state.previousRenderedLine = line
}

// progressLine is empty until the controller reports a status.
func (m *ProgressMonitor) progressLine(snapshot *rpc.JobSnapshot) string {
	if snapshot.Status == "" {
		return ""
	}

	formatOpts := indicators.FormatOptions{SyntaxHighlight: m.opts.SyntaxHighlight}

	status := &indicators.StringEqualConditionIndicator{
		Value:        string(snapshot.Status),
		TargetValue:  string(rpc.JobStatusFinished),
		FailedValues: []string{string(rpc.JobStatusFailed), string(rpc.JobStatusAborted)},
	}

	parts := []string{fmt.Sprintf("Job %d", snapshot.ID), status.FormatElem(formatOpts)}

	if snapshot.HasProgress {
		percent := &indicators.PercentIndicator{Value: snapshot.Percent, BarWidth: progressBarWidth}
		parts = append(parts, percent.FormatElem(formatOpts))
	}

	if snapshot.StatusText != "" {
		parts = append(parts, snapshot.StatusText)
	}

	return strings.Join(parts, " ")
}
