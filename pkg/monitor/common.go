package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/werf/logboek"

	"github.com/werf/cmondog/pkg/config"
	"github.com/werf/cmondog/pkg/display"
	"github.com/werf/cmondog/pkg/rpc"
)

// ExitStatus is the process exit code a monitoring run asks for.
type ExitStatus int

const (
	Ok           ExitStatus = 0
	Failed       ExitStatus = 1
	JobFailed    ExitStatus = 2
	AccessDenied ExitStatus = 3
	BadOptions   ExitStatus = 6
)

func (s ExitStatus) String() string {
	switch s {
	case Ok:
		return "Ok"
	case Failed:
		return "Failed"
	case JobFailed:
		return "JobFailed"
	case AccessDenied:
		return "AccessDenied"
	case BadOptions:
		return "BadOptions"
	default:
		return fmt.Sprintf("ExitStatus(%d)", int(s))
	}
}

// Outcome tells how the loop ended: the job reached a terminal state, or
// monitoring was abandoned after a retry budget ran out.
type Outcome string

const (
	Terminal  Outcome = "Terminal"
	Aborted   Outcome = "Aborted"
	Cancelled Outcome = "Cancelled"
)

type Result struct {
	Outcome    Outcome
	ExitStatus ExitStatus
}

const (
	maxConsecutiveFailures    = 3
	maxConsecutiveAuthRetries = 3
)

type Options struct {
	Out             io.Writer
	Interval        time.Duration
	SyntaxHighlight bool
	// SkipUnchangedLines does not redraw a progress line equal to the previous one.
	SkipUnchangedLines bool
	// LogTimestamps prefixes streamed messages with their creation time.
	LogTimestamps bool
}

func NewOptions(opts *config.Options, syntaxHighlight bool) Options {
	return Options{
		Out:                display.Out,
		Interval:           opts.Interval,
		SyntaxHighlight:    syntaxHighlight,
		SkipUnchangedLines: opts.SkipUnchangedLines,
		LogTimestamps:      opts.LogTimestamps,
	}
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return display.Out
	}
	return o.Out
}

// Watcher follows a job until it ends.
type Watcher interface {
	Watch(ctx context.Context, jobID int) (Result, error)
}

// NewWatcher picks the rendering mode once, before any request is sent.
func NewWatcher(gateway rpc.Gateway, logMode bool, opts Options) Watcher {
	if logMode {
		return NewLogMonitor(gateway, opts)
	}
	return NewProgressMonitor(gateway, opts)
}

type decision int

const (
	// render the reply, then sleep before the next request
	proceed decision = iota
	// send the next request at once
	retry
	abort
)

// retryPolicy holds the failure counters shared by both rendering modes.
type retryPolicy struct {
	gateway rpc.Gateway

	consecutiveFailures    int
	consecutiveAuthRetries int
	lastFailureWasAuth     bool
}

// check classifies the outcome of one request. The exit status is only
// meaningful together with abort.
func (p *retryPolicy) check(ctx context.Context, reply *rpc.Reply, err error) (decision, ExitStatus) {
	if err == nil && reply.AuthRequired {
		if p.consecutiveAuthRetries > maxConsecutiveAuthRetries {
			logboek.Context(ctx).Warn().LogF("Access denied: authentication was required %d times in a row.\n", p.consecutiveAuthRetries+1)
			return abort, AccessDenied
		}

		p.consecutiveAuthRetries++
		if !p.gateway.Authenticate(ctx) {
			logboek.Context(ctx).Warn().LogF("Authentication failed.\n")
			return p.fail(true)
		}

		p.consecutiveFailures = 0
		return retry, Ok
	}
	p.consecutiveAuthRetries = 0

	if err != nil {
		logboek.Context(ctx).Warn().LogF("Request failed: %s\n", err)
		return p.fail(false)
	}
	if !reply.IsOk {
		logboek.Context(ctx).Warn().LogF("%s\n", errorString(reply))
		logboek.Context(ctx).Warn().LogF("%s\n", reply.Raw)
		return p.fail(false)
	}

	p.consecutiveFailures = 0
	return proceed, Ok
}

func (p *retryPolicy) fail(auth bool) (decision, ExitStatus) {
	p.consecutiveFailures++
	p.lastFailureWasAuth = auth

	if p.consecutiveFailures > maxConsecutiveFailures {
		if p.lastFailureWasAuth {
			return abort, AccessDenied
		}
		return abort, Failed
	}

	return retry, Ok
}

func errorString(reply *rpc.Reply) string {
	if reply.ErrorString != "" {
		return reply.ErrorString
	}
	return "Controller reply is not ok."
}

// sleep waits for the interval or until ctx is done.
func sleep(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cancelled(err error) (Result, error) {
	return Result{Outcome: Cancelled, ExitStatus: Failed}, err
}
