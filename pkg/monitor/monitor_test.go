package monitor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werf/cmondog/pkg/display"
	"github.com/werf/cmondog/pkg/rpc"
)

var errTransport = errors.New("connection refused")

type snapshotReply struct {
	snapshot *rpc.JobSnapshot
	err      error
}

type logReply struct {
	batch *rpc.LogBatch
	err   error
}

// fakeGateway replays the scripted replies in order and repeats the last one
// once the script runs out.
type fakeGateway struct {
	snapshots []snapshotReply
	batches   []logReply
	authOk    bool

	snapshotCalls int
	logOffsets    []int
	authCalls     int
}

func (g *fakeGateway) JobSnapshot(_ context.Context, _ int) (*rpc.JobSnapshot, error) {
	reply := g.snapshots[min(g.snapshotCalls, len(g.snapshots)-1)]
	g.snapshotCalls++
	return reply.snapshot, reply.err
}

func (g *fakeGateway) JobLogBatch(_ context.Context, _, limit, offset int) (*rpc.LogBatch, error) {
	if limit != rpc.DefaultLogBatchLimit {
		panic("unexpected limit")
	}

	reply := g.batches[min(len(g.logOffsets), len(g.batches)-1)]
	g.logOffsets = append(g.logOffsets, offset)
	return reply.batch, reply.err
}

func (g *fakeGateway) Authenticate(context.Context) bool {
	g.authCalls++
	return g.authOk
}

func okReply() rpc.Reply {
	return rpc.Reply{IsOk: true, Raw: "{}"}
}

func job(status rpc.JobStatus) *rpc.JobSnapshot {
	return &rpc.JobSnapshot{Reply: okReply(), ID: 7, Title: "Create Cluster", Status: status}
}

func authRequired() *rpc.JobSnapshot {
	return &rpc.JobSnapshot{Reply: rpc.Reply{AuthRequired: true}}
}

func watchProgress(t *testing.T, gateway *fakeGateway, opts Options) (Result, string) {
	t.Helper()

	var out bytes.Buffer
	opts.Out = &out

	result, err := NewProgressMonitor(gateway, opts).Watch(context.Background(), 7)
	require.NoError(t, err)

	return result, out.String()
}

func TestProgressMonitorFailureBudget(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{{err: errTransport}}}

	result, out := watchProgress(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Aborted, ExitStatus: Failed}, result)
	assert.Equal(t, 4, gateway.snapshotCalls)
	assert.Equal(t, 0, gateway.authCalls)
	assert.Empty(t, out)
}

func TestProgressMonitorNotOkReplies(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{
		{snapshot: &rpc.JobSnapshot{Reply: rpc.Reply{ErrorString: "Job not found.", Raw: `{"request_status":"Failed"}`}}},
	}}

	result, _ := watchProgress(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Aborted, ExitStatus: Failed}, result)
	assert.Equal(t, 4, gateway.snapshotCalls)
}

func TestProgressMonitorFailuresReset(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{
		{err: errTransport},
		{err: errTransport},
		{err: errTransport},
		{snapshot: job(rpc.JobStatusRunning)},
		{err: errTransport},
		{err: errTransport},
		{err: errTransport},
		{snapshot: job(rpc.JobStatusFinished)},
	}}

	result, _ := watchProgress(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Terminal, ExitStatus: Ok}, result)
	assert.Equal(t, 8, gateway.snapshotCalls)
}

func TestProgressMonitorAuthBudget(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{{snapshot: authRequired()}}, authOk: true}

	result, out := watchProgress(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Aborted, ExitStatus: AccessDenied}, result)
	assert.Equal(t, 4, gateway.authCalls)
	assert.Equal(t, 5, gateway.snapshotCalls)
	assert.Empty(t, out)
}

func TestProgressMonitorFailedAuthentication(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{{snapshot: authRequired()}}, authOk: false}

	result, _ := watchProgress(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Aborted, ExitStatus: AccessDenied}, result)
	assert.Equal(t, 4, gateway.authCalls)
	assert.Equal(t, 4, gateway.snapshotCalls)
}

func TestProgressMonitorReauthenticates(t *testing.T) {
	gateway := &fakeGateway{
		snapshots: []snapshotReply{
			{snapshot: authRequired()},
			{snapshot: job(rpc.JobStatusFinished)},
		},
		authOk: true,
	}

	result, out := watchProgress(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Terminal, ExitStatus: Ok}, result)
	assert.Equal(t, 1, gateway.authCalls)
	assert.Equal(t, 1, strings.Count(out, display.ClearToEOLSeq))
}

func TestProgressMonitorTitlePrintedOnce(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{
		{snapshot: job(rpc.JobStatusRunning)},
		{snapshot: job(rpc.JobStatusRunning)},
		{snapshot: job(rpc.JobStatusRunning)},
		{snapshot: job(rpc.JobStatusFinished)},
	}}

	result, out := watchProgress(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Terminal, ExitStatus: Ok}, result)
	assert.Equal(t, 1, strings.Count(out, "Create Cluster"))
	assert.True(t, strings.HasPrefix(out, "Create Cluster\n"), out)
}

func TestProgressMonitorLine(t *testing.T) {
	running := job(rpc.JobStatusRunning)
	running.Title = ""
	running.HasProgress = true
	running.Percent = 10
	running.StatusText = "Installing"

	finished := job(rpc.JobStatusFinished)
	finished.Title = ""

	gateway := &fakeGateway{snapshots: []snapshotReply{
		{snapshot: running},
		{snapshot: running},
		{snapshot: finished},
	}}

	_, out := watchProgress(t, gateway, Options{})

	line := "Job 7 RUNNING [##..................]  10% Installing"
	assert.Equal(t,
		"/ "+line+"\033[K\r"+
			"- "+line+"\033[K\r"+
			"\\ Job 7 FINISHED\033[K\r"+
			"\n",
		out)
	assert.NotContains(t, out, display.HideCursorSeq)
}

func TestProgressMonitorLateTitleClearsParkedLine(t *testing.T) {
	untitled := job(rpc.JobStatusRunning)
	untitled.Title = ""

	gateway := &fakeGateway{snapshots: []snapshotReply{
		{snapshot: untitled},
		{snapshot: job(rpc.JobStatusRunning)},
		{snapshot: job(rpc.JobStatusFinished)},
	}}

	_, out := watchProgress(t, gateway, Options{SkipUnchangedLines: true})

	assert.Equal(t,
		"/ Job 7 RUNNING\033[K\r"+
			"\r\033[K"+"Create Cluster\n"+
			"- Job 7 RUNNING\033[K\r"+
			"\\ Job 7 FINISHED\033[K\r"+
			"\n",
		out)
}

func TestProgressMonitorSpinnerWraps(t *testing.T) {
	var snapshots []snapshotReply
	for i := 0; i < 5; i++ {
		snapshots = append(snapshots, snapshotReply{snapshot: job(rpc.JobStatusRunning)})
	}
	snapshots = append(snapshots, snapshotReply{snapshot: job(rpc.JobStatusFinished)})

	_, out := watchProgress(t, &fakeGateway{snapshots: snapshots}, Options{})

	var prefixes []string
	for _, line := range strings.Split(strings.TrimPrefix(out, "Create Cluster\n"), "\r") {
		if line != "" && line != "\n" {
			prefixes = append(prefixes, line[:1])
		}
	}
	assert.Equal(t, []string{"/", "-", "\\", "|", "/", "-"}, prefixes)
}

func TestProgressMonitorSyntaxHighlight(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{
		{snapshot: job(rpc.JobStatusRunning)},
		{snapshot: job(rpc.JobStatusFailed)},
	}}

	result, out := watchProgress(t, gateway, Options{SyntaxHighlight: true})

	assert.Equal(t, Result{Outcome: Terminal, ExitStatus: JobFailed}, result)
	assert.True(t, strings.HasPrefix(out, display.HideCursorSeq), out)
	assert.True(t, strings.HasSuffix(out, display.ShowCursorSeq), out)
	assert.Contains(t, out, display.BoldSeq+"Create Cluster"+display.NormalSeq)
}

func TestProgressMonitorCursorRestoredOnAbort(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{{err: errTransport}}}

	result, out := watchProgress(t, gateway, Options{SyntaxHighlight: true})

	assert.Equal(t, Aborted, result.Outcome)
	assert.Equal(t, display.HideCursorSeq+display.ShowCursorSeq, out)
}

func TestProgressMonitorEmptyLineSkipped(t *testing.T) {
	gateway := &fakeGateway{snapshots: []snapshotReply{
		{snapshot: &rpc.JobSnapshot{Reply: okReply(), Title: "Backup"}},
		{snapshot: job(rpc.JobStatusFinished)},
	}}

	_, out := watchProgress(t, gateway, Options{})

	assert.Equal(t, "Backup\n/ Job 7 FINISHED\033[K\r\n", out)
}

func TestProgressMonitorSkipUnchangedLines(t *testing.T) {
	snapshots := []snapshotReply{
		{snapshot: job(rpc.JobStatusRunning)},
		{snapshot: job(rpc.JobStatusRunning)},
		{snapshot: job(rpc.JobStatusRunning)},
		{snapshot: job(rpc.JobStatusFinished)},
	}

	_, out := watchProgress(t, &fakeGateway{snapshots: snapshots}, Options{})
	assert.Equal(t, 4, strings.Count(out, display.ClearToEOLSeq))

	_, out = watchProgress(t, &fakeGateway{snapshots: snapshots}, Options{SkipUnchangedLines: true})
	assert.Equal(t, 2, strings.Count(out, display.ClearToEOLSeq))
}

func TestProgressMonitorCancelled(t *testing.T) {
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gateway := &fakeGateway{snapshots: []snapshotReply{{snapshot: job(rpc.JobStatusRunning)}}}
	result, err := NewProgressMonitor(gateway, Options{Out: &out, SyntaxHighlight: true}).Watch(ctx, 7)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, result.Outcome)
	assert.Equal(t, 0, gateway.snapshotCalls)
	assert.Equal(t, display.HideCursorSeq+display.ShowCursorSeq, out.String())
}

func logBatch(status rpc.JobStatus, messages ...string) *rpc.LogBatch {
	batch := &rpc.LogBatch{Reply: okReply(), JobStatus: status}
	for _, message := range messages {
		batch.Entries = append(batch.Entries, rpc.LogEntry{Message: message})
	}
	return batch
}

func watchLog(t *testing.T, gateway *fakeGateway, opts Options) (Result, string) {
	t.Helper()

	var out bytes.Buffer
	opts.Out = &out

	result, err := NewLogMonitor(gateway, opts).Watch(context.Background(), 7)
	require.NoError(t, err)

	return result, out.String()
}

func TestLogMonitorOffsets(t *testing.T) {
	gateway := &fakeGateway{batches: []logReply{
		{batch: logBatch(rpc.JobStatusRunning)},
		{batch: logBatch(rpc.JobStatusRunning, "one", "two", "three", "four", "five")},
		{batch: logBatch(rpc.JobStatusFinished)},
	}}

	result, out := watchLog(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Terminal, ExitStatus: Ok}, result)
	assert.Equal(t, []int{0, 0, 5}, gateway.logOffsets)
	assert.Equal(t, "one\ntwo\nthree\nfour\nfive\n", out)
}

func TestLogMonitorJobFailed(t *testing.T) {
	gateway := &fakeGateway{batches: []logReply{
		{batch: logBatch(rpc.JobStatusRunning, "starting")},
		{batch: logBatch(rpc.JobStatusFailed, "disk full")},
	}}

	result, out := watchLog(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Terminal, ExitStatus: JobFailed}, result)
	assert.Equal(t, []int{0, 1}, gateway.logOffsets)
	assert.Equal(t, "starting\ndisk full\n", out)
}

func TestLogMonitorAborted(t *testing.T) {
	gateway := &fakeGateway{batches: []logReply{{batch: logBatch(rpc.JobStatusAborted, "cancelled by user")}}}

	result, _ := watchLog(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Terminal, ExitStatus: Ok}, result)
}

func TestLogMonitorFailureBudget(t *testing.T) {
	gateway := &fakeGateway{batches: []logReply{
		{batch: logBatch(rpc.JobStatusRunning, "a", "b")},
		{err: errTransport},
	}}

	result, out := watchLog(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Aborted, ExitStatus: Failed}, result)
	assert.Equal(t, []int{0, 2, 2, 2, 2}, gateway.logOffsets)
	assert.Equal(t, "a\nb\n", out)
}

func TestLogMonitorAuthBudget(t *testing.T) {
	gateway := &fakeGateway{
		batches: []logReply{{batch: &rpc.LogBatch{Reply: rpc.Reply{AuthRequired: true}}}},
		authOk:  true,
	}

	result, _ := watchLog(t, gateway, Options{})

	assert.Equal(t, Result{Outcome: Aborted, ExitStatus: AccessDenied}, result)
	assert.Equal(t, 4, gateway.authCalls)
}

func TestLogMonitorHighlight(t *testing.T) {
	batch := logBatch(rpc.JobStatusFinished)
	batch.Entries = []rpc.LogEntry{
		{Severity: "JOB_ERROR", Message: "broken"},
		{Severity: "JOB_INFO", Message: "plain"},
	}

	_, out := watchLog(t, &fakeGateway{batches: []logReply{{batch: batch}}}, Options{SyntaxHighlight: true})

	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "plain\n")
}

func TestLogMonitorTimestamps(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	batch := logBatch(rpc.JobStatusFinished)
	batch.Entries = []rpc.LogEntry{{Created: created, Message: "started"}, {Message: "no time"}}

	_, out := watchLog(t, &fakeGateway{batches: []logReply{{batch: batch}}}, Options{})
	assert.Equal(t, "started\nno time\n", out)

	_, out = watchLog(t, &fakeGateway{batches: []logReply{{batch: batch}}}, Options{LogTimestamps: true})
	assert.Equal(t, "2024-03-01 10:00:00 started\nno time\n", out)
}

func TestNewWatcher(t *testing.T) {
	gateway := &fakeGateway{}

	assert.IsType(t, &LogMonitor{}, NewWatcher(gateway, true, Options{}))
	assert.IsType(t, &ProgressMonitor{}, NewWatcher(gateway, false, Options{}))
}

func TestExitStatusString(t *testing.T) {
	assert.Equal(t, "AccessDenied", AccessDenied.String())
	assert.Equal(t, "ExitStatus(42)", ExitStatus(42).String())
	assert.Equal(t, 6, int(BadOptions))
}
