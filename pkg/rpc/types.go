package rpc

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
)

// DefaultLogBatchLimit is the largest number of job messages requested in one
// round trip.
const DefaultLogBatchLimit = 300

// Gateway is the synchronous request/response boundary to the controller.
type Gateway interface {
	JobSnapshot(ctx context.Context, jobID int) (*JobSnapshot, error)
	JobLogBatch(ctx context.Context, jobID, limit, offset int) (*LogBatch, error)
	Authenticate(ctx context.Context) bool
}

// StatsGateway serves the statistics needed to draw node graphs.
type StatsGateway interface {
	Stats(ctx context.Context, clusterID int, statName string) (*StatsReply, error)
}

type JobStatus string

const (
	JobStatusDefined   JobStatus = "DEFINED"
	JobStatusDequeued  JobStatus = "DEQUEUED"
	JobStatusScheduled JobStatus = "SCHEDULED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusPaused    JobStatus = "PAUSED"
	JobStatusFinished  JobStatus = "FINISHED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusAborted   JobStatus = "ABORTED"
)

var terminalJobStatuses = []JobStatus{JobStatusFinished, JobStatusFailed, JobStatusAborted}

func (s JobStatus) IsTerminal() bool {
	return lo.Contains(terminalJobStatuses, s)
}

func TerminalJobStatuses() []string {
	return lo.Map(terminalJobStatuses, func(s JobStatus, _ int) string {
		return string(s)
	})
}

// Reply holds the fields every controller reply carries.
type Reply struct {
	IsOk         bool
	AuthRequired bool
	ErrorString  string
	// Raw is the reply body as received, for diagnostics.
	Raw string
}

type JobSnapshot struct {
	Reply

	ID          int
	Title       string
	Status      JobStatus
	StatusText  string
	Percent     float64
	HasProgress bool
}

func (s *JobSnapshot) IsFailed() bool {
	return s.Status == JobStatusFailed
}

func (s *JobSnapshot) Finished() bool {
	return s.Status.IsTerminal()
}

type LogEntry struct {
	Created  time.Time
	Severity string
	Message  string
}

func (e LogEntry) IsError() bool {
	return strings.Contains(e.Severity, "FAILED") || strings.Contains(e.Severity, "ERROR") || strings.Contains(e.Severity, "CRITICAL")
}

func (e LogEntry) IsWarning() bool {
	return strings.Contains(e.Severity, "WARNING")
}

type LogBatch struct {
	Reply

	Entries   []LogEntry
	JobStatus JobStatus
	// Total is the number of messages the controller holds for the job.
	Total int
}

// Count is the number of entries in this batch.
func (b *LogBatch) Count() int {
	return len(b.Entries)
}

type StatSample map[string]float64

type StatsReply struct {
	Reply

	Samples []StatSample
}

// Values extracts one field from every sample that carries it, in order.
func (r *StatsReply) Values(field string) []float64 {
	return lo.FilterMap(r.Samples, func(sample StatSample, _ int) (float64, bool) {
		value, ok := sample[field]
		return value, ok
	})
}

type PingReply struct {
	Reply

	RequestCreated   string
	RequestProcessed string
}
