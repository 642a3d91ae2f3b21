package rpc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	RequestStatusOk           = "OK"
	RequestStatusAuthRequired = "AuthRequired"
)

var ErrEmptyReply = errors.New("empty reply")

type replyHeader struct {
	RequestStatus string `json:"request_status"`
	ErrorString   string `json:"error_string"`
}

func (h replyHeader) reply(data []byte) Reply {
	authRequired := strings.EqualFold(strings.ReplaceAll(h.RequestStatus, "_", ""), RequestStatusAuthRequired)

	return Reply{
		IsOk:         h.RequestStatus == RequestStatusOk,
		AuthRequired: authRequired,
		ErrorString:  h.ErrorString,
		Raw:          string(data),
	}
}

type wireJob struct {
	JobID           int      `json:"job_id"`
	Title           string   `json:"title"`
	Status          string   `json:"status"`
	StatusText      string   `json:"status_text"`
	ProgressPercent *float64 `json:"progress_percent"`
}

type wireJobReply struct {
	replyHeader
	Job *wireJob `json:"job"`
}

type wireLogMessage struct {
	Created       string `json:"created"`
	MessageStatus string `json:"message_status"`
	MessageText   string `json:"message_text"`
}

type wireLogReply struct {
	replyHeader
	Messages []wireLogMessage `json:"messages"`
	Job      *wireJob         `json:"job"`
	Total    int              `json:"total"`
}

type wireStatsReply struct {
	replyHeader
	Data []map[string]interface{} `json:"data"`
}

type wirePingReply struct {
	replyHeader
	RequestCreated   string `json:"request_created"`
	RequestProcessed string `json:"request_processed"`
}

func decode(data []byte, into interface{}) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return ErrEmptyReply
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("unable to parse reply: %w", err)
	}
	return nil
}

// ParseJobSnapshot decodes a getJobInstance reply. Missing fields keep their
// zero values.
func ParseJobSnapshot(data []byte) (*JobSnapshot, error) {
	var wire wireJobReply
	if err := decode(data, &wire); err != nil {
		return nil, err
	}

	snapshot := &JobSnapshot{Reply: wire.reply(data)}
	if wire.Job != nil {
		snapshot.ID = wire.Job.JobID
		snapshot.Title = wire.Job.Title
		snapshot.Status = JobStatus(strings.ToUpper(wire.Job.Status))
		snapshot.StatusText = wire.Job.StatusText
		if wire.Job.ProgressPercent != nil {
			snapshot.HasProgress = true
			snapshot.Percent = *wire.Job.ProgressPercent
		}
	}

	return snapshot, nil
}

// ParseLogBatch decodes a getJobLog reply.
func ParseLogBatch(data []byte) (*LogBatch, error) {
	var wire wireLogReply
	if err := decode(data, &wire); err != nil {
		return nil, err
	}

	batch := &LogBatch{
		Reply: wire.reply(data),
		Total: wire.Total,
	}
	if wire.Job != nil {
		batch.JobStatus = JobStatus(strings.ToUpper(wire.Job.Status))
	}

	for _, message := range wire.Messages {
		entry := LogEntry{
			Severity: message.MessageStatus,
			Message:  message.MessageText,
		}
		if created, err := time.Parse(time.RFC3339, message.Created); err == nil {
			entry.Created = created
		}
		batch.Entries = append(batch.Entries, entry)
	}

	return batch, nil
}

// ParseStatsReply decodes a getStats reply keeping only numeric fields.
func ParseStatsReply(data []byte) (*StatsReply, error) {
	var wire wireStatsReply
	if err := decode(data, &wire); err != nil {
		return nil, err
	}

	reply := &StatsReply{Reply: wire.reply(data)}
	for _, item := range wire.Data {
		sample := StatSample{}
		for key, value := range item {
			if number, ok := value.(float64); ok {
				sample[key] = number
			}
		}
		reply.Samples = append(reply.Samples, sample)
	}

	return reply, nil
}

func ParsePingReply(data []byte) (*PingReply, error) {
	var wire wirePingReply
	if err := decode(data, &wire); err != nil {
		return nil, err
	}

	return &PingReply{
		Reply:            wire.reply(data),
		RequestCreated:   wire.RequestCreated,
		RequestProcessed: wire.RequestProcessed,
	}, nil
}
