// Package model defines the core data types shared by the inboxjobs scheduler, processors and stores.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobType identifies which batch processor advances a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the lifecycle state of a job row.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobTypeMarkReadAndArchive marks every matched thread as read and removes it from the inbox.
	JobTypeMarkReadAndArchive JobType = "markReadAndArchive"
	// JobTypeFetchSenders aggregates per-sender counters for matched threads.
	JobTypeFetchSenders JobType = "fetchSenders"

	// JobStatusQueued indicates a job is waiting to be promoted.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates the job currently owned by the scheduler.
	JobStatusRunning JobStatus = "running"
	// JobStatusDone indicates the job finished successfully.
	JobStatusDone JobStatus = "done"
	// JobStatusError indicates the job failed and will not be retried.
	JobStatusError JobStatus = "error"
	// JobStatusCancelled indicates the job was cancelled through the control API.
	JobStatusCancelled JobStatus = "cancelled"
)

// TargetSeparator joins serialized targets in the Target column.
const TargetSeparator = ", "

// ErrInvalidJobType is returned when a caller asks for a job type that does not exist.
var ErrInvalidJobType = errors.New("invalid job type")

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeMarkReadAndArchive, JobTypeFetchSenders:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for JobType.
func (t *JobType) UnmarshalText(text []byte) error {
	v := JobType(strings.TrimSpace(string(text)))
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobType, v)
	}
	*t = v
	return nil
}

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusDone, JobStatusError, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed out of s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError || s == JobStatusCancelled
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", v)
	}
	*s = v
	return nil
}

// Progress is the resumable state a processor carries between invocations.
// Cursor is opaque to everything except the processor that issued it.
type Progress struct {
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Cursor    string `json:"cursor,omitempty"`
}

// Outcome is what a batch processor reports after one page of work.
type Outcome struct {
	Progress Progress `json:"progress"`
	// Done is set once the provider reports no further page.
	Done bool `json:"done"`
}

// Job is one row of the Jobs table.
type Job struct {
	ID         string     `json:"id"`
	Type       JobType    `json:"type"`
	Search     string     `json:"search"`
	Targets    []string   `json:"targets"`
	Query      string     `json:"query"`
	Status     JobStatus  `json:"status"`
	Processed  int        `json:"processed"`
	Total      int        `json:"total"`
	PageToken  string     `json:"page_token,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Progress returns the job's counters and cursor as a value.
func (j *Job) Progress() Progress {
	return Progress{Processed: j.Processed, Total: j.Total, Cursor: j.PageToken}
}

// ApplyProgress copies p onto the job's counters and cursor.
func (j *Job) ApplyProgress(p Progress) {
	j.Processed = p.Processed
	j.Total = p.Total
	j.PageToken = p.Cursor
}

// Touch refreshes UpdatedAt.
func (j *Job) Touch(now time.Time) {
	t := now.UTC()
	j.UpdatedAt = &t
}

// Start moves a queued job to running.
func (j *Job) Start(now time.Time) {
	t := now.UTC()
	j.Status = JobStatusRunning
	j.StartedAt = &t
	j.UpdatedAt = &t
}

// Finish moves the job into a terminal status and stamps FinishedAt.
func (j *Job) Finish(status JobStatus, now time.Time) {
	t := now.UTC()
	j.Status = status
	j.FinishedAt = &t
	j.UpdatedAt = &t
}

// Fail marks the job as errored with msg.
func (j *Job) Fail(msg string, now time.Time) {
	j.Error = msg
	j.Finish(JobStatusError, now)
}

// TargetString serializes the targets for the Target column.
func (j *Job) TargetString() string {
	return strings.Join(j.Targets, TargetSeparator)
}

// SearchExpression is the provider query a processor lists against.
// The frozen Query narrows the caller's Search when both are present.
func (j *Job) SearchExpression() string {
	search := strings.TrimSpace(j.Search)
	query := strings.TrimSpace(j.Query)
	switch {
	case query == "" || query == search:
		return search
	case search == "":
		return query
	default:
		return fmt.Sprintf("%s (%s)", search, query)
	}
}

// ParseTargets splits a serialized Target cell back into individual targets.
func ParseTargets(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// BuildArchiveQuery derives the sender disjunction for markReadAndArchive jobs.
// A target containing "@" is an exact sender, otherwise it is a whole domain.
func BuildArchiveQuery(targets []string) string {
	clauses := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(t, "@") {
			clauses = append(clauses, "from:"+t)
		} else {
			clauses = append(clauses, "from:*@"+t)
		}
	}
	return strings.Join(clauses, " OR ")
}

// CreateJobRequest describes a job the control API should admit.
type CreateJobRequest struct {
	Type    JobType  `json:"type"`
	Search  string   `json:"search"`
	Targets []string `json:"targets,omitempty"`
}

// Validate checks the request before a job row is built.
func (r *CreateJobRequest) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobType, r.Type)
	}
	switch r.Type {
	case JobTypeMarkReadAndArchive:
		if BuildArchiveQuery(r.Targets) == "" {
			return errors.New("at least one target is required")
		}
	case JobTypeFetchSenders:
		if strings.TrimSpace(r.Search) == "" {
			return errors.New("search is required")
		}
	}
	return nil
}

// NewJob builds a queued job with a fresh ID and a frozen Query.
func NewJob(req CreateJobRequest, now time.Time) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	job := &Job{
		ID:     uuid.NewString(),
		Type:   req.Type,
		Search: strings.TrimSpace(req.Search),
		Status: JobStatusQueued,
	}

	switch req.Type {
	case JobTypeMarkReadAndArchive:
		job.Targets = ParseTargets(strings.Join(req.Targets, ","))
		job.Query = BuildArchiveQuery(job.Targets)
	case JobTypeFetchSenders:
		job.Targets = ParseTargets(strings.Join(req.Targets, ","))
		if len(job.Targets) == 0 {
			job.Targets = []string{job.Search}
		}
		job.Query = job.Search
	}

	job.Touch(now)
	return job, nil
}

// JobStatusResponse is returned by status lookups; Known is false for unknown IDs.
type JobStatusResponse struct {
	ID     string    `json:"id"`
	Known  bool      `json:"known"`
	Status JobStatus `json:"status,omitempty"`
	Job    *Job      `json:"job,omitempty"`
}

// JobStats counts jobs per status.
type JobStats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Done      int `json:"done"`
	Error     int `json:"error"`
	Cancelled int `json:"cancelled"`
}

// Count increments the bucket for s.
func (s *JobStats) Count(status JobStatus) {
	switch status {
	case JobStatusQueued:
		s.Queued++
	case JobStatusRunning:
		s.Running++
	case JobStatusDone:
		s.Done++
	case JobStatusError:
		s.Error++
	case JobStatusCancelled:
		s.Cancelled++
	}
}
