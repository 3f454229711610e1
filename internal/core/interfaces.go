// Package core declares the ports between the scheduler, processors, services and the
// persistence / provider adapters that back them.
package core

import (
	"context"
	"time"

	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/domain/tabular"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not concrete implementations.

// TableStore reads and writes fixed-header tables addressed by column name.
// Every write is checked against the table's header row and fails with a schema error
// before anything is written when a column is missing.
type TableStore interface {
	// Header returns the table's column names in their stored order.
	Header(ctx context.Context, table tabular.Table) ([]string, error)
	// ListAll returns every row in insertion order.
	ListAll(ctx context.Context, table tabular.Table) ([]tabular.Row, error)
	// AppendRows appends rows in one all-or-nothing write.
	AppendRows(ctx context.Context, table tabular.Table, rows []tabular.Row) error
	// UpsertRow replaces the row matching key, or appends row when none matches.
	UpsertRow(ctx context.Context, table tabular.Table, key, row tabular.Row) error
	// UpdateRows writes row's cells onto every row matching key in one atomic step and
	// returns how many rows matched. It never appends.
	UpdateRows(ctx context.Context, table tabular.Table, key, row tabular.Row) (int, error)
}

// JobRepository maps job, result and aggregated rows onto typed records.
type JobRepository interface {
	List(ctx context.Context) ([]*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	Create(ctx context.Context, job *model.Job) error
	// CreateMany appends jobs in one write.
	CreateMany(ctx context.Context, jobs []*model.Job) error
	Update(ctx context.Context, job *model.Job) error
	// TransitionStatus writes only the status cells, and only while the row is still in from.
	TransitionStatus(ctx context.Context, job *model.Job, from model.JobStatus) (bool, error)
	// FailMalformed moves queued or running rows that cannot be decoded to error.
	FailMalformed(ctx context.Context, now time.Time) ([]string, error)
	// WriteJobResults appends job's outcome rows after checking the Results header.
	WriteJobResults(ctx context.Context, job *model.Job, rows []model.ResultRow) (int, error)
	// AppendResults appends result rows that may belong to several jobs.
	AppendResults(ctx context.Context, rows []model.ResultRow) (int, error)
	ListResults(ctx context.Context, jobID string) ([]model.ResultRow, error)
	UpsertAggregated(ctx context.Context, rows []model.AggregatedRow) error
	CheckSchema(ctx context.Context) error
}

// ListPageParams groups parameters for Mailbox.ListPage.
type ListPageParams struct {
	Query  string
	Cursor string
	Size   int
}

// Mailbox is the external mailbox provider the processors drive.
type Mailbox interface {
	// EstimateCount returns the provider's cheap estimate of matching threads.
	EstimateCount(ctx context.Context, query string) (int, error)
	// ExactCount pages through every match and counts it.
	ExactCount(ctx context.Context, query string) (int, error)
	// ListPage returns one page of matching thread IDs and the cursor of the next page.
	ListPage(ctx context.Context, params ListPageParams) (*model.Page, error)
	// MarkReadAndArchive marks a thread read and removes it from the inbox.
	MarkReadAndArchive(ctx context.Context, threadID string) error
	// ThreadMetadata returns sender, subject, date and unread state for a thread.
	ThreadMetadata(ctx context.Context, threadID string) (*model.ThreadMetadata, error)
}

// AccumulatorStore keeps the fetchSenders accumulator between invocations.
type AccumulatorStore interface {
	// Load returns nil, nil when no accumulator exists for jobID.
	Load(ctx context.Context, jobID string) (*model.SenderAccumulator, error)
	Save(ctx context.Context, jobID string, acc *model.SenderAccumulator) error
	Delete(ctx context.Context, jobID string) error
}

// LegacyKV is the unstructured key-value store the importer converts from.
type LegacyKV interface {
	Entries(ctx context.Context) (map[string]string, error)
	Delete(ctx context.Context, keys ...string) error
}

// TriggerRegistration describes a recurring wake-up of a named handler.
type TriggerRegistration struct {
	Handler      string        `json:"handler"`
	Interval     time.Duration `json:"interval"`
	RegisteredAt time.Time     `json:"registered_at"`
}

// TriggerRegistry records which periodic wake-ups exist.
type TriggerRegistry interface {
	// Ensure registers reg unless a registration for the same handler exists; it reports whether one was created.
	Ensure(ctx context.Context, reg TriggerRegistration) (bool, error)
	// Get returns nil, nil when handler has no registration.
	Get(ctx context.Context, handler string) (*TriggerRegistration, error)
	Remove(ctx context.Context, handler string) (bool, error)
}

// Lease is a short-lived mutual-exclusion token around one scheduler invocation.
type Lease interface {
	// Acquire returns ok=false when another holder owns name.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
