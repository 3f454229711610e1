// Package mocks provides mock implementations for testing the inboxjobs scheduler.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the core ports.
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mailbox := mocks.NewMockMailbox(ctrl)
//	mailbox.EXPECT().ListPage(gomock.Any(), gomock.Any()).Return(&model.Page{}, nil)
package mocks

// Generate mock for Mailbox interface from internal/core package.
// This creates MockMailbox with methods for all Mailbox interface methods:
// EstimateCount, ExactCount, ListPage, MarkReadAndArchive, ThreadMetadata
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=mailbox_mock.go github.com/target/inboxjobs/internal/core Mailbox

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// List, GetByID, Create, CreateMany, Update, TransitionStatus, FailMalformed, WriteJobResults, AppendResults,
// ListResults, UpsertAggregated, CheckSchema
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/target/inboxjobs/internal/core JobRepository

// Generate mock for TriggerRegistry interface from internal/core package.
// This creates MockTriggerRegistry with methods for all TriggerRegistry interface methods:
// Ensure, Get, Remove
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=trigger_registry_mock.go github.com/target/inboxjobs/internal/core TriggerRegistry
