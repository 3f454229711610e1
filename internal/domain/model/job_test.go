package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArchiveQuery(t *testing.T) {
	tests := []struct {
		name    string
		targets []string
		want    string
	}{
		{name: "sender and domain", targets: []string{"a@x.com", "y.com"}, want: "from:a@x.com OR from:*@y.com"},
		{name: "single domain", targets: []string{"news.example"}, want: "from:*@news.example"},
		{name: "blank entries dropped", targets: []string{" ", "b@z.org", ""}, want: "from:b@z.org"},
		{name: "empty", targets: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildArchiveQuery(tt.targets))
		})
	}
}

func TestNewJob_MarkReadAndArchive(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job, err := NewJob(CreateJobRequest{
		Type:    JobTypeMarkReadAndArchive,
		Search:  "is:unread",
		Targets: []string{"a@x.com", "y.com"},
	}, now)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(job.ID)
	require.NoError(t, parseErr)
	assert.Equal(t, "from:a@x.com OR from:*@y.com", job.Query)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, "a@x.com, y.com", job.TargetString())
	assert.Zero(t, job.Processed)
	assert.Zero(t, job.Total)
	assert.Empty(t, job.PageToken)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.FinishedAt)
	require.NotNil(t, job.UpdatedAt)
	assert.True(t, job.UpdatedAt.Equal(now))
}

func TestNewJob_FetchSenders(t *testing.T) {
	job, err := NewJob(CreateJobRequest{Type: JobTypeFetchSenders, Search: "in:inbox"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "in:inbox", job.Query)
	assert.Equal(t, []string{"in:inbox"}, job.Targets)
	assert.Equal(t, "in:inbox", job.SearchExpression())
}

func TestNewJob_IDsAreUnique(t *testing.T) {
	req := CreateJobRequest{Type: JobTypeFetchSenders, Search: "in:inbox"}
	a, err := NewJob(req, time.Now())
	require.NoError(t, err)
	b, err := NewJob(req, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateJobRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateJobRequest
		wantErr bool
	}{
		{name: "unknown type", req: CreateJobRequest{Type: "purge"}, wantErr: true},
		{name: "archive without targets", req: CreateJobRequest{Type: JobTypeMarkReadAndArchive}, wantErr: true},
		{name: "senders without search", req: CreateJobRequest{Type: JobTypeFetchSenders}, wantErr: true},
		{
			name: "archive ok",
			req:  CreateJobRequest{Type: JobTypeMarkReadAndArchive, Targets: []string{"x.com"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	err := (&CreateJobRequest{Type: "purge"}).Validate()
	assert.True(t, errors.Is(err, ErrInvalidJobType))
}

func TestJob_SearchExpression(t *testing.T) {
	job := &Job{Search: "is:unread", Query: "from:*@y.com"}
	assert.Equal(t, "is:unread (from:*@y.com)", job.SearchExpression())

	job = &Job{Query: "from:*@y.com"}
	assert.Equal(t, "from:*@y.com", job.SearchExpression())
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusDone.Terminal())
	assert.True(t, JobStatusError.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
}

func TestJobType_UnmarshalText(t *testing.T) {
	var jt JobType
	require.NoError(t, jt.UnmarshalText([]byte(" fetchSenders ")))
	assert.Equal(t, JobTypeFetchSenders, jt)
	assert.Error(t, jt.UnmarshalText([]byte("browser")))
}

func TestJob_Transitions(t *testing.T) {
	now := time.Now()
	job := &Job{Status: JobStatusQueued}

	job.Start(now)
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.Nil(t, job.FinishedAt)

	job.Fail("boom", now.Add(time.Second))
	assert.Equal(t, JobStatusError, job.Status)
	assert.Equal(t, "boom", job.Error)
	require.NotNil(t, job.FinishedAt)
}

func TestParseTargets(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "y.com"}, ParseTargets("a@x.com, y.com"))
	assert.Empty(t, ParseTargets(" , "))
}
