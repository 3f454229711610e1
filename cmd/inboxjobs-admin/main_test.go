package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/inboxjobs/config"
	"github.com/target/inboxjobs/internal/bootstrap"
	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/service"
	"github.com/target/inboxjobs/internal/testutil"
)

func newMemoryCommandContext() (*commandContext, *bytes.Buffer) {
	var out bytes.Buffer
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.DiscardHandler),
		Config: config.AppConfig{
			IsDev: true,
			Store: config.StoreBackendMemory,
			Redis: config.RedisConfig{Disabled: true},
			Scheduler: config.SchedulerConfig{
				PageSize:         10,
				InvocationBudget: time.Minute,
				TriggerInterval:  time.Minute,
			},
		},
		Out: &out,
	}, &out
}

func TestPrintUsageListsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	for name := range commands() {
		assert.Contains(t, buf.String(), name)
	}
}

func TestParseCreateArchiveFlags(t *testing.T) {
	opts, err := parseCreateArchiveFlags([]string{"--targets", "a@x.com, y.com", "--search", "older_than:1y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "y.com"}, opts.Targets)
	assert.Equal(t, "older_than:1y", opts.Search)

	_, err = parseCreateArchiveFlags([]string{"--search", "x"})
	require.Error(t, err)
}

func TestParseJobIDFlags(t *testing.T) {
	opts, err := parseJobIDFlags("status", []string{"--id", "j1", "--json"})
	require.NoError(t, err)
	assert.Equal(t, jobIDOptions{ID: "j1", RawJSON: true}, opts)

	opts, err = parseJobIDFlags("status", []string{"j2"})
	require.NoError(t, err)
	assert.Equal(t, "j2", opts.ID)

	_, err = parseJobIDFlags("status", nil)
	require.Error(t, err)
}

func TestParseListAndTickFlags(t *testing.T) {
	status, err := parseListFlags([]string{"--status", "running"})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, status)

	_, err = parseListFlags([]string{"--status", "paused"})
	require.Error(t, err)

	tick, err := parseTickFlags([]string{"--count", "3", "--direct"})
	require.NoError(t, err)
	assert.Equal(t, tickOptions{Count: 3, Direct: true}, tick)

	_, err = parseTickFlags([]string{"--count", "0"})
	require.Error(t, err)

	imp, err := parseImportFlags([]string{"--dry-run"})
	require.NoError(t, err)
	assert.True(t, imp.DryRun)
	assert.False(t, imp.KeepSource)
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestPrintJobs(t *testing.T) {
	var buf bytes.Buffer
	jobs := []*model.Job{
		testutil.NewJob("j1").WithProgress(40, 120, "c").Build(),
		testutil.NewJob("j2").Archive("a@x.com").WithStatus(model.JobStatusDone).Build(),
	}
	require.NoError(t, printJobs(&buf, jobs))

	out := buf.String()
	assert.Contains(t, out, "JOB ID")
	assert.Contains(t, out, "40/120")
	assert.Contains(t, out, "from:a@x.com")
	assert.Contains(t, out, "2 job(s)")
}

func TestFilterJobs(t *testing.T) {
	jobs := []*model.Job{
		testutil.NewJob("j1").Build(),
		testutil.NewJob("j2").WithStatus(model.JobStatusDone).Build(),
	}
	assert.Len(t, filterJobs(jobs, ""), 2)
	done := filterJobs(jobs, model.JobStatusDone)
	require.Len(t, done, 1)
	assert.Equal(t, "j2", done[0].ID)
}

func TestPrintTickResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTickResult(&buf, &core.TickResult{
		Outcome: core.TickAdvanced, JobID: "j1", JobType: "fetchSenders", Processed: 100, Promoted: true,
	}))
	assert.Equal(t, "outcome=advanced job=j1 type=fetchSenders processed=100 promoted\n", buf.String())

	buf.Reset()
	require.NoError(t, printTickResult(&buf, nil))
	assert.Equal(t, "no invocation due\n", buf.String())
}

func TestPrintImportReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printImportReport(&buf, &service.ImportReport{Entries: 3, JobsImported: 2, Skipped: 1}, true))
	out := buf.String()
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "Jobs Imported")
}

func TestRunStats_MemoryStore(t *testing.T) {
	cmdCtx, out := newMemoryCommandContext()
	require.NoError(t, runStats(cmdCtx, nil))
	assert.Contains(t, out.String(), "queued")
	assert.Contains(t, out.String(), "cancelled")
}

func TestRunCheck_MemoryStoreWithoutMailbox(t *testing.T) {
	cmdCtx, out := newMemoryCommandContext()
	require.NoError(t, runCheck(cmdCtx, []string{"--no-mailbox"}))
	assert.Equal(t, "Tables:  ok\n", out.String())
}

func TestRunStatus_UnknownJob(t *testing.T) {
	cmdCtx, out := newMemoryCommandContext()
	require.NoError(t, runStatus(cmdCtx, []string{"--id", "nope"}))
	assert.Equal(t, "Job nope: unknown\n", out.String())
}

func TestRunImportLegacy_RequiresRedis(t *testing.T) {
	cmdCtx, _ := newMemoryCommandContext()
	err := runImportLegacy(cmdCtx, nil)
	require.ErrorIs(t, err, errImporterUnavailable)
}

func TestRunMigrations_RejectsMemoryStore(t *testing.T) {
	cmdCtx, _ := newMemoryCommandContext()
	require.Error(t, runMigrations(cmdCtx, nil))
}

func TestWithServices_OverrideMailbox(t *testing.T) {
	cmdCtx, _ := newMemoryCommandContext()
	mailbox := testutil.NewFakeMailbox()
	err := withServices(cmdCtx, serviceNeeds{Override: mailbox}, func(ctx context.Context, s bootstrap.ServiceContainer) error {
		assert.NotNil(t, s.Scheduler)
		res, err := s.Scheduler.Tick(ctx, testutil.TestTime())
		require.NoError(t, err)
		assert.Equal(t, core.TickIdle, res.Outcome)
		return nil
	})
	require.NoError(t, err)
}
