package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/inboxjobs/config"
	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/data"
	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/domain/tabular"
	"github.com/target/inboxjobs/internal/service"
	"github.com/target/inboxjobs/internal/testutil"
)

func testAppConfig(services string) *config.AppConfig {
	return &config.AppConfig{
		IsDev:    true,
		Store:    config.StoreBackendMemory,
		Services: services,
		HTTP: config.HTTPConfig{
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   2 * time.Second,
			MaxBodyBytes:      4096,
		},
		Scheduler: config.SchedulerConfig{
			PageSize:         10,
			InvocationBudget: 30 * time.Second,
			PollInterval:     10 * time.Millisecond,
			TriggerInterval:  time.Minute,
			UseLease:         true,
		},
		Redis:  config.RedisConfig{KeyPrefix: "inboxjobs:test:"},
		Legacy: config.LegacyConfig{HashKey: "jobs"},
	}
}

func newMemoryInfra() *Infrastructure {
	return &Infrastructure{Store: data.NewMemoryTableStore()}
}

func TestNewServices_RequiresInfrastructure(t *testing.T) {
	_, err := NewServices(context.Background(), nil)
	require.Error(t, err)

	_, err = NewServices(context.Background(), &ServiceDeps{Config: testAppConfig("http")})
	require.Error(t, err)
}

func TestNewServices_WithMailbox(t *testing.T) {
	c, err := NewServices(context.Background(), &ServiceDeps{
		Config:  testAppConfig("http,scheduler"),
		Infra:   newMemoryInfra(),
		Mailbox: testutil.NewFakeMailbox(),
		Now:     testutil.FixedTimeFunc(testutil.TestTime()),
	})
	require.NoError(t, err)

	assert.NotNil(t, c.Repo)
	assert.NotNil(t, c.Jobs)
	assert.NotNil(t, c.Triggers)
	assert.NotNil(t, c.Scheduler)
	assert.NotNil(t, c.Runner)
	assert.Nil(t, c.Importer, "the importer needs redis")
}

func TestNewServices_WithoutMailbox(t *testing.T) {
	c, err := NewServices(context.Background(), &ServiceDeps{
		Config:         testAppConfig("http"),
		Infra:          newMemoryInfra(),
		WithoutMailbox: true,
	})
	require.NoError(t, err)

	assert.NotNil(t, c.Jobs)
	assert.Nil(t, c.Mailbox)
	assert.Nil(t, c.Scheduler)
	assert.Nil(t, c.Runner)
}

func TestNewServices_MissingGmailCredentials(t *testing.T) {
	cfg := testAppConfig("http")
	cfg.Gmail = config.GmailConfig{
		CredentialsFile: t.TempDir() + "/missing.json",
		TokenFile:       t.TempDir() + "/token.json",
	}
	_, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Infra: newMemoryInfra()})
	require.ErrorContains(t, err, "gmail auth")
}

func TestNewServices_WithRedis(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	infra := newMemoryInfra()
	infra.Redis = client

	c, err := NewServices(context.Background(), &ServiceDeps{
		Config:  testAppConfig("scheduler"),
		Infra:   infra,
		Mailbox: testutil.NewFakeMailbox(),
	})
	require.NoError(t, err)
	assert.NotNil(t, c.Importer)
	assert.NotNil(t, c.Runner)
}

func TestRunServices_HTTP(t *testing.T) {
	cfg := testAppConfig("http")
	services, err := NewServices(context.Background(), &ServiceDeps{
		Config:         cfg,
		Infra:          newMemoryInfra(),
		WithoutMailbox: true,
	})
	require.NoError(t, err)

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunServices(ctx, RunOptions{Config: cfg, Services: services, Listener: ln})
	}()

	url := fmt.Sprintf("http://%s/healthz", ln.Addr().String())
	require.Eventually(t, func() bool {
		req, reqErr := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
		if reqErr != nil {
			return false
		}
		resp, getErr := http.DefaultClient.Do(req)
		if getErr != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("services did not stop")
	}
}

func TestRunServices_SchedulerStopsOnCancel(t *testing.T) {
	cfg := testAppConfig("scheduler")
	services, err := NewServices(context.Background(), &ServiceDeps{
		Config:  cfg,
		Infra:   newMemoryInfra(),
		Mailbox: testutil.NewFakeMailbox(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = RunServices(ctx, RunOptions{Config: cfg, Services: services})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunServices_RefusesBrokenSchema(t *testing.T) {
	cfg := testAppConfig("scheduler")
	infra := newMemoryInfra()
	infra.Store.(*data.MemoryTableStore).SetHeader(tabular.Jobs, []string{tabular.ColJobID})
	services, err := NewServices(context.Background(), &ServiceDeps{
		Config:  cfg,
		Infra:   infra,
		Mailbox: testutil.NewFakeMailbox(),
	})
	require.NoError(t, err)

	err = RunServices(context.Background(), RunOptions{Config: cfg, Services: services})
	require.ErrorContains(t, err, "schema check")
}

func TestRunServices_SchedulerWithoutRunner(t *testing.T) {
	cfg := testAppConfig("scheduler")
	err := RunServices(context.Background(), RunOptions{Config: cfg, Services: ServiceContainer{}})
	require.Error(t, err)
}

// bootOver builds a fresh service container over store, as a restarted process would.
func bootOver(t *testing.T, cfg *config.AppConfig, store core.TableStore, mailbox core.Mailbox) ServiceContainer {
	t.Helper()
	c, err := NewServices(context.Background(), &ServiceDeps{
		Config:  cfg,
		Infra:   &Infrastructure{Store: store},
		Mailbox: mailbox,
		Now:     testutil.FixedTimeFunc(testutil.TestTime()),
	})
	require.NoError(t, err)
	return c
}

func TestNewServices_SenderTalliesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	now := testutil.TestTime()
	cfg := testAppConfig("scheduler")
	cfg.Scheduler.PageSize = 1

	store := data.NewMemoryTableStore()
	mailbox := testutil.NewFakeMailbox()
	mailbox.AddThread("label:newsletters", model.ThreadMetadata{ID: "t1", Sender: "a@x.com", Messages: 3, Date: now})
	mailbox.AddThread("label:newsletters", model.ThreadMetadata{ID: "t2", Sender: "a@x.com", Messages: 2, Date: now})

	first := bootOver(t, cfg, store, mailbox)
	require.NoError(t, first.Repo.Create(ctx, testutil.NewJob("s1").Build()))
	res, err := first.Scheduler.Tick(ctx, now)
	require.NoError(t, err)
	require.Equal(t, core.TickAdvanced, res.Outcome)
	require.Equal(t, 1, res.Processed)

	second := bootOver(t, cfg, store, mailbox)
	for range 5 {
		res, err = second.Scheduler.Tick(ctx, now)
		require.NoError(t, err)
		if res.Outcome != core.TickAdvanced {
			break
		}
	}
	require.Equal(t, core.TickCompleted, res.Outcome)

	results, err := second.Repo.ListResults(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a@x.com", results[0].Address)
	assert.Equal(t, 5, results[0].Total)
	assert.Equal(t, 2, results[0].Threads)

	tallies, err := store.ListAll(ctx, tabular.Accumulators)
	require.NoError(t, err)
	for _, row := range tallies {
		assert.Empty(t, row[tabular.ColState], "finished jobs keep no tally")
	}
}

func TestRunServices_ResumesTriggerAfterRestart(t *testing.T) {
	ctx := context.Background()
	now := testutil.TestTime()
	cfg := testAppConfig("scheduler")

	store := data.NewMemoryTableStore()
	mailbox := testutil.NewFakeMailbox()
	mailbox.AddThread("label:newsletters", model.ThreadMetadata{ID: "t1", Sender: "a@x.com", Messages: 1, Date: now})

	first := bootOver(t, cfg, store, mailbox)
	job, err := first.Jobs.StartFetchSenders(ctx, "label:newsletters")
	require.NoError(t, err)
	reg, err := first.Triggers.Get(ctx, service.DefaultTriggerHandler)
	require.NoError(t, err)
	require.NotNil(t, reg)

	second := bootOver(t, cfg, store, mailbox)
	reg, err = second.Triggers.Get(ctx, service.DefaultTriggerHandler)
	require.NoError(t, err)
	require.Nil(t, reg, "the in-process registry starts empty")

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- RunServices(runCtx, RunOptions{Config: cfg, Services: second})
	}()

	require.Eventually(t, func() bool {
		got, getErr := second.Repo.GetByID(ctx, job.ID)
		return getErr == nil && got.Status == model.JobStatusDone
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("services did not stop")
	}
}
