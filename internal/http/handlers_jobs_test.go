package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inboxjobs/internal/adapters/redis"
	"github.com/target/inboxjobs/internal/data"
	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/domain/tabular"
	"github.com/target/inboxjobs/internal/service"
	"github.com/target/inboxjobs/internal/testutil"
)

type apiFixture struct {
	handler  http.Handler
	store    *data.MemoryTableStore
	repo     *data.JobRepo
	mailbox  *testutil.FakeMailbox
	triggers *redis.MemoryTriggerRegistry
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := data.NewMemoryTableStore()
	repo := data.NewJobRepo(store, data.RepoConfig{})
	mailbox := testutil.NewFakeMailbox()
	triggers := redis.NewMemoryTriggerRegistry()
	svc := service.MustNewJobService(service.JobServiceOptions{
		Repo:     repo,
		Mailbox:  mailbox,
		Triggers: triggers,
		Now:      testutil.FixedTimeFunc(testutil.TestTime()),
	})
	return &apiFixture{
		handler:  NewRouter(RouterServices{Jobs: svc, MaxBodyBytes: 1024}),
		store:    store,
		repo:     repo,
		mailbox:  mailbox,
		triggers: triggers,
	}
}

func (f *apiFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestStartArchive_CreatesQueuedJob(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/jobs/archive", ArchiveRequest{
		Search:  "is:unread",
		Targets: []string{"a@x.com", "y.com"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	job := decodeBody[model.Job](t, w)
	assert.Equal(t, model.JobTypeMarkReadAndArchive, job.Type)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, "from:a@x.com OR from:*@y.com", job.Query)

	stored, err := f.repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Query, stored.Query)

	reg, err := f.triggers.Get(context.Background(), service.DefaultTriggerHandler)
	require.NoError(t, err)
	assert.NotNil(t, reg, "job creation registers the periodic trigger")
}

func TestStartArchive_ValidationError(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/jobs/archive", ArchiveRequest{Search: "is:unread"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody[errorBody](t, w)
	assert.Equal(t, "validation", body.Error)
}

func TestStartArchive_InvalidJSON(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/jobs/archive", "{bad")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_json", decodeBody[errorBody](t, w).Error)

	w = f.do(t, http.MethodPost, "/api/jobs/archive", `{"search":"x","unknown":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartArchive_BodyTooLarge(t *testing.T) {
	f := newAPIFixture(t)

	big := `{"search":"` + string(bytes.Repeat([]byte("a"), 4096)) + `"}`
	w := f.do(t, http.MethodPost, "/api/jobs/archive", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCreateJob_Generic(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/jobs", `{"type":"fetchSenders","search":"label:news"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	job := decodeBody[model.Job](t, w)
	assert.Equal(t, model.JobTypeFetchSenders, job.Type)

	w = f.do(t, http.MethodPost, "/api/jobs", `{"type":"purge","search":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListJobs_StatusFilter(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.CreateMany(ctx, []*model.Job{
		testutil.NewJob("q1").Build(),
		testutil.NewJob("r1").WithStatus(model.JobStatusRunning).Build(),
		testutil.NewJob("d1").WithStatus(model.JobStatusDone).Build(),
	}))

	w := f.do(t, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]model.Job](t, w), 3)

	w = f.do(t, http.MethodGet, "/api/jobs?status=running", nil)
	require.Equal(t, http.StatusOK, w.Code)
	running := decodeBody[[]model.Job](t, w)
	require.Len(t, running, 1)
	assert.Equal(t, "r1", running[0].ID)

	w = f.do(t, http.MethodGet, "/api/jobs?status=done", nil)
	require.Equal(t, http.StatusOK, w.Code)
	done := decodeBody[[]model.Job](t, w)
	require.Len(t, done, 1)
	assert.Equal(t, "d1", done[0].ID)

	w = f.do(t, http.MethodGet, "/api/jobs?status=paused", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/jobs/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeBody[model.JobStats](t, w)
	assert.Equal(t, model.JobStats{Queued: 1, Running: 1, Done: 1}, stats)
}

func TestListJobs_EmptyIsArray(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/jobs?status=error", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetStatus(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.repo.Create(context.Background(), testutil.NewJob("j1").Build()))

	w := f.do(t, http.MethodGet, "/api/jobs/j1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[model.JobStatusResponse](t, w)
	assert.True(t, resp.Known)
	assert.Equal(t, model.JobStatusQueued, resp.Status)

	w = f.do(t, http.MethodGet, "/api/jobs/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	resp = decodeBody[model.JobStatusResponse](t, w)
	assert.False(t, resp.Known)
	assert.Equal(t, model.JobStatusUnknown, resp.Status)
}

func TestCancel(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.CreateMany(ctx, []*model.Job{
		testutil.NewJob("j1").WithStatus(model.JobStatusRunning).Build(),
		testutil.NewJob("j2").WithStatus(model.JobStatusDone).Build(),
	}))

	w := f.do(t, http.MethodPost, "/api/jobs/j1/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.JobStatusCancelled, decodeBody[model.Job](t, w).Status)

	w = f.do(t, http.MethodPost, "/api/jobs/j2/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/jobs/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResults(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	job := testutil.NewJob("j1").WithType(model.JobTypeFetchSenders).WithStatus(model.JobStatusDone).Build()
	require.NoError(t, f.repo.Create(ctx, job))
	_, err := f.repo.AppendResults(ctx, []model.ResultRow{
		model.NewResultRow(job, "a@x.com", model.SenderStats{Total: 3, Threads: 2}),
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/jobs/j1/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[ResultsResponse](t, w)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a@x.com", resp.Results[0].Address)
	assert.Equal(t, 3, resp.Results[0].Total)

	w = f.do(t, http.MethodGet, "/api/jobs/missing/results", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartSenders_SchemaErrorIsUnavailable(t *testing.T) {
	f := newAPIFixture(t)
	f.store.SetHeader(tabular.Jobs, []string{tabular.ColJobID})

	w := f.do(t, http.MethodPost, "/api/jobs/senders", SendersRequest{Search: "label:news"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	assert.Equal(t, "schema", decodeBody[errorBody](t, w).Error)
}

func TestExactCountAndEstimate(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		f.mailbox.AddThread("label:news", model.ThreadMetadata{ID: id, Sender: "a@x.com"})
	}
	job := testutil.NewJob("j1").WithType(model.JobTypeFetchSenders).Build()
	job.Search = "label:news"
	job.Query = ""
	require.NoError(t, f.repo.Create(ctx, job))

	w := f.do(t, http.MethodGet, "/api/jobs/j1/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CountResponse{JobID: "j1", Count: 3}, decodeBody[CountResponse](t, w))

	w = f.do(t, http.MethodGet, "/api/estimate?q=label:news", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CountResponse{Query: "label:news", Count: 3, Estimate: true}, decodeBody[CountResponse](t, w))

	w = f.do(t, http.MethodGet, "/api/estimate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEstimate_ProviderError(t *testing.T) {
	f := newAPIFixture(t)
	f.mailbox.EstimateErr = errors.New("quota exceeded")

	w := f.do(t, http.MethodGet, "/api/estimate?q=in:inbox", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "provider", decodeBody[errorBody](t, w).Error)
}

func TestEnvironment(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/environment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[service.EnvironmentReport](t, w).SchemaOK)

	f.store.SetHeader(tabular.Jobs, []string{tabular.ColJobID})
	w = f.do(t, http.MethodGet, "/api/environment", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	report := decodeBody[service.EnvironmentReport](t, w)
	assert.False(t, report.SchemaOK)
	assert.NotEmpty(t, report.SchemaErr)
}

func TestHealthzRoute(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReadyzRoute(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	f.store.SetHeader(tabular.Jobs, []string{tabular.ColJobID})
	w = f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
