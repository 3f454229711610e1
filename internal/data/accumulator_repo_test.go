package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/domain/tabular"
	apperrors "github.com/target/inboxjobs/internal/errors"
	"github.com/target/inboxjobs/internal/testutil"
)

func exerciseAccumulatorStore(t *testing.T, store core.AccumulatorStore) {
	t.Helper()
	ctx := context.Background()

	acc, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, acc)

	want := &model.SenderAccumulator{
		Senders: model.SenderSet{
			"a@x.com": {Total: 3, Unread: 1, Threads: 2, LastDate: testutil.TestTime()},
		},
		Pages:        1,
		MergedCursor: "",
		NextCursor:   "offset:2",
		Threads:      2,
	}
	require.NoError(t, store.Save(ctx, "job-1", want))

	got, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Pages)
	assert.Equal(t, "offset:2", got.NextCursor)
	assert.True(t, got.HasMerged(""))
	assert.Equal(t, 3, got.Senders["a@x.com"].Total)
	assert.True(t, testutil.TestTime().Equal(got.Senders["a@x.com"].LastDate))

	// mutating the loaded copy does not leak into the store
	got.Senders["b@x.com"] = model.SenderStats{Total: 1}
	again, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.NotContains(t, again.Senders, "b@x.com")

	require.NoError(t, store.Delete(ctx, "job-1"))
	require.NoError(t, store.Delete(ctx, "job-1"))
	acc, err = store.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestMemoryAccumulatorStore(t *testing.T) {
	exerciseAccumulatorStore(t, NewMemoryAccumulatorStore())
}

func TestTableAccumulatorRepo(t *testing.T) {
	store := NewMemoryTableStore()
	repo := NewTableAccumulatorRepo(store, testutil.FixedTimeFunc(testutil.TestTime()))
	exerciseAccumulatorStore(t, repo)

	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "job-2", &model.SenderAccumulator{Pages: 2, NextCursor: "p3"}))

	// a second repo over the same table sees the tally, as after a restart
	restarted := NewTableAccumulatorRepo(store, nil)
	acc, err := restarted.Load(ctx, "job-2")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, 2, acc.Pages)
	assert.Equal(t, "p3", acc.NextCursor)

	rows, err := store.ListAll(ctx, tabular.Accumulators)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "one row per job, rewritten in place")
	assert.Equal(t, "2024-01-01T12:00:00Z", rows[1][tabular.ColUpdatedAt])

	_, err = repo.Load(ctx, "")
	require.ErrorIs(t, err, ErrJobIDRequired)
}

func TestTableAccumulatorRepo_MissingTable(t *testing.T) {
	store := NewMemoryTableStore()
	store.SetHeader(tabular.Accumulators, []string{tabular.ColJobID})
	repo := NewTableAccumulatorRepo(store, nil)

	err := repo.Save(context.Background(), "job-1", &model.SenderAccumulator{})
	require.Error(t, err)
	assert.True(t, apperrors.IsSchema(err))
}

func TestRedisAccumulatorRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisAccumulatorRepo(client, AccumulatorRepoOptions{Prefix: "test:senders:", TTL: time.Minute})
	exerciseAccumulatorStore(t, repo)

	require.NoError(t, repo.Save(context.Background(), "job-2", &model.SenderAccumulator{Pages: 1}))
	ttl := client.TTL(context.Background(), "test:senders:job-2").Val()
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	_, err := repo.Load(context.Background(), "")
	require.ErrorIs(t, err, ErrJobIDRequired)
}

func TestLegacyKV(t *testing.T) {
	ctx := context.Background()
	check := func(t *testing.T, kv core.LegacyKV) {
		t.Helper()
		entries, err := kv.Entries(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		require.NoError(t, kv.Delete(ctx, "job_1"))
		require.NoError(t, kv.Delete(ctx))
		entries, err = kv.Entries(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"job_2": "{}"}, entries)
	}

	t.Run("memory", func(t *testing.T) {
		check(t, NewMemoryLegacyKV(map[string]string{"job_1": "{}", "job_2": "{}"}))
	})

	t.Run("redis", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping integration test")
		}
		client := testutil.SetupTestRedis(t)
		defer client.Close()
		require.NoError(t, client.HSet(ctx, "test:legacy", "job_1", "{}", "job_2", "{}").Err())
		check(t, NewRedisLegacyKV(client, "test:legacy"))
	})
}
