package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/domain/tabular"
)

const (
	// DefaultAccumulatorPrefix namespaces accumulator keys.
	DefaultAccumulatorPrefix = "inboxjobs:senders:"
	// DefaultAccumulatorTTL bounds how long an abandoned accumulator survives.
	DefaultAccumulatorTTL = 7 * 24 * time.Hour
)

// AccumulatorRepoOptions configures RedisAccumulatorRepo.
type AccumulatorRepoOptions struct {
	Prefix string
	TTL    time.Duration
}

// RedisAccumulatorRepo stores fetchSenders accumulators as JSON strings in Redis.
type RedisAccumulatorRepo struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ core.AccumulatorStore = (*RedisAccumulatorRepo)(nil)

// NewRedisAccumulatorRepo creates a RedisAccumulatorRepo.
func NewRedisAccumulatorRepo(client redis.UniversalClient, opts AccumulatorRepoOptions) *RedisAccumulatorRepo {
	if opts.Prefix == "" {
		opts.Prefix = DefaultAccumulatorPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultAccumulatorTTL
	}
	return &RedisAccumulatorRepo{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (r *RedisAccumulatorRepo) key(jobID string) string {
	return r.prefix + jobID
}

// Load returns the accumulator for jobID, or nil when none exists.
func (r *RedisAccumulatorRepo) Load(ctx context.Context, jobID string) (*model.SenderAccumulator, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}
	raw, err := r.client.Get(ctx, r.key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil //nolint:nilnil // absent accumulator
		}
		return nil, fmt.Errorf("redis get accumulator: %w", err)
	}
	return decodeAccumulator(raw)
}

// Save replaces the accumulator for jobID and refreshes its TTL.
func (r *RedisAccumulatorRepo) Save(ctx context.Context, jobID string, acc *model.SenderAccumulator) error {
	if jobID == "" {
		return ErrJobIDRequired
	}
	raw, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encode accumulator: %w", err)
	}
	if err = r.client.Set(ctx, r.key(jobID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set accumulator: %w", err)
	}
	return nil
}

// Delete removes the accumulator for jobID; a missing key is not an error.
func (r *RedisAccumulatorRepo) Delete(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrJobIDRequired
	}
	if err := r.client.Del(ctx, r.key(jobID)).Err(); err != nil {
		return fmt.Errorf("redis del accumulator: %w", err)
	}
	return nil
}

func decodeAccumulator(raw []byte) (*model.SenderAccumulator, error) {
	var acc model.SenderAccumulator
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, fmt.Errorf("decode accumulator: %w", err)
	}
	if acc.Senders == nil {
		acc.Senders = model.SenderSet{}
	}
	return &acc, nil
}

// TableAccumulatorRepo stores fetchSenders accumulators in the Accumulators table of a
// table store, so in-flight tallies survive a restart without Redis.
type TableAccumulatorRepo struct {
	store core.TableStore
	now   func() time.Time
}

var _ core.AccumulatorStore = (*TableAccumulatorRepo)(nil)

// NewTableAccumulatorRepo creates a TableAccumulatorRepo. now defaults to time.Now.
func NewTableAccumulatorRepo(store core.TableStore, now func() time.Time) *TableAccumulatorRepo {
	if now == nil {
		now = time.Now
	}
	return &TableAccumulatorRepo{store: store, now: now}
}

// Load returns the accumulator for jobID, or nil when none exists.
func (r *TableAccumulatorRepo) Load(ctx context.Context, jobID string) (*model.SenderAccumulator, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}
	rows, err := r.store.ListAll(ctx, tabular.Accumulators)
	if err != nil {
		return nil, fmt.Errorf("list accumulators: %w", err)
	}
	key := tabular.Row{tabular.ColJobID: jobID}
	for _, row := range rows {
		if !tabular.MatchesKey(row, key) {
			continue
		}
		if row[tabular.ColState] == "" {
			return nil, nil //nolint:nilnil // cleared accumulator
		}
		return decodeAccumulator([]byte(row[tabular.ColState]))
	}
	return nil, nil //nolint:nilnil // absent accumulator
}

// Save replaces the accumulator for jobID.
func (r *TableAccumulatorRepo) Save(ctx context.Context, jobID string, acc *model.SenderAccumulator) error {
	if jobID == "" {
		return ErrJobIDRequired
	}
	raw, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encode accumulator: %w", err)
	}
	return r.put(ctx, jobID, string(raw))
}

// Delete clears the accumulator for jobID.
func (r *TableAccumulatorRepo) Delete(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrJobIDRequired
	}
	return r.put(ctx, jobID, "")
}

func (r *TableAccumulatorRepo) put(ctx context.Context, jobID, state string) error {
	now := r.now()
	key := tabular.Row{tabular.ColJobID: jobID}
	row := tabular.Row{
		tabular.ColState:     state,
		tabular.ColUpdatedAt: formatTime(&now),
	}
	if err := r.store.UpsertRow(ctx, tabular.Accumulators, key, row); err != nil {
		return fmt.Errorf("write accumulator %s: %w", jobID, err)
	}
	return nil
}

// MemoryAccumulatorStore keeps accumulators in process memory as encoded JSON.
type MemoryAccumulatorStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ core.AccumulatorStore = (*MemoryAccumulatorStore)(nil)

// NewMemoryAccumulatorStore creates an empty MemoryAccumulatorStore.
func NewMemoryAccumulatorStore() *MemoryAccumulatorStore {
	return &MemoryAccumulatorStore{data: map[string][]byte{}}
}

// Load returns a copy of the stored accumulator, or nil when none exists.
func (s *MemoryAccumulatorStore) Load(_ context.Context, jobID string) (*model.SenderAccumulator, error) {
	s.mu.Lock()
	raw, ok := s.data[jobID]
	s.mu.Unlock()
	if !ok {
		return nil, nil //nolint:nilnil // absent accumulator
	}
	return decodeAccumulator(raw)
}

// Save stores a copy of acc.
func (s *MemoryAccumulatorStore) Save(_ context.Context, jobID string, acc *model.SenderAccumulator) error {
	raw, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encode accumulator: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[jobID] = raw
	return nil
}

// Delete removes the accumulator for jobID.
func (s *MemoryAccumulatorStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, jobID)
	return nil
}

// Len returns how many accumulators are stored.
func (s *MemoryAccumulatorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
