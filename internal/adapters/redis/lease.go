package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/target/inboxjobs/internal/core"
)

// DefaultLeasePrefix namespaces lease keys.
const DefaultLeasePrefix = "inboxjobs:lease:"

// releaseScript deletes the lease only while it still holds the caller's token, so an
// expired holder never releases a successor's lease.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLeaseNameRequired is returned when Acquire is called without a name.
var ErrLeaseNameRequired = errors.New("lease name is required")

// Lease is a SET NX PX mutual-exclusion token released with compare-and-delete.
type Lease struct {
	client redis.UniversalClient
	prefix string
}

var _ core.Lease = (*Lease)(nil)

// NewLease creates a Redis-based lease.
func NewLease(client redis.UniversalClient) *Lease {
	return NewLeaseWithPrefix(client, DefaultLeasePrefix)
}

// NewLeaseWithPrefix creates a Redis-based lease whose keys start with prefix.
func NewLeaseWithPrefix(client redis.UniversalClient, prefix string) *Lease {
	if prefix == "" {
		prefix = DefaultLeasePrefix
	}
	return &Lease{client: client, prefix: prefix}
}

func (l *Lease) Acquire(
	ctx context.Context,
	name string,
	ttl time.Duration,
) (func(context.Context) error, bool, error) {
	if name == "" {
		return nil, false, ErrLeaseNameRequired
	}
	key := l.prefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lease %s: %w", name, err)
		}
		return nil
	}
	return release, true, nil
}

// MemoryLease is the in-process lease used when Redis is not configured.
type MemoryLease struct {
	mu     sync.Mutex
	now    func() time.Time
	holder map[string]memoryHold
}

type memoryHold struct {
	token   string
	expires time.Time
}

var _ core.Lease = (*MemoryLease)(nil)

// NewMemoryLease creates an in-memory lease. now defaults to time.Now.
func NewMemoryLease(now func() time.Time) *MemoryLease {
	if now == nil {
		now = time.Now
	}
	return &MemoryLease{now: now, holder: map[string]memoryHold{}}
}

func (l *MemoryLease) Acquire(
	_ context.Context,
	name string,
	ttl time.Duration,
) (func(context.Context) error, bool, error) {
	if name == "" {
		return nil, false, ErrLeaseNameRequired
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, ok := l.holder[name]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}
	token := uuid.NewString()
	l.holder[name] = memoryHold{token: token, expires: now.Add(ttl)}
	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.holder[name]; ok && cur.token == token {
			delete(l.holder, name)
		}
		return nil
	}
	return release, true, nil
}
