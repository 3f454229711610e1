// Package redis provides Redis-based adapters for the inboxjobs scheduler: the periodic
// trigger registry and the invocation lease.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/target/inboxjobs/internal/core"
)

// DefaultTriggerPrefix namespaces trigger registrations.
const DefaultTriggerPrefix = "inboxjobs:trigger:"

// ErrHandlerRequired is returned when a registration has no handler name.
var ErrHandlerRequired = errors.New("trigger handler is required")

// TriggerRegistry records periodic wake-ups as one Redis key per handler.
// Ensure uses SET NX so concurrent job creations register a handler at most once.
type TriggerRegistry struct {
	client redis.UniversalClient
	prefix string
}

var _ core.TriggerRegistry = (*TriggerRegistry)(nil)

// NewTriggerRegistry creates a Redis-based trigger registry.
func NewTriggerRegistry(client redis.UniversalClient) *TriggerRegistry {
	return NewTriggerRegistryWithPrefix(client, DefaultTriggerPrefix)
}

// NewTriggerRegistryWithPrefix creates a Redis trigger registry with a custom key prefix.
func NewTriggerRegistryWithPrefix(client redis.UniversalClient, prefix string) *TriggerRegistry {
	return &TriggerRegistry{client: client, prefix: prefix}
}

func (r *TriggerRegistry) Ensure(ctx context.Context, reg core.TriggerRegistration) (bool, error) {
	if reg.Handler == "" {
		return false, ErrHandlerRequired
	}
	data, err := json.Marshal(reg)
	if err != nil {
		return false, fmt.Errorf("marshal trigger: %w", err)
	}
	created, err := r.client.SetNX(ctx, r.prefix+reg.Handler, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return created, nil
}

func (r *TriggerRegistry) Get(ctx context.Context, handler string) (*core.TriggerRegistration, error) {
	if handler == "" {
		return nil, ErrHandlerRequired
	}
	data, err := r.client.Get(ctx, r.prefix+handler).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil //nolint:nilnil // absent registration is not an error
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var reg core.TriggerRegistration
	if err = json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	return &reg, nil
}

func (r *TriggerRegistry) Remove(ctx context.Context, handler string) (bool, error) {
	if handler == "" {
		return false, nil
	}
	n, err := r.client.Del(ctx, r.prefix+handler).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

// MemoryTriggerRegistry is the in-process registry used when Redis is not configured.
type MemoryTriggerRegistry struct {
	mu   sync.Mutex
	regs map[string]core.TriggerRegistration
}

var _ core.TriggerRegistry = (*MemoryTriggerRegistry)(nil)

// NewMemoryTriggerRegistry creates an empty in-memory registry.
func NewMemoryTriggerRegistry() *MemoryTriggerRegistry {
	return &MemoryTriggerRegistry{regs: map[string]core.TriggerRegistration{}}
}

func (r *MemoryTriggerRegistry) Ensure(_ context.Context, reg core.TriggerRegistration) (bool, error) {
	if reg.Handler == "" {
		return false, ErrHandlerRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.regs[reg.Handler]; ok {
		return false, nil
	}
	r.regs[reg.Handler] = reg
	return true, nil
}

func (r *MemoryTriggerRegistry) Get(_ context.Context, handler string) (*core.TriggerRegistration, error) {
	if handler == "" {
		return nil, ErrHandlerRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[handler]
	if !ok {
		return nil, nil //nolint:nilnil // absent registration is not an error
	}
	return &reg, nil
}

func (r *MemoryTriggerRegistry) Remove(_ context.Context, handler string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.regs[handler]
	delete(r.regs, handler)
	return ok, nil
}
