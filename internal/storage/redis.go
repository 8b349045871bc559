package storage

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
	"github.com/aegis-kernel/mcpkernel/infrastructure/logging"
	"github.com/aegis-kernel/mcpkernel/infrastructure/resilience"
)

// NewRedisStoreWithLogger is like NewRedisStore but logs circuit breaker
// state transitions through log, useful when the backend is flaky enough
// that operators need to see open/half-open/closed transitions.
func NewRedisStoreWithLogger(client *redis.Client, prefix string, log *logging.Logger) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		breaker: resilience.New(resilience.StrictServiceCBConfig(log)),
		retry:   resilience.DefaultRetryConfig(),
	}
}

// RedisStore persists agent blobs as Redis strings keyed by a configurable
// prefix plus the agent id, giving the kernel a durable networked backend as
// an alternative to FileStore. Calls cross a network trust boundary, so each
// round trip is retried with backoff and gated behind a circuit breaker that
// fails fast once Redis looks down rather than piling up retries against it.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewRedisStore creates a RedisStore against the given client, namespacing
// keys under prefix (e.g. "mcpkernel:agents:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		breaker: resilience.New(resilience.StrictServiceCBConfig(nil)),
		retry:   resilience.DefaultRetryConfig(),
	}
}

func (r *RedisStore) key(agentID string) string {
	return r.prefix + agentID
}

func (r *RedisStore) guard(ctx context.Context, fn func() error) error {
	return r.breaker.Execute(ctx, func() error {
		return resilience.Retry(ctx, r.retry, fn)
	})
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, agentID string, blob []byte) error {
	err := r.guard(ctx, func() error {
		return r.client.Set(ctx, r.key(agentID), blob, 0).Err()
	})
	if err != nil {
		return kernelerr.StorageError("save", err)
	}
	return nil
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, agentID string) ([]byte, error) {
	var blob []byte
	notFound := false
	err := r.guard(ctx, func() error {
		result, getErr := r.client.Get(ctx, r.key(agentID)).Bytes()
		if getErr == redis.Nil {
			notFound = true
			return nil // a missing key is not a transient failure; don't retry it
		}
		if getErr != nil {
			return getErr
		}
		blob = result
		return nil
	})
	if notFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, kernelerr.StorageError("load", err)
	}
	return blob, nil
}

// List implements Store.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.guard(ctx, func() error {
		result, keysErr := r.client.Keys(ctx, r.prefix+"*").Result()
		if keysErr != nil {
			return keysErr
		}
		keys = result
		return nil
	})
	if err != nil {
		return nil, kernelerr.StorageError("list", err)
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, r.prefix))
	}
	return ids, nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, agentID string) error {
	err := r.guard(ctx, func() error {
		return r.client.Del(ctx, r.key(agentID)).Err()
	})
	if err != nil {
		return kernelerr.StorageError("delete", err)
	}
	return nil
}
