// Package quotestore keeps search results between the search step and the
// proposal step. Entries expire after a TTL.
package quotestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cotizador/internal/models"
)

// ErrNotFound is returned for unknown or expired quote IDs.
var ErrNotFound = errors.New("quote not found")

const DefaultTTL = 2 * time.Hour

type Store interface {
	Save(ctx context.Context, q *models.Quote) error
	Get(ctx context.Context, id string) (*models.Quote, error)
}

type entry struct {
	quote   *models.Quote
	expires time.Time
}

// MemoryStore is a process-local store for single-instance deployments
// and the CLI.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, q *models.Quote) error {
	if q == nil || q.ID == "" {
		return fmt.Errorf("quote id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}
	s.entries[q.ID] = entry{quote: q, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.now().After(e.expires) {
		delete(s.entries, id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.quote, nil
}

// RedisStore shares quotes between API replicas and workers.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "cotizador:quote:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Save(ctx context.Context, q *models.Quote) error {
	if q == nil || q.ID == "" {
		return fmt.Errorf("quote id is required")
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}
	if err := s.client.Set(ctx, s.key(q.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store quote %s: %w", q.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Quote, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load quote %s: %w", id, err)
	}

	var q models.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", id, err)
	}
	return &q, nil
}
