// Package clinicsearch answers clinic autocomplete queries for the quoting
// form. Elasticsearch is used when configured; the in-memory index built
// from the catalog is the fallback.
package clinicsearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cotizador/internal/common/logger"
)

const DefaultMaxResults = 20

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Service chains a primary searcher, the memory fallback and an optional
// Redis result cache.
type Service struct {
	mu       sync.RWMutex
	version  string
	fallback *MemoryIndex

	primary    Searcher
	cache      redis.Cmdable
	cacheTTL   time.Duration
	maxResults int
	log        logger.Logger
}

type Option func(*Service)

func WithPrimary(s Searcher) Option {
	return func(svc *Service) { svc.primary = s }
}

func WithCache(client redis.Cmdable, ttl time.Duration) Option {
	return func(svc *Service) {
		svc.cache = client
		svc.cacheTTL = ttl
	}
}

func WithMaxResults(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.maxResults = n
		}
	}
}

func NewService(names []string, log logger.Logger, opts ...Option) *Service {
	svc := &Service{
		fallback:   NewMemoryIndex(names),
		version:    listVersion(names),
		cacheTTL:   10 * time.Minute,
		maxResults: DefaultMaxResults,
		log:        log.WithFields(map[string]interface{}{"component": "clinicsearch"}),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Refresh swaps the in-memory index after a catalog reload. Cached
// results of a different clinic list are no longer served.
func (s *Service) Refresh(names []string) {
	idx := NewMemoryIndex(names)
	version := listVersion(names)
	s.mu.Lock()
	s.fallback = idx
	s.version = version
	s.mu.Unlock()
}

// listVersion identifies a clinic list by content so processes sharing a
// Redis cache agree on keys for the same catalog.
func listVersion(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:8])
}

func (s *Service) cacheKey(version string, limit int, query string) string {
	return fmt.Sprintf("cotizador:clinics:%s:%d:%s", version, limit, Fold(query))
}

// Search returns at most limit names; limit <= 0 or above the configured
// maximum is capped.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}
	s.mu.RLock()
	fallback, version := s.fallback, s.version
	s.mu.RUnlock()
	key := s.cacheKey(version, limit, query)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var names []string
			if json.Unmarshal(raw, &names) == nil {
				return names, nil
			}
		}
	}

	if s.primary != nil {
		names, err := s.primary.Search(ctx, query, limit)
		if err == nil {
			s.store(ctx, key, names)
			return names, nil
		}
		s.log.Warn("Primary clinic search failed, using in-memory index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return fallback.Search(ctx, query, limit)
}

func (s *Service) store(ctx context.Context, key string, names []string) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.log.Debug("Clinic search cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
