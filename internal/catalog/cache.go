package catalog

import (
	"context"
	"sync"
	"time"

	"cotizador/internal/common/logger"
	"cotizador/internal/common/metrics"
)

// LoadFunc builds a catalog from its sources.
type LoadFunc func(ctx context.Context, src Sources) (*Catalog, error)

// Cache holds the catalog for the life of the process. A failed load is
// not cached, so the next request retries once the data files appear.
type Cache struct {
	mu       sync.RWMutex
	src      Sources
	load     LoadFunc
	catalog  *Catalog
	loadedAt time.Time
	log      logger.Logger
}

// NewCache creates a lazily loaded cache over src.
func NewCache(src Sources, log logger.Logger) *Cache {
	return &Cache{
		src:  src,
		load: Load,
		log:  log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

// NewCacheWithLoader is NewCache with a custom loader.
func NewCacheWithLoader(src Sources, load LoadFunc, log logger.Logger) *Cache {
	c := NewCache(src, log)
	c.load = load
	return c
}

// Get returns the cached catalog, loading it on first use.
func (c *Cache) Get(ctx context.Context) (*Catalog, error) {
	c.mu.RLock()
	cat := c.catalog
	c.mu.RUnlock()
	if cat != nil {
		return cat, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalog != nil {
		return c.catalog, nil
	}
	return c.loadLocked(ctx)
}

// Reload replaces the cached catalog. On failure the previous catalog
// stays in place.
func (c *Cache) Reload(ctx context.Context) (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

// LoadedAt is the time of the last successful load.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Sources returns the configured source paths.
func (c *Cache) Sources() Sources {
	return c.src
}

func (c *Cache) loadLocked(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	cat, err := c.load(ctx, c.src)
	if err != nil {
		c.log.Error("Failed to load catalog", map[string]interface{}{
			"prices":   c.src.PricesPath,
			"networks": c.src.NetworksPath,
			"error":    err.Error(),
		})
		return nil, err
	}

	c.catalog = cat
	c.loadedAt = time.Now()

	stats := cat.Stats()
	for table, n := range stats {
		metrics.CatalogRows.WithLabelValues(table).Set(float64(n))
	}
	c.log.Info("Catalog loaded", map[string]interface{}{
		"prices":   stats["prices"],
		"plans":    stats["plans"],
		"networks": stats["networks"],
		"clinics":  stats["clinics"],
		"duration": time.Since(start).String(),
	})
	return cat, nil
}
