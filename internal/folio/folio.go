// Package folio hands out the sequential numbers printed on proposals.
// Every backend is atomic across processes sharing the same store.
package folio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
)

// DefaultStart is the first folio issued by an empty store.
const DefaultStart int64 = 1000

// Counter issues folios.
type Counter interface {
	Next(ctx context.Context) (int64, error)
}

// FileCounter keeps the last issued folio as text in a file. Access is
// serialized with an advisory lock on a sibling ".lock" file; the mutex
// covers goroutines sharing one counter, which the lock does not.
type FileCounter struct {
	mu    sync.Mutex
	path  string
	start int64
	lock  *flock.Flock
}

func NewFileCounter(path string, start int64) *FileCounter {
	return &FileCounter{
		path:  path,
		start: start,
		lock:  flock.New(path + ".lock"),
	}
}

// Next reads the last folio, increments it and writes it back under the
// lock. A missing or unreadable file restarts the sequence at start.
func (c *FileCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	locked, err := c.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil {
		return 0, fmt.Errorf("lock folio file: %w", err)
	}
	if !locked {
		return 0, fmt.Errorf("lock folio file: not acquired")
	}
	defer c.lock.Unlock()

	next := c.start
	if raw, err := os.ReadFile(c.path); err == nil {
		if last, perr := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64); perr == nil {
			next = last + 1
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read folio file: %w", err)
	}

	if err := writeAtomic(c.path, []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, fmt.Errorf("write folio file: %w", err)
	}
	return next, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// RedisCounter uses INCR on a single key.
type RedisCounter struct {
	client redis.Cmdable
	key    string
	start  int64
}

func NewRedisCounter(client redis.Cmdable, key string, start int64) *RedisCounter {
	return &RedisCounter{client: client, key: key, start: start}
}

// Next seeds the key with start-1 on first use so the first INCR yields
// start.
func (c *RedisCounter) Next(ctx context.Context) (int64, error) {
	if err := c.client.SetNX(ctx, c.key, c.start-1, 0).Err(); err != nil {
		return 0, fmt.Errorf("seed folio key: %w", err)
	}
	n, err := c.client.Incr(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment folio key: %w", err)
	}
	return n, nil
}

// PostgresCounter keeps one row per counter name in folio_counters.
type PostgresCounter struct {
	db    *sql.DB
	name  string
	start int64
}

func NewPostgresCounter(db *sql.DB, name string, start int64) *PostgresCounter {
	return &PostgresCounter{db: db, name: name, start: start}
}

const nextFolioQuery = `
INSERT INTO folio_counters (name, value) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET value = folio_counters.value + 1
RETURNING value`

// Next inserts the counter at start or increments it, in one statement.
func (c *PostgresCounter) Next(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, nextFolioQuery, c.name, c.start).Scan(&n); err != nil {
		return 0, fmt.Errorf("next folio: %w", err)
	}
	return n, nil
}
