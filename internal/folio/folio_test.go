package folio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCounter_StartsAtDefaultAndIncrements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.txt")
	c := NewFileCounter(path, DefaultStart)

	n, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)

	n, err = c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1001), n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1001", string(raw))
}

func TestFileCounter_ContinuesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.txt")
	require.NoError(t, os.WriteFile(path, []byte(" 1457\n"), 0o644))

	n, err := NewFileCounter(path, DefaultStart).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1458), n)
}

func TestFileCounter_GarbageRestartsSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	n, err := NewFileCounter(path, 500).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(500), n)
}

func TestFileCounter_ConcurrentCallersGetDistinctFolios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.txt")

	const workers = 8
	const perWorker = 10

	var mu sync.Mutex
	var got []int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate counters model separate processes sharing the file.
			c := NewFileCounter(path, DefaultStart)
			for j := 0; j < perWorker; j++ {
				n, err := c.Next(context.Background())
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				got = append(got, n)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, got, workers*perWorker)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, n := range got {
		assert.Equal(t, DefaultStart+int64(i), n)
	}
}

func TestFileCounter_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.txt")
	holder := NewFileCounter(path, DefaultStart)
	require.NoError(t, holder.lock.Lock())
	defer holder.lock.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileCounter(path, DefaultStart).Next(ctx)
	assert.Error(t, err)
}

func TestRedisCounter_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCounter(client, "cotizador:folio", DefaultStart)
	for want := int64(1000); want < 1003; want++ {
		n, err := c.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	v, err := mr.Get("cotizador:folio")
	require.NoError(t, err)
	assert.Equal(t, "1002", v)
}

func TestRedisCounter_ExistingKeyIsKept(t *testing.T) {
	client, mock := redismock.NewClientMock()

	mock.ExpectSetNX("cotizador:folio", int64(999), 0).SetVal(false)
	mock.ExpectIncr("cotizador:folio").SetVal(2051)

	n, err := NewRedisCounter(client, "cotizador:folio", DefaultStart).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2051), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCounter_Error(t *testing.T) {
	client, mock := redismock.NewClientMock()

	mock.ExpectSetNX("cotizador:folio", int64(999), 0).SetVal(true)
	mock.ExpectIncr("cotizador:folio").SetErr(errors.New("connection reset"))

	_, err := NewRedisCounter(client, "cotizador:folio", DefaultStart).Next(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresCounter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO folio_counters").
		WithArgs("proposal", int64(1000)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(1000)))
	mock.ExpectQuery("INSERT INTO folio_counters").
		WithArgs("proposal", int64(1000)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(1001)))

	c := NewPostgresCounter(db, "proposal", DefaultStart)
	n, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
	n, err = c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1001), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCounter_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO folio_counters").WillReturnError(errors.New("db down"))

	_, err = NewPostgresCounter(db, "proposal", DefaultStart).Next(context.Background())
	assert.ErrorContains(t, err, "db down")
}
