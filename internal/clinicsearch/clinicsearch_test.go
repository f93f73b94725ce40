package clinicsearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotizador/internal/common/logger"
)

var clinics = []string{
	"Clínica Anglo Americana",
	"Clínica Delgado",
	"Clínica Internacional Sede Lima",
	"Clínica Ricardo Palma",
	"Clínica San Felipe",
	"Oncosalud",
	"Complejo Hospitalario San Pablo",
}

func TestFold(t *testing.T) {
	assert.Equal(t, "clinica ricardo palma", Fold("  CLÍNICA   Ricardo Palma "))
	assert.Equal(t, "nino jesus", Fold("Niño Jesús"))
}

func TestMemoryIndex_Ranking(t *testing.T) {
	idx := NewMemoryIndex(clinics)
	ctx := context.Background()

	got, err := idx.Search(ctx, "san", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clínica San Felipe", "Complejo Hospitalario San Pablo"}, got)

	got, _ = idx.Search(ctx, "onco", 0)
	assert.Equal(t, []string{"Oncosalud"}, got)

	got, _ = idx.Search(ctx, "clinica", 2)
	assert.Equal(t, []string{"Clínica Anglo Americana", "Clínica Delgado"}, got)

	got, _ = idx.Search(ctx, "elgad", 0)
	assert.Equal(t, []string{"Clínica Delgado"}, got)

	got, _ = idx.Search(ctx, "", 3)
	assert.Len(t, got, 3)

	got, _ = idx.Search(ctx, "zzz", 0)
	assert.Empty(t, got)
}

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	fail     bool
	names    []string
}

func (f *fakeES) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if f.bodies == nil {
		f.bodies = map[string]string{}
	}
	f.bodies[r.Method+" "+r.URL.Path] = string(body)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
		return
	}

	switch {
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
	case r.Method == http.MethodPut:
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		_, _ = w.Write([]byte(`{"took":3,"errors":false,"items":[]}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		hits := make([]map[string]interface{}, 0, len(f.names))
		for _, n := range f.names {
			hits = append(hits, map[string]interface{}{"_source": map[string]interface{}{"name": n}})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{"total": map[string]interface{}{"value": len(hits)}, "hits": hits},
		})
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func newFakeES(t *testing.T, f *fakeES) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticIndex_Reindex(t *testing.T) {
	f := &fakeES{}
	idx := NewElasticIndex(newFakeES(t, f), "clinics-test")

	require.NoError(t, idx.Reindex(context.Background(), []string{"Clínica Delgado", "Oncosalud"}))

	assert.Equal(t, []string{
		"DELETE /clinics-test",
		"PUT /clinics-test",
		"POST /clinics-test/_bulk",
	}, f.requests)
	bulk := f.bodies["POST /clinics-test/_bulk"]
	assert.Equal(t, 4, strings.Count(bulk, "\n"))
	assert.Contains(t, bulk, `"folded":"clinica delgado"`)
	assert.Contains(t, f.bodies["PUT /clinics-test"], "search_as_you_type")
}

func TestElasticIndex_Search(t *testing.T) {
	f := &fakeES{names: []string{"Clínica San Felipe"}}
	idx := NewElasticIndex(newFakeES(t, f), "clinics-test")

	got, err := idx.Search(context.Background(), "SÁN", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clínica San Felipe"}, got)
	assert.Contains(t, f.bodies["POST /clinics-test/_search"], `"query":"san"`)
	assert.Contains(t, f.bodies["POST /clinics-test/_search"], "bool_prefix")
}

func TestElasticIndex_SearchError(t *testing.T) {
	f := &fakeES{fail: true}
	_, err := NewElasticIndex(newFakeES(t, f), "").Search(context.Background(), "x", 5)
	assert.Error(t, err)
}

type MockSearcher struct {
	SearchFunc func(ctx context.Context, query string, limit int) ([]string, error)
	calls      int
}

func (m *MockSearcher) Search(ctx context.Context, query string, limit int) ([]string, error) {
	m.calls++
	return m.SearchFunc(ctx, query, limit)
}

func TestService_FallsBackToMemory(t *testing.T) {
	primary := &MockSearcher{SearchFunc: func(ctx context.Context, q string, limit int) ([]string, error) {
		return nil, errors.New("connection refused")
	}}
	svc := NewService(clinics, logger.NewNoOpLogger(), WithPrimary(primary))

	got, err := svc.Search(context.Background(), "ricardo", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clínica Ricardo Palma"}, got)
	assert.Equal(t, 1, primary.calls)
}

func TestService_CachesPrimaryResults(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	primary := &MockSearcher{SearchFunc: func(ctx context.Context, q string, limit int) ([]string, error) {
		return []string{"Clínica Delgado"}, nil
	}}
	svc := NewService(clinics, logger.NewNoOpLogger(), WithPrimary(primary), WithCache(rdb, time.Minute), WithMaxResults(10))

	for i := 0; i < 3; i++ {
		got, err := svc.Search(context.Background(), "Delgado", 50)
		require.NoError(t, err)
		assert.Equal(t, []string{"Clínica Delgado"}, got)
	}
	assert.Equal(t, 1, primary.calls)
	assert.True(t, mr.Exists(svc.cacheKey(listVersion(clinics), 10, "delgado")))

	svc.Refresh(clinics)
	_, err := svc.Search(context.Background(), "Delgado", 50)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls, "same clinic list keeps its cache")

	svc.Refresh(append(append([]string{}, clinics...), "Clínica Nueva Esperanza"))
	_, err = svc.Search(context.Background(), "Delgado", 50)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.calls)
}

func TestService_CacheKeysAgreeAcrossProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	newReplica := func(names []string) (*Service, *MockSearcher) {
		primary := &MockSearcher{SearchFunc: func(ctx context.Context, q string, limit int) ([]string, error) {
			return []string{"Clínica Delgado"}, nil
		}}
		return NewService(names, logger.NewNoOpLogger(), WithPrimary(primary), WithCache(rdb, time.Minute)), primary
	}

	first, firstPrimary := newReplica(clinics)
	_, err := first.Search(context.Background(), "delgado", 5)
	require.NoError(t, err)

	reversed := make([]string, len(clinics))
	for i, name := range clinics {
		reversed[len(clinics)-1-i] = name
	}
	second, secondPrimary := newReplica(reversed)
	_, err = second.Search(context.Background(), "delgado", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, firstPrimary.calls)
	assert.Zero(t, secondPrimary.calls, "same catalog in another order shares the cache")

	other, otherPrimary := newReplica([]string{"Clínica Delgado"})
	_, err = other.Search(context.Background(), "delgado", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, otherPrimary.calls, "a different catalog never reads another's results")
}

func TestService_RefreshReplacesMemoryIndex(t *testing.T) {
	svc := NewService(clinics, logger.NewNoOpLogger())

	got, _ := svc.Search(context.Background(), "nueva", 0)
	assert.Empty(t, got)

	svc.Refresh(append(append([]string{}, clinics...), "Clínica Nueva Esperanza"))
	got, _ = svc.Search(context.Background(), "nueva", 0)
	assert.Equal(t, []string{"Clínica Nueva Esperanza"}, got)
}
