package clinicsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticIndex serves clinic autocomplete from an Elasticsearch index with
// a search_as_you_type field.
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	if index == "" {
		index = "cotizador-clinics"
	}
	return &ElasticIndex{client: client, index: index}
}

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"name":   map[string]interface{}{"type": "search_as_you_type"},
			"folded": map[string]interface{}{"type": "search_as_you_type"},
		},
	},
}

// Reindex replaces the index content with names.
func (e *ElasticIndex) Reindex(ctx context.Context, names []string) error {
	del := esapi.IndicesDeleteRequest{Index: []string{e.index}}
	res, err := del.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", e.index, err)
	}
	res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete index %s: %s", e.index, res.Status())
	}

	body, _ := json.Marshal(indexMapping)
	create := esapi.IndicesCreateRequest{Index: e.index, Body: bytes.NewReader(body)}
	res, err = create.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", e.index, err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", e.index, res.Status())
	}

	if len(names) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, n := range names {
		_ = enc.Encode(map[string]interface{}{"index": map[string]interface{}{"_id": fmt.Sprint(i)}})
		_ = enc.Encode(map[string]interface{}{"name": n, "folded": Fold(n), "order": i})
	}

	bulk := esapi.BulkRequest{Index: e.index, Body: &buf, Refresh: "true"}
	res, err = bulk.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("bulk index clinics: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index clinics: %s", res.String())
	}

	var r struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if r.Errors {
		return fmt.Errorf("bulk index clinics: some documents were rejected")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Name string `json:"name"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}

	q := Fold(query)
	var body map[string]interface{}
	if q == "" {
		body = map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"sort":  []interface{}{map[string]interface{}{"order": "asc"}},
		}
	} else {
		body = map[string]interface{}{
			"query": map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  q,
					"type":   "bool_prefix",
					"fields": []string{"folded", "folded._2gram", "folded._3gram"},
				},
			},
		}
	}
	raw, _ := json.Marshal(body)

	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  strings.NewReader(string(raw)),
		Size:  &limit,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("search clinics: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search clinics: %s", res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	names := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		names = append(names, h.Source.Name)
	}
	return names, nil
}
