package opensearch_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/search"
	"github.com/pkp/pkplib/internal/search/opensearch"
)

type request struct {
	Method string
	Path   string
	Body   string
}

type fakeCluster struct {
	mu       sync.Mutex
	requests []request
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, request{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, `{
			"took": 2, "timed_out": false,
			"_shards": {"total": 1, "successful": 1, "skipped": 0, "failed": 0},
			"hits": {
				"total": {"value": 12, "relation": "eq"},
				"max_score": 2.5,
				"hits": [
					{"_index": "pkp-test", "_id": "4", "_score": 2.5},
					{"_index": "pkp-test", "_id": "9", "_score": 1.25}
				]
			}
		}`)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		_, _ = io.WriteString(w, `{"took": 1, "errors": false, "items": []}`)
	case r.URL.Path == "/pkp-test" && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": {"root_cause": [], "type": "index_not_found_exception",
			"reason": "no such index [pkp-test]"}, "status": 404}`)
	case r.URL.Path == "/pkp-test" && r.Method == http.MethodPut:
		_, _ = io.WriteString(w, `{"acknowledged": true, "shards_acknowledged": true, "index": "pkp-test"}`)
	case strings.Contains(r.URL.Path, "/_doc/"):
		result := "created"
		if r.Method == http.MethodDelete {
			result = "deleted"
		}

		_, _ = io.WriteString(w, `{"_index": "pkp-test", "_id": "1", "_version": 1, "result": "`+result+`",
			"_shards": {"total": 1, "successful": 1, "failed": 0}, "_seq_no": 0, "_primary_term": 1}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeCluster) last() request {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests[len(f.requests)-1]
}

func setup(t *testing.T) (*opensearch.Engine, *fakeCluster) {
	t.Helper()

	fake := &fakeCluster{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	e, err := opensearch.New(config.OpenSearch{Addresses: []string{srv.URL}, Index: "pkp-test"}, 10)
	require.NoError(t, err)

	return e, fake
}

func TestEngine_Search(t *testing.T) {
	e, fake := setup(t)

	res, err := e.Search(context.Background(), search.Query{Text: "climate", Page: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(12), res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 10, res.PerPage)
	assert.Equal(t, []search.Hit{{ID: 4, Score: 2.5}, {ID: 9, Score: 1.25}}, res.Hits)

	req := fake.last()
	assert.Equal(t, "/pkp-test/_search", req.Path)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &body))
	assert.EqualValues(t, 10, body["from"])
}

func TestEngine_SearchWithoutPositiveClause(t *testing.T) {
	e, fake := setup(t)

	res, err := e.Search(context.Background(), search.Query{Text: "-climate"})
	require.NoError(t, err)

	assert.Empty(t, res.Hits)
	assert.Empty(t, fake.requests)

	_, err = e.Search(context.Background(), search.Query{})
	assert.ErrorIs(t, err, search.ErrEmptyQuery)
}

func TestEngine_IndexAndDelete(t *testing.T) {
	e, fake := setup(t)
	ctx := context.Background()

	doc := search.Document{ID: 1, ContextID: 2}
	doc.Add(search.FieldTitle, "en", "Coastal erosion")

	require.NoError(t, e.Index(ctx, doc))

	req := fake.last()
	assert.Equal(t, "/pkp-test/_doc/1", req.Path)
	assert.JSONEq(t, `{"contextId": 2, "title": {"en": "Coastal erosion"}}`, req.Body)

	require.NoError(t, e.Delete(ctx, 1))
	assert.Equal(t, http.MethodDelete, fake.last().Method)
}

func TestEngine_Rebuild(t *testing.T) {
	e, fake := setup(t)

	docs := []search.Document{{ID: 1, ContextID: 1}, {ID: 2, ContextID: 1}}
	docs[0].Add(search.FieldTitle, "en", "One")
	docs[1].Add(search.FieldTitle, "en", "Two")

	err := e.Rebuild(context.Background(), func(_ context.Context, yield func(search.Document) error) error {
		for _, d := range docs {
			if err := yield(d); err != nil {
				return err
			}
		}

		return nil
	})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	require.Len(t, fake.requests, 3)
	assert.Equal(t, http.MethodDelete, fake.requests[0].Method)
	assert.Equal(t, http.MethodPut, fake.requests[1].Method)
	assert.Contains(t, fake.requests[1].Body, "asciifolding")
	assert.Equal(t, "/pkp-test/_bulk", fake.requests[2].Path)

	var lines int

	sc := bufio.NewScanner(bytes.NewBufferString(fake.requests[2].Body))
	for sc.Scan() {
		lines++
	}

	assert.Equal(t, 4, lines)
}
