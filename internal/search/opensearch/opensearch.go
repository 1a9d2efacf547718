// Package opensearch indexes submissions into an OpenSearch cluster and translates
// queries into bool queries over the localized field objects.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ossdk "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/search"
)

// Name of the engine.
const Name = "opensearch"

const (
	defaultIndex = "pkp-submissions"
	bulkSize     = 200
)

// ErrBulk is returned when a bulk request reports failed items.
var ErrBulk = errors.New("bulk indexing failed")

// Engine talks to OpenSearch.
type Engine struct {
	client  *opensearchapi.Client
	index   string
	perPage int
}

// New creates the client for the configured cluster.
func New(cfg config.OpenSearch, perPage int) (*Engine, error) {
	osCfg := ossdk.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	if cfg.InsecureSkipVerify {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{Client: osCfg})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}

	index := cfg.Index
	if index == "" {
		index = defaultIndex
	}

	return &Engine{client: client, index: index, perPage: perPage}, nil
}

// Name implements search.Engine.
func (e *Engine) Name() string { return Name }

// Close implements search.Engine.
func (e *Engine) Close() error { return nil }

// EnsureIndex creates the index with its mapping unless it exists.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	_, err := e.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: e.index,
		Body:  bytes.NewReader(indexMapping),
	})
	if err != nil && !isErrorType(err, "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %w", e.index, err)
	}

	return nil
}

// Index stores one document and refreshes the index.
func (e *Engine) Index(ctx context.Context, doc search.Document) error {
	body, err := json.Marshal(source(doc))
	if err != nil {
		return err
	}

	_, err = e.client.Index(ctx, opensearchapi.IndexReq{
		Index:      e.index,
		DocumentID: strconv.FormatUint(doc.ID, 10),
		Body:       bytes.NewReader(body),
		Params:     opensearchapi.IndexParams{Refresh: "true"},
	})
	if err != nil {
		return fmt.Errorf("index document %d: %w", doc.ID, err)
	}

	return nil
}

// Delete removes one document. Missing documents are ignored.
func (e *Engine) Delete(ctx context.Context, id uint64) error {
	resp, err := e.client.Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
		Index:      e.index,
		DocumentID: strconv.FormatUint(id, 10),
		Params:     opensearchapi.DocumentDeleteParams{Refresh: "true"},
	})
	if err != nil {
		if resp != nil && resp.Inspect().Response != nil && resp.Inspect().Response.StatusCode == http.StatusNotFound {
			return nil
		}

		return fmt.Errorf("delete document %d: %w", id, err)
	}

	return nil
}

// Rebuild drops and recreates the index, then bulk indexes src.
func (e *Engine) Rebuild(ctx context.Context, src search.Source) error {
	_, err := e.client.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{Indices: []string{e.index}})
	if err != nil && !isErrorType(err, "index_not_found_exception") {
		return fmt.Errorf("delete index %s: %w", e.index, err)
	}

	if err = e.EnsureIndex(ctx); err != nil {
		return err
	}

	var (
		buf bytes.Buffer
		n   int
	)

	err = src(ctx, func(doc search.Document) error {
		if err := writeBulkLine(&buf, doc); err != nil {
			return err
		}

		n++
		if n < bulkSize {
			return nil
		}

		n = 0

		return e.bulk(ctx, &buf)
	})
	if err != nil {
		return err
	}

	if n == 0 {
		return nil
	}

	return e.bulk(ctx, &buf)
}

func (e *Engine) bulk(ctx context.Context, buf *bytes.Buffer) error {
	resp, err := e.client.Bulk(ctx, opensearchapi.BulkReq{
		Index:  e.index,
		Body:   bytes.NewReader(buf.Bytes()),
		Params: opensearchapi.BulkParams{Refresh: "true"},
	})

	buf.Reset()

	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}

	if resp.Errors {
		return ErrBulk
	}

	return nil
}

// Search implements search.Engine.
func (e *Engine) Search(ctx context.Context, q search.Query) (*search.Results, error) {
	q = q.Normalize(e.perPage)

	clauses := q.Clauses()
	if len(clauses) == 0 {
		return nil, search.ErrEmptyQuery
	}

	if !positive(clauses) {
		return search.Page(nil, q), nil
	}

	body := buildQuery(q, clauses)

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{e.index},
		Body:    bytes.NewReader(raw),
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch query: %w", err)
	}

	res := &search.Results{
		Total:   int64(resp.Hits.Total.Value),
		Page:    q.Page,
		PerPage: q.PerPage,
		Hits:    make([]search.Hit, 0, len(resp.Hits.Hits)),
	}

	for _, h := range resp.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("hit id %q: %w", h.ID, err)
		}

		res.Hits = append(res.Hits, search.Hit{ID: id, Score: float64(h.Score)})
	}

	return res, nil
}

func writeBulkLine(buf *bytes.Buffer, doc search.Document) error {
	action := map[string]any{"index": map[string]any{"_id": strconv.FormatUint(doc.ID, 10)}}

	enc := json.NewEncoder(buf)
	if err := enc.Encode(action); err != nil {
		return err
	}

	return enc.Encode(source(doc))
}

// source is the stored document: field objects keyed by locale plus the filters.
func source(doc search.Document) map[string]any {
	out := map[string]any{"contextId": doc.ContextID}

	if doc.DatePublished != nil {
		out["datePublished"] = doc.DatePublished.UTC().Format(time.RFC3339)
	}

	for f, texts := range doc.Text {
		if len(texts) > 0 {
			out[f.String()] = texts
		}
	}

	return out
}

func isErrorType(err error, typ string) bool {
	var se *ossdk.StructError
	if errors.As(err, &se) {
		return se.Err.Type == typ
	}

	return strings.Contains(err.Error(), typ)
}
