package opensearch

import (
	"time"

	"github.com/pkp/pkplib/internal/search"
)

// indexMapping folds accents and case on every localized string field.
var indexMapping = []byte(`{
  "settings": {
    "analysis": {
      "analyzer": {
        "folding": {"tokenizer": "standard", "filter": ["lowercase", "asciifolding"]}
      }
    }
  },
  "mappings": {
    "dynamic_templates": [
      {"localized": {"match_mapping_type": "string", "mapping": {"type": "text", "analyzer": "folding"}}}
    ],
    "properties": {
      "contextId": {"type": "long"},
      "datePublished": {"type": "date"}
    }
  }
}`) //nolint:gochecknoglobals

// positive reports whether any clause can match on its own. A bool query made only of
// must_not clauses would match every document.
func positive(clauses []search.Clause) bool {
	for _, c := range clauses {
		if c.Occur != search.MustNot {
			return true
		}
	}

	return false
}

// buildQuery translates the parsed clauses of q into a search request body.
func buildQuery(q search.Query, clauses []search.Clause) map[string]any {
	var must, should, mustNot []any

	for _, c := range clauses {
		m := matchClause(c)

		switch c.Occur {
		case search.Must:
			must = append(must, m)
		case search.Should:
			should = append(should, m)
		case search.MustNot:
			mustNot = append(mustNot, m)
		}
	}

	boolQuery := map[string]any{}

	if len(must) > 0 {
		boolQuery["must"] = must
	}

	if len(should) > 0 {
		boolQuery["should"] = should
		boolQuery["minimum_should_match"] = 1
	}

	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}

	if f := filters(q); len(f) > 0 {
		boolQuery["filter"] = f
	}

	body := map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             q.Offset(),
		"size":             q.PerPage,
		"track_total_hits": true,
		"_source":          false,
	}

	order := "desc"
	if q.Ascending {
		order = "asc"
	}

	if q.OrderBy == search.OrderDate {
		body["sort"] = []any{
			map[string]any{"datePublished": map[string]any{"order": order, "missing": "_last"}},
			"_score",
		}
	} else {
		body["sort"] = []any{
			map[string]any{"_score": map[string]any{"order": order}},
			map[string]any{"datePublished": map[string]any{"order": "desc", "missing": "_last"}},
		}
	}

	return body
}

func matchClause(c search.Clause) map[string]any {
	mm := map[string]any{
		"query":  c.Text,
		"fields": fieldPaths(c.Fields),
	}

	switch {
	case c.Prefix:
		mm["type"] = "phrase_prefix"
	case c.Phrase:
		mm["type"] = "phrase"
	default:
		mm["operator"] = "and"
	}

	return map[string]any{"multi_match": mm}
}

// fieldPaths lists the localized sub fields of every field in the mask.
func fieldPaths(mask search.Field) []string {
	var out []string

	for _, f := range search.Fields {
		if mask&f != 0 {
			out = append(out, f.String()+".*")
		}
	}

	return out
}

func filters(q search.Query) []any {
	var out []any

	if q.ContextID != 0 {
		out = append(out, map[string]any{"term": map[string]any{"contextId": q.ContextID}})
	}

	if q.PublishedFrom != nil || q.PublishedTo != nil {
		r := map[string]any{}

		if q.PublishedFrom != nil {
			r["gte"] = q.PublishedFrom.UTC().Format(time.RFC3339)
		}

		if q.PublishedTo != nil {
			r["lte"] = q.PublishedTo.UTC().Format(time.RFC3339)
		}

		out = append(out, map[string]any{"range": map[string]any{"datePublished": r}})
	}

	return out
}
