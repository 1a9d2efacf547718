// Package engines builds the configured search back-end.
package engines

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/search"
	"github.com/pkp/pkplib/internal/search/bleveindex"
	"github.com/pkp/pkplib/internal/search/database"
	"github.com/pkp/pkplib/internal/search/fulltext"
	"github.com/pkp/pkplib/internal/search/opensearch"
)

// DefaultPerPage is used when the configuration sets no page size.
const DefaultPerPage = 25

// New returns the engine named in cfg.Search, wrapped with query metrics.
func New(cfg *config.Config, db *gorm.DB) (search.Engine, error) {
	sc := cfg.Search

	perPage := sc.ResultsPerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	tok := search.NewTokenizer(sc.MinWordLength, sc.MaxWordLength)

	var (
		e   search.Engine
		err error
	)

	switch sc.Engine {
	case config.SearchEngineDatabase, "":
		e = database.New(db, tok, perPage)
	case config.SearchEngineFulltext:
		e, err = fulltext.New(db, tok, perPage)
	case config.SearchEngineOpenSearch:
		e, err = opensearch.New(sc.OpenSearch, perPage)
	case config.SearchEngineBleve:
		e, err = bleveindex.New(sc.Bleve.Path, tok, perPage)
	default:
		return nil, fmt.Errorf("%q: %w", sc.Engine, search.ErrUnknownEngine)
	}

	if err != nil {
		return nil, err
	}

	return search.Instrument(e), nil
}
