package engines_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/db/dbtest"
	"github.com/pkp/pkplib/internal/search"
	"github.com/pkp/pkplib/internal/search/engines"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name     string
		engine   string
		wantName string
		wantErr  error
	}{
		{name: "default", engine: "", wantName: "database"},
		{name: "database", engine: config.SearchEngineDatabase, wantName: "database"},
		{name: "fulltext", engine: config.SearchEngineFulltext, wantName: "fulltext"},
		{name: "opensearch", engine: config.SearchEngineOpenSearch, wantName: "opensearch"},
		{name: "bleve", engine: config.SearchEngineBleve, wantName: "bleve"},
		{name: "unknown", engine: "solr", wantErr: search.ErrUnknownEngine},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Search.Engine = tc.engine
			cfg.Search.OpenSearch.Addresses = []string{"http://localhost:9200"}

			e, err := engines.New(cfg, dbtest.Open(t))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)

			t.Cleanup(func() {
				_ = e.Close()
			})

			assert.Equal(t, tc.wantName, e.Name())
		})
	}
}
