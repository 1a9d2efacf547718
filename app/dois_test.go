package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/daemon"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/dbtest"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/doi"
)

func TestAssignDoi(t *testing.T) {
	ctx := context.Background()

	services, err := daemon.Build(&config.Config{
		Title:  "PKP Library",
		Locale: config.Locale{Primary: "en", Supported: []string{"en"}},
		Search: config.Search{Engine: config.SearchEngineDatabase, MinWordLength: 3, MaxWordLength: 60},
		Doi:    config.Doi{Prefix: "10.1234", SuffixLength: 6},
	}, dbtest.Open(t))
	require.NoError(t, err)

	pub, _, err := services.Publications.Add(ctx, map[string]any{
		"submissionId":  5,
		"contextId":     3,
		"status":        models.StatusPublished,
		"datePublished": "2024-05-01",
		"title":         map[string]any{"en": "Tidal energy"},
	})
	require.NoError(t, err)

	d, err := assignDoi(ctx, services, pub.ID())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d.Doi, "10.1234/"), d.Doi)
	assert.Equal(t, uint64(3), d.ContextID)

	got, err := services.Publications.Get(ctx, pub.ID())
	require.NoError(t, err)
	assert.EqualValues(t, d.ID, got.Get("doiId"))

	stored, err := services.Dois.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Doi, stored.Doi)

	_, err = assignDoi(ctx, services, 999)
	require.ErrorIs(t, err, dao.ErrNotFound)

	services.Cfg.Doi.Prefix = "not a prefix"
	_, err = assignDoi(ctx, services, pub.ID())
	require.ErrorIs(t, err, doi.ErrInvalid)
}
