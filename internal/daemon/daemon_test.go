package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/db/dbtest"
	"github.com/pkp/pkplib/internal/navigation"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Title:      "PKP Library",
		Webserver:  config.Webserver{Port: 8080, URL: "http://localhost:8080"},
		Locale:     config.Locale{Primary: "en", Supported: []string{"en", "fr_CA"}},
		Search:     config.Search{Engine: config.SearchEngineDatabase, MinWordLength: 3, MaxWordLength: 60},
		Tasks:      config.Tasks{Enabled: true, RegistryFile: "../../etc/registry/scheduledTasks.xml"},
		Navigation: config.Navigation{RegistryFile: "../../etc/registry/navigationMenus.xml"},
		Files:      config.Files{UsageStatsDir: t.TempDir()},
	}
}

func TestBuild_Seed(t *testing.T) {
	ctx := context.Background()

	s, err := Build(testConfig(t), dbtest.Open(t))
	require.NoError(t, err)

	j, verrs, err := s.Journals.Add(ctx, map[string]any{
		"urlPath":       "pk",
		"primaryLocale": "en",
		"name":          map[string]any{"en": "Public Knowledge"},
	})
	require.NoError(t, err)
	require.Empty(t, verrs)

	require.NoError(t, s.Seed(ctx))

	for _, id := range []uint64{0, j.ID()} {
		menus, err := s.Navigation.Menus(ctx, id)
		require.NoError(t, err)
		assert.Len(t, menus, 2, "context %d", id)
	}

	links, err := s.Navigation.MenuLinks(ctx, j.ID(), "primary", navigation.Viewer{ContextPath: "pk", Locale: "en"})
	require.NoError(t, err)
	assert.NotEmpty(t, links)

	// menus already present are kept as they are
	require.NoError(t, s.Seed(ctx))

	menus, err := s.Navigation.Menus(ctx, j.ID())
	require.NoError(t, err)
	assert.Len(t, menus, 2)

	assert.NotNil(t, s.Handlers().Navigation)
}

func TestServices_Scheduler(t *testing.T) {
	ctx := context.Background()

	s, err := Build(testConfig(t), dbtest.Open(t))
	require.NoError(t, err)

	sched, err := s.Scheduler()
	require.NoError(t, err)
	require.NoError(t, sched.Sync(ctx))

	require.Len(t, sched.Entries(), 3)

	// every registry entry has a task, and none fails on an empty installation
	for _, e := range sched.Entries() {
		t.Run(e.Name, func(t *testing.T) {
			require.NoError(t, sched.RunOne(ctx, e.Name))
		})
	}

	due, err := sched.DueTasks(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}
