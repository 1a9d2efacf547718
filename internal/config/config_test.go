package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigPath(t *testing.T) string {
	t.Helper()

	// Get the project root by going up from internal/config
	projectRoot, err := filepath.Abs("../../")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(testConfigPath(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	// Test basic config fields
	if cfg.Title == "" {
		t.Error("Config.Title should not be empty")
	}

	if cfg.Webserver.Port == 0 {
		t.Error("Webserver.Port should not be 0")
	}

	if cfg.Webserver.URL == "" {
		t.Error("Webserver.URL should not be empty")
	}

	assert.Equal(t, DBEngineSQLite, cfg.DB.Engine)
	assert.Equal(t, SearchEngineDatabase, cfg.Search.Engine)
	assert.Equal(t, "en", cfg.Locale.Primary)
	assert.Contains(t, cfg.Locale.Supported, "fr_CA")
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Search.OpenSearch.Addresses)
	assert.True(t, cfg.Log.Console.Enabled)
	assert.Equal(t, "10.1234", cfg.Doi.Prefix)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name: "valid config",
			config: Config{
				Webserver: Webserver{
					Port: 8080,
					URL:  "http://localhost:8080",
				},
			},
		},
		{
			name: "missing port",
			config: Config{
				Webserver: Webserver{
					Port: 0,
					URL:  "http://localhost:8080",
				},
			},
			wantErr: ErrWebServerPortCanNotBeZero,
		},
		{
			name: "missing URL",
			config: Config{
				Webserver: Webserver{
					Port: 8080,
					URL:  "",
				},
			},
			wantErr: ErrEmptyURL,
		},
		{
			name: "unknown db engine",
			config: Config{
				Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
				DB:        DB{Engine: "oracle"},
			},
			wantErr: ErrUnknownDBEngine,
		},
		{
			name: "unknown search engine",
			config: Config{
				Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
				Search:    Search{Engine: "tntsearch"},
			},
			wantErr: ErrUnknownSearchEngine,
		},
		{
			name: "unknown cache engine",
			config: Config{
				Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
				Cache:     Cache{Engine: "memcached"},
			},
			wantErr: ErrUnknownCacheEngine,
		},
		{
			name: "primary locale not supported",
			config: Config{
				Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
				Locale:    Locale{Primary: "en", Supported: []string{"de"}},
			},
			wantErr: ErrPrimaryLocaleNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(&tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestValidateSetsDefaults(t *testing.T) {
	cfg := Config{
		Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
	}

	require.NoError(t, validate(&cfg))

	assert.Equal(t, defaultShutDownTime, cfg.Webserver.ShutDownTime)
	assert.Equal(t, DBEngineMySQL, cfg.DB.Engine)
	assert.Equal(t, SearchEngineDatabase, cfg.Search.Engine)
	assert.Equal(t, defaultResultsPerPage, cfg.Search.ResultsPerPage)
	assert.Equal(t, defaultMinWordLength, cfg.Search.MinWordLength)
	assert.Equal(t, defaultMaxWordLength, cfg.Search.MaxWordLength)
	assert.Equal(t, defaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, defaultSuffixLength, cfg.Doi.SuffixLength)
	assert.Equal(t, "en", cfg.Locale.Primary)
	assert.Equal(t, []string{"en"}, cfg.Locale.Supported)
}

func TestReadConfigWithJSONOverride(t *testing.T) {
	// Set JSON override environment variable
	jsonOverride := `{"Title":"Test Override","Webserver":{"Port":9090},"Search":{"Engine":"bleve"}}`
	t.Setenv(EnvConfigJSON, jsonOverride)

	cfg, err := ReadConfig(testConfigPath(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Title != "Test Override" {
		t.Errorf("Title = %v, want %v", cfg.Title, "Test Override")
	}

	if cfg.Webserver.Port != 9090 {
		t.Errorf("Webserver.Port = %v, want %v", cfg.Webserver.Port, 9090)
	}

	assert.Equal(t, SearchEngineBleve, cfg.Search.Engine)
	// untouched values survive the merge
	assert.Equal(t, "http://localhost:8080", cfg.Webserver.URL)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir() + string(filepath.Separator))
	require.Error(t, err)
}

func TestDumpConfig(t *testing.T) {
	cfg := Config{
		Title:   "Test",
		DevMode: true,
		Webserver: Webserver{
			Port: 8080,
			URL:  "http://localhost:8080",
		},
		Locale: Locale{Primary: "en", Supported: []string{"en"}},
	}

	tomlStr, err := DumpConfig(&cfg)
	if err != nil {
		t.Fatalf("DumpConfig() error = %v", err)
	}

	if tomlStr == "" {
		t.Error("DumpConfig() returned empty string")
	}

	// Check if output contains expected values
	if !strings.Contains(tomlStr, "Test") {
		t.Error("DumpConfig() output should contain Title")
	}
}

func TestDumpConfigJSON(t *testing.T) {
	cfg := Config{
		Title:   "Test",
		DevMode: true,
		Webserver: Webserver{
			Port: 8080,
			URL:  "http://localhost:8080",
		},
	}

	jsonStr, err := DumpConfigJSON(&cfg)
	if err != nil {
		t.Fatalf("DumpConfigJSON() error = %v", err)
	}

	if jsonStr == "" {
		t.Error("DumpConfigJSON() returned empty string")
	}

	// Check if output is valid JSON by checking for expected fields
	if !strings.Contains(jsonStr, "Test") {
		t.Error("DumpConfigJSON() output should contain Title")
	}
}
