package config

import (
	"github.com/pkp/pkplib/internal/logger"
)

const (
	// SearchEngineDatabase indexes keywords into the submission search tables.
	SearchEngineDatabase = "database"
	// SearchEngineFulltext uses the database's own full-text index.
	SearchEngineFulltext = "fulltext"
	// SearchEngineOpenSearch delegates to an OpenSearch cluster.
	SearchEngineOpenSearch = "opensearch"
	// SearchEngineBleve keeps an embedded bleve index on local disk.
	SearchEngineBleve = "bleve"

	// CacheEngineNone disables caching.
	CacheEngineNone = "none"
	// CacheEngineRedis caches in redis.
	CacheEngineRedis = "redis"
	// CacheEngineMySQL caches in a mysql table.
	CacheEngineMySQL = "mysql"
	// CacheEnginePostgres caches in a postgres table.
	CacheEnginePostgres = "postgres"
)

var (
	// SearchEngines lists the supported search back-ends.
	SearchEngines = []string{ //nolint:gochecknoglobals
		SearchEngineDatabase, SearchEngineFulltext, SearchEngineOpenSearch, SearchEngineBleve,
	}

	// CacheEngines lists the supported cache stores.
	CacheEngines = []string{ //nolint:gochecknoglobals
		CacheEngineNone, CacheEngineRedis, CacheEngineMySQL, CacheEnginePostgres,
	}
)

// Config overall data structure.
type Config struct {
	DevMode    bool // enable dev mode for development
	DB         DB
	Log        logger.Log
	Title      string
	Webserver  Webserver
	Locale     Locale
	Search     Search
	Cache      Cache
	Mail       Mail
	Tasks      Tasks
	Navigation Navigation
	Files      Files
	Doi        Doi
}

// Webserver implement webserver settings.
type Webserver struct {
	Port         int    // listening port for the webserver
	ShutDownTime int    // wait time for shutdown
	URL          string // base url for the webserver
	Prefork      bool   // enable fiber prefork
}

// Locale holds the installation locales.
type Locale struct {
	Primary   string
	Supported []string
}

// Search selects and configures the search back-end.
type Search struct {
	Engine         string
	ResultsPerPage int
	MinWordLength  int
	MaxWordLength  int
	OpenSearch     OpenSearch
	Bleve          Bleve
}

// OpenSearch holds the OpenSearch cluster connection.
type OpenSearch struct {
	Addresses          []string
	Username           string
	Password           string
	Index              string
	InsecureSkipVerify bool
}

// Bleve holds the embedded index location. An empty path keeps the index in memory.
type Bleve struct {
	Path string
}

// Cache selects the settings cache store.
type Cache struct {
	Engine        string
	TTL           int // seconds
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Table         string // table used by the sql cache stores
}

// Mail holds SMTP settings.
type Mail struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Admin    string // recipient of scheduled task failure reports
}

// Tasks configures the scheduled task runner.
type Tasks struct {
	Enabled      bool
	RegistryFile string
	LogPath      string
	Interval     int // seconds between scheduler ticks in daemon mode
}

// Navigation names the default menus loaded into contexts without menus.
type Navigation struct {
	RegistryFile string
}

// Files configures the file loader directories.
type Files struct {
	UsageStatsDir   string
	CompressArchive bool
}

// Doi configures the registration agency used for deposits.
type Doi struct {
	Prefix       string
	SuffixLength int
	AgencyURL    string
	Username     string
	Password     string
}
