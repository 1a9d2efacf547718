package config

const (
	// DBEngineMySQL selects the gorm mysql driver.
	DBEngineMySQL = "mysql"
	// DBEnginePostgres selects the gorm postgres driver.
	DBEnginePostgres = "postgres"
	// DBEngineSQLite selects the pure go sqlite driver.
	DBEngineSQLite = "sqlite"
)

// DBEngines lists the supported database engines.
var DBEngines = []string{DBEngineMySQL, DBEnginePostgres, DBEngineSQLite} //nolint:gochecknoglobals

// DB holds the database configuration settings.
type DB struct {
	Engine   string // mysql, postgres or sqlite
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string // sqlite database file
	LogLevel string // gorm log level: silent, error, warn, info
	SlowSQL  int    // slow query threshold in milliseconds
}
