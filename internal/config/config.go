// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigJSON is the environment variable holding a JSON document merged over the file config.
const EnvConfigJSON = "PKPLIB_CONFIG_JSON"

const (
	defaultShutDownTime   = 5
	defaultResultsPerPage = 25
	defaultMinWordLength  = 3
	defaultMaxWordLength  = 60
	defaultCacheTTL       = 600
	defaultSuffixLength   = 8
	defaultTaskInterval   = 60

	defaultTaskRegistry       = "etc/registry/scheduledTasks.xml"
	defaultNavigationRegistry = "etc/registry/navigationMenus.xml"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(path + "main.toml")
	v.SetConfigType("toml")

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config override from env")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings every command depends on and fills in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.DB.Engine == "" {
		c.DB.Engine = DBEngineMySQL
	}

	if !slices.Contains(DBEngines, c.DB.Engine) {
		return errors.Wrapf(ErrUnknownDBEngine, "%s: %q", invalidErrMessage, c.DB.Engine)
	}

	if c.Search.Engine == "" {
		c.Search.Engine = SearchEngineDatabase
	}

	if !slices.Contains(SearchEngines, c.Search.Engine) {
		return errors.Wrapf(ErrUnknownSearchEngine, "%s: %q", invalidErrMessage, c.Search.Engine)
	}

	if c.Cache.Engine != "" && !slices.Contains(CacheEngines, c.Cache.Engine) {
		return errors.Wrapf(ErrUnknownCacheEngine, "%s: %q", invalidErrMessage, c.Cache.Engine)
	}

	if c.Locale.Primary == "" {
		c.Locale.Primary = "en"
	}

	if len(c.Locale.Supported) == 0 {
		c.Locale.Supported = []string{c.Locale.Primary}
	}

	if !slices.Contains(c.Locale.Supported, c.Locale.Primary) {
		return errors.Wrap(ErrPrimaryLocaleNotSupported, invalidErrMessage)
	}

	setDefaults(c)

	return nil
}

func setDefaults(c *Config) {
	if c.Search.ResultsPerPage == 0 {
		c.Search.ResultsPerPage = defaultResultsPerPage
	}

	if c.Search.MinWordLength == 0 {
		c.Search.MinWordLength = defaultMinWordLength
	}

	if c.Search.MaxWordLength == 0 {
		c.Search.MaxWordLength = defaultMaxWordLength
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaultCacheTTL
	}

	if c.Doi.SuffixLength == 0 {
		c.Doi.SuffixLength = defaultSuffixLength
	}

	if c.Tasks.RegistryFile == "" {
		c.Tasks.RegistryFile = defaultTaskRegistry
	}

	if c.Tasks.Interval == 0 {
		c.Tasks.Interval = defaultTaskInterval
	}

	if c.Navigation.RegistryFile == "" {
		c.Navigation.RegistryFile = defaultNavigationRegistry
	}
}
