package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownDBEngine error if config db.engine names an unsupported database.
	ErrUnknownDBEngine = errors.New("toml config db.engine is not supported")

	// ErrUnknownSearchEngine error if config search.engine names an unsupported search back-end.
	ErrUnknownSearchEngine = errors.New("toml config search.engine is not supported")

	// ErrUnknownCacheEngine error if config cache.engine names an unsupported cache store.
	ErrUnknownCacheEngine = errors.New("toml config cache.engine is not supported")

	// ErrPrimaryLocaleNotSupported error if locale.primary is missing from locale.supported.
	ErrPrimaryLocaleNotSupported = errors.New("toml config locale.primary must be listed in locale.supported")
)
