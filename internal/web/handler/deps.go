package handler

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/journal"
	"github.com/pkp/pkplib/internal/navigation"
	"github.com/pkp/pkplib/internal/publication"
	"github.com/pkp/pkplib/internal/search"
	"github.com/pkp/pkplib/internal/site"
)

// ErrNilDeps is returned by Init when the app or a needed dependency is missing.
var ErrNilDeps = errors.New(ErrNilDepsFatalLogMsg)

// Deps are the services the handlers work on.
type Deps struct {
	Cfg          *config.Config
	DB           *gorm.DB
	Site         *site.Service
	Journals     *journal.Repository
	Publications *publication.Repository
	Navigation   *navigation.Service
	Search       search.Engine
}
