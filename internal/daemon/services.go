package daemon

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/cache"
	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/db"
	"github.com/pkp/pkplib/internal/db/controller/doiagency"
	"github.com/pkp/pkplib/internal/doi"
	"github.com/pkp/pkplib/internal/fileloader/usagestats"
	"github.com/pkp/pkplib/internal/journal"
	"github.com/pkp/pkplib/internal/mail"
	"github.com/pkp/pkplib/internal/navigation"
	"github.com/pkp/pkplib/internal/publication"
	"github.com/pkp/pkplib/internal/schema"
	"github.com/pkp/pkplib/internal/search"
	"github.com/pkp/pkplib/internal/search/engines"
	"github.com/pkp/pkplib/internal/site"
	"github.com/pkp/pkplib/internal/statistics"
	"github.com/pkp/pkplib/internal/task"
	"github.com/pkp/pkplib/internal/web/handler"
)

// Services holds the domain services of one installation.
type Services struct {
	Cfg          *config.Config
	DB           *gorm.DB
	Schemas      *schema.Service
	Cache        *cache.Cache
	Site         *site.Service
	Journals     *journal.Repository
	Publications *publication.Repository
	Navigation   *navigation.Service
	Search       search.Engine
	Dois         *doi.Repository
	Mailer       mail.Sender
}

// Open connects the database, migrates it and builds every service on top of it.
func Open(cfg *config.Config) (*Services, error) {
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	return Build(cfg, gdb)
}

// Build creates the services on an open database.
func Build(cfg *config.Config, gdb *gorm.DB) (*Services, error) {
	if cfg == nil {
		return nil, db.ErrConfigNil
	}

	schemas, err := schema.NewService()
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	engine, err := engines.New(cfg, gdb)
	if err != nil {
		return nil, fmt.Errorf("open search engine: %w", err)
	}

	s := &Services{
		Cfg:     cfg,
		DB:      gdb,
		Schemas: schemas,
		Cache:   c,
		Site: &site.Service{
			DB:            gdb,
			Schema:        schemas.MustGet(schema.Site),
			Cache:         c,
			Locales:       cfg.Locale.Supported,
			PrimaryLocale: cfg.Locale.Primary,
		},
		Search: engine,
		Dois:   doi.NewRepository(gdb),
		Mailer: mail.New(cfg.Mail),
	}

	if s.Journals, err = journal.New(gdb, schemas, cfg.Locale.Supported, cfg.Locale.Primary); err != nil {
		return nil, err
	}

	if s.Publications, err = publication.New(
		gdb, schemas, engine, cfg.Locale.Supported, cfg.Locale.Primary,
	); err != nil {
		return nil, err
	}

	if s.Navigation, err = navigation.New(gdb, schemas, cfg.Locale.Supported, cfg.Locale.Primary); err != nil {
		return nil, err
	}

	return s, nil
}

// Handlers returns the dependencies of the web handlers.
func (s *Services) Handlers() *handler.Deps {
	return &handler.Deps{
		Cfg:          s.Cfg,
		DB:           s.DB,
		Site:         s.Site,
		Journals:     s.Journals,
		Publications: s.Publications,
		Navigation:   s.Navigation,
		Search:       s.Search,
	}
}

// Scheduler loads the task registry and registers every task of the library.
func (s *Services) Scheduler() (*task.Scheduler, error) {
	entries, err := task.LoadRegistry(s.Cfg.Tasks.RegistryFile)
	if err != nil {
		return nil, err
	}

	sched := task.NewScheduler(s.DB, entries, task.Options{
		LogPath: s.Cfg.Tasks.LogPath,
		Mailer:  s.Mailer,
		Admin:   s.Cfg.Mail.Admin,
	})

	sched.Register(
		&doi.DepositTask{
			Dois:         s.Dois,
			Journals:     s.Journals,
			Publications: s.Publications,
			DB:           s.DB,
			Defaults:     doiagency.FromConfig(s.Cfg.Doi),
			BaseURL:      s.Cfg.Webserver.URL,
		},
		usagestats.NewLoader(s.DB, s.Cfg.Files.UsageStatsDir, s.Cfg.Files.CompressArchive),
		&statistics.Report{
			DB:       s.DB,
			Journals: s.Journals,
			Mailer:   s.Mailer,
		},
	)

	return sched, nil
}

// Close releases the search engine, the cache and the database pool.
func (s *Services) Close() error {
	var errs []error

	if s.Search != nil {
		errs = append(errs, s.Search.Close())
	}

	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
	}

	if sqlDB, err := s.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}

	return errors.Join(errs...)
}
