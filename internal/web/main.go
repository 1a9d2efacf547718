// Package web serves the json api, the html navigation pages and the prometheus
// metrics.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/template/html/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/pkp/pkplib/internal/config"
	adapter "github.com/pkp/pkplib/internal/logger/adapter/fiber"
	"github.com/pkp/pkplib/internal/web/handler"
	"github.com/pkp/pkplib/internal/web/handler/menus"
	"github.com/pkp/pkplib/internal/web/handler/pages"
	"github.com/pkp/pkplib/internal/web/handler/publications"
	"github.com/pkp/pkplib/internal/web/handler/searchapi"
	"github.com/pkp/pkplib/internal/web/handler/sitesettings"
)

const (
	// CheckAlivePath answers 200 while the service accepts traffic and 503 while it
	// shuts down.
	CheckAlivePath = "/checkalive"
	// MetricsPath serves the prometheus metrics.
	MetricsPath = "/metrics"
)

// ErrNilDeps is returned by New without config or handler dependencies.
var ErrNilDeps = errors.New("config and handler dependencies cannot be nil")

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address and blocks until it stops.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan error)

	go func() {
		err := s.App.Listen(addr, fiber.ListenConfig{
			DisableStartupMessage: !s.cfg.DevMode,
			EnablePrefork:         s.cfg.Webserver.Prefork,
		})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("fiber listen error")
		}

		doneFiber <- err
	}()

	return <-doneFiber // wait for fiber to stop
}

// WaitShutdown waits for SIGINT or SIGTERM and stops the web service gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown stops the web service. Unless fast shutdown is set, checkalive fails for
// the configured shutdown time first, so load balancers can take the instance out.
func (s *Service) Shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether checkalive answers 200.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates the web service and registers every handler.
func New(cfg *config.Config, deps *handler.Deps) (*Service, error) {
	if cfg == nil || deps == nil {
		return nil, ErrNilDeps
	}

	deps.Cfg = cfg

	httpFS := http.FS(templateEmbedFS{embeddedTemplates})
	templateEngine := html.NewFileSystem(httpFS, ".gohtml")

	// in debug mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.Reload(true)

		log.Warn().Msg("debug mode enabled: using local filesystem for templates")
	}

	templateEngine.AddFunc("lower", strings.ToLower)
	templateEngine.AddFunc("htmlLang", func(locale string) string {
		return strings.ReplaceAll(locale, "_", "-")
	})

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Immutable:      true,
			Views:          templateEngine,
			ErrorHandler:   handler.ErrorHandler,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	app.Use(recoverer.New())
	app.Use(adapter.New(adapter.Config{Config: cfg.Log, CheckAliveURI: CheckAlivePath}))

	app.Get(CheckAlivePath, func(c fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	// pages match any context path and go last
	handlers := []handler.Service{
		&sitesettings.Handler,
		&menus.Handler,
		&publications.Handler,
		&searchapi.Handler,
		&pages.Handler,
	}

	for _, h := range handlers {
		if err := h.Init(app, deps); err != nil {
			return nil, err
		}
	}

	// redirect root to the primary menu of the site
	app.Get("/", func(c fiber.Ctx) error {
		return c.Redirect().Status(fiber.StatusFound).To("/" + pages.SitePath + "/navigation/primary")
	})

	return service, nil
}
