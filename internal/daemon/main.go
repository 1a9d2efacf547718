// Package daemon wires the services of an installation and runs the web service next
// to the scheduled task loop.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/task"
	"github.com/pkp/pkplib/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	services   *Services
	webService *web.Service
	scheduler  *task.Scheduler
}

// Start runs the scheduler loop, if enabled, and the web service until SIGINT or
// SIGTERM.
func (d *Daemon) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if d.scheduler != nil {
		go d.scheduler.Loop(ctx, time.Duration(d.cfg.Tasks.Interval)*time.Second)
	}

	go func() {
		d.webService.WaitShutdown()
		cancel()
	}()

	err := d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))

	cancel()

	if cerr := d.services.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("failed to close services")
	}

	return err
}

// New opens the database, seeds the default navigation and builds the web service and,
// when tasks are enabled, the scheduler.
func New(cfg *config.Config) (*Daemon, error) {
	services, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	if err = services.Seed(ctx); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	d := &Daemon{cfg: cfg, services: services}

	if cfg.Tasks.Enabled {
		if d.scheduler, err = services.Scheduler(); err != nil {
			return nil, err
		}

		if err = d.scheduler.Sync(ctx); err != nil {
			return nil, err
		}
	}

	if d.webService, err = web.New(cfg, services.Handlers()); err != nil {
		return nil, err
	}

	return d, nil
}
