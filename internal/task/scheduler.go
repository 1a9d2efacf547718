// Package task runs the scheduled tasks listed in the task registry when they are due.
package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/mail"
)

var (
	// ErrUnknownTask is returned when no task is registered under a name.
	ErrUnknownTask = errors.New("unknown scheduled task")
	// ErrInvalidRegistry is returned for a malformed task registry.
	ErrInvalidRegistry = errors.New("invalid task registry")
)

// ScheduledTask is a unit of background work. Execute writes its progress to the run
// log available through zerolog.Ctx(ctx).
type ScheduledTask interface {
	Name() string
	Execute(ctx context.Context) error
}

// Options configures a Scheduler.
type Options struct {
	// LogPath is the directory of the per run log files; empty keeps logs in memory only.
	LogPath string
	Mailer  mail.Sender
	// Admin receives failure reports.
	Admin string
	Clock func() time.Time
}

// Scheduler decides which tasks are due and runs them.
type Scheduler struct {
	db      *gorm.DB
	entries []Entry
	tasks   map[string]ScheduledTask
	opts    Options
}

// NewScheduler creates a scheduler for the registry entries.
func NewScheduler(db *gorm.DB, entries []Entry, opts Options) *Scheduler {
	initMetrics()

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Scheduler{db: db, entries: entries, tasks: map[string]ScheduledTask{}, opts: opts}
}

// Register makes tasks available to the scheduler.
func (s *Scheduler) Register(tasks ...ScheduledTask) {
	for _, t := range tasks {
		s.tasks[t.Name()] = t
	}
}

// Entries returns the registry entries.
func (s *Scheduler) Entries() []Entry {
	return s.entries
}

// Sync records every registry entry in the scheduled task table. New entries start
// without a last run so they are due at once.
func (s *Scheduler) Sync(ctx context.Context) error {
	for _, e := range s.entries {
		if err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ScheduledTask{ClassName: e.Name}).Error; err != nil {
			return fmt.Errorf("sync task %s: %w", e.Name, err)
		}
	}

	return nil
}

// LastRuns returns the last completion time of every task that ever ran.
func (s *Scheduler) LastRuns(ctx context.Context) (map[string]time.Time, error) {
	var rows []models.ScheduledTask
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]time.Time, len(rows))

	for _, r := range rows {
		if r.LastRun != nil {
			out[r.ClassName] = *r.LastRun
		}
	}

	return out, nil
}

// DueTasks returns the registered entries due at now: never run, or whose next
// scheduled time after the last run is not after now.
func (s *Scheduler) DueTasks(ctx context.Context, now time.Time) ([]Entry, error) {
	last, err := s.LastRuns(ctx)
	if err != nil {
		return nil, err
	}

	var due []Entry

	for _, e := range s.entries {
		if _, ok := s.tasks[e.Name]; !ok {
			log.Debug().Str("task", e.Name).Msg("no implementation registered, skipped")

			continue
		}

		lastRun, ok := last[e.Name]
		if !ok {
			due = append(due, e)

			continue
		}

		// schedules are evaluated in the location of now
		if next := e.Next(lastRun.In(now.Location())); !next.IsZero() && !next.After(now) {
			due = append(due, e)
		}
	}

	return due, nil
}

// RunDue runs every due task in registry order and returns the number of tasks run.
// Failures of single tasks are joined into the returned error.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	due, err := s.DueTasks(ctx, s.opts.Clock())
	if err != nil {
		return 0, err
	}

	var errs []error

	for _, e := range due {
		if ctx.Err() != nil {
			break
		}

		if err := s.run(ctx, s.tasks[e.Name], e.Args); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}

	return len(due), errors.Join(errs...)
}

// RunOne runs a registered task regardless of its schedule.
func (s *Scheduler) RunOne(ctx context.Context, name string) error {
	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownTask)
	}

	var args []string

	for _, e := range s.entries {
		if e.Name == name {
			args = e.Args
		}
	}

	return s.run(ctx, t, args)
}

// Loop runs due tasks every interval until ctx is done.
func (s *Scheduler) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Int("tasks", len(s.entries)).Msg("scheduler started")

	for {
		if n, err := s.RunDue(ctx); err != nil {
			log.Error().Err(err).Int("run", n).Msg("scheduled tasks failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")

			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) run(ctx context.Context, t ScheduledTask, args []string) error {
	name := t.Name()
	runID := uuid.NewString()
	start := s.opts.Clock()

	var buf bytes.Buffer

	out := io.Writer(&buf)

	var file *os.File

	if s.opts.LogPath != "" {
		if err := os.MkdirAll(s.opts.LogPath, 0o750); err != nil {
			return fmt.Errorf("create task log directory: %w", err)
		}

		var err error

		file, err = os.Create(filepath.Join(s.opts.LogPath, name+"-"+runID+".log"))
		if err != nil {
			return fmt.Errorf("create task log: %w", err)
		}

		out = io.MultiWriter(&buf, file)
	}

	runLog := newRunLogger(out)
	runCtx := context.WithValue(runLog.WithContext(ctx), argsKey{}, args)

	log.Info().Str("task", name).Str("run", runID).Msg("scheduled task started")
	runLog.Info().Msg("Task process started.")

	err := execute(runCtx, t)
	if err != nil {
		runLog.Error().Msg(err.Error())
	}

	runLog.Info().Msg("Task process stopped.")

	if file != nil {
		if cerr := file.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("task", name).Msg("closing task log failed")
		}
	}

	// the run completed, also when ctx was cancelled meanwhile
	if uerr := s.markRun(context.WithoutCancel(ctx), name); uerr != nil {
		err = errors.Join(err, uerr)
	}

	result := "success"
	if err != nil {
		result = "failure"
	}

	executions.WithLabelValues(name, result).Inc()
	duration.WithLabelValues(name).Observe(s.opts.Clock().Sub(start).Seconds())

	if err == nil {
		log.Info().Str("task", name).Str("run", runID).Msg("scheduled task finished")

		return nil
	}

	log.Error().Err(err).Str("task", name).Str("run", runID).Msg("scheduled task failed")
	s.report(ctx, name, runID, err, buf.Bytes())

	return err
}

// execute turns a panic of the task into an error.
func execute(ctx context.Context, t ScheduledTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return t.Execute(ctx)
}

func (s *Scheduler) markRun(ctx context.Context, name string) error {
	now := s.opts.Clock().UTC()

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "class_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_run"}),
		}).
		Create(&models.ScheduledTask{ClassName: name, LastRun: &now}).Error
}

func (s *Scheduler) report(ctx context.Context, name, runID string, taskErr error, runLog []byte) {
	if s.opts.Mailer == nil || s.opts.Admin == "" {
		return
	}

	msg := mail.Message{
		To:      []string{s.opts.Admin},
		Subject: fmt.Sprintf("Scheduled task %s failed", name),
		Body: fmt.Sprintf("The scheduled task %s failed with the error:\n\n%s\n\nThe execution log is attached.\n",
			name, taskErr),
		Attachments: []mail.Attachment{{Filename: name + "-" + runID + ".log", Content: runLog}},
	}

	if err := s.opts.Mailer.Send(context.WithoutCancel(ctx), msg); err != nil {
		log.Warn().Err(err).Str("task", name).Msg("sending task failure report failed")
	}
}
