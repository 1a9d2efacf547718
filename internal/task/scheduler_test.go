package task_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/db/dbtest"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/mail"
	"github.com/pkp/pkplib/internal/task"
)

const registry = `<scheduled_tasks>
	<task class="pkp.task.Hourly"><frequency hour="*"/></task>
	<task class="pkp.task.Monthly"><frequency day="1"/><arg>editor@example.com</arg></task>
	<task class="pkp.task.Unimplemented"/>
</scheduled_tasks>`

type fakeTask struct {
	name  string
	err   error
	runs  int
	args  []string
	panic bool
}

func (f *fakeTask) Name() string { return f.name }

func (f *fakeTask) Execute(ctx context.Context) error {
	f.runs++
	f.args = task.Args(ctx)

	zerolog.Ctx(ctx).Info().Msg("working on it")

	if f.panic {
		panic("out of cheese")
	}

	if f.err != nil {
		zerolog.Ctx(ctx).Warn().Msg("almost done")
	}

	return f.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setup(t *testing.T, opts task.Options) (*task.Scheduler, *gorm.DB, *fakeTask, *fakeTask) {
	t.Helper()

	entries, err := task.ParseRegistry(strings.NewReader(registry))
	require.NoError(t, err)

	db := dbtest.Open(t)
	s := task.NewScheduler(db, entries, opts)

	hourly := &fakeTask{name: "Hourly"}
	monthly := &fakeTask{name: "Monthly"}
	s.Register(hourly, monthly)

	return s, db, hourly, monthly
}

func names(entries []task.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}

	return out
}

func TestScheduler_DueTasks(t *testing.T) {
	c := &clock{now: time.Date(2026, 5, 10, 12, 30, 0, 0, time.UTC)}
	s, _, hourly, monthly := setup(t, task.Options{Clock: c.Now})
	ctx := context.Background()

	due, err := s.DueTasks(ctx, c.now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hourly", "Monthly"}, names(due))

	n, err := s.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"editor@example.com"}, monthly.args)

	testCases := []struct {
		name string
		now  time.Time
		want []string
	}{
		{name: "same hour", now: time.Date(2026, 5, 10, 12, 59, 0, 0, time.UTC), want: nil},
		{name: "next hour", now: time.Date(2026, 5, 10, 13, 0, 0, 0, time.UTC), want: []string{"Hourly"}},
		{name: "next month", now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), want: []string{"Hourly", "Monthly"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			due, err := s.DueTasks(ctx, tc.now)
			require.NoError(t, err)

			if tc.want == nil {
				assert.Empty(t, due)

				return
			}

			assert.Equal(t, tc.want, names(due))
		})
	}

	assert.Equal(t, 1, hourly.runs)
}

func TestScheduler_Failure(t *testing.T) {
	dir := t.TempDir()
	mailer := &mail.Memory{}
	c := &clock{now: time.Date(2026, 5, 10, 12, 30, 0, 0, time.UTC)}

	s, _, hourly, _ := setup(t, task.Options{LogPath: dir, Mailer: mailer, Admin: "admin@example.com", Clock: c.Now})
	hourly.err = errors.New("agency unreachable")

	err := s.RunOne(context.Background(), "Hourly")
	require.ErrorIs(t, err, hourly.err)

	// last run advances on failure too
	last, err := s.LastRuns(context.Background())
	require.NoError(t, err)
	assert.True(t, last["Hourly"].Equal(c.now))

	files, err := filepath.Glob(filepath.Join(dir, "Hourly-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "[Notice] Task process started.")
	assert.Contains(t, lines[2], "[Warning] almost done")
	assert.Contains(t, lines[3], "[Error] agency unreachable")
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[Notice\] Task process stopped\.$`, lines[4])

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"admin@example.com"}, sent[0].To)
	assert.Equal(t, "Scheduled task Hourly failed", sent[0].Subject)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, content, sent[0].Attachments[0].Content)
}

func TestScheduler_RunOne(t *testing.T) {
	s, db, _, monthly := setup(t, task.Options{})
	ctx := context.Background()

	require.ErrorIs(t, s.RunOne(ctx, "Unimplemented"), task.ErrUnknownTask)

	monthly.panic = true
	require.Error(t, s.RunOne(ctx, "Monthly"))

	require.NoError(t, s.Sync(ctx))

	var rows []models.ScheduledTask
	require.NoError(t, db.Order("class_name").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.NotNil(t, rows[1].LastRun)
	assert.Nil(t, rows[2].LastRun)
}

func TestScheduler_Loop(t *testing.T) {
	s, _, hourly, monthly := setup(t, task.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s.Loop(ctx, 20*time.Millisecond)

	assert.Equal(t, 1, hourly.runs)
	assert.Equal(t, 1, monthly.runs)
}
