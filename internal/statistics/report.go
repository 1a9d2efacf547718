// Package statistics reads the aggregated usage metrics and reports them to the
// managers of each context.
package statistics

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/journal"
	"github.com/pkp/pkplib/internal/mail"
	"github.com/pkp/pkplib/internal/task"
)

// Totals sums the metrics of a context over a period.
type Totals struct {
	ContextViews  int64 `json:"contextViews"`
	AbstractViews int64 `json:"abstractViews"`
	FileDownloads int64 `json:"fileDownloads"`
}

// Period returns the calendar month before now: [from, to).
func Period(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	return to.AddDate(0, -1, 0), to
}

// Sum returns the totals of a context for [from, to).
func Sum(ctx context.Context, db *gorm.DB, contextID uint64, from, to time.Time) (Totals, error) {
	var t Totals

	db = db.WithContext(ctx)

	if err := db.Model(&models.MetricsContext{}).
		Where("context_id = ? AND date >= ? AND date < ?", contextID, from, to).
		Select("COALESCE(SUM(metric), 0)").
		Scan(&t.ContextViews).Error; err != nil {
		return t, err
	}

	var rows []struct {
		AssocType int
		Total     int64
	}

	if err := db.Model(&models.MetricsSubmission{}).
		Where("context_id = ? AND date >= ? AND date < ?", contextID, from, to).
		Select("assoc_type, SUM(metric) AS total").
		Group("assoc_type").
		Scan(&rows).Error; err != nil {
		return t, err
	}

	for _, r := range rows {
		switch r.AssocType {
		case models.AssocTypeSubmission:
			t.AbstractViews = r.Total
		case models.AssocTypeSubmissionFile:
			t.FileDownloads = r.Total
		}
	}

	return t, nil
}

// Report mails last month's totals to the managers of every enabled context. Task
// arguments are added as recipients of every report.
type Report struct {
	DB       *gorm.DB
	Journals *journal.Repository
	Mailer   mail.Sender
	Clock    func() time.Time
}

// Name implements task.ScheduledTask.
func (r *Report) Name() string {
	return "StatisticsReport"
}

// Execute implements task.ScheduledTask.
func (r *Report) Execute(ctx context.Context) error {
	runLog := zerolog.Ctx(ctx)

	now := time.Now
	if r.Clock != nil {
		now = r.Clock
	}

	from, to := Period(now())

	enabled := true

	journals, _, err := r.Journals.GetMany(ctx, journal.Filter{Enabled: &enabled}, dao.Paging{})
	if err != nil {
		return err
	}

	for _, j := range journals {
		recipients := Recipients(j, task.Args(ctx))
		if len(recipients) == 0 {
			runLog.Warn().Msgf("No managers to report to for %s.", j.GetString("urlPath"))

			continue
		}

		totals, err := Sum(ctx, r.DB, j.ID(), from, to)
		if err != nil {
			return err
		}

		name := j.GetLocalizedString("name", j.GetString("primaryLocale"))

		if err := r.Mailer.Send(ctx, mail.Message{
			To:      recipients,
			Subject: fmt.Sprintf("%s: usage statistics for %s", name, from.Format("January 2006")),
			Body:    body(name, from, totals),
		}); err != nil {
			return fmt.Errorf("mail report for %s: %w", j.GetString("urlPath"), err)
		}

		runLog.Info().Msgf("Statistics report for %s sent to %d recipients.", j.GetString("urlPath"), len(recipients))
	}

	return nil
}

// Recipients returns the manager addresses of a context together with extra, sorted and
// without duplicates.
func Recipients(j *dataobject.DataObject, extra []string) []string {
	var out []string

	if managers, ok := j.Get("managerEmails").([]any); ok {
		for _, m := range managers {
			if s, ok := m.(string); ok && s != "" {
				out = append(out, strings.ToLower(s))
			}
		}
	}

	for _, s := range extra {
		if s != "" {
			out = append(out, strings.ToLower(s))
		}
	}

	slices.Sort(out)

	return slices.Compact(out)
}

func body(name string, month time.Time, t Totals) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Usage statistics of %s for %s\n\n", name, month.Format("January 2006"))
	fmt.Fprintf(&b, "Journal index page views: %d\n", t.ContextViews)
	fmt.Fprintf(&b, "Abstract views:           %d\n", t.AbstractViews)
	fmt.Fprintf(&b, "File downloads:           %d\n", t.FileDownloads)

	return b.String()
}
