package doi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/controller/doiagency"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/journal"
	"github.com/pkp/pkplib/internal/publication"
)

// ErrDepositFailed is returned when the deposit of at least one context failed.
var ErrDepositFailed = errors.New("doi deposit failed")

// DepositTask deposits the submitted and stale DOIs of every context with automatic
// deposit enabled.
type DepositTask struct {
	Dois         *Repository
	Journals     *journal.Repository
	Publications *publication.Repository
	// DB holds the stored agency settings; Defaults apply when none are stored.
	DB       *gorm.DB
	Defaults doiagency.Settings
	// BaseURL prefixes the landing page urls sent to the agency.
	BaseURL string
	HTTP    *http.Client
}

// Name implements task.ScheduledTask.
func (t *DepositTask) Name() string {
	return "DepositDois"
}

// Execute implements task.ScheduledTask.
func (t *DepositTask) Execute(ctx context.Context) error {
	runLog := zerolog.Ctx(ctx)

	settings, err := doiagency.LoadOrDefault(t.DB.WithContext(ctx), t.Defaults)
	if err != nil {
		return fmt.Errorf("load agency settings: %w", err)
	}

	if settings.AgencyURL == "" {
		runLog.Warn().Msg("No registration agency is configured, DOIs were not deposited.")

		return nil
	}

	client := NewClient(settings, t.HTTP)

	enabled := true

	journals, _, err := t.Journals.GetMany(ctx, journal.Filter{Enabled: &enabled}, dao.Paging{})
	if err != nil {
		return err
	}

	var failed []string

	for _, j := range journals {
		if !j.GetBool("enableDois") || !j.GetBool("automaticDoiDeposit") {
			continue
		}

		if err := t.depositContext(ctx, client, j); err != nil {
			runLog.Error().Msgf("Deposit for %s failed: %s", j.GetString("urlPath"), err)

			failed = append(failed, j.GetString("urlPath"))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w for %s", ErrDepositFailed, strings.Join(failed, ", "))
	}

	return nil
}

func (t *DepositTask) depositContext(ctx context.Context, client *Client, j *dataobject.DataObject) error {
	runLog := zerolog.Ctx(ctx)
	path := j.GetString("urlPath")

	dois, err := t.Dois.ByStatus(ctx, j.ID(), models.DoiStatusSubmitted, models.DoiStatusStale)
	if err != nil {
		return err
	}

	if len(dois) == 0 {
		runLog.Info().Msgf("No DOIs to deposit for %s.", path)

		return nil
	}

	ids := make([]uint64, len(dois))
	for i, d := range dois {
		ids[i] = d.ID
	}

	pubs, _, err := t.Publications.GetMany(ctx, publication.Filter{
		ContextID: j.ID(),
		Status:    []int{models.StatusPublished},
		DoiIDs:    ids,
	}, dao.Paging{})
	if err != nil {
		return err
	}

	byDoi := make(map[uint64]*dataobject.DataObject, len(pubs))

	for _, p := range pubs {
		if id, ok := dataobject.ToUint64(p.Get("doiId")); ok {
			byDoi[id] = p
		}
	}

	primary := j.GetString("primaryLocale")
	items := make([]Item, 0, len(dois))
	pending := make(map[string]models.Doi, len(dois))

	for _, d := range dois {
		p, ok := byDoi[d.ID]
		if !ok {
			runLog.Warn().Msgf("DOI %s does not identify a published item and was not deposited.", d.Doi)

			if err := t.Dois.SetStatus(ctx, d.ID, models.DoiStatusError, "", "not assigned to a published item"); err != nil {
				return err
			}

			continue
		}

		items = append(items, Item{
			Doi:           d.Doi,
			URL:           t.landingPage(path, p),
			Title:         p.GetLocalizedString("title", primary),
			DatePublished: p.GetString("datePublished"),
			Authors:       publication.AuthorNames(p),
		})
		pending[strings.ToLower(d.Doi)] = d
	}

	if len(items) == 0 {
		return nil
	}

	results, err := client.Deposit(ctx, items)
	if err != nil {
		for _, d := range pending {
			if serr := t.Dois.SetStatus(ctx, d.ID, models.DoiStatusError, client.Agency(), err.Error()); serr != nil {
				return errors.Join(err, serr)
			}
		}

		return err
	}

	registered := 0

	for _, r := range results {
		d, ok := pending[strings.ToLower(r.Doi)]
		if !ok {
			continue
		}

		delete(pending, strings.ToLower(r.Doi))

		status := models.DoiStatusError
		if r.Registered() {
			status = models.DoiStatusRegistered
			registered++
		} else {
			runLog.Warn().Msgf("DOI %s was not registered: %s", d.Doi, r.Message)
		}

		if err := t.Dois.SetStatus(ctx, d.ID, status, client.Agency(), r.Message); err != nil {
			return err
		}
	}

	// DOIs the agency did not answer for stay queued for the next run
	runLog.Info().Msgf("%d of %d DOIs registered for %s.", registered, len(items), path)

	return nil
}

func (t *DepositTask) landingPage(contextPath string, p *dataobject.DataObject) string {
	id, _ := dataobject.ToUint64(p.Get("submissionId"))

	return strings.TrimRight(t.BaseURL, "/") + "/" + contextPath + "/article/view/" + strconv.FormatUint(id, 10)
}
