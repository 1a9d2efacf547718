// Package usagestats loads usage event logs and aggregates them into daily metrics.
package usagestats

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/fileloader"
)

// TaskName is the registry name of the usage statistics loader.
const TaskName = "UsageStatsLoader"

// DoubleClickWindow is the time within which repeated requests of the same object from
// the same address count once.
const DoubleClickWindow = 30 * time.Second

const (
	batchSize     = 500
	maxLineLength = 1 << 20
)

var countryRegexp = regexp.MustCompile(`^[A-Z]{2}$`)

// Event is one line of a usage log file.
type Event struct {
	Time             string  `json:"time"`
	IP               string  `json:"ip"`
	UserAgent        string  `json:"userAgent"`
	ContextID        uint64  `json:"contextId"`
	SubmissionID     *uint64 `json:"submissionId"`
	RepresentationID *uint64 `json:"representationId"`
	AssocType        int     `json:"assocType"`
	FileType         int     `json:"fileType"`
	Country          string  `json:"country"`
}

// InvalidLine describes a rejected log line.
type InvalidLine struct {
	Line   int
	Reason string
}

func (e Event) record(line int, loadID string) (models.UsageStatsTemporaryRecord, error) {
	date, err := time.ParseInLocation(time.DateTime, e.Time, time.UTC)
	if err != nil {
		if date, err = time.Parse(time.RFC3339, e.Time); err != nil {
			return models.UsageStatsTemporaryRecord{}, fmt.Errorf("invalid time %q", e.Time)
		}
	}

	switch {
	case e.IP == "":
		return models.UsageStatsTemporaryRecord{}, errors.New("missing ip")
	case e.ContextID == 0:
		return models.UsageStatsTemporaryRecord{}, errors.New("missing contextId")
	case e.Country != "" && !countryRegexp.MatchString(e.Country):
		return models.UsageStatsTemporaryRecord{}, fmt.Errorf("invalid country %q", e.Country)
	}

	switch e.AssocType {
	case models.AssocTypeContext:
	case models.AssocTypeSubmission, models.AssocTypeSubmissionFile:
		if e.SubmissionID == nil || *e.SubmissionID == 0 {
			return models.UsageStatsTemporaryRecord{}, errors.New("missing submissionId")
		}
	default:
		return models.UsageStatsTemporaryRecord{}, fmt.Errorf("unknown assocType %d", e.AssocType)
	}

	return models.UsageStatsTemporaryRecord{
		Date:             date.UTC(),
		IP:               e.IP,
		UserAgent:        e.UserAgent,
		LineNumber:       line,
		ContextID:        e.ContextID,
		SubmissionID:     e.SubmissionID,
		RepresentationID: e.RepresentationID,
		AssocType:        e.AssocType,
		FileType:         e.FileType,
		Country:          e.Country,
		LoadID:           loadID,
	}, nil
}

// Parse reads JSON lines from r. Blank lines are skipped.
func Parse(r io.Reader, loadID string) ([]models.UsageStatsTemporaryRecord, []InvalidLine, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var (
		records []models.UsageStatsTemporaryRecord
		invalid []InvalidLine
	)

	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		var e Event
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			invalid = append(invalid, InvalidLine{Line: line, Reason: "not a json object"})

			continue
		}

		rec, err := e.record(line, loadID)
		if err != nil {
			invalid = append(invalid, InvalidLine{Line: line, Reason: err.Error()})

			continue
		}

		records = append(records, rec)
	}

	return records, invalid, sc.Err()
}

// Processor loads usage log files into the metrics tables.
type Processor struct {
	DB *gorm.DB
}

// NewLoader returns the usage statistics loader task working below base.
func NewLoader(db *gorm.DB, base string, compress bool) *fileloader.Loader {
	return fileloader.New(TaskName, base, &Processor{DB: db}, compress)
}

// ProcessFile implements fileloader.Processor. A file with any invalid line is
// rejected as a whole. The file name is the load id, so loading a file again replaces
// its metrics.
func (p *Processor) ProcessFile(ctx context.Context, path string) (bool, error) {
	runLog := zerolog.Ctx(ctx)
	name := filepath.Base(path)
	loadID := strings.TrimSuffix(name, ".gz")

	rc, err := fileloader.Open(path)
	if err != nil {
		return false, err
	}

	defer func() {
		_ = rc.Close()
	}()

	records, invalid, err := Parse(rc, loadID)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}

	if len(invalid) > 0 {
		for _, l := range invalid {
			runLog.Warn().Msgf("%s line %d: %s", name, l.Line, l.Reason)
		}

		return false, nil
	}

	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reset(tx, loadID); err != nil {
			return err
		}

		if len(records) > 0 {
			if err := tx.CreateInBatches(records, batchSize).Error; err != nil {
				return err
			}
		}

		if err := aggregate(tx, loadID); err != nil {
			return err
		}

		return tx.Where("load_id = ?", loadID).Delete(&models.UsageStatsTemporaryRecord{}).Error
	})
	if err != nil {
		return false, err
	}

	runLog.Info().Msgf("%d usage events loaded from %s.", len(records), name)

	return true, nil
}

func reset(tx *gorm.DB, loadID string) error {
	for _, m := range []any{&models.UsageStatsTemporaryRecord{}, &models.MetricsSubmission{}, &models.MetricsContext{}} {
		if err := tx.Where("load_id = ?", loadID).Delete(m).Error; err != nil {
			return err
		}
	}

	return nil
}

type dayKey struct {
	contextID    uint64
	submissionID uint64
	assocType    int
	date         time.Time
}

// aggregate turns the temporary records of a load into daily metrics.
func aggregate(tx *gorm.DB, loadID string) error {
	var recs []models.UsageStatsTemporaryRecord
	if err := tx.Where("load_id = ?", loadID).Find(&recs).Error; err != nil {
		return err
	}

	counts := map[dayKey]int64{}

	for _, r := range Counted(recs) {
		k := dayKey{contextID: r.ContextID, assocType: r.AssocType, date: day(r.Date)}
		if r.SubmissionID != nil {
			k.submissionID = *r.SubmissionID
		}

		counts[k]++
	}

	var (
		submissions []models.MetricsSubmission
		contexts    []models.MetricsContext
	)

	for k, n := range counts {
		if k.assocType == models.AssocTypeContext {
			contexts = append(contexts, models.MetricsContext{
				LoadID: loadID, ContextID: k.contextID, Date: k.date, Metric: n,
			})

			continue
		}

		submissions = append(submissions, models.MetricsSubmission{
			LoadID: loadID, ContextID: k.contextID, SubmissionID: k.submissionID,
			AssocType: k.assocType, Date: k.date, Metric: n,
		})
	}

	if len(submissions) > 0 {
		if err := tx.CreateInBatches(submissions, batchSize).Error; err != nil {
			return err
		}
	}

	if len(contexts) > 0 {
		return tx.CreateInBatches(contexts, batchSize).Error
	}

	return nil
}

func objectKey(r models.UsageStatsTemporaryRecord) string {
	var sub, rep uint64
	if r.SubmissionID != nil {
		sub = *r.SubmissionID
	}

	if r.RepresentationID != nil {
		rep = *r.RepresentationID
	}

	return fmt.Sprintf("%s|%d|%d|%d|%d|%d", r.IP, r.AssocType, r.ContextID, sub, rep, r.FileType)
}

// Counted drops double clicks: of several requests for the same object from the same
// address, each within DoubleClickWindow of the next, only the last counts.
func Counted(recs []models.UsageStatsTemporaryRecord) []models.UsageStatsTemporaryRecord {
	type keyed struct {
		key string
		rec models.UsageStatsTemporaryRecord
	}

	sorted := make([]keyed, len(recs))
	for i, r := range recs {
		sorted[i] = keyed{key: objectKey(r), rec: r}
	}

	slices.SortFunc(sorted, func(a, b keyed) int {
		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}

		if c := a.rec.Date.Compare(b.rec.Date); c != 0 {
			return c
		}

		return a.rec.LineNumber - b.rec.LineNumber
	})

	out := make([]models.UsageStatsTemporaryRecord, 0, len(recs))

	for i, k := range sorted {
		if i+1 < len(sorted) {
			next := sorted[i+1]
			if next.key == k.key && next.rec.Date.Sub(k.rec.Date) <= DoubleClickWindow {
				continue
			}
		}

		out = append(out, k.rec)
	}

	return out
}

func day(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
