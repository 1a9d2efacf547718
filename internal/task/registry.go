package task

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

// Entry is a task listed in the registry together with its schedule.
type Entry struct {
	// Name identifies the task; it is the last segment of the registered class.
	Name        string
	Class       string
	Description string
	// Frequency is a five field cron expression.
	Frequency string
	Args      []string

	expr *cronexpr.Expression
}

// Next returns the first time the entry is due after t. The zero time means never.
func (e Entry) Next(t time.Time) time.Time {
	return e.expr.Next(t)
}

type xmlRegistry struct {
	XMLName xml.Name  `xml:"scheduled_tasks"`
	Tasks   []xmlTask `xml:"task"`
}

type xmlTask struct {
	Class     string       `xml:"class,attr"`
	Descr     string       `xml:"descr"`
	Frequency xmlFrequency `xml:"frequency"`
	Args      []string     `xml:"arg"`
}

type xmlFrequency struct {
	Cron      string `xml:"cron,attr"`
	Minute    string `xml:"minute,attr"`
	Hour      string `xml:"hour,attr"`
	Day       string `xml:"day,attr"`
	Month     string `xml:"month,attr"`
	DayOfWeek string `xml:"dayofweek,attr"`
}

// expression turns the frequency attributes into a cron expression. Unset fields finer
// than the coarsest set one are pinned to their first value so the task runs once per
// period; without any attribute the task runs on every tick.
func (f xmlFrequency) expression() string {
	if f.Cron != "" {
		return f.Cron
	}

	fields := []string{f.Minute, f.Hour, f.Day, f.Month, f.DayOfWeek}
	firsts := []string{"0", "0", "1", "*", "*"}

	coarsest := -1

	for i, v := range fields {
		if v != "" {
			coarsest = i
		}
	}

	for i, v := range fields {
		if v != "" {
			continue
		}

		switch {
		case i < coarsest && !(i == 2 && coarsest == 4):
			fields[i] = firsts[i]
		default:
			fields[i] = "*"
		}
	}

	return strings.Join(fields, " ")
}

// LoadRegistry reads the scheduled task registry file.
func LoadRegistry(path string) ([]Entry, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	return ParseRegistry(f)
}

// ParseRegistry reads a scheduledTasks.xml document.
func ParseRegistry(r io.Reader) ([]Entry, error) {
	var doc xmlRegistry
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse task registry: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Tasks))
	seen := map[string]bool{}

	for _, t := range doc.Tasks {
		if t.Class == "" {
			return nil, fmt.Errorf("task without class: %w", ErrInvalidRegistry)
		}

		name := className(t.Class)
		if seen[name] {
			return nil, fmt.Errorf("task %s listed twice: %w", name, ErrInvalidRegistry)
		}

		seen[name] = true

		freq := t.Frequency.expression()

		expr, err := cronexpr.Parse(freq)
		if err != nil {
			return nil, fmt.Errorf("task %s frequency %q: %w", name, freq, err)
		}

		entries = append(entries, Entry{
			Name:        name,
			Class:       t.Class,
			Description: strings.TrimSpace(t.Descr),
			Frequency:   freq,
			Args:        t.Args,
			expr:        expr,
		})
	}

	return entries, nil
}

func className(class string) string {
	if i := strings.LastIndexAny(class, `.\`); i >= 0 {
		return class[i+1:]
	}

	return class
}
