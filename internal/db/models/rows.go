package models

import (
	"time"

	"github.com/pkp/pkplib/internal/dataobject"
)

const dateLayout = "2006-01-02"

// JournalColumns maps context props to journals columns.
var JournalColumns = map[string]string{ //nolint:gochecknoglobals
	"urlPath":       "path",
	"seq":           "seq",
	"primaryLocale": "primary_locale",
	"enabled":       "enabled",
}

// PublicationColumns maps publication props to publications columns.
var PublicationColumns = map[string]string{ //nolint:gochecknoglobals
	"submissionId":     "submission_id",
	"contextId":        "context_id",
	"status":           "status",
	"datePublished":    "date_published",
	"lastModified":     "last_modified",
	"primaryContactId": "primary_contact_id",
	"seq":              "seq",
	"version":          "version",
	"urlPath":          "url_path",
	"doiId":            "doi_id",
}

// NavigationMenuItemColumns maps navigation menu item props to navigation_menu_items columns.
var NavigationMenuItemColumns = map[string]string{ //nolint:gochecknoglobals
	"contextId": "context_id",
	"path":      "path",
	"type":      "type",
}

// GetID returns the primary key.
func (j *Journal) GetID() uint64 { return j.ID }

// SetID sets the primary key.
func (j *Journal) SetID(id uint64) { j.ID = id }

// ToData copies the columns into obj.
func (j *Journal) ToData(obj *dataobject.DataObject) {
	obj.Set("urlPath", j.Path)
	obj.Set("seq", j.Seq)
	obj.Set("primaryLocale", j.PrimaryLocale)
	obj.Set("enabled", j.Enabled)
}

// FromData copies the columns from obj.
func (j *Journal) FromData(obj *dataobject.DataObject) {
	j.ID = obj.ID()
	j.Path = obj.GetString("urlPath")
	j.Seq = toFloat(obj.Get("seq"))
	j.PrimaryLocale = obj.GetString("primaryLocale")
	j.Enabled = !obj.Has("enabled") || obj.GetBool("enabled")
}

// GetID returns the primary key.
func (p *Publication) GetID() uint64 { return p.ID }

// SetID sets the primary key.
func (p *Publication) SetID(id uint64) { p.ID = id }

// ToData copies the columns into obj.
func (p *Publication) ToData(obj *dataobject.DataObject) {
	obj.Set("submissionId", int64(p.SubmissionID)) //nolint:gosec
	obj.Set("contextId", int64(p.ContextID))       //nolint:gosec
	obj.Set("status", int64(p.Status))
	obj.Set("seq", p.Seq)
	obj.Set("version", int64(p.Version))
	obj.Set("urlPath", nilIfEmpty(p.URLPath))

	if p.DatePublished != nil {
		obj.Set("datePublished", p.DatePublished.Format(dateLayout))
	} else {
		obj.Set("datePublished", nil)
	}

	if p.LastModified != nil {
		obj.Set("lastModified", p.LastModified.UTC().Format(time.RFC3339))
	}

	obj.Set("primaryContactId", optionalID(p.PrimaryContactID))
	obj.Set("doiId", optionalID(p.DoiID))
}

// FromData copies the columns from obj.
func (p *Publication) FromData(obj *dataobject.DataObject) {
	p.ID = obj.ID()
	p.SubmissionID, _ = dataobject.ToUint64(obj.Get("submissionId"))
	p.ContextID, _ = dataobject.ToUint64(obj.Get("contextId"))
	p.Status = int(obj.GetInt("status"))
	p.Seq = toFloat(obj.Get("seq"))

	p.Version = int(obj.GetInt("version"))
	if p.Version == 0 {
		p.Version = 1
	}

	p.URLPath = obj.GetString("urlPath")
	p.DatePublished = parseTime(obj.GetString("datePublished"), dateLayout)
	p.LastModified = parseTime(obj.GetString("lastModified"), time.RFC3339)
	p.PrimaryContactID = toOptionalID(obj.Get("primaryContactId"))
	p.DoiID = toOptionalID(obj.Get("doiId"))
}

// GetID returns the primary key.
func (n *NavigationMenuItem) GetID() uint64 { return n.ID }

// SetID sets the primary key.
func (n *NavigationMenuItem) SetID(id uint64) { n.ID = id }

// ToData copies the columns into obj.
func (n *NavigationMenuItem) ToData(obj *dataobject.DataObject) {
	obj.Set("contextId", int64(n.ContextID)) //nolint:gosec
	obj.Set("path", nilIfEmpty(n.Path))
	obj.Set("type", n.Type)
}

// FromData copies the columns from obj.
func (n *NavigationMenuItem) FromData(obj *dataobject.DataObject) {
	n.ID = obj.ID()
	n.ContextID, _ = dataobject.ToUint64(obj.Get("contextId"))
	n.Path = obj.GetString("path")
	n.Type = obj.GetString("type")
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	default:
		i, _ := dataobject.ToInt64(v)
		return float64(i)
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func optionalID(id *uint64) any {
	if id == nil {
		return nil
	}

	return int64(*id) //nolint:gosec
}

func toOptionalID(v any) *uint64 {
	id, ok := dataobject.ToUint64(v)
	if !ok || id == 0 {
		return nil
	}

	return &id
}

func parseTime(s, layout string) *time.Time {
	if s == "" {
		return nil
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}

	return &t
}
