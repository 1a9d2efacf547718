// Package searchapi serves submission search.
package searchapi

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/publication"
	"github.com/pkp/pkplib/internal/search"
	"github.com/pkp/pkplib/internal/web/handler"
)

// Path is the path of the search endpoint.
const Path = handler.APIPrefix + "/search"

// Item is one hit with the latest publication of the submission.
type Item struct {
	SubmissionID uint64                 `json:"submissionId"`
	Score        float64                `json:"score"`
	Publication  *dataobject.DataObject `json:"publication,omitempty"`
}

// Response is one page of search results.
type Response struct {
	ItemsMax int64  `json:"itemsMax"`
	Page     int    `json:"page"`
	PerPage  int    `json:"perPage"`
	Items    []Item `json:"items"`
}

// Service is the search handler service.
type Service struct {
	handler.Service
	engine       search.Engine
	publications *publication.Repository
}

// Handler is the search handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the search route.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Search == nil || deps.Publications == nil {
		return handler.ErrNilDeps
	}

	s.engine = deps.Search
	s.publications = deps.Publications

	app.Get(Path, s.Search)

	return nil
}

// Search runs the query of the request. The query parameter is matched against every
// field, a parameter named after a field (title, authors, ...) against that field only.
func (s *Service) Search(c fiber.Ctx) error {
	q, err := query(c)
	if err != nil {
		return err
	}

	res, err := s.engine.Search(c.Context(), q)
	if err != nil {
		return err
	}

	pubs, err := s.publications.GetBySubmissions(c.Context(), res.IDs())
	if err != nil {
		return err
	}

	bySubmission := make(map[uint64]*dataobject.DataObject, len(pubs))
	for _, p := range pubs {
		id, _ := dataobject.ToUint64(p.Get("submissionId"))
		bySubmission[id] = p
	}

	out := Response{ItemsMax: res.Total, Page: res.Page, PerPage: res.PerPage, Items: make([]Item, len(res.Hits))}
	for i, h := range res.Hits {
		out.Items[i] = Item{SubmissionID: h.ID, Score: h.Score, Publication: bySubmission[h.ID]}
	}

	return c.JSON(out)
}

func query(c fiber.Ctx) (search.Query, error) {
	q := search.Query{
		Text:      c.Query("query"),
		Keywords:  map[search.Field]string{},
		Page:      fiber.Query[int](c, "page"),
		PerPage:   min(fiber.Query[int](c, "perPage"), handler.MaxPerPage),
		OrderBy:   c.Query("orderBy"),
		Ascending: fiber.Query[bool](c, "ascending"),
	}

	for _, f := range search.Fields {
		if v := c.Query(f.String()); v != "" {
			q.Keywords[f] = v
		}
	}

	if v := c.Query("contextId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "invalid contextId")
		}

		q.ContextID = id
	}

	var err error

	if q.PublishedFrom, err = date(c, "dateFrom"); err != nil {
		return q, err
	}

	if q.PublishedTo, err = date(c, "dateTo"); err != nil {
		return q, err
	}

	return q, nil
}

func date(c fiber.Ctx, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil //nolint:nilnil
	}

	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}

	return &t, nil
}
