// Package publications serves the publication collection.
package publications

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/publication"
	"github.com/pkp/pkplib/internal/web/handler"
)

const (
	// Path is the path of the publications endpoint.
	Path = handler.APIPrefix + "/publications"

	defaultPerPage = 20
)

// Service is the publications handler service.
type Service struct {
	handler.Service
	publications *publication.Repository
}

// Handler is the publications handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the publication routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Publications == nil {
		return handler.ErrNilDeps
	}

	s.publications = deps.Publications

	router := app.Group(Path)
	router.Get(handler.RootPath, s.List)
	router.Post(handler.RootPath, s.Add)
	router.Get("/:id", s.Get)
	router.Put("/:id", s.Edit)
	router.Delete("/:id", s.Delete)

	return nil
}

// List returns one page of publications. The query parameters contextId, submissionId,
// status (comma separated) and searchPhrase narrow the list.
func (s *Service) List(c fiber.Ctx) error {
	f, err := filter(c)
	if err != nil {
		return err
	}

	objs, total, err := s.publications.GetMany(c.Context(), f, handler.Paging(c, defaultPerPage))
	if err != nil {
		return err
	}

	if objs == nil {
		objs = []*dataobject.DataObject{}
	}

	return c.JSON(handler.ListResponse[*dataobject.DataObject]{ItemsMax: total, Items: objs})
}

// Get returns a publication.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.ID(c, "id")
	if err != nil {
		return err
	}

	obj, err := s.publications.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(obj)
}

// Add creates a publication.
func (s *Service) Add(c fiber.Ctx) error {
	props, err := handler.Props(c)
	if err != nil {
		return err
	}

	obj, verrs, err := s.publications.Add(c.Context(), props)
	if len(verrs) > 0 {
		return handler.Invalid(c, verrs)
	}

	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(obj)
}

// Edit merges the body into a publication.
func (s *Service) Edit(c fiber.Ctx) error {
	id, err := handler.ID(c, "id")
	if err != nil {
		return err
	}

	props, err := handler.Props(c)
	if err != nil {
		return err
	}

	obj, verrs, err := s.publications.Edit(c.Context(), id, props)
	if len(verrs) > 0 {
		return handler.Invalid(c, verrs)
	}

	if err != nil {
		return err
	}

	return c.JSON(obj)
}

// Delete removes a publication.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.ID(c, "id")
	if err != nil {
		return err
	}

	if err = s.publications.Delete(c.Context(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func filter(c fiber.Ctx) (publication.Filter, error) {
	var (
		f   publication.Filter
		err error
	)

	if f.ContextID, err = handler.QueryID(c, "contextId"); err != nil {
		return f, err
	}

	if f.SubmissionID, err = handler.QueryID(c, "submissionId"); err != nil {
		return f, err
	}

	if status := c.Query("status"); status != "" {
		for _, v := range strings.Split(status, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return f, fiber.NewError(fiber.StatusBadRequest, "invalid status")
			}

			f.Status = append(f.Status, n)
		}
	}

	f.SearchPhrase = c.Query("searchPhrase")

	return f, nil
}
