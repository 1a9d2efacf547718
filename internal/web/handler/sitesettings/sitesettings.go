// Package sitesettings serves the installation wide settings.
package sitesettings

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pkp/pkplib/internal/site"
	"github.com/pkp/pkplib/internal/web/handler"
)

// Path is the path of the site settings endpoint.
const Path = handler.APIPrefix + "/site/settings"

// Service is the site settings handler service.
type Service struct {
	handler.Service
	site *site.Service
}

// Handler is the site settings handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the site settings routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Site == nil {
		return handler.ErrNilDeps
	}

	s.site = deps.Site

	router := app.Group(Path)
	router.Get(handler.RootPath, s.Get)
	router.Put(handler.RootPath, s.Put)

	return nil
}

// Get returns every site setting.
func (s *Service) Get(c fiber.Ctx) error {
	obj, err := s.site.Get(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(obj)
}

// Put stores the settings of the body and returns the updated settings.
func (s *Service) Put(c fiber.Ctx) error {
	props, err := handler.Props(c)
	if err != nil {
		return err
	}

	verrs, err := s.site.Edit(c.Context(), props)
	if len(verrs) > 0 {
		return handler.Invalid(c, verrs)
	}

	if err != nil {
		return err
	}

	return s.Get(c)
}
