// Package pages renders the html navigation menus and custom pages of a context.
package pages

import (
	"errors"
	"slices"

	"github.com/gofiber/fiber/v3"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/journal"
	"github.com/pkp/pkplib/internal/navigation"
	"github.com/pkp/pkplib/internal/web/handler"
	"github.com/pkp/pkplib/internal/web/page"
)

const (
	// SitePath is the context path of pages outside any context.
	SitePath = "index"

	// MenuTemplate renders the links of one menu.
	MenuTemplate = "navigation/menu"
	// CustomTemplate renders a custom page.
	CustomTemplate = "pages/custom"

	primaryArea = "primary"
)

// Service is the html pages handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	journals *journal.Repository
	nav      *navigation.Service
}

// Handler is the html pages handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the page routes. They match any context path, so Init must run after
// every other handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Cfg == nil || deps.Journals == nil || deps.Navigation == nil {
		return handler.ErrNilDeps
	}

	s.cfg = deps.Cfg
	s.journals = deps.Journals
	s.nav = deps.Navigation

	app.Get("/:contextPath/navigation/:area", s.Menu)
	app.Get("/:contextPath/:path", s.Custom)

	return nil
}

// Menu renders the menu placed in the area as a html fragment. The locale query
// parameter selects the language.
func (s *Service) Menu(c fiber.Ctx) error {
	v, contextID, err := s.viewer(c)
	if err != nil {
		return err
	}

	area := c.Params("area")

	links, err := s.nav.MenuLinks(c.Context(), contextID, area, v)
	if err != nil {
		return err
	}

	return c.Render(MenuTemplate, fiber.Map{
		"Area":  area,
		"Links": links,
	})
}

// Custom renders the custom page item with the path, framed by the primary menu.
func (s *Service) Custom(c fiber.Ctx) error {
	v, contextID, err := s.viewer(c)
	if err != nil {
		return err
	}

	item, err := s.nav.CustomPage(c.Context(), contextID, c.Params("path"))
	if err != nil {
		return err
	}

	primary := s.primaryLocale(v)
	title := item.GetLocalizedString("title", v.Locale, primary)

	links, err := s.nav.MenuLinks(c.Context(), contextID, primaryArea, v)
	if err != nil && !errors.Is(err, navigation.ErrMenuNotFound) {
		return err
	}

	home := "Home"
	if v.Context != nil {
		if name := v.Context.GetLocalizedString("name", v.Locale, primary); name != "" {
			home = name
		}
	}

	pg := page.NewContext(title, c.Path(), v.Locale).
		AddBreadcrumb(home, "/"+v.ContextPath).
		AddBreadcrumb(title, c.Path())

	return c.Render(CustomTemplate, fiber.Map{
		"Page":    pg,
		"Links":   links,
		"Title":   title,
		"Content": item.GetLocalizedString("content", v.Locale, primary),
	}, handler.BaseLayout)
}

// viewer describes the anonymous reader of the request and returns the id of the
// context the page belongs to; 0 for site pages.
func (s *Service) viewer(c fiber.Ctx) (navigation.Viewer, uint64, error) {
	v := navigation.Viewer{ContextPath: c.Params("contextPath")}
	locale := c.Query("locale")

	if v.ContextPath == SitePath {
		v.Locale = s.cfg.Locale.Primary
		if slices.Contains(s.cfg.Locale.Supported, locale) {
			v.Locale = locale
		}

		return v, 0, nil
	}

	j, err := s.journals.GetByPath(c.Context(), v.ContextPath)
	if err != nil {
		return v, 0, err
	}

	v.Context = j
	v.Locale = s.primaryLocale(v)

	if slices.Contains(journal.Locales(j), locale) {
		v.Locale = locale
	}

	return v, j.ID(), nil
}

func (s *Service) primaryLocale(v navigation.Viewer) string {
	if v.Context != nil {
		if l := v.Context.GetString("primaryLocale"); l != "" {
			return l
		}
	}

	return s.cfg.Locale.Primary
}
