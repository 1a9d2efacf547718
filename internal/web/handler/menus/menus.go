// Package menus serves the navigation menus and menu items of a context.
package menus

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/navigation"
	"github.com/pkp/pkplib/internal/web/handler"
)

// Path is the route prefix of the context scoped navigation endpoints.
const Path = handler.APIPrefix + "/contexts/:contextId"

// Menu is the api form of a navigation menu.
type Menu struct {
	ID        uint64 `json:"id"`
	ContextID uint64 `json:"contextId"`
	Title     string `json:"title"`
	AreaName  string `json:"areaName"`
	// Tree is only set when a single menu is requested.
	Tree []*navigation.TreeItem `json:"tree,omitempty"`
}

type menuBody struct {
	Title    string `json:"title"`
	AreaName string `json:"areaName"`
}

func toMenu(m *models.NavigationMenu) Menu {
	return Menu{ID: m.ID, ContextID: m.ContextID, Title: m.Title, AreaName: m.AreaName}
}

// Service is the navigation menus handler service.
type Service struct {
	handler.Service
	nav *navigation.Service
}

// Handler is the navigation menus handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the menu and item routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Navigation == nil {
		return handler.ErrNilDeps
	}

	s.nav = deps.Navigation

	router := app.Group(Path)

	router.Get("/navigationMenus", s.ListMenus)
	router.Post("/navigationMenus", s.CreateMenu)
	router.Get("/navigationMenus/:menuId", s.GetMenu)
	router.Put("/navigationMenus/:menuId", s.UpdateMenu)
	router.Delete("/navigationMenus/:menuId", s.DeleteMenu)
	router.Put("/navigationMenus/:menuId/tree", s.AssignTree)

	router.Get("/navigationMenuItems", s.ListItems)
	router.Post("/navigationMenuItems", s.AddItem)
	router.Get("/navigationMenuItems/:itemId", s.GetItem)
	router.Put("/navigationMenuItems/:itemId", s.EditItem)
	router.Delete("/navigationMenuItems/:itemId", s.DeleteItem)

	return nil
}

// ListMenus returns the menus of the context.
func (s *Service) ListMenus(c fiber.Ctx) error {
	contextID, err := handler.ID(c, "contextId")
	if err != nil {
		return err
	}

	ms, err := s.nav.Menus(c.Context(), contextID)
	if err != nil {
		return err
	}

	out := make([]Menu, len(ms))
	for i := range ms {
		out[i] = toMenu(&ms[i])
	}

	return c.JSON(handler.ListResponse[Menu]{ItemsMax: int64(len(out)), Items: out})
}

// CreateMenu adds a menu to the context.
func (s *Service) CreateMenu(c fiber.Ctx) error {
	contextID, err := handler.ID(c, "contextId")
	if err != nil {
		return err
	}

	var body menuBody
	if err = c.Bind().JSON(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json body")
	}

	m := &models.NavigationMenu{ContextID: contextID, Title: body.Title, AreaName: body.AreaName}
	if err = s.nav.CreateMenu(c.Context(), m); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toMenu(m))
}

// GetMenu returns a menu with its assignment tree.
func (s *Service) GetMenu(c fiber.Ctx) error {
	m, err := s.menu(c)
	if err != nil {
		return err
	}

	tree, err := s.nav.Tree(c.Context(), m.ID)
	if err != nil {
		return err
	}

	out := toMenu(m)
	out.Tree = tree

	return c.JSON(out)
}

// UpdateMenu changes the title and area of a menu.
func (s *Service) UpdateMenu(c fiber.Ctx) error {
	m, err := s.menu(c)
	if err != nil {
		return err
	}

	body := menuBody{Title: m.Title, AreaName: m.AreaName}
	if err = c.Bind().JSON(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json body")
	}

	m.Title = body.Title
	m.AreaName = body.AreaName

	if err = s.nav.UpdateMenu(c.Context(), m); err != nil {
		return err
	}

	return c.JSON(toMenu(m))
}

// DeleteMenu removes a menu.
func (s *Service) DeleteMenu(c fiber.Ctx) error {
	m, err := s.menu(c)
	if err != nil {
		return err
	}

	if err = s.nav.DeleteMenu(c.Context(), m.ID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// AssignTree replaces the assignment tree of a menu and returns the stored tree.
func (s *Service) AssignTree(c fiber.Ctx) error {
	m, err := s.menu(c)
	if err != nil {
		return err
	}

	var tree []navigation.Node
	if err = c.Bind().JSON(&tree); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json body")
	}

	if err = s.nav.Assign(c.Context(), m.ID, tree); err != nil {
		return err
	}

	return s.GetMenu(c)
}

// ListItems returns the items of the context, optionally filtered by type.
func (s *Service) ListItems(c fiber.Ctx) error {
	contextID, err := handler.ID(c, "contextId")
	if err != nil {
		return err
	}

	items, err := s.nav.ItemsOf(c.Context(), contextID, c.Query("type"))
	if err != nil {
		return err
	}

	return c.JSON(handler.ListResponse[*dataobject.DataObject]{ItemsMax: int64(len(items)), Items: items})
}

// AddItem adds an item to the context.
func (s *Service) AddItem(c fiber.Ctx) error {
	contextID, err := handler.ID(c, "contextId")
	if err != nil {
		return err
	}

	props, err := handler.Props(c)
	if err != nil {
		return err
	}

	props["contextId"] = contextID

	obj, verrs, err := s.nav.AddItem(c.Context(), props)
	if len(verrs) > 0 {
		return handler.Invalid(c, verrs)
	}

	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(obj)
}

// GetItem returns an item.
func (s *Service) GetItem(c fiber.Ctx) error {
	obj, err := s.item(c)
	if err != nil {
		return err
	}

	return c.JSON(obj)
}

// EditItem merges the body into an item.
func (s *Service) EditItem(c fiber.Ctx) error {
	obj, err := s.item(c)
	if err != nil {
		return err
	}

	props, err := handler.Props(c)
	if err != nil {
		return err
	}

	delete(props, "contextId")

	obj, verrs, err := s.nav.EditItem(c.Context(), obj.ID(), props)
	if len(verrs) > 0 {
		return handler.Invalid(c, verrs)
	}

	if err != nil {
		return err
	}

	return c.JSON(obj)
}

// DeleteItem removes an item from the context and from every menu.
func (s *Service) DeleteItem(c fiber.Ctx) error {
	obj, err := s.item(c)
	if err != nil {
		return err
	}

	if err = s.nav.DeleteItem(c.Context(), obj.ID()); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// menu loads the menu of the route and checks it belongs to the route context.
func (s *Service) menu(c fiber.Ctx) (*models.NavigationMenu, error) {
	contextID, err := handler.ID(c, "contextId")
	if err != nil {
		return nil, err
	}

	id, err := handler.ID(c, "menuId")
	if err != nil {
		return nil, err
	}

	m, err := s.nav.GetMenu(c.Context(), id)
	if err != nil {
		return nil, err
	}

	if m.ContextID != contextID {
		return nil, navigation.ErrMenuNotFound
	}

	return m, nil
}

func (s *Service) item(c fiber.Ctx) (*dataobject.DataObject, error) {
	contextID, err := handler.ID(c, "contextId")
	if err != nil {
		return nil, err
	}

	id, err := handler.ID(c, "itemId")
	if err != nil {
		return nil, err
	}

	obj, err := s.nav.GetItem(c.Context(), id)
	if err != nil {
		return nil, err
	}

	if got, _ := dataobject.ToUint64(obj.Get("contextId")); got != contextID {
		return nil, dao.ErrNotFound
	}

	return obj, nil
}
