// Package navigation manages the navigation menus of a context: the menus placed in
// theme areas, the items that can be assigned to them and the assignment tree.
package navigation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/entity"
	"github.com/pkp/pkplib/internal/schema"
)

var (
	// ErrMenuNotFound is returned when a menu does not exist.
	ErrMenuNotFound = errors.New("navigation menu not found")
	// ErrTitleEmpty is returned for a menu without title.
	ErrTitleEmpty = errors.New("navigation menu title cannot be empty")
	// ErrTitleTaken is returned when the context already has a menu with the title.
	ErrTitleTaken = errors.New("navigation menu title already in use")
	// ErrAreaTaken is returned when another menu of the context is placed in the area.
	ErrAreaTaken = errors.New("navigation menu area already in use")
	// ErrItemNotInContext is returned when a tree references an item of another context.
	ErrItemNotInContext = errors.New("navigation menu item belongs to another context")
	// ErrDuplicateItem is returned when a tree holds an item twice.
	ErrDuplicateItem = errors.New("navigation menu item assigned twice")
)

const (
	assignmentSettingsTable = "navigation_menu_item_assignment_settings"
	assignmentKey           = "navigation_menu_item_assignment_id"
)

// Service manages menus, items and assignments.
type Service struct {
	DB    *gorm.DB
	Items entity.Service[models.NavigationMenuItem, *models.NavigationMenuItem]
	// assignment title overrides
	assignmentSettings *dao.SettingsDAO
}

// New creates the service on the navigation menu item schema.
func New(db *gorm.DB, schemas *schema.Service, locales []string, primaryLocale string) (*Service, error) {
	sch, err := schemas.Get(schema.NavigationMenuItem)
	if err != nil {
		return nil, err
	}

	s := &Service{
		DB:                 db,
		assignmentSettings: dao.NewSettingsDAO(db, assignmentSettingsTable, assignmentKey, nil),
	}

	s.Items = entity.Service[models.NavigationMenuItem, *models.NavigationMenuItem]{
		DAO: dao.NewSchemaDAO[models.NavigationMenuItem](
			db, sch, "navigation_menu_item_settings", "navigation_menu_item_id", models.NavigationMenuItemColumns,
		),
		Locales:       locales,
		PrimaryLocale: primaryLocale,
		Rules:         s.itemRules,
	}

	return s, nil
}

// GetMenu returns a menu.
func (s *Service) GetMenu(ctx context.Context, id uint64) (*models.NavigationMenu, error) {
	var m models.NavigationMenu
	if err := s.DB.WithContext(ctx).Take(&m, "navigation_menu_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}

		return nil, err
	}

	return &m, nil
}

// Menus returns the menus of a context ordered by title.
func (s *Service) Menus(ctx context.Context, contextID uint64) ([]models.NavigationMenu, error) {
	var out []models.NavigationMenu

	err := s.DB.WithContext(ctx).Where("context_id = ?", contextID).Order("title").Find(&out).Error

	return out, err
}

// MenuByArea returns the menu placed in area.
func (s *Service) MenuByArea(ctx context.Context, contextID uint64, area string) (*models.NavigationMenu, error) {
	var m models.NavigationMenu

	err := s.DB.WithContext(ctx).Where("context_id = ? AND area_name = ?", contextID, area).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMenuNotFound
	}

	return &m, err
}

// CreateMenu validates and stores a new menu.
func (s *Service) CreateMenu(ctx context.Context, m *models.NavigationMenu) error {
	if err := s.checkMenu(ctx, m); err != nil {
		return err
	}

	m.ID = 0

	return s.DB.WithContext(ctx).Create(m).Error
}

// UpdateMenu validates and stores the title and area of a menu.
func (s *Service) UpdateMenu(ctx context.Context, m *models.NavigationMenu) error {
	if _, err := s.GetMenu(ctx, m.ID); err != nil {
		return err
	}

	if err := s.checkMenu(ctx, m); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Model(m).Updates(map[string]any{"title": m.Title, "area_name": m.AreaName}).Error
}

// DeleteMenu removes a menu and its assignments. Items stay available to other menus.
func (s *Service) DeleteMenu(ctx context.Context, id uint64) error {
	if _, err := s.GetMenu(ctx, id); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.clearAssignments(ctx, tx, id); err != nil {
			return err
		}

		return tx.Delete(&models.NavigationMenu{}, "navigation_menu_id = ?", id).Error
	})
}

func (s *Service) checkMenu(ctx context.Context, m *models.NavigationMenu) error {
	if m.Title == "" {
		return ErrTitleEmpty
	}

	db := s.DB.WithContext(ctx)

	var n int64
	if err := db.Model(&models.NavigationMenu{}).
		Where("context_id = ? AND title = ? AND navigation_menu_id <> ?", m.ContextID, m.Title, m.ID).
		Count(&n).Error; err != nil {
		return err
	}

	if n > 0 {
		return fmt.Errorf("%q: %w", m.Title, ErrTitleTaken)
	}

	if m.AreaName == "" {
		return nil
	}

	if err := db.Model(&models.NavigationMenu{}).
		Where("context_id = ? AND area_name = ? AND navigation_menu_id <> ?", m.ContextID, m.AreaName, m.ID).
		Count(&n).Error; err != nil {
		return err
	}

	if n > 0 {
		return fmt.Errorf("%q: %w", m.AreaName, ErrAreaTaken)
	}

	return nil
}
