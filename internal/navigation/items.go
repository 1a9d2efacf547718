package navigation

import (
	"context"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/schema"
)

// Validation messages of the item rules.
const (
	msgUnknownType = "The navigation menu item type is not recognized."
	msgRequired    = "This field is required."
	msgPathTaken   = "The path is already in use by another page."
)

// AddItem validates and stores a new item.
func (s *Service) AddItem(ctx context.Context, props map[string]any) (*dataobject.DataObject, schema.Errors, error) {
	return s.Items.Add(ctx, props)
}

// EditItem validates and merges props into an item.
func (s *Service) EditItem(
	ctx context.Context, id uint64, props map[string]any,
) (*dataobject.DataObject, schema.Errors, error) {
	return s.Items.Edit(ctx, id, props)
}

// GetItem returns an item.
func (s *Service) GetItem(ctx context.Context, id uint64) (*dataobject.DataObject, error) {
	return s.Items.Get(ctx, id)
}

// ItemsOf returns the items of a context, optionally of one type.
func (s *Service) ItemsOf(ctx context.Context, contextID uint64, typ string) ([]*dataobject.DataObject, error) {
	return s.Items.DAO.List(ctx, func(db *gorm.DB) *gorm.DB {
		db = db.Where("context_id = ?", contextID)
		if typ != "" {
			db = db.Where("type = ?", typ)
		}

		return db.Order("navigation_menu_item_id")
	}, dao.Paging{})
}

// CustomPage returns the custom page item of a context with path.
func (s *Service) CustomPage(ctx context.Context, contextID uint64, path string) (*dataobject.DataObject, error) {
	objs, err := s.Items.DAO.List(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("context_id = ? AND type = ? AND path = ?", contextID, TypeCustom, path)
	}, dao.Paging{PerPage: 1})
	if err != nil {
		return nil, err
	}

	if len(objs) == 0 {
		return nil, dao.ErrNotFound
	}

	return objs[0], nil
}

// DeleteItem removes an item and its assignments. Items assigned below it move to the
// top level of their menu.
func (s *Service) DeleteItem(ctx context.Context, id uint64) error {
	if _, err := s.Items.Get(ctx, id); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint64
		if err := tx.Model(&models.NavigationMenuItemAssignment{}).
			Where("navigation_menu_item_id = ?", id).
			Pluck(assignmentKey, &ids).Error; err != nil {
			return err
		}

		if err := s.deleteAssignments(ctx, tx, ids); err != nil {
			return err
		}

		if err := tx.Model(&models.NavigationMenuItemAssignment{}).
			Where("parent_id = ?", id).
			Update("parent_id", 0).Error; err != nil {
			return err
		}

		return s.Items.DAO.WithTx(tx).DeleteByID(ctx, id)
	})
}

// itemRules checks the type specific requirements of an item.
func (s *Service) itemRules(ctx context.Context, obj *dataobject.DataObject, errs schema.Errors) error {
	primary := s.Items.PrimaryLocale

	switch typ := obj.GetString("type"); typ {
	case TypeRemoteURL:
		if obj.GetLocalizedString("remoteUrl", primary) == "" {
			errs.Add("remoteUrl."+primary, msgRequired)
		}

		if obj.GetLocalizedString("title", primary) == "" {
			errs.Add("title."+primary, msgRequired)
		}
	case TypeCustom:
		if obj.GetLocalizedString("title", primary) == "" {
			errs.Add("title."+primary, msgRequired)
		}

		path := obj.GetString("path")
		if path == "" {
			errs.Add("path", msgRequired)

			return nil
		}

		contextID, _ := dataobject.ToUint64(obj.Get("contextId"))

		var n int64
		if err := s.DB.WithContext(ctx).Model(&models.NavigationMenuItem{}).
			Where("context_id = ? AND type = ? AND path = ? AND navigation_menu_item_id <> ?",
				contextID, TypeCustom, path, obj.ID()).
			Count(&n).Error; err != nil {
			return err
		}

		if n > 0 {
			errs.Add("path", msgPathTaken)
		}
	default:
		if _, ok := Type(typ); !ok {
			errs.Add("type", msgUnknownType)
		}
	}

	return nil
}
