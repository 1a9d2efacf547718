package navigation

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/models"
)

// Node places an item in a menu tree.
type Node struct {
	ItemID uint64 `json:"itemId"`
	// Title overrides the item title in this menu, keyed by locale.
	Title    map[string]string `json:"title,omitempty"`
	Children []Node            `json:"children,omitempty"`
}

// TreeItem is an assigned item with its children, in menu order.
type TreeItem struct {
	AssignmentID uint64                 `json:"assignmentId"`
	Item         *dataobject.DataObject `json:"item"`
	Title        map[string]any         `json:"title,omitempty"`
	Children     []*TreeItem            `json:"children,omitempty"`
}

// Assign replaces all assignments of a menu with tree.
func (s *Service) Assign(ctx context.Context, menuID uint64, tree []Node) error {
	menu, err := s.GetMenu(ctx, menuID)
	if err != nil {
		return err
	}

	if err = s.checkTree(ctx, menu, tree); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.clearAssignments(ctx, tx, menuID); err != nil {
			return err
		}

		return s.insertNodes(ctx, tx, menuID, 0, tree)
	})
}

func (s *Service) checkTree(ctx context.Context, menu *models.NavigationMenu, tree []Node) error {
	seen := map[uint64]bool{}

	var walk func(nodes []Node) error

	walk = func(nodes []Node) error {
		for _, n := range nodes {
			if seen[n.ItemID] {
				return fmt.Errorf("item %d: %w", n.ItemID, ErrDuplicateItem)
			}

			seen[n.ItemID] = true

			if err := walk(n.Children); err != nil {
				return err
			}
		}

		return nil
	}

	if err := walk(tree); err != nil {
		return err
	}

	if len(seen) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	var items []models.NavigationMenuItem
	if err := s.DB.WithContext(ctx).Where("navigation_menu_item_id IN ?", ids).Find(&items).Error; err != nil {
		return err
	}

	found := map[uint64]bool{}

	for _, it := range items {
		if it.ContextID != menu.ContextID {
			return fmt.Errorf("item %d: %w", it.ID, ErrItemNotInContext)
		}

		found[it.ID] = true
	}

	for _, id := range ids {
		if !found[id] {
			return fmt.Errorf("item %d: %w", id, dao.ErrNotFound)
		}
	}

	return nil
}

func (s *Service) insertNodes(ctx context.Context, tx *gorm.DB, menuID, parentID uint64, nodes []Node) error {
	settings := s.assignmentSettings.WithTx(tx)

	for i, n := range nodes {
		a := models.NavigationMenuItemAssignment{
			NavigationMenuID:     menuID,
			NavigationMenuItemID: n.ItemID,
			ParentID:             parentID,
			Seq:                  float64(i),
		}

		if err := tx.Create(&a).Error; err != nil {
			return fmt.Errorf("assign item %d: %w", n.ItemID, err)
		}

		if len(n.Title) > 0 {
			values := make(map[string]any, len(n.Title))
			for locale, title := range n.Title {
				values[locale] = title
			}

			if err := settings.UpdateLocales(ctx, a.ID, "title", values); err != nil {
				return err
			}
		}

		if err := s.insertNodes(ctx, tx, menuID, n.ItemID, n.Children); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) clearAssignments(ctx context.Context, tx *gorm.DB, menuID uint64) error {
	var ids []uint64
	if err := tx.Model(&models.NavigationMenuItemAssignment{}).
		Where("navigation_menu_id = ?", menuID).
		Pluck(assignmentKey, &ids).Error; err != nil {
		return err
	}

	return s.deleteAssignments(ctx, tx, ids)
}

func (s *Service) deleteAssignments(ctx context.Context, tx *gorm.DB, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	settings := s.assignmentSettings.WithTx(tx)
	for _, id := range ids {
		if err := settings.DeleteAll(ctx, id); err != nil {
			return err
		}
	}

	return tx.Where(assignmentKey+" IN ?", ids).Delete(&models.NavigationMenuItemAssignment{}).Error
}

// Tree returns the assigned items of a menu as a tree. Assignments whose parent is not
// assigned to the menu are placed at the top level.
func (s *Service) Tree(ctx context.Context, menuID uint64) ([]*TreeItem, error) {
	var assignments []models.NavigationMenuItemAssignment
	if err := s.DB.WithContext(ctx).
		Where("navigation_menu_id = ?", menuID).
		Order("parent_id, seq, " + assignmentKey).
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	if len(assignments) == 0 {
		return []*TreeItem{}, nil
	}

	itemIDs := make([]uint64, len(assignments))
	assignmentIDs := make([]uint64, len(assignments))

	for i, a := range assignments {
		itemIDs[i] = a.NavigationMenuItemID
		assignmentIDs[i] = a.ID
	}

	items, err := s.Items.DAO.List(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("navigation_menu_item_id IN ?", itemIDs)
	}, dao.Paging{})
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]*dataobject.DataObject, len(items))
	for _, it := range items {
		byID[it.ID()] = it
	}

	overrides, err := s.assignmentSettings.Load(ctx, assignmentIDs...)
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint64]*TreeItem, len(assignments))

	for _, a := range assignments {
		item, ok := byID[a.NavigationMenuItemID]
		if !ok {
			continue
		}

		n := &TreeItem{AssignmentID: a.ID, Item: item}
		if title, ok := overrides[a.ID]["title"].(map[string]any); ok {
			n.Title = title
		}

		nodes[a.NavigationMenuItemID] = n
	}

	roots := []*TreeItem{}

	for _, a := range assignments {
		n, ok := nodes[a.NavigationMenuItemID]
		if !ok {
			continue
		}

		if parent, ok := nodes[a.ParentID]; ok && a.ParentID != 0 {
			parent.Children = append(parent.Children, n)
		} else {
			roots = append(roots, n)
		}
	}

	return roots, nil
}
