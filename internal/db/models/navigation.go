package models

// NavigationMenu is a named menu placed in a theme area.
type NavigationMenu struct {
	ID        uint64 `gorm:"column:navigation_menu_id;primaryKey"`
	ContextID uint64 `gorm:"not null;index"`
	AreaName  string `gorm:"size:255;default:''"`
	Title     string `gorm:"size:255;not null"`
}

// TableName specifies the database table name for the NavigationMenu model.
func (NavigationMenu) TableName() string {
	return "navigation_menus"
}

// NavigationMenuItem is a link that can be assigned to menus.
type NavigationMenuItem struct {
	ID        uint64 `gorm:"column:navigation_menu_item_id;primaryKey"`
	ContextID uint64 `gorm:"not null;index"`
	Path      string `gorm:"size:255;default:''"`
	Type      string `gorm:"size:255;default:''"`
}

// TableName specifies the database table name for the NavigationMenuItem model.
func (NavigationMenuItem) TableName() string {
	return "navigation_menu_items"
}

// NavigationMenuItemSetting holds the sparse settings of a menu item (title, content, remoteUrl).
type NavigationMenuItemSetting struct {
	NavigationMenuItemID uint64 `gorm:"primaryKey;autoIncrement:false"`
	EntitySetting
}

// TableName specifies the database table name for the NavigationMenuItemSetting model.
func (NavigationMenuItemSetting) TableName() string {
	return "navigation_menu_item_settings"
}

// NavigationMenuItemAssignment places an item in a menu, optionally below a parent item.
type NavigationMenuItemAssignment struct {
	ID                   uint64  `gorm:"column:navigation_menu_item_assignment_id;primaryKey"`
	NavigationMenuID     uint64  `gorm:"not null;index"`
	NavigationMenuItemID uint64  `gorm:"not null;index"`
	ParentID             uint64  `gorm:"not null;default:0"`
	Seq                  float64 `gorm:"not null;default:0"`
}

// TableName specifies the database table name for the NavigationMenuItemAssignment model.
func (NavigationMenuItemAssignment) TableName() string {
	return "navigation_menu_item_assignments"
}

// NavigationMenuItemAssignmentSetting holds per-assignment overrides such as a localised title.
type NavigationMenuItemAssignmentSetting struct {
	NavigationMenuItemAssignmentID uint64 `gorm:"primaryKey;autoIncrement:false"`
	EntitySetting
}

// TableName specifies the database table name for the NavigationMenuItemAssignmentSetting model.
func (NavigationMenuItemAssignmentSetting) TableName() string {
	return "navigation_menu_item_assignment_settings"
}
