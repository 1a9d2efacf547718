package models

// All returns every model for AutoMigrate.
func All() []any {
	return []any{
		&Setting{},
		&Journal{}, &JournalSetting{},
		&Publication{}, &PublicationSetting{},
		&NavigationMenu{}, &NavigationMenuItem{}, &NavigationMenuItemSetting{},
		&NavigationMenuItemAssignment{}, &NavigationMenuItemAssignmentSetting{},
		&SearchKeyword{}, &SearchObject{}, &SearchObjectKeyword{}, &SearchDocument{},
		&ScheduledTask{},
		&Doi{},
		&UsageStatsTemporaryRecord{}, &MetricsSubmission{}, &MetricsContext{},
	}
}
