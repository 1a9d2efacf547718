package setting

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pkp/pkplib/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.Setting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedSettings inserts test data into the database.
func seedSettings(t *testing.T, db *gorm.DB, settings []models.Setting) {
	t.Helper()
	for _, setting := range settings {
		err := db.Create(&setting).Error
		require.NoError(t, err, "failed to seed test data")
	}
}

func resetSettings(db *gorm.DB) {
	if db != nil {
		db.Exec("DELETE FROM site_settings")
	}
}

func TestGet(t *testing.T) {
	db := setupTestDB(t)

	seed := []models.Setting{
		{Name: "title", Locale: "en", Value: []byte("Public Knowledge")},
		{Name: "title", Locale: "fr_CA", Value: []byte("Savoir public")},
		{Name: "primaryLocale", Value: []byte("en")},
	}

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		settingName   string
		locale        string
		seedData      []models.Setting
		expectedError error
		expectedValue []byte
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			settingName:   "title",
			expectedError: ErrDBNil,
		},
		{
			name:          "empty name",
			dbParam:       db,
			settingName:   "",
			expectedError: ErrSettingNameEmpty,
		},
		{
			name:          "setting not found",
			dbParam:       db,
			settingName:   "nonexistent",
			expectedError: ErrSettingNotFound,
		},
		{
			name:          "localized get",
			dbParam:       db,
			settingName:   "title",
			locale:        "fr_CA",
			seedData:      seed,
			expectedValue: []byte("Savoir public"),
		},
		{
			name:          "missing locale",
			dbParam:       db,
			settingName:   "title",
			locale:        "de",
			seedData:      seed,
			expectedError: ErrSettingNotFound,
		},
		{
			name:          "non-localized get",
			dbParam:       db,
			settingName:   "primaryLocale",
			seedData:      seed,
			expectedValue: []byte("en"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetSettings(tc.dbParam)

			if tc.seedData != nil {
				seedSettings(t, tc.dbParam, tc.seedData)
			}

			setting, err := Get(tc.dbParam, tc.settingName, tc.locale)

			if tc.expectedError != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, setting)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, setting)
				assert.Equal(t, tc.settingName, setting.Name)
				assert.Equal(t, tc.locale, setting.Locale)
				assert.Equal(t, tc.expectedValue, setting.Value)
			}
		})
	}
}

func TestGetAll(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		seedData      []models.Setting
		expectedError error
		expectedCount int
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			expectedError: ErrDBNil,
		},
		{
			name:          "empty database",
			dbParam:       db,
			expectedCount: 0,
		},
		{
			name:    "multiple settings",
			dbParam: db,
			seedData: []models.Setting{
				{Name: "title", Locale: "en", Value: []byte("Public Knowledge")},
				{Name: "title", Locale: "fr_CA", Value: []byte("Savoir public")},
				{Name: "minPasswordLength", Value: []byte("8")},
			},
			expectedCount: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetSettings(tc.dbParam)

			if tc.seedData != nil {
				seedSettings(t, tc.dbParam, tc.seedData)
			}

			settings, err := GetAll(tc.dbParam)

			if tc.expectedError != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, settings)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, settings)
				assert.Len(t, settings, tc.expectedCount)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		settingName   string
		locale        string
		settingValue  []byte
		seedData      []models.Setting
		expectedError error
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			settingName:   "title",
			settingValue:  []byte("value"),
			expectedError: ErrDBNil,
		},
		{
			name:          "empty name",
			dbParam:       db,
			settingName:   "",
			settingValue:  []byte("value"),
			expectedError: ErrSettingNameEmpty,
		},
		{
			name:         "successful create",
			dbParam:      db,
			settingName:  "contactName",
			locale:       "en",
			settingValue: []byte("Site Admin"),
		},
		{
			name:         "same name in another locale",
			dbParam:      db,
			settingName:  "title",
			locale:       "de",
			settingValue: []byte("Öffentliches Wissen"),
			seedData: []models.Setting{
				{Name: "title", Locale: "en", Value: []byte("Public Knowledge")},
			},
		},
		{
			name:         "duplicate setting",
			dbParam:      db,
			settingName:  "title",
			locale:       "en",
			settingValue: []byte("Another title"),
			seedData: []models.Setting{
				{Name: "title", Locale: "en", Value: []byte("Public Knowledge")},
			},
			expectedError: ErrSettingAlreadyExists,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetSettings(tc.dbParam)

			if tc.seedData != nil {
				seedSettings(t, tc.dbParam, tc.seedData)
			}

			setting, err := Create(tc.dbParam, tc.settingName, tc.locale, tc.settingValue)

			if tc.expectedError != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, setting)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, setting)
				assert.Equal(t, tc.settingName, setting.Name)
				assert.Equal(t, tc.locale, setting.Locale)
				assert.Equal(t, tc.settingValue, setting.Value)
				assert.NotZero(t, setting.ID)
			}
		})
	}
}

func TestSet(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		settingName   string
		settingValue  []byte
		seedData      []models.Setting
		expectedError error
		expectDeleted bool
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			settingName:   "title",
			settingValue:  []byte("value"),
			expectedError: ErrDBNil,
		},
		{
			name:          "empty name",
			dbParam:       db,
			settingName:   "",
			settingValue:  []byte("value"),
			expectedError: ErrSettingNameEmpty,
		},
		{
			name:         "create new setting",
			dbParam:      db,
			settingName:  "themePluginPath",
			settingValue: []byte("default"),
		},
		{
			name:         "update existing setting",
			dbParam:      db,
			settingName:  "themePluginPath",
			settingValue: []byte("bootstrap3"),
			seedData: []models.Setting{
				{Name: "themePluginPath", Value: []byte("default")},
			},
		},
		{
			name:         "empty value deletes",
			dbParam:      db,
			settingName:  "themePluginPath",
			settingValue: []byte{},
			seedData: []models.Setting{
				{Name: "themePluginPath", Value: []byte("default")},
			},
			expectDeleted: true,
		},
		{
			name:          "empty value for missing setting",
			dbParam:       db,
			settingName:   "themePluginPath",
			settingValue:  nil,
			expectDeleted: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetSettings(tc.dbParam)

			if tc.seedData != nil {
				seedSettings(t, tc.dbParam, tc.seedData)
			}

			setting, err := Set(tc.dbParam, tc.settingName, "", tc.settingValue)

			switch {
			case tc.expectedError != nil:
				require.Error(t, err)
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, setting)
			case tc.expectDeleted:
				require.NoError(t, err)
				assert.Nil(t, setting)

				var count int64
				tc.dbParam.Model(&models.Setting{}).Where("name = ?", tc.settingName).Count(&count)
				assert.Zero(t, count)
			default:
				require.NoError(t, err)
				assert.NotNil(t, setting)
				assert.Equal(t, tc.settingName, setting.Name)
				assert.Equal(t, tc.settingValue, setting.Value)

				// Verify the setting was created or updated in the database
				var dbSetting models.Setting
				err = tc.dbParam.Where("name = ?", tc.settingName).First(&dbSetting).Error
				require.NoError(t, err)
				assert.Equal(t, tc.settingValue, dbSetting.Value)
			}
		})
	}
}

func TestDeleteByName(t *testing.T) {
	db := setupTestDB(t)

	seed := []models.Setting{
		{Name: "title", Locale: "en", Value: []byte("Public Knowledge")},
		{Name: "title", Locale: "de", Value: []byte("Öffentliches Wissen")},
	}

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		settingName   string
		locales       []string
		seedData      []models.Setting
		expectedError error
		expectedLeft  int64
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			settingName:   "title",
			expectedError: ErrDBNil,
		},
		{
			name:          "empty name",
			dbParam:       db,
			settingName:   "",
			expectedError: ErrSettingNameEmpty,
		},
		{
			name:          "setting not found",
			dbParam:       db,
			settingName:   "nonexistent",
			expectedError: ErrSettingNotFound,
		},
		{
			name:        "delete every locale",
			dbParam:     db,
			settingName: "title",
			seedData:    seed,
		},
		{
			name:         "delete one locale",
			dbParam:      db,
			settingName:  "title",
			locales:      []string{"de"},
			seedData:     seed,
			expectedLeft: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetSettings(tc.dbParam)

			if tc.seedData != nil {
				seedSettings(t, tc.dbParam, tc.seedData)
			}

			err := DeleteByName(tc.dbParam, tc.settingName, tc.locales...)

			if tc.expectedError != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)

				var count int64
				tc.dbParam.Model(&models.Setting{}).Where("name = ?", tc.settingName).Count(&count)
				assert.Equal(t, tc.expectedLeft, count)
			}
		})
	}
}

func TestIntegration(t *testing.T) {
	db := setupTestDB(t)

	// Create a localized setting
	setting, err := Create(db, "contactName", "en", []byte("Site Admin"))
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "contactName", setting.Name)

	// Get the setting by name and locale
	retrieved, err := Get(db, "contactName", "en")
	require.NoError(t, err)
	assert.Equal(t, setting.ID, retrieved.ID)
	assert.Equal(t, []byte("Site Admin"), retrieved.Value)

	// Update the setting
	updated, err := Set(db, "contactName", "en", []byte("Journal Manager"))
	require.NoError(t, err)
	assert.Equal(t, setting.ID, updated.ID)
	assert.Equal(t, []byte("Journal Manager"), updated.Value)

	// Upsert a second locale
	second, err := Set(db, "contactName", "fr_CA", []byte("Gestionnaire"))
	require.NoError(t, err)
	assert.Equal(t, "fr_CA", second.Locale)

	// Upsert a non-localized setting
	newSetting, err := Set(db, "minPasswordLength", "", []byte("8"))
	require.NoError(t, err)
	assert.Equal(t, "minPasswordLength", newSetting.Name)

	// Get all settings
	allSettings, err := GetAll(db)
	require.NoError(t, err)
	assert.Len(t, allSettings, 3)

	// Delete by name
	err = DeleteByName(db, "contactName")
	require.NoError(t, err)

	_, err = Get(db, "contactName", "fr_CA")
	require.ErrorIs(t, err, ErrSettingNotFound)

	// An empty value deletes
	deleted, err := Set(db, newSetting.Name, "", nil)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	allSettings, err = GetAll(db)
	require.NoError(t, err)
	assert.Empty(t, allSettings)
}
