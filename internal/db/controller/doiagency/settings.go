// Package doiagency stores the registration agency credentials used by DOI deposits.
package doiagency

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/db/controller/setting"
)

const (
	// SettingKeyDoiAgency is the key used to store DOI agency settings in the database.
	SettingKeyDoiAgency = "doi_agency"
)

type (
	// Settings represents the DOI registration agency configuration.
	Settings struct {
		AgencyURL string `form:"agency_url" json:"agencyUrl" validate:"required,url"`
		Username  string `form:"username"   json:"username"  validate:"required"`
		Password  string `form:"password"   json:"password"  validate:"required,min=8"`
		Prefix    string `form:"prefix"     json:"prefix"    validate:"omitempty,doiprefix"`
		TestMode  bool   `form:"test_mode"  json:"testMode"`
	}
)

// FromConfig returns the agency settings found in the configuration file.
func FromConfig(cfg config.Doi) Settings {
	return Settings{
		AgencyURL: cfg.AgencyURL,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Prefix:    cfg.Prefix,
	}
}

// Load loads the DOI agency settings from the database.
func (p *Settings) Load(db *gorm.DB) error {
	// Retrieve the setting from the database
	s, err := setting.Get(db, SettingKeyDoiAgency, "")
	if err != nil {
		return err
	}

	// Unmarshal the JSON blob into the struct
	return json.Unmarshal(s.Value, p)
}

// LoadOrDefault loads the stored settings and falls back to def when none are stored.
func LoadOrDefault(db *gorm.DB, def Settings) (Settings, error) {
	s := def
	if err := s.Load(db); err != nil {
		if errors.Is(err, setting.ErrSettingNotFound) {
			return def, nil
		}

		return def, err
	}

	return s, nil
}

// Save saves the DOI agency settings to the database.
func (p *Settings) Save(db *gorm.DB) error {
	// Marshal the struct to JSON
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	// Save or update the setting in the database
	_, err = setting.Set(db, SettingKeyDoiAgency, "", data)

	return err
}
