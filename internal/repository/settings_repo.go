package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"storeadmin/internal/model"
)

// ErrSettingsMissing the settings row has not been created yet
var ErrSettingsMissing = errors.New("settings not configured")

// SettingsRepository settings repository interface
type SettingsRepository interface {
	// Get loads the single settings row
	Get(ctx context.Context) (*model.Settings, error)

	// Save upserts the settings row
	Save(ctx context.Context, settings *model.Settings) error
}

// settingsRepository settings repository implementation
type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a settings repository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get loads the single settings row
func (r *settingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	var settings model.Settings
	err := r.db.WithContext(ctx).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsMissing
		}
		return nil, err
	}
	return &settings, nil
}

// Save upserts the settings row
func (r *settingsRepository) Save(ctx context.Context, settings *model.Settings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
