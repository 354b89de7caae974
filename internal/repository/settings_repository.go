package repository

import (
	"context"
	"fmt"

	"adlink-platform/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get loads the singleton settings row. ErrNotFound when it was never created.
func (r *SettingsRepository) Get(ctx context.Context) (*models.SiteSettings, error) {
	var settings models.SiteSettings
	if err := r.db.WithContext(ctx).First(&settings, models.SiteSettingsID).Error; err != nil {
		return nil, notFound(err)
	}
	return &settings, nil
}

// Save writes the singleton row, creating it if needed.
func (r *SettingsRepository) Save(ctx context.Context, settings *models.SiteSettings) error {
	settings.ID = models.SiteSettingsID
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(settings).Error
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
