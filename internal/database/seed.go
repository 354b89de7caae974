package database

import (
	"context"
	"fmt"

	"adlink-platform/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedDatabase creates the settings row and a small house campaign when the database is empty.
func SeedDatabase(ctx context.Context, db *gorm.DB) error {
	// Check if we already have campaigns
	var count int64
	if err := db.WithContext(ctx).Model(&models.Campaign{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings := models.SiteSettings{
			ID:                    models.SiteSettingsID,
			AdsEnabled:            true,
			AdAggressivenessLevel: models.AggressivenessBalanced,
			SEOEnabled:            true,
			AutoLinkingEnabled:    true,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}

		campaign := models.Campaign{
			Name:     "House promotions",
			IsActive: true,
			Type:     models.CampaignTypeHouse,
			Budget:   decimal.Zero,
			Priority: 1,
			Weight:   1,
			TargetingRules: datatypes.NewJSONType(models.TargetingRules{
				PageTypes: []string{"homepage", "blog_detail", "blog_list"},
			}),
		}
		if err := tx.Create(&campaign).Error; err != nil {
			return fmt.Errorf("seed campaign: %w", err)
		}

		creatives := []models.Creative{
			{
				CampaignID:   campaign.ID,
				Name:         "Newsletter banner",
				CreativeType: models.CreativeTypeBanner,
				ImageURL:     "https://example.com/static/ads/newsletter.png",
				ClickURL:     "https://example.com/newsletter",
				Weight:       1,
				IsEnabled:    true,
				IsActive:     true,
			},
			{
				CampaignID:   campaign.ID,
				Name:         "Firmware guide",
				CreativeType: models.CreativeTypeNative,
				HTML:         `<a href="https://example.com/guides/firmware">Flash firmware safely</a>`,
				ClickURL:     "https://example.com/guides/firmware",
				Weight:       1,
				IsEnabled:    true,
				IsActive:     true,
			},
		}
		if err := tx.Create(&creatives).Error; err != nil {
			return fmt.Errorf("seed creatives: %w", err)
		}

		placements := []models.Placement{
			{Name: "Header banner", Code: "header-banner", Slug: "header-banner", AllowedTypes: "banner,native,html", AllowedSizes: "728x90", PageContext: "auto", IsEnabled: true, IsActive: true},
			{Name: "Sidebar", Code: "sidebar", Slug: "sidebar", AllowedTypes: "banner,native,html", AllowedSizes: "300x250", PageContext: "auto", IsEnabled: true, IsActive: true},
		}
		if err := tx.Create(&placements).Error; err != nil {
			return fmt.Errorf("seed placements: %w", err)
		}

		var assignments []models.Assignment
		for _, p := range placements {
			for i, c := range creatives {
				assignments = append(assignments, models.Assignment{
					PlacementID: p.ID,
					CreativeID:  c.ID,
					Weight:      i + 1,
					IsEnabled:   true,
					IsActive:    true,
				})
			}
		}
		if err := tx.Create(&assignments).Error; err != nil {
			return fmt.Errorf("seed assignments: %w", err)
		}
		return nil
	})
}
