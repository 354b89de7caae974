package repository

import (
	"context"
	"fmt"
	"time"

	"adlink-platform/internal/models"

	"gorm.io/gorm"
)

type AffiliateRepository struct {
	db *gorm.DB
}

func NewAffiliateRepository(db *gorm.DB) *AffiliateRepository {
	return &AffiliateRepository{db: db}
}

// FindLink returns the enabled link called name under the enabled source called sourceName.
func (r *AffiliateRepository) FindLink(ctx context.Context, name, sourceName string) (*models.AffiliateLink, error) {
	var source models.AffiliateSource
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_enabled = ?", sourceName, true).
		First(&source).Error
	if err != nil {
		return nil, notFound(err)
	}

	var link models.AffiliateLink
	err = r.db.WithContext(ctx).
		Where("source_id = ? AND name = ? AND is_enabled = ?", source.ID, name, true).
		First(&link).Error
	if err != nil {
		return nil, notFound(err)
	}
	link.Source = &source
	return &link, nil
}

// MarkUsed bumps the link's usage counter.
func (r *AffiliateRepository) MarkUsed(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.AffiliateLink{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("mark affiliate link %d used: %w", id, err)
	}
	return nil
}

func (r *AffiliateRepository) CreateSource(ctx context.Context, s *models.AffiliateSource) error {
	return conflict(r.db.WithContext(ctx).Create(s).Error)
}

func (r *AffiliateRepository) CreateLink(ctx context.Context, l *models.AffiliateLink) error {
	return conflict(r.db.WithContext(ctx).Create(l).Error)
}
