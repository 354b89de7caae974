package repository

import (
	"context"
	"fmt"

	"adlink-platform/internal/database"
	"adlink-platform/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AdRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAdRepository(db *gorm.DB, logger *logrus.Logger) *AdRepository {
	return &AdRepository{
		db:     db,
		logger: logger,
	}
}

// EligibleAssignments returns the enabled, active assignments of a placement whose creative is
// enabled and active, with Creative.Campaign loaded. Campaign liveness is left to the caller.
func (r *AdRepository) EligibleAssignments(ctx context.Context, placementID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Joins("JOIN creatives ON creatives.id = placement_assignments.creative_id AND creatives.deleted_at IS NULL").
		Joins("JOIN campaigns ON campaigns.id = creatives.campaign_id AND campaigns.deleted_at IS NULL").
		Where("placement_assignments.placement_id = ?", placementID).
		Where("placement_assignments.is_enabled = ? AND placement_assignments.is_active = ?", true, true).
		Where("creatives.is_enabled = ? AND creatives.is_active = ?", true, true).
		Preload("Creative.Campaign").
		Order("placement_assignments.id").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	return assignments, nil
}

// FindPlacement looks a placement up by slug, falling back to its code.
func (r *AdRepository) FindPlacement(ctx context.Context, slug string) (*models.Placement, error) {
	var placement models.Placement
	err := r.db.WithContext(ctx).
		Where("slug = ? OR code = ?", slug, slug).
		Order("id").
		First(&placement).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &placement, nil
}

// PlacementBySlug matches the slug exactly.
func (r *AdRepository) PlacementBySlug(ctx context.Context, slug string) (*models.Placement, error) {
	var placement models.Placement
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&placement).Error; err != nil {
		return nil, notFound(err)
	}
	return &placement, nil
}

func (r *AdRepository) GetPlacement(ctx context.Context, id uint) (*models.Placement, error) {
	var placement models.Placement
	if err := r.db.WithContext(ctx).First(&placement, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &placement, nil
}

// ListPlacements returns placements ordered by name. servable restricts the list to enabled,
// active rows.
func (r *AdRepository) ListPlacements(ctx context.Context, servable bool) ([]models.Placement, error) {
	var placements []models.Placement
	q := r.db.WithContext(ctx).Order("name")
	if servable {
		q = q.Where("is_enabled = ? AND is_active = ?", true, true)
	}
	if err := q.Find(&placements).Error; err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	return placements, nil
}

func (r *AdRepository) CountPlacements(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Placement{}).Count(&count).Error
	return count, err
}

func (r *AdRepository) CreatePlacement(ctx context.Context, p *models.Placement) error {
	return conflict(r.db.WithContext(ctx).Create(p).Error)
}

func (r *AdRepository) SavePlacement(ctx context.Context, p *models.Placement) error {
	return conflict(r.db.WithContext(ctx).Save(p).Error)
}

// SetPlacementEnabled flips is_enabled. Locked placements refuse the change.
func (r *AdRepository) SetPlacementEnabled(ctx context.Context, id uint, enabled bool) (*models.Placement, error) {
	placement, err := r.GetPlacement(ctx, id)
	if err != nil {
		return nil, err
	}
	if placement.Locked {
		return nil, ErrLocked
	}
	if err := r.db.WithContext(ctx).Model(placement).Update("is_enabled", enabled).Error; err != nil {
		return nil, fmt.Errorf("update placement %d: %w", id, err)
	}
	placement.IsEnabled = enabled

	r.logger.WithFields(logrus.Fields{
		"placement": placement.Slug,
		"enabled":   enabled,
	}).Info("Placement toggled")
	return placement, nil
}

func (r *AdRepository) TogglePlacementLock(ctx context.Context, id uint) (*models.Placement, error) {
	placement, err := r.GetPlacement(ctx, id)
	if err != nil {
		return nil, err
	}
	locked := !placement.Locked
	if err := r.db.WithContext(ctx).Model(placement).Update("locked", locked).Error; err != nil {
		return nil, fmt.Errorf("update placement %d: %w", id, err)
	}
	placement.Locked = locked
	return placement, nil
}

func (r *AdRepository) GetCampaign(ctx context.Context, id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).First(&campaign, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &campaign, nil
}

func (r *AdRepository) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := r.db.WithContext(ctx).Order("priority DESC, name").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *AdRepository) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	return conflict(r.db.WithContext(ctx).Create(c).Error)
}

// SetCampaignActive flips is_active. Locked campaigns refuse the change.
func (r *AdRepository) SetCampaignActive(ctx context.Context, id uint, active bool) (*models.Campaign, error) {
	campaign, err := r.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Locked {
		return nil, ErrLocked
	}
	if err := r.db.WithContext(ctx).Model(campaign).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("update campaign %d: %w", id, err)
	}
	campaign.IsActive = active

	r.logger.WithFields(logrus.Fields{
		"campaign": campaign.ID,
		"active":   active,
	}).Info("Campaign toggled")
	return campaign, nil
}

func (r *AdRepository) ToggleCampaignLock(ctx context.Context, id uint) (*models.Campaign, error) {
	campaign, err := r.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	locked := !campaign.Locked
	if err := r.db.WithContext(ctx).Model(campaign).Update("locked", locked).Error; err != nil {
		return nil, fmt.Errorf("update campaign %d: %w", id, err)
	}
	campaign.Locked = locked
	return campaign, nil
}

// GetCreative loads a creative with its campaign. Soft-deleted creatives are not found.
func (r *AdRepository) GetCreative(ctx context.Context, id uint) (*models.Creative, error) {
	var creative models.Creative
	if err := r.db.WithContext(ctx).Preload("Campaign").First(&creative, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &creative, nil
}

func (r *AdRepository) ListCreatives(ctx context.Context) ([]models.Creative, error) {
	var creatives []models.Creative
	if err := r.db.WithContext(ctx).Preload("Campaign").Order("campaign_id, name").Find(&creatives).Error; err != nil {
		return nil, fmt.Errorf("list creatives: %w", err)
	}
	return creatives, nil
}

func (r *AdRepository) CreateCreative(ctx context.Context, c *models.Creative) error {
	if _, err := r.GetCampaign(ctx, c.CampaignID); err != nil {
		return err
	}
	return conflict(r.db.WithContext(ctx).Create(c).Error)
}

func (r *AdRepository) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	if _, err := r.GetPlacement(ctx, a.PlacementID); err != nil {
		return err
	}
	if _, err := r.GetCreative(ctx, a.CreativeID); err != nil {
		return err
	}
	return conflict(r.db.WithContext(ctx).Create(a).Error)
}

func notFound(err error) error {
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func conflict(err error) error {
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
