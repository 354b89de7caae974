package repository

import (
	"context"
	"fmt"

	"adlink-platform/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LinkRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewLinkRepository(db *gorm.DB, logger *logrus.Logger) *LinkRepository {
	return &LinkRepository{
		db:     db,
		logger: logger,
	}
}

// Transaction runs fn against a repository bound to a single database transaction.
func (r *LinkRepository) Transaction(ctx context.Context, fn func(tx *LinkRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LinkRepository{db: tx, logger: r.logger})
	})
}

// UpsertLinkable creates or updates the entity keyed by (content type, object id) and
// reloads it into e.
func (r *LinkRepository) UpsertLinkable(ctx context.Context, e *models.LinkableEntity) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_type"}, {Name: "object_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "slug", "url", "keywords", "is_active", "updated_at"}),
	}).Create(e).Error
	if err != nil {
		return fmt.Errorf("upsert linkable %s/%d: %w", e.ContentType, e.ObjectID, err)
	}

	var stored models.LinkableEntity
	err = r.db.WithContext(ctx).
		Where("content_type = ? AND object_id = ?", e.ContentType, e.ObjectID).
		First(&stored).Error
	if err != nil {
		return fmt.Errorf("reload linkable %s/%d: %w", e.ContentType, e.ObjectID, err)
	}
	*e = stored
	return nil
}

func (r *LinkRepository) GetLinkable(ctx context.Context, id uint) (*models.LinkableEntity, error) {
	var entity models.LinkableEntity
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &entity, nil
}

// ListLinkables returns entities in id order.
func (r *LinkRepository) ListLinkables(ctx context.Context, activeOnly bool) ([]models.LinkableEntity, error) {
	var entities []models.LinkableEntity
	q := r.db.WithContext(ctx).Order("id")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("list linkables: %w", err)
	}
	return entities, nil
}

// LockedTargets returns the target ids of the source's locked suggestions.
func (r *LinkRepository) LockedTargets(ctx context.Context, sourceID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.LinkSuggestion{}).
		Where("source_id = ? AND locked = ?", sourceID, true).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("locked suggestions for %d: %w", sourceID, err)
	}

	locked := make(map[uint]bool, len(ids))
	for _, id := range ids {
		locked[id] = true
	}
	return locked, nil
}

func (r *LinkRepository) DeleteUnlockedSuggestions(ctx context.Context, sourceID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("source_id = ? AND locked = ?", sourceID, false).
		Delete(&models.LinkSuggestion{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete suggestions for %d: %w", sourceID, res.Error)
	}
	return res.RowsAffected, nil
}

// UpsertSuggestion writes s, overwriting score and flags of an existing (source, target) row.
func (r *LinkRepository) UpsertSuggestion(ctx context.Context, s *models.LinkSuggestion) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "is_applied", "locked", "is_active", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("upsert suggestion %d->%d: %w", s.SourceID, s.TargetID, err)
	}
	return nil
}

// Suggestions lists a source's suggestions with their targets, best score first.
func (r *LinkRepository) Suggestions(ctx context.Context, sourceID uint) ([]models.LinkSuggestion, error) {
	var suggestions []models.LinkSuggestion
	err := r.db.WithContext(ctx).
		Preload("Target").
		Where("source_id = ?", sourceID).
		Order("score DESC, id").
		Find(&suggestions).Error
	if err != nil {
		return nil, fmt.Errorf("list suggestions for %d: %w", sourceID, err)
	}
	return suggestions, nil
}

// UpdateSuggestion applies the explicit lock/apply actions that refresh runs never perform.
func (r *LinkRepository) UpdateSuggestion(ctx context.Context, id uint, patch models.SuggestionPatch) (*models.LinkSuggestion, error) {
	var suggestion models.LinkSuggestion
	if err := r.db.WithContext(ctx).First(&suggestion, id).Error; err != nil {
		return nil, notFound(err)
	}

	updates := map[string]interface{}{}
	if patch.Locked != nil {
		updates["locked"] = *patch.Locked
		suggestion.Locked = *patch.Locked
	}
	if patch.IsApplied != nil {
		updates["is_applied"] = *patch.IsApplied
		suggestion.IsApplied = *patch.IsApplied
	}
	if len(updates) == 0 {
		return &suggestion, nil
	}

	if err := r.db.WithContext(ctx).Model(&suggestion).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update suggestion %d: %w", id, err)
	}

	r.logger.WithFields(logrus.Fields{
		"suggestion": id,
		"locked":     suggestion.Locked,
		"is_applied": suggestion.IsApplied,
	}).Info("Link suggestion updated")
	return &suggestion, nil
}
