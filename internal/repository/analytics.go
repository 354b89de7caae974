package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"adlink-platform/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const countByType = "COALESCE(SUM(CASE WHEN e.event_type = 'impression' THEN 1 ELSE 0 END), 0) AS impressions, " +
	"COALESCE(SUM(CASE WHEN e.event_type = 'click' THEN 1 ELSE 0 END), 0) AS clicks"

type AnalyticsRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAnalyticsRepository(db *gorm.DB, logger *logrus.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateEvent appends an event row. Events are never updated afterwards.
func (r *AnalyticsRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("insert %s event: %w", event.EventType, err)
	}
	return nil
}

// Totals counts impressions and clicks since the given time. A zero since counts everything.
func (r *AnalyticsRepository) Totals(ctx context.Context, since time.Time) (models.AnalyticsResponse, error) {
	var result struct {
		Impressions int64
		Clicks      int64
	}

	err := r.events(ctx, since).Select(countByType).Scan(&result).Error
	if err != nil {
		return models.AnalyticsResponse{}, fmt.Errorf("count events: %w", err)
	}

	return models.AnalyticsResponse{
		Impressions: result.Impressions,
		Clicks:      result.Clicks,
		CTR:         CTR(result.Impressions, result.Clicks),
	}, nil
}

// PlacementStats returns impressions, clicks and CTR per placement, busiest first.
func (r *AnalyticsRepository) PlacementStats(ctx context.Context, since time.Time, limit int) ([]models.EntityStats, error) {
	var stats []models.EntityStats
	err := r.events(ctx, since).
		Select("e.placement_id AS id, p.name AS name, " + countByType).
		Joins("JOIN placements p ON p.id = e.placement_id").
		Group("e.placement_id, p.name").
		Order("impressions DESC, e.placement_id").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("placement stats: %w", err)
	}
	fillCTR(stats)

	r.logger.WithFields(logrus.Fields{
		"results_count": len(stats),
		"since":         since,
	}).Debug("Retrieved placement stats")
	return stats, nil
}

// CreativeStats returns impressions, clicks and CTR per creative, busiest first.
func (r *AnalyticsRepository) CreativeStats(ctx context.Context, since time.Time, limit int) ([]models.EntityStats, error) {
	var stats []models.EntityStats
	err := r.events(ctx, since).
		Select("e.creative_id AS id, c.name AS name, " + countByType).
		Joins("JOIN creatives c ON c.id = e.creative_id").
		Group("e.creative_id, c.name").
		Order("impressions DESC, e.creative_id").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("creative stats: %w", err)
	}
	fillCTR(stats)

	r.logger.WithFields(logrus.Fields{
		"results_count": len(stats),
		"since":         since,
	}).Debug("Retrieved creative stats")
	return stats, nil
}

// UpsertRollups adds each rollup's count onto the stored row with the same key.
// Callers merge duplicate keys first.
func (r *AnalyticsRepository) UpsertRollups(ctx context.Context, rollups []models.DailyRollup) error {
	if len(rollups) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "event_date"}, {Name: "event_type"}, {Name: "placement_id"}, {Name: "creative_id"}, {Name: "campaign_id"},
		},
		DoUpdates: clause.Set{{
			Column: clause.Column{Name: "event_count"},
			Value:  gorm.Expr("ad_daily_rollups.event_count + excluded.event_count"),
		}},
	}).Create(&rollups).Error
	if err != nil {
		return fmt.Errorf("upsert rollups: %w", err)
	}
	return nil
}

func (r *AnalyticsRepository) DailyRollups(ctx context.Context, since time.Time) ([]models.DailyRollup, error) {
	var rollups []models.DailyRollup
	q := r.db.WithContext(ctx).Order("event_date, event_type, placement_id, creative_id, campaign_id")
	if !since.IsZero() {
		q = q.Where("event_date >= ?", since)
	}
	if err := q.Find(&rollups).Error; err != nil {
		return nil, fmt.Errorf("list rollups: %w", err)
	}
	return rollups, nil
}

func (r *AnalyticsRepository) events(ctx context.Context, since time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).Table("ad_events AS e")
	if !since.IsZero() {
		q = q.Where("e.created_at >= ?", since)
	}
	return q
}

// CTR is clicks per hundred impressions, rounded to two decimals.
func CTR(impressions, clicks int64) float64 {
	if impressions == 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(impressions)*10000) / 100
}

func fillCTR(stats []models.EntityStats) {
	for i := range stats {
		stats[i].CTR = CTR(stats[i].Impressions, stats[i].Clicks)
	}
}
