// Package settings caches the site-wide feature flags and hands them out as
// models.TargetingConfig snapshots.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"adlink-platform/internal/models"
	"adlink-platform/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var ErrInvalidPatch = errors.New("invalid settings patch")

type Repository interface {
	Get(ctx context.Context) (*models.SiteSettings, error)
	Save(ctx context.Context, settings *models.SiteSettings) error
}

type Store struct {
	repo     Repository
	logger   *logrus.Logger
	validate *validator.Validate
	ttl      time.Duration
	now      func() time.Time

	mu         sync.RWMutex
	cached     *models.TargetingConfig
	loadedAt   time.Time
	// generation is bumped by Reset; a load started before a Reset is not cached.
	generation uint64
}

// NewStore returns a store whose snapshot lives until Reset, or for ttl when ttl > 0.
func NewStore(repo Repository, logger *logrus.Logger, ttl time.Duration) *Store {
	return &Store{
		repo:     repo,
		logger:   logger,
		validate: validator.New(),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Config returns the cached snapshot, loading it on first use. A missing settings row
// yields the default config; a lookup error yields the default config without caching it.
func (s *Store) Config(ctx context.Context) models.TargetingConfig {
	s.mu.RLock()
	if s.cached != nil && s.fresh() {
		cfg := *s.cached
		s.mu.RUnlock()
		return cfg
	}
	gen := s.generation
	s.mu.RUnlock()

	cfg := models.DefaultTargetingConfig()
	row, err := s.repo.Get(ctx)
	switch {
	case err == nil:
		cfg = row.TargetingConfig()
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Debug("Site settings row missing, using defaults")
	default:
		s.logger.WithError(err).Warn("Failed to load site settings, using defaults")
		return cfg
	}

	s.mu.Lock()
	if s.generation == gen {
		s.cached = &cfg
		s.loadedAt = s.now()
	}
	s.mu.Unlock()
	return cfg
}

func (s *Store) fresh() bool {
	return s.ttl <= 0 || s.now().Sub(s.loadedAt) < s.ttl
}

// Reset drops the cached snapshot so the next Config call reloads it.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cached = nil
	s.generation++
	s.mu.Unlock()
}

// Settings returns the stored row, or an unsaved default row when none exists.
func (s *Store) Settings(ctx context.Context) (*models.SiteSettings, error) {
	row, err := s.repo.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.SiteSettings{ID: models.SiteSettingsID, AdAggressivenessLevel: models.AggressivenessBalanced}, nil
	}
	return row, err
}

// Update applies patch to the settings row and resets the cache.
func (s *Store) Update(ctx context.Context, patch models.SettingsPatch) (*models.SiteSettings, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	row, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	apply(row, patch)

	if err := s.repo.Save(ctx, row); err != nil {
		return nil, err
	}
	s.Reset()

	s.logger.WithFields(logrus.Fields{
		"ads_enabled":          row.AdsEnabled,
		"aggressiveness":       row.AdAggressivenessLevel,
		"seo_enabled":          row.SEOEnabled,
		"auto_linking_enabled": row.AutoLinkingEnabled,
	}).Info("Site settings updated")
	return row, nil
}

func apply(row *models.SiteSettings, patch models.SettingsPatch) {
	if patch.AdsEnabled != nil {
		row.AdsEnabled = *patch.AdsEnabled
	}
	if patch.AdNetworksEnabled != nil {
		row.AdNetworksEnabled = *patch.AdNetworksEnabled
	}
	if patch.AffiliateEnabled != nil {
		row.AffiliateEnabled = *patch.AffiliateEnabled
	}
	if patch.AdAggressivenessLevel != nil && *patch.AdAggressivenessLevel != "" {
		row.AdAggressivenessLevel = *patch.AdAggressivenessLevel
	}
	if patch.SEOEnabled != nil {
		row.SEOEnabled = *patch.SEOEnabled
	}
	if patch.AutoLinkingEnabled != nil {
		row.AutoLinkingEnabled = *patch.AutoLinkingEnabled
	}
}
