package rotation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"adlink-platform/internal/metrics"
	"adlink-platform/internal/models"
	"adlink-platform/internal/targeting"

	"github.com/sirupsen/logrus"
)

type Reason string

const (
	ReasonSelected    Reason = "selected"
	ReasonAdsDisabled Reason = "ads_disabled"
	ReasonNoPool      Reason = "no_pool"
)

// Result is the outcome of a rotation. Creative is nil unless Reason is ReasonSelected.
type Result struct {
	Creative *models.Creative
	Reason   Reason
}

func (r Result) Selected() bool {
	return r.Reason == ReasonSelected && r.Creative != nil
}

// AssignmentSource loads a placement's assignments with Creative and Creative.Campaign populated.
type AssignmentSource interface {
	EligibleAssignments(ctx context.Context, placementID uint) ([]models.Assignment, error)
}

// Source is the random draw used by Pick. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

type Engine struct {
	source AssignmentSource
	logger *logrus.Logger
	rand   Source
	now    func() time.Time
}

type Option func(*Engine)

// WithRand fixes the random source. A *rand.Rand is not safe for concurrent use, so only
// share one between goroutines behind a lock.
func WithRand(r Source) Option {
	return func(e *Engine) { e.rand = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(source AssignmentSource, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		logger: logger,
		rand:   globalSource{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pool builds the current rotation pool for a placement.
func (e *Engine) Pool(ctx context.Context, placement *models.Placement, cfg models.TargetingConfig) (Pool, error) {
	return e.pool(ctx, placement, cfg, nil)
}

func (e *Engine) pool(ctx context.Context, placement *models.Placement, cfg models.TargetingConfig, page *targeting.Context) (Pool, error) {
	assignments, err := e.source.EligibleAssignments(ctx, placement.ID)
	if err != nil {
		return Pool{}, fmt.Errorf("load assignments for placement %q: %w", placement.Slug, err)
	}
	if page != nil {
		kept := make([]models.Assignment, 0, len(assignments))
		for _, a := range assignments {
			if a.Creative != nil && a.Creative.Campaign != nil && !targeting.RulesMatch(a.Creative.Campaign.Rules(), *page) {
				continue
			}
			kept = append(kept, a)
		}
		assignments = kept
	}
	return BuildPool(assignments, Multiplier(cfg.Aggressiveness), e.now()), nil
}

// Choose picks a creative for placement. The placement's own enabled/active state is not
// checked here; callers gate on targeting.PlacementAllowed first.
func (e *Engine) Choose(ctx context.Context, placement *models.Placement, cfg models.TargetingConfig) (Result, error) {
	return e.choose(ctx, placement, cfg, nil)
}

// ChooseFor is Choose restricted to creatives whose campaign targeting rules accept page.
func (e *Engine) ChooseFor(ctx context.Context, placement *models.Placement, cfg models.TargetingConfig, page targeting.Context) (Result, error) {
	return e.choose(ctx, placement, cfg, &page)
}

func (e *Engine) choose(ctx context.Context, placement *models.Placement, cfg models.TargetingConfig, page *targeting.Context) (Result, error) {
	if !cfg.AdsEnabled {
		return Result{Reason: ReasonAdsDisabled}, nil
	}

	pool, err := e.pool(ctx, placement, cfg, page)
	if err != nil {
		return Result{}, err
	}

	if pool.Empty() {
		metrics.RotationEmptyPools.WithLabelValues(placement.Slug).Inc()
		e.logger.WithFields(logrus.Fields{
			"event":     "ads.rotation.no_pool",
			"placement": placement.Slug,
		}).Warn("No eligible creatives for placement")
		return Result{Reason: ReasonNoPool}, nil
	}

	choice := pool.Pick(e.rand)
	metrics.RotationSelections.WithLabelValues(placement.Slug).Inc()
	e.logger.WithFields(logrus.Fields{
		"event":     "ads.rotation.selected",
		"placement": placement.Slug,
		"creative":  choice.ID,
		"campaign":  choice.CampaignID,
		"pool_size": pool.Total(),
	}).Info("Selected creative")

	return Result{Creative: choice, Reason: ReasonSelected}, nil
}
