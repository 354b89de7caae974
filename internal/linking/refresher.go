// Package linking scores content entities against each other and maintains the
// internal-link suggestions between them.
package linking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"adlink-platform/internal/metrics"
	"adlink-platform/internal/models"
	"adlink-platform/internal/repository"
	"adlink-platform/internal/slug"

	"github.com/sirupsen/logrus"
)

const DefaultLimit = 5

// ContentRef identifies the content object a LinkableEntity stands for.
type ContentRef struct {
	Type string
	ID   uint
}

type Refresher struct {
	repo   *repository.LinkRepository
	logger *logrus.Logger
}

func NewRefresher(repo *repository.LinkRepository, logger *logrus.Logger) *Refresher {
	return &Refresher{
		repo:   repo,
		logger: logger,
	}
}

// RefreshLinkableEntity creates or updates the registry row for ref. keywords is a comma
// separated list. Returns nil, nil when SEO is disabled.
func (r *Refresher) RefreshLinkableEntity(ctx context.Context, cfg models.TargetingConfig, ref ContentRef, title, url, keywords string) (*models.LinkableEntity, error) {
	if !cfg.SEOEnabled {
		return nil, nil
	}

	entity := &models.LinkableEntity{
		ContentType: ref.Type,
		ObjectID:    ref.ID,
		Title:       title,
		Slug:        slug.Make(title),
		URL:         url,
		Keywords:    splitKeywords(keywords),
		IsActive:    true,
	}
	if err := r.repo.UpsertLinkable(ctx, entity); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"content_type": ref.Type,
		"object_id":    ref.ID,
		"linkable_id":  entity.ID,
	}).Debug("Linkable entity refreshed")
	return entity, nil
}

// SuggestLinks regenerates the unlocked suggestions of source from candidates and returns
// how many were written. Locked suggestions are left as they are and their targets are not
// re-suggested. The delete and the inserts share one transaction. A limit <= 0 means
// DefaultLimit; callers that accept a limit from users reject those values themselves.
func (r *Refresher) SuggestLinks(ctx context.Context, cfg models.TargetingConfig, source *models.LinkableEntity, candidates []models.LinkableEntity, limit int) (int, error) {
	if !cfg.SEOEnabled || !cfg.AutoLinkingEnabled {
		return 0, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	allowed := eligibleCandidates(source, candidates)
	written := 0

	err := r.repo.Transaction(ctx, func(tx *repository.LinkRepository) error {
		locked, err := tx.LockedTargets(ctx, source.ID)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteUnlockedSuggestions(ctx, source.ID); err != nil {
			return err
		}

		ranked := rank(source, allowed, locked)
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}

		for _, s := range ranked {
			suggestion := &models.LinkSuggestion{
				SourceID:  source.ID,
				TargetID:  s.target.ID,
				Score:     s.score,
				IsApplied: false,
				Locked:    false,
				IsActive:  true,
			}
			if err := tx.UpsertSuggestion(ctx, suggestion); err != nil {
				return err
			}
		}
		written = len(ranked)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("suggest links for %d: %w", source.ID, err)
	}

	metrics.SuggestionsWritten.Add(float64(written))
	r.logger.WithFields(logrus.Fields{
		"source":     source.ID,
		"candidates": len(allowed),
		"written":    written,
	}).Debug("Link suggestions refreshed")
	return written, nil
}

// RefreshAll runs SuggestLinks for every registered entity against all the others and
// returns the number of sources processed. limit follows SuggestLinks.
func (r *Refresher) RefreshAll(ctx context.Context, cfg models.TargetingConfig, limit int) (int, error) {
	if !cfg.SEOEnabled || !cfg.AutoLinkingEnabled {
		return 0, nil
	}

	entities, err := r.repo.ListLinkables(ctx, false)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range entities {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if _, err := r.SuggestLinks(ctx, cfg, &entities[i], entities, limit); err != nil {
			return processed, err
		}
		processed++
	}

	r.logger.WithField("sources", processed).Info("Suggestions generated")
	return processed, nil
}

type scored struct {
	target *models.LinkableEntity
	score  float64
}

// rank scores the candidates that have no locked suggestion and orders them best first,
// keeping input order between equal scores.
func rank(source *models.LinkableEntity, candidates []*models.LinkableEntity, locked map[uint]bool) []scored {
	out := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if locked[c.ID] {
			continue
		}
		out = append(out, scored{target: c, score: Score(source, c)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func eligibleCandidates(source *models.LinkableEntity, candidates []models.LinkableEntity) []*models.LinkableEntity {
	seen := map[uint]bool{source.ID: true}
	out := make([]*models.LinkableEntity, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.ID == 0 || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func splitKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
