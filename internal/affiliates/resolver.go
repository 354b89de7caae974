package affiliates

import (
	"context"
	"errors"
	"time"

	"adlink-platform/internal/models"
	"adlink-platform/internal/repository"

	"github.com/sirupsen/logrus"
)

type LinkStore interface {
	FindLink(ctx context.Context, name, sourceName string) (*models.AffiliateLink, error)
	MarkUsed(ctx context.Context, id uint, at time.Time) error
}

type Resolver struct {
	store  LinkStore
	logger *logrus.Logger
	now    func() time.Time
}

func NewResolver(store LinkStore, logger *logrus.Logger) *Resolver {
	return &Resolver{store: store, logger: logger, now: time.Now}
}

// Resolve returns the target URL of the named link. ok is false when affiliate links are switched
// off or no enabled link matches.
func (r *Resolver) Resolve(ctx context.Context, cfg models.TargetingConfig, linkName, sourceName string) (string, bool, error) {
	if !cfg.AffiliateEnabled || linkName == "" || sourceName == "" {
		return "", false, nil
	}

	link, err := r.store.FindLink(ctx, linkName, sourceName)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if err := r.store.MarkUsed(ctx, link.ID, r.now()); err != nil {
		r.logger.WithError(err).WithField("link", link.ID).Warn("Failed to record affiliate link usage")
	}
	return link.URL, true, nil
}
