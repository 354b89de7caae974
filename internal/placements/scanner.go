// Package placements discovers ad slots declared in templates and keeps placement rows in step.
package placements

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"adlink-platform/internal/models"
	"adlink-platform/internal/repository"
	"adlink-platform/internal/slug"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTypes   = "banner,native,html"
	DefaultContext = "auto"
)

// slotMarker matches `ads:slot <name> [sizes=..] [types=..]` and `<!-- ad-slot: ... -->`.
var slotMarker = regexp.MustCompile(`(?im)(?:ads:slot|<!--\s*ad-slot:)([^\n]*?)(?:-->|%\}|\}\}|$)`)

type Slot struct {
	Name  string
	Sizes string
	Types string
}

// ParseSlots extracts every slot marker in text. Markers without a name are ignored.
func ParseSlots(text string) []Slot {
	var slots []Slot
	for _, m := range slotMarker.FindAllStringSubmatch(text, -1) {
		var (
			name  []string
			sizes string
			types string
		)
		for _, tok := range strings.Fields(m[1]) {
			tok = strings.Trim(tok, `"'`)
			key, value, found := strings.Cut(tok, "=")
			switch {
			case found && strings.EqualFold(key, "sizes"):
				sizes = strings.Trim(value, `"'`)
			case found && strings.EqualFold(key, "types"):
				types = strings.Trim(value, `"'`)
			case tok != "":
				name = append(name, tok)
			}
		}
		if len(name) == 0 {
			continue
		}
		if types == "" {
			types = DefaultTypes
		}
		slots = append(slots, Slot{Name: strings.Join(name, " "), Sizes: sizes, Types: types})
	}
	return slots
}

type PlacementStore interface {
	PlacementBySlug(ctx context.Context, slug string) (*models.Placement, error)
	CreatePlacement(ctx context.Context, p *models.Placement) error
	SavePlacement(ctx context.Context, p *models.Placement) error
	CountPlacements(ctx context.Context) (int64, error)
}

type ScanResult struct {
	Created int
	Updated int
	Total   int64
}

type Scanner struct {
	store  PlacementStore
	logger *logrus.Logger
}

func NewScanner(store PlacementStore, logger *logrus.Logger) *Scanner {
	return &Scanner{store: store, logger: logger}
}

// Scan walks every *.html file under root and get-or-creates a placement per slot found.
// Existing placements get their name, sizes and types refreshed when the markup changed.
func (s *Scanner) Scan(ctx context.Context, root string) (ScanResult, error) {
	var result ScanResult

	info, err := os.Stat(root)
	if err != nil {
		return result, fmt.Errorf("templates dir %s: %w", root, err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("templates dir %s is not a directory", root)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable template")
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		for _, slot := range ParseSlots(string(content)) {
			if err := s.apply(ctx, slot, filepath.ToSlash(rel), &result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	total, err := s.store.CountPlacements(ctx)
	if err != nil {
		return result, fmt.Errorf("count placements: %w", err)
	}
	result.Total = total

	s.logger.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"total":   result.Total,
	}).Info("Placement scan complete")
	return result, nil
}

func (s *Scanner) apply(ctx context.Context, slot Slot, template string, result *ScanResult) error {
	key := slug.Make(slot.Name)
	if key == "" {
		return nil
	}

	placement, err := s.store.PlacementBySlug(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		placement = &models.Placement{
			Name:              slot.Name,
			Code:              key,
			Slug:              key,
			AllowedTypes:      slot.Types,
			AllowedSizes:      slot.Sizes,
			PageContext:       DefaultContext,
			TemplateReference: template,
			IsEnabled:         true,
			IsActive:          true,
		}
		if err := s.store.CreatePlacement(ctx, placement); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				s.logger.WithError(err).WithField("slot", slot.Name).Warn("Slot clashes with an existing placement")
				return nil
			}
			return fmt.Errorf("create placement %q: %w", key, err)
		}
		result.Created++
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup placement %q: %w", key, err)
	}

	changed := false
	if placement.Name != slot.Name {
		placement.Name = slot.Name
		changed = true
	}
	if placement.Code == "" {
		placement.Code = key
		changed = true
	}
	if slot.Sizes != "" && placement.AllowedSizes != slot.Sizes {
		placement.AllowedSizes = slot.Sizes
		changed = true
	}
	if slot.Types != "" && placement.AllowedTypes != slot.Types {
		placement.AllowedTypes = slot.Types
		changed = true
	}
	if !changed {
		return nil
	}
	if err := s.store.SavePlacement(ctx, placement); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.WithError(err).WithField("slot", slot.Name).Warn("Slot clashes with an existing placement")
			return nil
		}
		return fmt.Errorf("update placement %q: %w", key, err)
	}
	result.Updated++
	return nil
}
