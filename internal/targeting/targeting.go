// Package targeting holds the eligibility predicates for campaigns and placements.
package targeting

import (
	"strings"
	"time"

	"adlink-platform/internal/models"
)

// Context describes the page an ad is being requested for. Empty fields mean the
// caller did not supply that signal, which never causes a rejection.
type Context struct {
	PageContext string
	Tags        []string
}

// NewContext builds a Context from the raw query values used by the fill endpoint.
func NewContext(pageContext, tags string) Context {
	return Context{
		PageContext: strings.TrimSpace(pageContext),
		Tags:        ParseTags(tags),
	}
}

// ParseTags splits a comma separated tag list, dropping blanks.
func ParseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// CampaignAllowed reports whether campaign may serve in ctx.
func CampaignAllowed(campaign *models.Campaign, ctx Context, cfg models.TargetingConfig, now time.Time) bool {
	if campaign == nil || !campaign.IsLive(now) {
		return false
	}
	if !cfg.AdsEnabled {
		return false
	}

	return RulesMatch(campaign.Rules(), ctx)
}

// RulesMatch applies a campaign's page type and tag restrictions to ctx, ignoring liveness.
func RulesMatch(rules models.TargetingRules, ctx Context) bool {
	if len(rules.PageTypes) > 0 && ctx.PageContext != "" && !contains(rules.PageTypes, ctx.PageContext) {
		return false
	}
	if len(rules.Tags) > 0 && len(ctx.Tags) > 0 && !intersects(rules.Tags, ctx.Tags) {
		return false
	}
	return true
}

// PlacementAllowed requires the placement to be enabled, active and not soft-deleted.
func PlacementAllowed(placement *models.Placement) bool {
	if placement == nil {
		return false
	}
	return placement.IsEnabled && placement.IsActive && !placement.IsDeleted()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
