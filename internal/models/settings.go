package models

import "time"

const (
	AggressivenessMinimal    = "minimal"
	AggressivenessBalanced   = "balanced"
	AggressivenessAggressive = "aggressive"
)

// SiteSettingsID is the primary key of the singleton settings row.
const SiteSettingsID = 1

type SiteSettings struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	AdsEnabled            bool      `json:"ads_enabled"`
	AdNetworksEnabled     bool      `json:"ad_networks_enabled"`
	AffiliateEnabled      bool      `json:"affiliate_enabled"`
	AdAggressivenessLevel string    `json:"ad_aggressiveness_level" gorm:"size:20;not null;default:'balanced'"`
	SEOEnabled            bool      `json:"seo_enabled"`
	AutoLinkingEnabled    bool      `json:"auto_linking_enabled"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (SiteSettings) TableName() string {
	return "site_settings"
}

// TargetingConfig is the feature-flag snapshot passed into every rotation, tracking and linking call.
// The zero value disables everything.
type TargetingConfig struct {
	AdsEnabled         bool   `json:"ads_enabled"`
	AdNetworksEnabled  bool   `json:"ad_networks_enabled"`
	AffiliateEnabled   bool   `json:"affiliate_enabled"`
	Aggressiveness     string `json:"aggressiveness"`
	SEOEnabled         bool   `json:"seo_enabled"`
	AutoLinkingEnabled bool   `json:"auto_linking_enabled"`
}

// DefaultTargetingConfig is used when the settings row is missing or unreadable.
func DefaultTargetingConfig() TargetingConfig {
	return TargetingConfig{Aggressiveness: AggressivenessBalanced}
}

func (s *SiteSettings) TargetingConfig() TargetingConfig {
	level := s.AdAggressivenessLevel
	if level == "" {
		level = AggressivenessBalanced
	}
	return TargetingConfig{
		AdsEnabled:         s.AdsEnabled,
		AdNetworksEnabled:  s.AdNetworksEnabled,
		AffiliateEnabled:   s.AffiliateEnabled,
		Aggressiveness:     level,
		SEOEnabled:         s.SEOEnabled,
		AutoLinkingEnabled: s.AutoLinkingEnabled,
	}
}

// SettingsPatch carries a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	AdsEnabled            *bool   `json:"ads_enabled"`
	AdNetworksEnabled     *bool   `json:"ad_networks_enabled"`
	AffiliateEnabled      *bool   `json:"affiliate_enabled"`
	AdAggressivenessLevel *string `json:"ad_aggressiveness_level" validate:"omitempty,oneof=minimal balanced aggressive"`
	SEOEnabled            *bool   `json:"seo_enabled"`
	AutoLinkingEnabled    *bool   `json:"auto_linking_enabled"`
}
