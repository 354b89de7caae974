package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CampaignTypeDirect    = "direct"
	CampaignTypeAffiliate = "affiliate"
	CampaignTypeNetwork   = "network"
	CampaignTypeHouse     = "house"
)

const (
	CreativeTypeBanner = "banner"
	CreativeTypeNative = "native"
	CreativeTypeHTML   = "html"
	CreativeTypeScript = "script"
)

const (
	EventTypeImpression = "impression"
	EventTypeClick      = "click"
)

// TargetingRules restricts where a campaign may serve. An empty list means no restriction.
type TargetingRules struct {
	PageTypes []string `json:"page_types,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type Campaign struct {
	ID             uint                               `json:"id" gorm:"primaryKey"`
	Name           string                             `json:"name" gorm:"size:150;not null;uniqueIndex"`
	IsActive       bool                               `json:"is_active"`
	Type           string                             `json:"type" gorm:"size:20;not null"`
	AdNetwork      string                             `json:"ad_network" gorm:"size:100"`
	Budget         decimal.Decimal                    `json:"budget" gorm:"type:decimal(12,2)"`
	DailyCap       int                                `json:"daily_cap"`
	TotalCap       int                                `json:"total_cap"`
	Priority       int                                `json:"priority"`
	Weight         int                                `json:"weight"`
	StartAt        *time.Time                         `json:"start_at,omitempty"`
	EndAt          *time.Time                         `json:"end_at,omitempty"`
	TargetingRules datatypes.JSONType[TargetingRules] `json:"targeting_rules"`
	Locked         bool                               `json:"locked"`
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`
	DeletedAt      gorm.DeletedAt                     `json:"-" gorm:"index"`
}

// IsLive reports whether the campaign is active and now falls inside its schedule.
func (c *Campaign) IsLive(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartAt != nil && c.StartAt.After(now) {
		return false
	}
	if c.EndAt != nil && c.EndAt.Before(now) {
		return false
	}
	return true
}

func (c *Campaign) Rules() TargetingRules {
	return c.TargetingRules.Data()
}

type Creative struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	CampaignID   uint           `json:"campaign_id" gorm:"not null;index"`
	Campaign     *Campaign      `json:"campaign,omitempty" gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE"`
	Name         string         `json:"name" gorm:"size:150;not null"`
	CreativeType string         `json:"creative_type" gorm:"size:20;not null"`
	HTML         string         `json:"html"`
	ImageURL     string         `json:"image_url"`
	ClickURL     string         `json:"click_url"`
	Weight       int            `json:"weight"`
	IsEnabled    bool           `json:"is_enabled"`
	IsActive     bool           `json:"is_active"`
	Locked       bool           `json:"locked"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

type Placement struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	Name              string         `json:"name" gorm:"size:150;not null;uniqueIndex"`
	Code              string         `json:"code" gorm:"size:120;not null;uniqueIndex"`
	Slug              string         `json:"slug" gorm:"size:180;not null;uniqueIndex"`
	Description       string         `json:"description"`
	AllowedTypes      string         `json:"allowed_types" gorm:"size:100"`
	AllowedSizes      string         `json:"allowed_sizes" gorm:"size:100"`
	PageContext       string         `json:"page_context" gorm:"size:100"`
	TemplateReference string         `json:"template_reference" gorm:"size:255"`
	IsEnabled         bool           `json:"is_enabled"`
	IsActive          bool           `json:"is_active"`
	Locked            bool           `json:"locked"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p *Placement) IsDeleted() bool {
	return p.DeletedAt.Valid
}

// Assignment links a creative into a placement's rotation with its own weight.
type Assignment struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	PlacementID uint       `json:"placement_id" gorm:"not null;uniqueIndex:idx_assignment_pair"`
	Placement   *Placement `json:"placement,omitempty" gorm:"foreignKey:PlacementID;constraint:OnDelete:CASCADE"`
	CreativeID  uint       `json:"creative_id" gorm:"not null;uniqueIndex:idx_assignment_pair"`
	Creative    *Creative  `json:"creative,omitempty" gorm:"foreignKey:CreativeID;constraint:OnDelete:CASCADE"`
	Weight      int        `json:"weight"`
	IsEnabled   bool       `json:"is_enabled"`
	IsActive    bool       `json:"is_active"`
	Locked      bool       `json:"locked"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Assignment) TableName() string {
	return "placement_assignments"
}

// Event is an append-only impression or click record. References are plain ids so that
// deleting a placement, creative or campaign never touches recorded history.
type Event struct {
	ID          uint                                  `json:"id" gorm:"primaryKey"`
	EventType   string                                `json:"event_type" gorm:"size:20;not null;index:idx_event_type_created"`
	PlacementID *uint                                 `json:"placement_id,omitempty" gorm:"index"`
	CreativeID  *uint                                 `json:"creative_id,omitempty" gorm:"index"`
	CampaignID  *uint                                 `json:"campaign_id,omitempty" gorm:"index"`
	UserID      *uint                                 `json:"user_id,omitempty"`
	RequestMeta datatypes.JSONType[map[string]string] `json:"request_meta"`
	PageURL     string                                `json:"page_url" gorm:"not null;default:''"`
	ReferrerURL string                                `json:"referrer_url" gorm:"not null;default:''"`
	UserAgent   string                                `json:"user_agent" gorm:"not null;default:''"`
	SessionID   string                                `json:"session_id" gorm:"size:128;not null;default:''"`
	SiteDomain  string                                `json:"site_domain" gorm:"size:100;not null;default:''"`
	CreatedAt   time.Time                             `json:"created_at" gorm:"index:idx_event_type_created"`
}

func (Event) TableName() string {
	return "ad_events"
}

// DailyRollup aggregates mirrored events per day for the analytics dashboard.
type DailyRollup struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	EventDate   time.Time `json:"event_date" gorm:"not null;uniqueIndex:idx_rollup_key"`
	EventType   string    `json:"event_type" gorm:"size:20;not null;uniqueIndex:idx_rollup_key"`
	PlacementID uint      `json:"placement_id" gorm:"not null;default:0;uniqueIndex:idx_rollup_key"`
	CreativeID  uint      `json:"creative_id" gorm:"not null;default:0;uniqueIndex:idx_rollup_key"`
	CampaignID  uint      `json:"campaign_id" gorm:"not null;default:0;uniqueIndex:idx_rollup_key"`
	EventCount  int64     `json:"event_count"`
}

func (DailyRollup) TableName() string {
	return "ad_daily_rollups"
}

type AffiliateSource struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Network   string    `json:"network" gorm:"size:100"`
	BaseURL   string    `json:"base_url"`
	IsEnabled bool      `json:"is_enabled"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AffiliateLink struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	SourceID   uint             `json:"source_id" gorm:"not null;uniqueIndex:idx_affiliate_source_name"`
	Source     *AffiliateSource `json:"source,omitempty" gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE"`
	Name       string           `json:"name" gorm:"size:150;not null;uniqueIndex:idx_affiliate_source_name"`
	URL        string           `json:"url" gorm:"not null"`
	UsageCount int64            `json:"usage_count"`
	LastUsedAt *time.Time       `json:"last_used_at,omitempty"`
	IsEnabled  bool             `json:"is_enabled"`
	IsActive   bool             `json:"is_active"`
	Locked     bool             `json:"locked"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type FillRequest struct {
	Placement   string `form:"placement"`
	PageURL     string `form:"page_url"`
	PageContext string `form:"page_context"`
	Tags        string `form:"tags"`
}

type ClickRequest struct {
	CreativeID uint   `json:"creative" form:"creative" binding:"required"`
	Placement  string `json:"placement" form:"placement" binding:"required"`
	PageURL    string `json:"page_url" form:"page_url"`
	Referrer   string `json:"referrer" form:"referrer"`
	SessionID  string `json:"session_id" form:"session_id"`
}

type EventRequest struct {
	EventType  string `json:"event_type" form:"event_type" binding:"required,oneof=impression click"`
	Placement  string `json:"placement" form:"placement" binding:"required"`
	CampaignID *uint  `json:"campaign" form:"campaign"`
	PageURL    string `json:"page_url" form:"page_url"`
	Referrer   string `json:"referrer" form:"referrer"`
	SessionID  string `json:"session_id" form:"session_id"`
}

type CampaignRequest struct {
	Name           string          `json:"name" binding:"required,max=150"`
	Type           string          `json:"type" binding:"required,oneof=direct affiliate network house"`
	AdNetwork      string          `json:"ad_network" binding:"max=100"`
	Budget         decimal.Decimal `json:"budget"`
	DailyCap       int             `json:"daily_cap" binding:"gte=0"`
	TotalCap       int             `json:"total_cap" binding:"gte=0"`
	Priority       int             `json:"priority"`
	Weight         *int            `json:"weight" binding:"omitempty,gte=0,max=1000000"`
	StartAt        *time.Time      `json:"start_at"`
	EndAt          *time.Time      `json:"end_at"`
	IsActive       *bool           `json:"is_active"`
	TargetingRules TargetingRules  `json:"targeting_rules"`
}

type CreativeRequest struct {
	CampaignID   uint   `json:"campaign_id" binding:"required"`
	Name         string `json:"name" binding:"required,max=150"`
	CreativeType string `json:"creative_type" binding:"required,oneof=banner native html script"`
	HTML         string `json:"html"`
	ImageURL     string `json:"image_url"`
	ClickURL     string `json:"click_url"`
	Weight       *int   `json:"weight" binding:"omitempty,gte=0,max=1000000"`
	IsEnabled    *bool  `json:"is_enabled"`
}

type PlacementRequest struct {
	Name              string `json:"name" binding:"required,max=150"`
	Code              string `json:"code" binding:"max=120"`
	Slug              string `json:"slug" binding:"max=180"`
	Description       string `json:"description"`
	AllowedTypes      string `json:"allowed_types" binding:"max=100"`
	AllowedSizes      string `json:"allowed_sizes" binding:"max=100"`
	PageContext       string `json:"page_context" binding:"max=100"`
	TemplateReference string `json:"template_reference" binding:"max=255"`
}

type AssignmentRequest struct {
	PlacementID uint  `json:"placement_id" binding:"required"`
	CreativeID  uint  `json:"creative_id" binding:"required"`
	Weight      *int  `json:"weight" binding:"omitempty,gte=0,max=1000000"`
	IsEnabled   *bool `json:"is_enabled"`
}

// CreativePayload is the rendering payload returned by the fill endpoint.
type CreativePayload struct {
	Type      string `json:"type"`
	HTML      string `json:"html"`
	ImageURL  string `json:"image_url"`
	ClickURL  string `json:"click_url"`
	Campaign  uint   `json:"campaign"`
	Placement string `json:"placement"`
	Creative  uint   `json:"creative"`
	PageURL   string `json:"page_url"`
}

type AnalyticsResponse struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
}

type EntityStats struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
}

type DashboardResponse struct {
	AdsEnabled            bool              `json:"ads_enabled"`
	AdNetworksEnabled     bool              `json:"ad_networks_enabled"`
	AffiliateEnabled      bool              `json:"affiliate_enabled"`
	AdAggressivenessLevel string            `json:"ad_aggressiveness_level"`
	Totals                AnalyticsResponse `json:"totals"`
	Placements            []EntityStats     `json:"placements"`
	Creatives             []EntityStats     `json:"creatives"`
	Daily                 []DailyRollup     `json:"daily"`
}
