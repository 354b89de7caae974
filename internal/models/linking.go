package models

import (
	"time"

	"gorm.io/datatypes"
)

// LinkableEntity registers a piece of content as a source or target for internal links.
type LinkableEntity struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	ContentType string                      `json:"content_type" gorm:"size:100;not null;uniqueIndex:idx_linkable_object"`
	ObjectID    uint                        `json:"object_id" gorm:"not null;uniqueIndex:idx_linkable_object"`
	Title       string                      `json:"title" gorm:"size:255"`
	Slug        string                      `json:"slug" gorm:"size:255;index"`
	URL         string                      `json:"url"`
	Keywords    datatypes.JSONSlice[string] `json:"keywords"`
	IsActive    bool                        `json:"is_active"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

type LinkSuggestion struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	SourceID  uint            `json:"source_id" gorm:"not null;uniqueIndex:idx_suggestion_pair"`
	Source    *LinkableEntity `json:"source,omitempty" gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE"`
	TargetID  uint            `json:"target_id" gorm:"not null;uniqueIndex:idx_suggestion_pair"`
	Target    *LinkableEntity `json:"target,omitempty" gorm:"foreignKey:TargetID;constraint:OnDelete:CASCADE"`
	Score     float64         `json:"score"`
	IsApplied bool            `json:"is_applied"`
	Locked    bool            `json:"locked"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type LinkableRequest struct {
	ContentType string `json:"content_type" validate:"required,max=100"`
	ObjectID    uint   `json:"object_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	URL         string `json:"url" validate:"required"`
	Keywords    string `json:"keywords"`
}

type SuggestionPatch struct {
	Locked    *bool `json:"locked"`
	IsApplied *bool `json:"is_applied"`
}
