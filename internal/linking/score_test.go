package linking

import (
	"testing"

	"adlink-platform/internal/models"

	"github.com/stretchr/testify/assert"
)

func entity(title string, keywords ...string) *models.LinkableEntity {
	return &models.LinkableEntity{Title: title, Keywords: keywords}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		source *models.LinkableEntity
		target *models.LinkableEntity
		want   float64
	}{
		{
			name:   "keyword multiset and title words",
			source: entity("Cheap flights to Rome", "cheap flights", "flights"),
			target: entity("Rome flights guide", "flights deals"),
			want:   2.0,
		},
		{
			name:   "repeated terms count up to the smaller multiplicity",
			source: entity("", "android android firmware"),
			target: entity("", "Android", "ANDROID", "android"),
			want:   2.0,
		},
		{
			name:   "title words count once",
			source: entity("root root guide"),
			target: entity("Root Guide root"),
			want:   1.0,
		},
		{
			name:   "no overlap",
			source: entity("Samsung unlock", "samsung"),
			target: entity("Pixel flashing", "pixel"),
			want:   0,
		},
		{
			name:   "empty fields",
			source: entity(""),
			target: entity("", "x"),
			want:   0,
		},
		{
			name:   "nil target",
			source: entity("a", "a"),
			target: nil,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.source, tt.target), 1e-9)
		})
	}
}

func TestScore_CommaJoinedKeywordsKeepCommas(t *testing.T) {
	// a comma glued to a word is part of the token
	a := entity("", "alpha,beta")
	b := entity("", "alpha", "beta")
	assert.InDelta(t, 0, Score(a, b), 1e-9)
	assert.InDelta(t, 2, Score(b, b), 1e-9)
}
