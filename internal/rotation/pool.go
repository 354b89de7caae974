package rotation

import (
	"sort"
	"time"

	"adlink-platform/internal/models"
)

// MaxWeight caps a single assignment weight before the multiplier is applied.
const MaxWeight = 1_000_000

// Multiplier maps an aggressiveness level to the factor applied to assignment weights.
// Unknown or empty levels count as balanced.
func Multiplier(level string) int {
	switch level {
	case models.AggressivenessMinimal:
		return 1
	case models.AggressivenessAggressive:
		return 3
	default:
		return 2
	}
}

// Pool is a weighted set of creatives. Entry i owns the draw range
// [cumulative[i-1], cumulative[i]).
type Pool struct {
	creatives  []*models.Creative
	weights    []int
	cumulative []int
	total      int
}

// BuildPool keeps the assignments whose creative can serve at now and weighs each one
// max(1, min(weight, MaxWeight)*multiplier). A campaign that is not live only drops its
// creative when it is also unlocked.
func BuildPool(assignments []models.Assignment, multiplier int, now time.Time) Pool {
	var p Pool
	for i := range assignments {
		a := &assignments[i]
		if !eligible(a, now) {
			continue
		}
		w := min(a.Weight, MaxWeight) * multiplier
		if w < 1 {
			w = 1
		}
		p.total += w
		p.creatives = append(p.creatives, a.Creative)
		p.weights = append(p.weights, w)
		p.cumulative = append(p.cumulative, p.total)
	}
	return p
}

func eligible(a *models.Assignment, now time.Time) bool {
	if !a.IsEnabled || !a.IsActive {
		return false
	}
	c := a.Creative
	if c == nil || !c.IsEnabled || !c.IsActive {
		return false
	}
	if camp := c.Campaign; camp != nil && !camp.IsLive(now) && !camp.Locked {
		return false
	}
	return true
}

func (p Pool) Empty() bool {
	return p.total == 0
}

// Total is the number of entries the equivalent repeated list would hold.
func (p Pool) Total() int {
	return p.total
}

func (p Pool) Len() int {
	return len(p.creatives)
}

// Pick draws one creative with probability weight/total.
func (p Pool) Pick(r Source) *models.Creative {
	if p.total == 0 {
		return nil
	}
	return p.At(r.IntN(p.total))
}

// At resolves a draw in [0, Total()) to its creative.
func (p Pool) At(n int) *models.Creative {
	i := sort.Search(len(p.cumulative), func(i int) bool { return p.cumulative[i] > n })
	if i == len(p.cumulative) {
		return nil
	}
	return p.creatives[i]
}

// Expand returns the flat list holding each creative weight times, in pool order.
func (p Pool) Expand() []*models.Creative {
	out := make([]*models.Creative, 0, p.total)
	for i, c := range p.creatives {
		for j := 0; j < p.weights[i]; j++ {
			out = append(out, c)
		}
	}
	return out
}

type Share struct {
	CreativeID uint    `json:"creative_id"`
	Name       string  `json:"name"`
	Weight     int     `json:"weight"`
	Share      float64 `json:"share"`
}

// Shares reports each entry's probability of being picked.
func (p Pool) Shares() []Share {
	shares := make([]Share, 0, len(p.creatives))
	for i, c := range p.creatives {
		shares = append(shares, Share{
			CreativeID: c.ID,
			Name:       c.Name,
			Weight:     p.weights[i],
			Share:      float64(p.weights[i]) / float64(p.total),
		})
	}
	return shares
}
