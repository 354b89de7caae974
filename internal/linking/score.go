package linking

import (
	"strings"

	"adlink-platform/internal/models"
)

// titleWeight is the score contributed by each shared title word.
const titleWeight = 0.5

// Score rates how related target is to source: the multiset overlap of their keyword
// tokens plus half a point per distinct shared title word. Keywords are joined with
// spaces and split on whitespace, so "cheap flights" and "cheap, flights" tokenize alike.
func Score(source, target *models.LinkableEntity) float64 {
	if source == nil || target == nil {
		return 0
	}

	src := termCounts(strings.Join(source.Keywords, " "))
	tgt := termCounts(strings.Join(target.Keywords, " "))
	overlap := 0
	for term, n := range src {
		if m := tgt[term]; m < n {
			overlap += m
		} else {
			overlap += n
		}
	}

	titleOverlap := 0
	if source.Title != "" && target.Title != "" {
		tgtTitle := termCounts(target.Title)
		for word := range termCounts(source.Title) {
			if tgtTitle[word] > 0 {
				titleOverlap++
			}
		}
	}

	return float64(overlap) + float64(titleOverlap)*titleWeight
}

func termCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, term := range strings.Fields(strings.ToLower(s)) {
		counts[term]++
	}
	return counts
}
