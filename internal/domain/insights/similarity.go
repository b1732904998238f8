package insights

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// minGroupScore is the similarity at which two canonical descriptions are
// treated as the same counterparty.
const minGroupScore = 85

// descriptionGrouper assigns near-identical descriptions to the first
// description seen in their group, e.g. "utility co" and "utility co ltd".
type descriptionGrouper struct {
	representatives []string
	cache           map[string]string
}

func newDescriptionGrouper() *descriptionGrouper {
	return &descriptionGrouper{cache: make(map[string]string)}
}

// Key returns the group representative for a canonical description.
func (g *descriptionGrouper) Key(desc string) string {
	if key, ok := g.cache[desc]; ok {
		return key
	}

	best, bestScore := "", 0
	for _, rep := range g.representatives {
		if score := similarity(desc, rep); score > bestScore {
			best, bestScore = rep, score
		}
	}
	if bestScore < minGroupScore {
		best = desc
		g.representatives = append(g.representatives, desc)
	}
	g.cache[desc] = best
	return best
}

// similarity scores two strings from 0 to 100. Containment scores high since
// banks append store numbers and suffixes to the same counterparty.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) {
		return 75 + 25*len(b)/len(a)
	}
	if strings.Contains(b, a) {
		return 75 + 25*len(a)/len(b)
	}

	maxLen := max(len(a), len(b))
	score := 100 * (maxLen - fuzzy.LevenshteinDistance(a, b)) / maxLen

	// A subsequence match scores lower the more characters it skips.
	if rank := fuzzy.RankMatch(b, a); rank >= 0 && rank < len(a) {
		score = max(score, 60-rank*40/len(a))
	}
	return score
}
