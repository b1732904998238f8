package categorization

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Engine classifies descriptions against one taxonomy using the
// Aho-Corasick algorithm: all keywords are matched in a single pass over the
// description, independent of how many rules the taxonomy has.
type Engine struct {
	taxonomy Taxonomy
	matcher  *ahocorasick.Matcher
	patterns []string
	// owners[i] lists the rule indexes that contain patterns[i], ascending.
	owners [][]int
}

// NewEngine builds the matcher for a taxonomy. Keywords are matched
// case-insensitively as plain substrings.
func NewEngine(t Taxonomy) *Engine {
	e := &Engine{taxonomy: t}

	patternToIndex := make(map[string]int)
	for ruleIdx, rule := range t.Rules {
		for _, kw := range rule.Keywords {
			p := strings.ToLower(strings.TrimSpace(kw))
			if p == "" {
				continue
			}
			if idx, exists := patternToIndex[p]; exists {
				owners := e.owners[idx]
				if owners[len(owners)-1] != ruleIdx {
					e.owners[idx] = append(owners, ruleIdx)
				}
				continue
			}
			patternToIndex[p] = len(e.patterns)
			e.patterns = append(e.patterns, p)
			e.owners = append(e.owners, []int{ruleIdx})
		}
	}

	if len(e.patterns) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(e.patterns)
	}
	return e
}

// Taxonomy returns the taxonomy the engine was built from.
func (e *Engine) Taxonomy() Taxonomy {
	return e.taxonomy
}

// Classify returns the label of the earliest rule with a keyword contained
// in description, or the taxonomy default.
func (e *Engine) Classify(description string) string {
	if best := e.firstRule(description); best >= 0 {
		return e.taxonomy.Rules[best].Label
	}
	return e.taxonomy.Default
}

// MatchAll returns the labels of every rule that matches, in rule order.
// The first element, if any, is what Classify returns.
func (e *Engine) MatchAll(description string) []string {
	hits := e.hits(description)
	if len(hits) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	for _, idx := range hits {
		for _, r := range e.owners[idx] {
			seen[r] = true
		}
	}

	labels := make([]string, 0, len(seen))
	for r, rule := range e.taxonomy.Rules {
		if seen[r] {
			labels = append(labels, rule.Label)
		}
	}
	return labels
}

// ClassifyBatch classifies descriptions in order.
func (e *Engine) ClassifyBatch(descriptions []string) []string {
	labels := make([]string, len(descriptions))
	for i, d := range descriptions {
		labels[i] = e.Classify(d)
	}
	return labels
}

// PatternCount returns the number of distinct keywords loaded.
func (e *Engine) PatternCount() int {
	return len(e.patterns)
}

func (e *Engine) firstRule(description string) int {
	best := -1
	for _, idx := range e.hits(description) {
		if r := e.owners[idx][0]; best == -1 || r < best {
			best = r
		}
	}
	return best
}

// hits runs the matcher. MatchThreadSafe keeps the engine usable from
// concurrent categorization workers.
func (e *Engine) hits(description string) []int {
	if e.matcher == nil {
		return nil
	}
	return e.matcher.MatchThreadSafe([]byte(strings.ToLower(description)))
}
