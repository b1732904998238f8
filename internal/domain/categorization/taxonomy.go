// Package categorization assigns keyword-based labels to transactions. Two
// independent taxonomies run side by side: a domain taxonomy (rent,
// utilities, payroll, ...) used for analytics, and a flow taxonomy
// (Deposit, Expense, Other) used for anomaly plots and filtering.
package categorization

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

// Rule assigns Label when a description contains any of Keywords.
type Rule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is an ordered rule list. The first rule with a matching keyword
// wins; Default applies when none match.
type Taxonomy struct {
	Name    string `yaml:"name"`
	Rules   []Rule `yaml:"rules"`
	Default string `yaml:"default"`
}

// DomainTaxonomy returns the built-in business-finance taxonomy.
func DomainTaxonomy() Taxonomy {
	return Taxonomy{
		Name: "domain",
		Rules: []Rule{
			{Label: "rent", Keywords: []string{"rent", "lease"}},
			{Label: "utilities", Keywords: []string{"electric", "utility", "water", "gas", "wifi", "internet"}},
			{Label: "payroll", Keywords: []string{"payroll", "salary", "wages", "paycheck"}},
			{Label: "loan", Keywords: []string{"loan", "mortgage", "interest", "repayment"}},
			{Label: "insurance", Keywords: []string{"insurance", "premium"}},
		},
		Default: "misc",
	}
}

// FlowTaxonomy returns the built-in money-direction taxonomy.
func FlowTaxonomy() Taxonomy {
	return Taxonomy{
		Name: "flow",
		Rules: []Rule{
			{Label: "Deposit", Keywords: []string{"deposit", "credit", "payment received", "incoming"}},
			{Label: "Expense", Keywords: []string{"withdrawal", "check", "card", "payment", "debit", "purchase"}},
		},
		Default: "Other",
	}
}

// Validate checks that every rule has a label and at least one keyword.
func (t Taxonomy) Validate() error {
	if t.Default == "" {
		return fmt.Errorf("%w: %s has no default label", ErrInvalidTaxonomy, t.Name)
	}
	for i, r := range t.Rules {
		if strings.TrimSpace(r.Label) == "" {
			return fmt.Errorf("%w: %s rule %d has no label", ErrInvalidTaxonomy, t.Name, i)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("%w: %s rule %q has no keywords", ErrInvalidTaxonomy, t.Name, r.Label)
		}
		for _, kw := range r.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("%w: %s rule %q has an empty keyword", ErrInvalidTaxonomy, t.Name, r.Label)
			}
		}
	}
	return nil
}

// Labels returns every label the taxonomy can assign, default last.
func (t Taxonomy) Labels() []string {
	labels := make([]string, 0, len(t.Rules)+1)
	for _, r := range t.Rules {
		labels = append(labels, r.Label)
	}
	return append(labels, t.Default)
}

// rulesFile is the YAML layout of a custom rules file. Either section may
// be omitted to keep the built-in taxonomy.
type rulesFile struct {
	Domain *Taxonomy `yaml:"domain"`
	Flow   *Taxonomy `yaml:"flow"`
}

// LoadTaxonomies reads custom taxonomies from a YAML file. An empty path
// returns the built-in taxonomies.
func LoadTaxonomies(path string) (domain, flow Taxonomy, err error) {
	domain, flow = DomainTaxonomy(), FlowTaxonomy()
	if path == "" {
		return domain, flow, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain, flow, fmt.Errorf("read rules file: %w", err)
	}
	return ParseTaxonomies(data)
}

// ParseTaxonomies decodes the YAML rules format.
func ParseTaxonomies(data []byte) (domain, flow Taxonomy, err error) {
	domain, flow = DomainTaxonomy(), FlowTaxonomy()

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain, flow, fmt.Errorf("parse rules file: %w", err)
	}

	if file.Domain != nil {
		domain = *file.Domain
		if domain.Name == "" {
			domain.Name = "domain"
		}
	}
	if file.Flow != nil {
		flow = *file.Flow
		if flow.Name == "" {
			flow.Name = "flow"
		}
	}

	if err := domain.Validate(); err != nil {
		return domain, flow, err
	}
	if err := flow.Validate(); err != nil {
		return domain, flow, err
	}
	return domain, flow, nil
}
