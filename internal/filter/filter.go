// Package filter provides regex-based exclusion of review findings.
package filter

import (
	"regexp"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

// Filter holds compiled regex patterns for excluding findings.
type Filter struct {
	excludePatterns []*regexp.Regexp
}

// New creates a Filter from pattern strings.
// Returns an error if any pattern is an invalid regex.
func New(patterns []string) (*Filter, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &Filter{excludePatterns: compiled}, nil
}

// Apply returns a copy of the review with excluded findings removed.
// Patterns match against a finding's location, category, and description.
// Practice checks, score, approved, and summary are never filtered: they
// are the model's verdict, not individual findings.
// Does not mutate the original.
func (f *Filter) Apply(review domain.ReviewResult) domain.ReviewResult {
	if len(f.excludePatterns) == 0 {
		return review
	}

	review.SecurityFindings = f.keep(review.SecurityFindings)
	review.QualityFindings = f.keep(review.QualityFindings)
	return review
}

func (f *Filter) keep(findings []domain.ReviewFinding) []domain.ReviewFinding {
	kept := make([]domain.ReviewFinding, 0, len(findings))
	for _, finding := range findings {
		if !f.shouldExclude(finding) {
			kept = append(kept, finding)
		}
	}
	return kept
}

func (f *Filter) shouldExclude(finding domain.ReviewFinding) bool {
	for _, re := range f.excludePatterns {
		if re.MatchString(finding.Location) ||
			re.MatchString(finding.Category) ||
			re.MatchString(finding.Description) {
			return true
		}
	}
	return false
}
