package agent

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

// placeholderPrefixLen caps how much raw agent output is echoed into a
// degraded placeholder. The raw text is untrusted display data; callers
// must not assume it is safe to render verbatim beyond this prefix.
const placeholderPrefixLen = 200

const parseFailureNote = "structured output could not be parsed; showing raw agent output"

// DecodePlan parses raw Plan-stage output into a PlanResult.
// The second return value is false when extraction or decoding failed and
// a degraded placeholder was returned instead. DecodePlan never errors:
// parse failure is a data outcome, not a propagated error.
func DecodePlan(raw string) (*domain.PlanResult, bool) {
	var plan domain.PlanResult
	if decodeInto(raw, &plan) {
		return &plan, true
	}
	return placeholderPlan(raw), false
}

// DecodeImplementation parses raw Implement-stage output into an
// ImplementResult, falling back to a placeholder on failure.
func DecodeImplementation(raw string) (*domain.ImplementResult, bool) {
	var impl domain.ImplementResult
	if decodeInto(raw, &impl) {
		return &impl, true
	}
	return placeholderImplementation(raw), false
}

// DecodeReview parses raw Review-stage output into a ReviewResult,
// falling back to a placeholder on failure.
func DecodeReview(raw string) (*domain.ReviewResult, bool) {
	var review domain.ReviewResult
	if decodeInto(raw, &review) {
		return &review, true
	}
	return placeholderReview(raw), false
}

// decodeInto runs the two-phase extraction: syntactic isolation of a JSON
// candidate, then schema decoding. Absent fields keep their zero values;
// no defaults are substituted.
func decodeInto(raw string, v any) bool {
	candidate, err := ExtractJSON(raw)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(candidate), v) == nil
}

// placeholderPlan builds a degraded PlanResult carrying a prefix of the raw
// output as a single synthetic task, so the pipeline can proceed to the
// approval gate instead of failing on unparseable planner output.
func placeholderPlan(raw string) *domain.PlanResult {
	return &domain.PlanResult{
		Requirements: []string{truncate(raw)},
		Plan: domain.ImplementationPlan{
			Tasks: []domain.PlanTask{
				{
					ID:          "task-1",
					Description: truncate(raw),
				},
			},
		},
		Notes: []string{parseFailureNote},
	}
}

func placeholderImplementation(raw string) *domain.ImplementResult {
	return &domain.ImplementResult{
		ChangedFiles: []domain.FileChange{
			{
				Path:    "unknown",
				Action:  domain.ActionModify,
				Summary: truncate(raw),
			},
		},
		Notes: []string{parseFailureNote},
	}
}

func placeholderReview(raw string) *domain.ReviewResult {
	return &domain.ReviewResult{
		QualityFindings: []domain.ReviewFinding{
			{
				Severity:    domain.SeverityMedium,
				Category:    "parse-failure",
				Description: truncate(raw),
			},
		},
		Summary: parseFailureNote,
	}
}

// truncate returns the first placeholderPrefixLen runes of s, cut on a rune
// boundary so multi-byte output is never split mid-character.
func truncate(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= placeholderPrefixLen {
		return s
	}
	return string(runes[:placeholderPrefixLen]) + "..."
}
