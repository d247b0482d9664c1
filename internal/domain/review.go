package domain

// Severity ranks a review finding. Values come from the external model.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ReviewFinding is a single issue reported by the reviewer agent.
type ReviewFinding struct {
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Remedy      string   `json:"remedy"`
}

// PracticeCheck records a pass/fail best-practice check from the reviewer.
type PracticeCheck struct {
	Passed      bool   `json:"passed"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ReviewResult is the structured output of the Review stage.
// Approved and Score are the model's self-report; the pipeline surfaces
// them without enforcing any threshold of its own.
type ReviewResult struct {
	SecurityFindings []ReviewFinding `json:"securityFindings"`
	QualityFindings  []ReviewFinding `json:"qualityFindings"`
	PracticeChecks   []PracticeCheck `json:"practiceChecks"`
	Score            int             `json:"score"`
	Approved         bool            `json:"approved"`
	Summary          string          `json:"summary"`
}

// FindingCount returns the total number of security and quality findings.
func (r *ReviewResult) FindingCount() int {
	return len(r.SecurityFindings) + len(r.QualityFindings)
}

// CountBySeverity returns how many findings (security and quality combined)
// carry the given severity.
func (r *ReviewResult) CountBySeverity(s Severity) int {
	n := 0
	for _, f := range r.SecurityFindings {
		if f.Severity == s {
			n++
		}
	}
	for _, f := range r.QualityFindings {
		if f.Severity == s {
			n++
		}
	}
	return n
}
