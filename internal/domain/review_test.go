package domain

import "testing"

func TestReviewResult_Counts(t *testing.T) {
	r := &ReviewResult{
		SecurityFindings: []ReviewFinding{
			{Severity: SeverityCritical},
			{Severity: SeverityMedium},
		},
		QualityFindings: []ReviewFinding{
			{Severity: SeverityMedium},
			{Severity: SeverityLow},
		},
	}

	if got := r.FindingCount(); got != 4 {
		t.Errorf("FindingCount() = %d, want 4", got)
	}
	if got := r.CountBySeverity(SeverityMedium); got != 2 {
		t.Errorf("CountBySeverity(medium) = %d, want 2", got)
	}
	if got := r.CountBySeverity(SeverityHigh); got != 0 {
		t.Errorf("CountBySeverity(high) = %d, want 0", got)
	}
}
