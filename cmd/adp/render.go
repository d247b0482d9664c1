package main

import (
	"fmt"
	"os"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
	"github.com/anthropics/agentic-dev-pipeline/internal/terminal"
)

// renderReview prints the review report to stdout: findings grouped by
// kind, practice checks, and the reviewer's verdict.
func renderReview(review *domain.ReviewResult) {
	width := terminal.ReportWidth()

	fmt.Println()
	fmt.Println(terminal.Ruler(width, "="))
	fmt.Printf("%sReview report%s\n", terminal.Color(terminal.Bold), terminal.Color(terminal.Reset))
	fmt.Println(terminal.Ruler(width, "="))

	renderFindings("Security findings", review.SecurityFindings, width)
	renderFindings("Quality findings", review.QualityFindings, width)

	if len(review.PracticeChecks) > 0 {
		fmt.Printf("\n%sPractice checks%s\n", terminal.Color(terminal.Bold), terminal.Color(terminal.Reset))
		for _, check := range review.PracticeChecks {
			mark := terminal.Color(terminal.Green) + "✓" + terminal.Color(terminal.Reset)
			if !check.Passed {
				mark = terminal.Color(terminal.Red) + "✗" + terminal.Color(terminal.Reset)
			}
			fmt.Printf("  %s %s: %s\n", mark, check.Category, check.Description)
		}
	}

	verdict := terminal.Color(terminal.Red) + "not approved" + terminal.Color(terminal.Reset)
	if review.Approved {
		verdict = terminal.Color(terminal.Green) + "approved" + terminal.Color(terminal.Reset)
	}
	fmt.Printf("\nScore: %s%d/100%s  Verdict: %s\n",
		terminal.Color(terminal.Bold), review.Score, terminal.Color(terminal.Reset), verdict)

	if review.Summary != "" {
		fmt.Println()
		fmt.Println(terminal.WrapText(review.Summary, width, "  "))
	}
	fmt.Println()
}

func renderFindings(title string, findings []domain.ReviewFinding, width int) {
	if len(findings) == 0 {
		return
	}

	fmt.Printf("\n%s%s%s\n", terminal.Color(terminal.Bold), title, terminal.Color(terminal.Reset))
	for _, f := range findings {
		fmt.Printf("  %s[%s]%s %s %s(%s)%s\n",
			severityColor(f.Severity), f.Severity, terminal.Color(terminal.Reset),
			f.Location, terminal.Color(terminal.Dim), f.Category, terminal.Color(terminal.Reset))
		fmt.Fprintln(os.Stdout, terminal.WrapText(f.Description, width, "      "))
		if f.Remedy != "" {
			fmt.Println(terminal.WrapText("Remedy: "+f.Remedy, width, "      "))
		}
	}
}

func severityColor(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical, domain.SeverityHigh:
		return terminal.Color(terminal.Red)
	case domain.SeverityMedium:
		return terminal.Color(terminal.Yellow)
	default:
		return terminal.Color(terminal.Dim)
	}
}
