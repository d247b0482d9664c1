package pipeline

import (
	"strings"
	"testing"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

func TestBuildPlanPrompt(t *testing.T) {
	prompt := BuildPlanPrompt("add a retry flag to the sync command")

	if !strings.Contains(prompt, "add a retry flag to the sync command") {
		t.Error("prompt should embed the task description")
	}
	if !strings.Contains(prompt, `"implementationPlan"`) {
		t.Error("prompt should embed the plan output contract")
	}
	if !strings.Contains(prompt, "estimatedComplexity") {
		t.Error("prompt should document the complexity field")
	}
}

func TestBuildImplementPrompt(t *testing.T) {
	plan := &domain.PlanResult{
		Requirements: []string{"retries must be bounded"},
		Plan: domain.ImplementationPlan{
			Tasks: []domain.PlanTask{
				{
					ID:           "task-1",
					Description:  "add --retry flag",
					Priority:     domain.PriorityHigh,
					Effort:       domain.EffortSmall,
					Dependencies: []string{"task-0"},
					Files:        []string{"cmd/sync.go"},
				},
			},
			Risks: []string{"flag collides with -r shorthand"},
		},
		SuccessCriteria: []string{"sync retries on transient failure"},
	}

	prompt := BuildImplementPrompt(plan)

	for _, want := range []string{
		"retries must be bounded",
		"add --retry flag",
		"task-1",
		"depends on: task-0",
		"files: cmd/sync.go",
		"flag collides with -r shorthand",
		"sync retries on transient failure",
		`"changedFiles"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("implement prompt missing %q", want)
		}
	}
}

func TestBuildImplementPrompt_OmitsEmptySections(t *testing.T) {
	plan := &domain.PlanResult{
		Plan: domain.ImplementationPlan{
			Tasks: []domain.PlanTask{{ID: "task-1", Description: "do the thing"}},
		},
	}

	prompt := BuildImplementPrompt(plan)
	if strings.Contains(prompt, "Known risks") {
		t.Error("risk section should be omitted when the plan has no risks")
	}
}

func TestBuildReviewPrompt(t *testing.T) {
	impl := &domain.ImplementResult{
		ChangedFiles: []domain.FileChange{
			{Path: "cmd/sync.go", Action: domain.ActionModify, Summary: "added retry loop"},
		},
		AddedDependencies: []string{"github.com/cenkalti/backoff/v4"},
		Notes:             []string{"kept default retry count at 3"},
	}

	prompt := BuildReviewPrompt(impl)

	for _, want := range []string{
		"cmd/sync.go (modify): added retry loop",
		"github.com/cenkalti/backoff/v4",
		"kept default retry count at 3",
		"OWASP",
		`"securityFindings"`,
		`"practiceChecks"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("review prompt missing %q", want)
		}
	}
}

func TestPrompts_AreDeterministic(t *testing.T) {
	plan := &domain.PlanResult{
		Requirements: []string{"a", "b"},
		Plan: domain.ImplementationPlan{
			Tasks: []domain.PlanTask{{ID: "task-1", Description: "x"}},
		},
	}

	if BuildImplementPrompt(plan) != BuildImplementPrompt(plan) {
		t.Error("identical inputs must produce identical prompts")
	}
	if BuildPlanPrompt("t") != BuildPlanPrompt("t") {
		t.Error("identical inputs must produce identical prompts")
	}
}
