package pipeline

import (
	"fmt"
	"strings"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

// Stage prompts are built deterministically from the previous stage's parsed
// result by concatenating labeled sections. Each prompt ends with the JSON
// contract the agent must emit; the extraction layer tolerates prose and
// code fences around the payload, but the contract keeps well-behaved agents
// on the structured path.

const planContract = `Respond with a JSON object of this exact shape, optionally inside a ` + "```json" + ` code block:
{
  "requirements": ["..."],
  "implementationPlan": {
    "tasks": [{"id": "task-1", "description": "...", "priority": "high|medium|low", "estimatedEffort": "small|medium|large", "dependencies": [], "files": ["..."]}],
    "estimatedComplexity": 1,
    "risks": ["..."]
  },
  "successCriteria": ["..."],
  "notes": []
}
estimatedComplexity is an integer from 1 (trivial) to 10 (very complex).`

const implementContract = `Respond with a JSON object of this exact shape, optionally inside a ` + "```json" + ` code block:
{
  "changedFiles": [{"path": "...", "action": "create|modify|delete", "summary": "..."}],
  "addedDependencies": ["..."],
  "notes": []
}`

const reviewContract = `Respond with a JSON object of this exact shape, optionally inside a ` + "```json" + ` code block:
{
  "securityFindings": [{"severity": "critical|high|medium|low", "category": "...", "location": "file:line", "description": "...", "remedy": "..."}],
  "qualityFindings": [{"severity": "critical|high|medium|low", "category": "...", "location": "file:line", "description": "...", "remedy": "..."}],
  "practiceChecks": [{"passed": true, "category": "...", "description": "..."}],
  "score": 0,
  "approved": false,
  "summary": "..."
}
score is an integer from 0 to 100. Set approved to true only if there are zero
critical and zero high severity findings AND score is 75 or above.`

// BuildPlanPrompt builds the Plan-stage prompt from the user's task
// description.
func BuildPlanPrompt(task string) string {
	var b strings.Builder
	b.WriteString("You are a software planner. Analyze the task below and produce an implementation plan.\n\n")
	b.WriteString("## Task\n\n")
	b.WriteString(task)
	b.WriteString("\n\n## Instructions\n\n")
	b.WriteString("Break the task into ordered, dependency-aware tasks. List requirements, risks, and measurable success criteria.\n\n")
	b.WriteString("## Output format\n\n")
	b.WriteString(planContract)
	return b.String()
}

// BuildImplementPrompt builds the Implement-stage prompt from the approved
// plan.
func BuildImplementPrompt(plan *domain.PlanResult) string {
	var b strings.Builder
	b.WriteString("You are a software implementer. Execute the approved plan below, making the described changes in the working directory.\n\n")

	b.WriteString("## Requirements\n\n")
	writeList(&b, plan.Requirements)

	b.WriteString("\n## Tasks (in order)\n\n")
	for _, t := range plan.Plan.Tasks {
		fmt.Fprintf(&b, "- [%s] %s (priority: %s, effort: %s)\n", t.ID, t.Description, t.Priority, t.Effort)
		if len(t.Dependencies) > 0 {
			fmt.Fprintf(&b, "  depends on: %s\n", strings.Join(t.Dependencies, ", "))
		}
		if len(t.Files) > 0 {
			fmt.Fprintf(&b, "  files: %s\n", strings.Join(t.Files, ", "))
		}
	}

	if len(plan.Plan.Risks) > 0 {
		b.WriteString("\n## Known risks\n\n")
		writeList(&b, plan.Plan.Risks)
	}

	b.WriteString("\n## Success criteria\n\n")
	writeList(&b, plan.SuccessCriteria)

	b.WriteString("\n## Output format\n\n")
	b.WriteString(implementContract)
	return b.String()
}

// BuildReviewPrompt builds the Review-stage prompt from the implementation
// result.
func BuildReviewPrompt(impl *domain.ImplementResult) string {
	var b strings.Builder
	b.WriteString("You are a code reviewer. Review the changes described below for security issues (including the OWASP Top 10), code quality, and best practices.\n\n")

	b.WriteString("## Changed files\n\n")
	for _, f := range impl.ChangedFiles {
		fmt.Fprintf(&b, "- %s (%s): %s\n", f.Path, f.Action, f.Summary)
	}

	if len(impl.AddedDependencies) > 0 {
		b.WriteString("\n## Added dependencies\n\n")
		writeList(&b, impl.AddedDependencies)
	}

	if len(impl.Notes) > 0 {
		b.WriteString("\n## Implementer notes\n\n")
		writeList(&b, impl.Notes)
	}

	b.WriteString("\n## Instructions\n\n")
	b.WriteString("Read the changed files in the working directory. Report security findings and quality findings with severity, location, and a concrete remedy. Run the best-practice checks and score the implementation.\n\n")
	b.WriteString("## Output format\n\n")
	b.WriteString(reviewContract)
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
