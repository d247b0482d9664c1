package domain

// Priority is the agent-reported priority of a planned task.
// Values come from the external model and are not validated; unknown
// values pass through.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Effort is the agent-reported effort estimate of a planned task.
type Effort string

const (
	EffortSmall  Effort = "small"
	EffortMedium Effort = "medium"
	EffortLarge  Effort = "large"
)

// PlanTask is a single unit of work in an implementation plan.
type PlanTask struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Priority     Priority `json:"priority"`
	Effort       Effort   `json:"estimatedEffort"`
	Dependencies []string `json:"dependencies"`
	Files        []string `json:"files"`
}

// ImplementationPlan groups the tasks of a plan with its complexity estimate.
type ImplementationPlan struct {
	Tasks      []PlanTask `json:"tasks"`
	Complexity int        `json:"estimatedComplexity"`
	Risks      []string   `json:"risks"`
}

// PlanResult is the structured output of the Plan stage.
// Field names match the JSON contract the planner agent is prompted to emit.
type PlanResult struct {
	Requirements    []string           `json:"requirements"`
	Plan            ImplementationPlan `json:"implementationPlan"`
	SuccessCriteria []string           `json:"successCriteria"`
	Notes           []string           `json:"notes"`
}

// TaskCount returns the number of planned tasks.
func (p *PlanResult) TaskCount() int {
	return len(p.Plan.Tasks)
}
