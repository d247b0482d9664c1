package domain

// Status is the current position of a workflow run in the pipeline.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusPlanning         Status = "planning"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusImplementing     Status = "implementing"
	StatusReviewing        Status = "reviewing"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusCanceled         Status = "canceled"
)

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// WorkflowState is the single mutable record of one pipeline run.
// It is owned exclusively by the coordinator; callers observe it through
// snapshots and status-change callbacks. A stage's result field is only
// populated after the corresponding status has been entered.
type WorkflowState struct {
	Status         Status
	Plan           *PlanResult
	Implementation *ImplementResult
	Review         *ReviewResult
	FailureReason  string
}
