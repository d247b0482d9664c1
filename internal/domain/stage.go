package domain

import "time"

// Stage identifies one of the three pipeline phases.
type Stage string

const (
	StagePlan      Stage = "plan"
	StageImplement Stage = "implement"
	StageReview    Stage = "review"
)

// FailureKind classifies why an agent invocation failed.
// The CLI uses it to render distinct messages per category.
type FailureKind string

const (
	// FailureNone means the invocation succeeded.
	FailureNone FailureKind = ""
	// FailureSpawn means the agent command could not be started.
	FailureSpawn FailureKind = "spawn"
	// FailureExit means the agent process exited nonzero.
	FailureExit FailureKind = "exit"
	// FailureTimeout means the invocation exceeded its deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureCanceled means the caller canceled the invocation.
	FailureCanceled FailureKind = "canceled"
)

// StageResult holds the raw outcome of one agent invocation.
// It is produced by the invoker and discarded after the coordinator
// parses RawOutput into the stage's typed result.
type StageResult struct {
	Success     bool
	RawOutput   string
	ErrorDetail string
	FailureKind FailureKind
	ExitCode    int
	Duration    time.Duration
}
