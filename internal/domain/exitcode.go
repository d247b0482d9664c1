// Package domain provides core types for the development pipeline.
package domain

// ExitCode represents the exit status of the pipeline CLI.
type ExitCode int

const (
	// ExitCompleted indicates the pipeline finished and the review approved the changes.
	ExitCompleted ExitCode = 0
	// ExitNotApproved indicates the pipeline finished but the review did not approve.
	ExitNotApproved ExitCode = 1
	// ExitError indicates the pipeline failed due to an error.
	ExitError ExitCode = 2
	// ExitCanceled indicates the run was canceled (plan rejected or stop requested).
	ExitCanceled ExitCode = 3
	// ExitInterrupted indicates the run was interrupted by a signal.
	ExitInterrupted ExitCode = 130
)

// Int returns the exit code as an int for use with os.Exit.
func (e ExitCode) Int() int {
	return int(e)
}
