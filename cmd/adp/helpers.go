package main

import (
	"fmt"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

// exitCodeError is a wrapper type for returning exit codes via error interface.
type exitCodeError struct {
	code domain.ExitCode
}

func (e exitCodeError) Error() string {
	switch e.code {
	case domain.ExitNotApproved:
		return "review did not approve the changes"
	case domain.ExitError:
		return "pipeline failed with error"
	case domain.ExitCanceled:
		return "run was canceled"
	case domain.ExitInterrupted:
		return "run was interrupted"
	default:
		return fmt.Sprintf("exit code %d", e.code)
	}
}

func exitCode(code domain.ExitCode) error {
	if code == domain.ExitCompleted {
		return nil
	}
	return exitCodeError{code: code}
}
