package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
	"github.com/anthropics/agentic-dev-pipeline/internal/terminal"
)

// stageProgress renders coordinator events: a spinner per stage on a TTY,
// styled log lines otherwise, and raw agent output in verbose mode.
type stageProgress struct {
	logger  *terminal.Logger
	verbose bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newStageProgress(logger *terminal.Logger, verbose bool) *stageProgress {
	return &stageProgress{logger: logger, verbose: verbose}
}

func (p *stageProgress) statusChanged(status domain.Status) {
	p.stop()

	switch status {
	case domain.StatusPlanning:
		p.start("Planning...")
	case domain.StatusAwaitingApproval:
		p.logger.Log("Plan ready, awaiting approval", terminal.StyleStage)
	case domain.StatusImplementing:
		p.start("Implementing...")
	case domain.StatusReviewing:
		p.start("Reviewing...")
	}
}

func (p *stageProgress) stageResult(stage domain.Stage, result any) {
	p.stop()

	switch r := result.(type) {
	case *domain.PlanResult:
		p.logger.Logf(terminal.StyleSuccess, "Plan ready %s(%d tasks, complexity %d/10)%s",
			terminal.Color(terminal.Dim), r.TaskCount(), r.Plan.Complexity, terminal.Color(terminal.Reset))
	case *domain.ImplementResult:
		p.logger.Logf(terminal.StyleSuccess, "Implementation done %s(%d files changed)%s",
			terminal.Color(terminal.Dim), len(r.ChangedFiles), terminal.Color(terminal.Reset))
	case *domain.ReviewResult:
		p.logger.Logf(terminal.StyleSuccess, "Review done %s(%d findings, score %d)%s",
			terminal.Color(terminal.Dim), r.FindingCount(), r.Score, terminal.Color(terminal.Reset))
	}
}

func (p *stageProgress) processLog(stage domain.Stage, chunk string) {
	if p.verbose {
		fmt.Fprint(os.Stderr, chunk)
	}
}

// start launches a stage spinner. In verbose mode (or without a TTY) the
// spinner would fight the streamed output, so a plain log line is used.
func (p *stageProgress) start(label string) {
	if p.verbose || !terminal.IsStderrTTY() {
		p.logger.Log(label, terminal.StyleStage)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	spinner := terminal.NewStageSpinner(label)
	go func() {
		spinner.Run(ctx)
		close(done)
	}()
}

// stop halts the active spinner, if any, and waits for it to clear the line.
func (p *stageProgress) stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
