// Package pipeline drives one Plan → Implement → Review workflow run.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anthropics/agentic-dev-pipeline/internal/agent"
	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
	"github.com/anthropics/agentic-dev-pipeline/internal/terminal"
)

// ErrNotIdle is returned by Run when the coordinator has already been used.
// Terminal states are final; a new run needs a fresh coordinator.
var ErrNotIdle = errors.New("pipeline: coordinator already ran")

// Config holds the coordinator configuration.
type Config struct {
	// AgentCommand is the external agent CLI invoked per stage.
	AgentCommand string
	// WorkDir is the project root the agent operates in.
	WorkDir string
	// ExtraPath is prepended to the agent's PATH.
	ExtraPath string
	// Timeout bounds each stage invocation.
	Timeout time.Duration
}

// ApprovalFunc supplies the plan approval decision. It is called exactly
// once per run, after the Plan stage succeeds, and may block indefinitely
// (e.g. on user input). Returning an error counts as not approved.
type ApprovalFunc func(plan *domain.PlanResult) (bool, error)

// Callbacks holds optional observer hooks for coordinator events.
// All callbacks are invoked synchronously from the run goroutine.
type Callbacks struct {
	// OnStatusChange fires on every workflow state transition.
	OnStatusChange func(status domain.Status)

	// OnStageResult fires after each stage's output has been parsed, with
	// the typed result (*domain.PlanResult, *domain.ImplementResult, or
	// *domain.ReviewResult). It fires even when extraction degraded to a
	// placeholder; callers inspect the payload's own note fields to tell.
	OnStageResult func(stage domain.Stage, result any)

	// OnProcessLog fires for each stdout chunk from the agent, in order.
	OnProcessLog func(stage domain.Stage, chunk string)

	// OnComplete fires once, when the run reaches a terminal state.
	OnComplete func(state domain.WorkflowState)
}

// Coordinator owns the workflow state machine for a single run.
//
// States advance linearly: Idle → Planning → AwaitingApproval →
// Implementing → Reviewing → Completed, with Failed reachable from any
// invoking state and Canceled from rejection or Stop. No stage result is
// populated before its status has been entered, and no stage is ever
// skipped: Implement consumes the parsed plan, Review the parsed
// implementation.
type Coordinator struct {
	config    Config
	approve   ApprovalFunc
	callbacks Callbacks
	logger    *terminal.Logger
	invoker   *agent.Invoker

	mu      sync.Mutex
	state   domain.WorkflowState
	gate    *approvalGate
	stopped bool
}

// New creates a Coordinator. approve must not be nil; logger may be nil.
func New(config Config, approve ApprovalFunc, callbacks Callbacks, logger *terminal.Logger) *Coordinator {
	c := &Coordinator{
		config:    config,
		approve:   approve,
		callbacks: callbacks,
		logger:    logger,
		state:     domain.WorkflowState{Status: domain.StatusIdle},
	}
	c.invoker = agent.NewInvoker(c)
	return c
}

// State returns a snapshot of the workflow state.
func (c *Coordinator) State() domain.WorkflowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop cancels the in-flight stage invocation and any pending approval
// wait. The run then settles into Canceled. Stop is idempotent and safe to
// call from any goroutine, including signal handlers.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	gate := c.gate
	c.mu.Unlock()

	c.invoker.Cancel()
	if gate != nil {
		gate.Resolve(false)
	}
}

// Run drives one workflow run to a terminal state and returns the final
// snapshot. The coordinator is single use; a second Run returns ErrNotIdle.
func (c *Coordinator) Run(ctx context.Context, task string) (domain.WorkflowState, error) {
	c.mu.Lock()
	if c.state.Status != domain.StatusIdle {
		c.mu.Unlock()
		return c.state, ErrNotIdle
	}
	c.mu.Unlock()

	// Plan
	c.transition(domain.StatusPlanning)
	planRes := c.invokeStage(ctx, domain.StagePlan, BuildPlanPrompt(task))
	if done, state := c.settleFailure(planRes); done {
		return state, nil
	}

	plan, clean := agent.DecodePlan(planRes.RawOutput)
	if !clean {
		c.logDegraded(domain.StagePlan)
	}
	c.setPlan(plan)
	c.notifyStageResult(domain.StagePlan, plan)

	// Approval gate
	c.transition(domain.StatusAwaitingApproval)
	if !c.awaitApproval(ctx, plan) {
		return c.finish(domain.StatusCanceled, ""), nil
	}

	// Implement
	c.transition(domain.StatusImplementing)
	implRes := c.invokeStage(ctx, domain.StageImplement, BuildImplementPrompt(plan))
	if done, state := c.settleFailure(implRes); done {
		return state, nil
	}

	impl, clean := agent.DecodeImplementation(implRes.RawOutput)
	if !clean {
		c.logDegraded(domain.StageImplement)
	}
	c.setImplementation(impl)
	c.notifyStageResult(domain.StageImplement, impl)

	// Review
	c.transition(domain.StatusReviewing)
	reviewRes := c.invokeStage(ctx, domain.StageReview, BuildReviewPrompt(impl))
	if done, state := c.settleFailure(reviewRes); done {
		return state, nil
	}

	review, clean := agent.DecodeReview(reviewRes.RawOutput)
	if !clean {
		c.logDegraded(domain.StageReview)
	}
	c.setReview(review)
	c.notifyStageResult(domain.StageReview, review)

	// A Stop that arrived during review decoding or its callbacks still
	// wins over completion.
	if c.isStopped() {
		return c.finish(domain.StatusCanceled, ""), nil
	}
	return c.finish(domain.StatusCompleted, ""), nil
}

func (c *Coordinator) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// invokeStage runs the agent once for a stage. An ErrBusy or invalid
// request is folded into a failed StageResult so the run loop has a single
// failure path. A Stop that landed between stages, while nothing was in
// flight for Cancel to kill, is honored here: no further agent process is
// spawned and the run settles into Canceled via settleFailure.
func (c *Coordinator) invokeStage(ctx context.Context, stage domain.Stage, prompt string) *domain.StageResult {
	if c.isStopped() {
		return &domain.StageResult{
			Success:     false,
			FailureKind: domain.FailureCanceled,
			ErrorDetail: "invocation canceled",
		}
	}

	result, err := c.invoker.Invoke(ctx, agent.Request{
		Command:   c.config.AgentCommand,
		Prompt:    prompt,
		Stage:     stage,
		WorkDir:   c.config.WorkDir,
		ExtraPath: c.config.ExtraPath,
		Timeout:   c.config.Timeout,
	})
	if err != nil {
		return &domain.StageResult{
			Success:     false,
			FailureKind: domain.FailureSpawn,
			ErrorDetail: err.Error(),
		}
	}
	return result
}

// settleFailure inspects a stage result and, when it failed, drives the run
// to its terminal state: Canceled for cancellation, Failed for everything
// else. The failure reason is the invoker's detail, not re-interpreted.
func (c *Coordinator) settleFailure(result *domain.StageResult) (bool, domain.WorkflowState) {
	if result.Success {
		return false, domain.WorkflowState{}
	}

	if c.isStopped() || result.FailureKind == domain.FailureCanceled {
		return true, c.finish(domain.StatusCanceled, "")
	}
	return true, c.finish(domain.StatusFailed, result.ErrorDetail)
}

// awaitApproval suspends the run on the approval gate. The caller's
// ApprovalFunc runs in its own goroutine and resolves the gate; Stop and
// context cancellation resolve it with "not approved".
func (c *Coordinator) awaitApproval(ctx context.Context, plan *domain.PlanResult) bool {
	gate := newApprovalGate()

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	c.gate = gate
	c.mu.Unlock()

	go func() {
		approved, err := c.approve(plan)
		if err != nil {
			if c.logger != nil {
				c.logger.Logf(terminal.StyleWarning, "Approval callback failed: %v", err)
			}
			approved = false
		}
		gate.Resolve(approved)
	}()

	approved := gate.Wait(ctx)

	c.mu.Lock()
	c.gate = nil
	stopped := c.stopped
	c.mu.Unlock()

	return approved && !stopped
}

func (c *Coordinator) transition(status domain.Status) {
	c.mu.Lock()
	c.state.Status = status
	c.mu.Unlock()

	if c.callbacks.OnStatusChange != nil {
		c.callbacks.OnStatusChange(status)
	}
}

// finish moves the run into a terminal state and fires OnComplete once.
func (c *Coordinator) finish(status domain.Status, reason string) domain.WorkflowState {
	c.mu.Lock()
	c.state.Status = status
	c.state.FailureReason = reason
	state := c.state
	c.mu.Unlock()

	if c.callbacks.OnStatusChange != nil {
		c.callbacks.OnStatusChange(status)
	}
	if c.callbacks.OnComplete != nil {
		c.callbacks.OnComplete(state)
	}
	return state
}

func (c *Coordinator) setPlan(plan *domain.PlanResult) {
	c.mu.Lock()
	c.state.Plan = plan
	c.mu.Unlock()
}

func (c *Coordinator) setImplementation(impl *domain.ImplementResult) {
	c.mu.Lock()
	c.state.Implementation = impl
	c.mu.Unlock()
}

func (c *Coordinator) setReview(review *domain.ReviewResult) {
	c.mu.Lock()
	c.state.Review = review
	c.mu.Unlock()
}

func (c *Coordinator) notifyStageResult(stage domain.Stage, result any) {
	if c.callbacks.OnStageResult != nil {
		c.callbacks.OnStageResult(stage, result)
	}
}

func (c *Coordinator) logDegraded(stage domain.Stage) {
	if c.logger != nil {
		c.logger.Logf(terminal.StyleWarning,
			"Could not parse structured %s output, continuing with raw text", stage)
	}
}

// OnStart implements agent.Observer.
func (c *Coordinator) OnStart(stage domain.Stage) {
	if c.logger != nil {
		c.logger.Logf(terminal.StyleDim, "Invoking agent for %s stage", stage)
	}
}

// OnOutput implements agent.Observer, forwarding stdout chunks to the
// process-log callback in arrival order.
func (c *Coordinator) OnOutput(stage domain.Stage, chunk string) {
	if c.callbacks.OnProcessLog != nil {
		c.callbacks.OnProcessLog(stage, chunk)
	}
}

// OnComplete implements agent.Observer.
func (c *Coordinator) OnComplete(stage domain.Stage, result *domain.StageResult) {
	if c.logger != nil && result.Success {
		c.logger.Logf(terminal.StyleDim, "%s stage finished in %s", stage, terminal.FormatDuration(result.Duration))
	}
}
