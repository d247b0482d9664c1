package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

// StageEnvVar is set in the child environment to identify which pipeline
// stage the agent is being invoked for.
const StageEnvVar = "ADP_STAGE"

// readBufferSize is the chunk size for streaming agent stdout.
const readBufferSize = 4096

// ErrBusy is returned by Invoke when another invocation is already in flight.
var ErrBusy = errors.New("agent invocation already in flight")

// Request describes a single agent invocation.
type Request struct {
	// Command is the agent CLI executable name or path.
	Command string
	// Prompt is the full prompt text, passed as a single positional argument.
	Prompt string
	// Stage identifies the pipeline stage, exported via StageEnvVar.
	Stage domain.Stage
	// WorkDir is the project root the agent operates in.
	WorkDir string
	// ExtraPath, if set, is prepended to the child's PATH.
	ExtraPath string
	// Timeout bounds the invocation. Must be positive.
	Timeout time.Duration
}

// Observer receives invocation lifecycle notifications. Output chunks are
// delivered in the order the child produced them; OnComplete is always the
// last notification for an invocation.
type Observer interface {
	OnStart(stage domain.Stage)
	OnOutput(stage domain.Stage, chunk string)
	OnComplete(stage domain.Stage, result *domain.StageResult)
}

// Invoker runs one external agent command at a time.
// The zero value is not usable; construct with NewInvoker.
type Invoker struct {
	observer Observer

	mu       sync.Mutex
	busy     bool
	proc     *os.Process // nil when idle
	canceled bool
}

// NewInvoker creates an Invoker. observer may be nil.
func NewInvoker(observer Observer) *Invoker {
	return &Invoker{observer: observer}
}

// Invoke spawns the agent command and waits for it to exit, time out, or be
// canceled. The returned StageResult is never nil on a nil error. Runtime
// failures (spawn error, nonzero exit, timeout, cancellation) are reported
// in the result, not as errors; Invoke only errors on an invalid request or
// when another invocation is already in flight.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*domain.StageResult, error) {
	if req.Command == "" {
		return nil, fmt.Errorf("agent command is required")
	}
	if req.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %v", req.Timeout)
	}

	inv.mu.Lock()
	if inv.busy {
		inv.mu.Unlock()
		return nil, ErrBusy
	}
	inv.busy = true
	inv.canceled = false
	inv.mu.Unlock()

	defer func() {
		inv.mu.Lock()
		inv.busy = false
		inv.proc = nil
		inv.mu.Unlock()
	}()

	inv.notifyStart(req.Stage)

	start := time.Now()
	result := inv.run(ctx, req)
	result.Duration = time.Since(start)

	inv.notifyComplete(req.Stage, result)
	return result, nil
}

// Cancel terminates the in-flight invocation, if any. The canceled
// invocation reports FailureCanceled, distinguishable from a timeout.
// Cancel is idempotent: calling it while idle is a no-op.
func (inv *Invoker) Cancel() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.proc == nil {
		return
	}
	inv.canceled = true
	// Kill the entire process group (negative PID). Ignore errors -
	// the process may have already exited.
	_ = syscall.Kill(-inv.proc.Pid, syscall.SIGKILL)
}

func (inv *Invoker) run(ctx context.Context, req Request) *domain.StageResult {
	// Resolve the executable up front so a missing command is reported by
	// name rather than as an opaque start failure.
	if _, err := exec.LookPath(req.Command); err != nil {
		return &domain.StageResult{
			Success:     false,
			FailureKind: domain.FailureSpawn,
			ErrorDetail: fmt.Sprintf("agent command %q not found: %v", req.Command, err),
			ExitCode:    -1,
		}
	}

	tctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	// #nosec G204 - Command comes from trusted configuration, not the
	// agent's output.
	cmd := exec.Command(req.Command, req.Prompt)
	cmd.Dir = req.WorkDir
	cmd.Env = buildEnv(req)

	// Own process group so timeout/cancel can kill the agent and any
	// children it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &domain.StageResult{
			Success:     false,
			FailureKind: domain.FailureSpawn,
			ErrorDetail: fmt.Sprintf("failed to create stdout pipe: %v", err),
			ExitCode:    -1,
		}
	}

	if err := cmd.Start(); err != nil {
		return &domain.StageResult{
			Success:     false,
			FailureKind: domain.FailureSpawn,
			ErrorDetail: fmt.Sprintf("failed to start %s: %v", req.Command, err),
			ExitCode:    -1,
		}
	}

	inv.mu.Lock()
	inv.proc = cmd.Process
	inv.mu.Unlock()

	// Kill the process group when the deadline passes or the parent
	// context is canceled. done ensures the watcher never outlives Wait.
	done := make(chan struct{})
	pid := cmd.Process.Pid
	go func() {
		select {
		case <-tctx.Done():
			_ = syscall.Kill(-pid, syscall.SIGKILL)
		case <-done:
		}
	}()

	// Stream stdout in order. Partial output is kept on timeout and
	// cancellation so the caller can inspect what arrived.
	var out strings.Builder
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := stdout.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			out.WriteString(chunk)
			inv.notifyOutput(req.Stage, chunk)
		}
		if readErr != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	close(done)

	inv.mu.Lock()
	canceled := inv.canceled
	inv.mu.Unlock()

	result := &domain.StageResult{RawOutput: out.String()}

	switch {
	case canceled || (ctx.Err() != nil && tctx.Err() != context.DeadlineExceeded):
		result.FailureKind = domain.FailureCanceled
		result.ErrorDetail = "invocation canceled"
		result.ExitCode = -1
	case tctx.Err() == context.DeadlineExceeded:
		result.FailureKind = domain.FailureTimeout
		result.ErrorDetail = fmt.Sprintf("agent exceeded timeout of %v", req.Timeout)
		result.ExitCode = -1
	case waitErr != nil:
		result.FailureKind = domain.FailureExit
		result.ExitCode = exitCodeOf(waitErr)
		result.ErrorDetail = fmt.Sprintf("agent exited with code %d: %s",
			result.ExitCode, strings.TrimSpace(stderr.String()))
	default:
		result.Success = true
	}

	return result
}

// buildEnv returns the parent environment augmented with the stage marker
// and, when ExtraPath is set, a PATH entry ahead of the inherited one.
func buildEnv(req Request) []string {
	env := os.Environ()
	if req.ExtraPath != "" {
		for i, kv := range env {
			if strings.HasPrefix(kv, "PATH=") {
				env[i] = "PATH=" + req.ExtraPath + string(os.PathListSeparator) + kv[len("PATH="):]
				break
			}
		}
	}
	return append(env, StageEnvVar+"="+string(req.Stage))
}

func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func (inv *Invoker) notifyStart(stage domain.Stage) {
	if inv.observer != nil {
		inv.observer.OnStart(stage)
	}
}

func (inv *Invoker) notifyOutput(stage domain.Stage, chunk string) {
	if inv.observer != nil {
		inv.observer.OnOutput(stage, chunk)
	}
}

func (inv *Invoker) notifyComplete(stage domain.Stage, result *domain.StageResult) {
	if inv.observer != nil {
		inv.observer.OnComplete(stage, result)
	}
}
