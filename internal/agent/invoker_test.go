package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

// writeScript creates an executable shell script in dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// recordingObserver captures notifications for assertions.
type recordingObserver struct {
	mu       sync.Mutex
	started  []domain.Stage
	chunks   []string
	complete []*domain.StageResult
}

func (o *recordingObserver) OnStart(stage domain.Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, stage)
}

func (o *recordingObserver) OnOutput(_ domain.Stage, chunk string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chunks = append(o.chunks, chunk)
}

func (o *recordingObserver) OnComplete(_ domain.Stage, result *domain.StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.complete = append(o.complete, result)
}

func TestInvoke_Success(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", `echo "hello from agent"`)

	inv := NewInvoker(nil)
	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "do the thing",
		Stage:   domain.StagePlan,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.ErrorDetail)
	}
	if !strings.Contains(result.RawOutput, "hello from agent") {
		t.Errorf("unexpected output: %q", result.RawOutput)
	}
	if result.FailureKind != domain.FailureNone {
		t.Errorf("failure kind = %q, want none", result.FailureKind)
	}
}

func TestInvoke_PromptIsPositionalArg(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", `echo "$1"`)

	inv := NewInvoker(nil)
	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "the full prompt text",
		Stage:   domain.StagePlan,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.RawOutput) != "the full prompt text" {
		t.Errorf("prompt not passed as positional arg, got %q", result.RawOutput)
	}
}

func TestInvoke_SetsStageEnvVar(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", `echo "stage=$ADP_STAGE"`)

	inv := NewInvoker(nil)
	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StageReview,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.RawOutput, "stage=review") {
		t.Errorf("expected ADP_STAGE=review in child env, got %q", result.RawOutput)
	}
}

func TestInvoke_ExtraPathPrepended(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", `echo "$PATH"`)

	inv := NewInvoker(nil)
	result, err := inv.Invoke(context.Background(), Request{
		Command:   script,
		Prompt:    "p",
		Stage:     domain.StagePlan,
		ExtraPath: "/opt/agent/bin",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(result.RawOutput), "/opt/agent/bin"+string(os.PathListSeparator)) {
		t.Errorf("extra path not prepended, got %q", result.RawOutput)
	}
}

func TestInvoke_WorkDir(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, t.TempDir(), "agent", `pwd`)

	inv := NewInvoker(nil)
	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StagePlan,
		WorkDir: dir,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// On macOS, t.TempDir may resolve through /private.
	got := strings.TrimSpace(result.RawOutput)
	if got != dir && got != filepath.Join("/private", dir) {
		t.Errorf("expected working directory %q, got %q", dir, got)
	}
}

func TestInvoke_NonzeroExit(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", "echo partial output\necho permission denied >&2\nexit 1")

	inv := NewInvoker(nil)
	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StagePlan,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.FailureKind != domain.FailureExit {
		t.Errorf("failure kind = %q, want exit", result.FailureKind)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", result.ExitCode)
	}
	if !strings.Contains(result.ErrorDetail, "permission denied") {
		t.Errorf("error detail should include stderr, got %q", result.ErrorDetail)
	}
	if !strings.Contains(result.RawOutput, "partial output") {
		t.Errorf("stdout before the failure should be preserved, got %q", result.RawOutput)
	}
}

func TestInvoke_MissingCommand(t *testing.T) {
	inv := NewInvoker(nil)
	result, err := inv.Invoke(context.Background(), Request{
		Command: "nonexistent-agent-command-12345",
		Prompt:  "p",
		Stage:   domain.StagePlan,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.FailureKind != domain.FailureSpawn {
		t.Errorf("failure kind = %q, want spawn", result.FailureKind)
	}
	if !strings.Contains(result.ErrorDetail, "nonexistent-agent-command-12345") {
		t.Errorf("error detail should name the missing command, got %q", result.ErrorDetail)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", "echo before sleep\nsleep 10\necho after sleep")

	inv := NewInvoker(nil)
	start := time.Now()
	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StagePlan,
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout did not fire, took %v", elapsed)
	}
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.FailureKind != domain.FailureTimeout {
		t.Errorf("failure kind = %q, want timeout", result.FailureKind)
	}
	if !strings.Contains(result.ErrorDetail, "200ms") {
		t.Errorf("error detail should state the configured timeout, got %q", result.ErrorDetail)
	}
	// Partial stdout captured before the kill is preserved.
	if !strings.Contains(result.RawOutput, "before sleep") {
		t.Errorf("partial output should be preserved, got %q", result.RawOutput)
	}
	if strings.Contains(result.RawOutput, "after sleep") {
		t.Errorf("process should have been killed before finishing, got %q", result.RawOutput)
	}
}

func TestInvoke_Cancel(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", "sleep 10")

	inv := NewInvoker(nil)
	go func() {
		time.Sleep(100 * time.Millisecond)
		inv.Cancel()
	}()

	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StagePlan,
		Timeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.FailureKind != domain.FailureCanceled {
		t.Errorf("failure kind = %q, want canceled (not timeout)", result.FailureKind)
	}
}

func TestInvoke_ParentContextCancellation(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", "sleep 10")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	inv := NewInvoker(nil)
	result, err := inv.Invoke(ctx, Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StagePlan,
		Timeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FailureKind != domain.FailureCanceled {
		t.Errorf("failure kind = %q, want canceled", result.FailureKind)
	}
}

func TestInvoke_BusyRejection(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "started")
	script := writeScript(t, dir, "agent", "touch "+marker+"\nsleep 2")

	inv := NewInvoker(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = inv.Invoke(context.Background(), Request{
			Command: script,
			Prompt:  "p",
			Stage:   domain.StagePlan,
			Timeout: 30 * time.Second,
		})
	}()

	// Wait for the first invocation to actually start its process.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first invocation never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	_, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StagePlan,
		Timeout: 30 * time.Second,
	})
	if err != ErrBusy {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	inv.Cancel()
	<-done
}

func TestInvoke_InvalidRequest(t *testing.T) {
	inv := NewInvoker(nil)

	if _, err := inv.Invoke(context.Background(), Request{Prompt: "p", Timeout: time.Second}); err == nil {
		t.Error("expected error for missing command")
	}
	if _, err := inv.Invoke(context.Background(), Request{Command: "echo", Prompt: "p"}); err == nil {
		t.Error("expected error for missing timeout")
	}
}

func TestCancel_IdleIsNoOp(t *testing.T) {
	inv := NewInvoker(nil)
	inv.Cancel()
	inv.Cancel()

	// The invoker remains usable after idle cancels.
	script := writeScript(t, t.TempDir(), "agent", `echo ok`)
	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StagePlan,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %s", result.ErrorDetail)
	}
}

func TestInvoke_ObserverOrdering(t *testing.T) {
	script := writeScript(t, t.TempDir(), "agent", "printf one\nsleep 0.1\nprintf two")

	obs := &recordingObserver{}
	inv := NewInvoker(obs)
	result, err := inv.Invoke(context.Background(), Request{
		Command: script,
		Prompt:  "p",
		Stage:   domain.StageImplement,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()

	if len(obs.started) != 1 || obs.started[0] != domain.StageImplement {
		t.Errorf("expected one start for implement, got %v", obs.started)
	}
	if got := strings.Join(obs.chunks, ""); got != "onetwo" {
		t.Errorf("chunks out of order or lost: %q", got)
	}
	// Completion is the last notification and carries the final result.
	if len(obs.complete) != 1 {
		t.Fatalf("expected one completion, got %d", len(obs.complete))
	}
	if obs.complete[0] != result {
		t.Error("completion should carry the returned result")
	}
}
