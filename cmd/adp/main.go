// Package main provides the CLI entry point for the agentic dev pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anthropics/agentic-dev-pipeline/internal/config"
	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
	"github.com/anthropics/agentic-dev-pipeline/internal/filter"
	"github.com/anthropics/agentic-dev-pipeline/internal/history"
	"github.com/anthropics/agentic-dev-pipeline/internal/pipeline"
	"github.com/anthropics/agentic-dev-pipeline/internal/terminal"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	agentCommand    string
	timeout         time.Duration
	workDir         string
	extraPath       string
	autoYes         bool
	verbose         bool
	noConfig        bool
	noHistory       bool
	excludePatterns []string
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := &cobra.Command{
		Use:   "adp \"task description\"",
		Short: "Agentic dev pipeline - plan, implement, and review with an AI agent",
		Long: `Drive a three-stage AI development pipeline: an agent plans the task,
you approve the plan, the agent implements it, and a reviewer agent checks
the result for security and quality issues.

Exit codes:
  0 - Pipeline completed, review approved
  1 - Pipeline completed, review did not approve
  2 - Pipeline failed with an error
  3 - Run canceled (plan rejected or stopped)
  130 - Interrupted`,
		Args:          cobra.ExactArgs(1),
		RunE:          runPipeline,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Configuration flags (resolved via config.Resolve with precedence: flag > env > config > default)
	rootCmd.Flags().StringVarP(&agentCommand, "agent-cmd", "a", "",
		"Agent CLI command to invoke per stage (default: claude, env: ADP_AGENT_CMD)")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0,
		"Timeout per stage (default: 10m, env: ADP_TIMEOUT)")
	rootCmd.Flags().StringVarP(&workDir, "workdir", "C", "",
		"Project root the agent operates in (default: current directory)")
	rootCmd.Flags().StringVar(&extraPath, "extra-path", "",
		"Directory prepended to the agent's PATH (env: ADP_EXTRA_PATH)")
	rootCmd.Flags().BoolVarP(&autoYes, "yes", "y", false,
		"Approve the plan without prompting")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Stream agent output as it arrives")
	rootCmd.Flags().BoolVar(&noConfig, "no-config", false,
		"Skip loading the .adp.yaml config file")
	rootCmd.Flags().BoolVar(&noHistory, "no-history", false,
		"Skip recording the run in the history database")
	rootCmd.Flags().StringArrayVar(&excludePatterns, "exclude-pattern", nil,
		"Exclude review findings matching regex pattern (repeatable)")

	rootCmd.AddCommand(newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(exitCodeError); ok {
			return exitErr.code.Int()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return domain.ExitError.Int()
	}

	return 0
}

func runPipeline(cmd *cobra.Command, args []string) error {
	task := args[0]

	if !terminal.IsStdoutTTY() {
		terminal.DisableColors()
	}

	logger := terminal.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resolve the working directory first; config and history live there.
	dir := workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			logger.Logf(terminal.StyleError, "Cannot determine working directory: %v", err)
			return exitCode(domain.ExitError)
		}
		dir = cwd
	}

	// Load config file (unless --no-config)
	var cfg *config.Config
	if !noConfig {
		loaded, err := config.LoadFromDir(dir)
		if err != nil {
			logger.Logf(terminal.StyleError, "Config error: %v", err)
			return exitCode(domain.ExitError)
		}
		cfg = loaded
	}

	flagState := config.FlagState{
		AgentCommandSet: cmd.Flags().Changed("agent-cmd"),
		TimeoutSet:      cmd.Flags().Changed("timeout"),
		ExtraPathSet:    cmd.Flags().Changed("extra-path"),
	}
	flagValues := config.ResolvedConfig{
		AgentCommand: agentCommand,
		Timeout:      timeout,
		ExtraPath:    extraPath,
	}
	resolved := config.Resolve(cfg, config.LoadEnvState(), flagState, flagValues)

	// Merge exclude patterns (config patterns + CLI patterns)
	allPatterns := append(resolved.ExcludePatterns, excludePatterns...)
	findingFilter, err := filter.New(allPatterns)
	if err != nil {
		logger.Logf(terminal.StyleError, "Invalid exclude pattern: %v", err)
		return exitCode(domain.ExitError)
	}

	// Open the run history store (unless --no-history)
	var store *history.Store
	var runID string
	if !noHistory {
		dbPath, err := history.DefaultPath(dir)
		if err == nil {
			store, err = history.Open(ctx, dbPath)
		}
		if err != nil {
			logger.Logf(terminal.StyleWarning, "History disabled: %v", err)
			store = nil
		}
	}
	if store != nil {
		defer store.Close()
		if id, err := store.Begin(ctx, task); err == nil {
			runID = id
		} else {
			logger.Logf(terminal.StyleWarning, "Could not record run: %v", err)
		}
	}

	progress := newStageProgress(logger, verbose)

	coordinator := pipeline.New(
		pipeline.Config{
			AgentCommand: resolved.AgentCommand,
			WorkDir:      dir,
			ExtraPath:    resolved.ExtraPath,
			Timeout:      resolved.Timeout,
		},
		approvalFunc(logger),
		pipeline.Callbacks{
			OnStatusChange: progress.statusChanged,
			OnStageResult:  progress.stageResult,
			OnProcessLog:   progress.processLog,
		},
		logger,
	)

	// Handle signals: stop the coordinator so the agent process group dies
	// with us, then report 130.
	var interrupted atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		_, ok := <-sigCh
		if !ok {
			return
		}
		fmt.Fprintln(os.Stderr)
		logger.Log("Interrupted, shutting down...", terminal.StyleWarning)
		interrupted.Store(true)
		coordinator.Stop()
	}()

	logger.Logf(terminal.StyleInfo, "Starting pipeline %s(agent=%s, timeout=%v)%s",
		terminal.Color(terminal.Dim), resolved.AgentCommand, resolved.Timeout, terminal.Color(terminal.Reset))

	state, err := coordinator.Run(ctx, task)
	progress.stop()
	if err != nil {
		logger.Logf(terminal.StyleError, "%v", err)
		return exitCode(domain.ExitError)
	}

	if store != nil && runID != "" {
		if err := store.Finish(context.Background(), runID, state); err != nil {
			logger.Logf(terminal.StyleWarning, "Could not record run result: %v", err)
		}
	}

	return exitCode(finalExitCode(state, findingFilter, logger, interrupted.Load()))
}

// approvalFunc returns the plan approval callback: automatic with --yes,
// interactive otherwise.
func approvalFunc(logger *terminal.Logger) pipeline.ApprovalFunc {
	return func(plan *domain.PlanResult) (bool, error) {
		if autoYes {
			logger.Logf(terminal.StyleInfo, "Plan auto-approved %s(%d tasks, complexity %d/10)%s",
				terminal.Color(terminal.Dim), plan.TaskCount(), plan.Plan.Complexity, terminal.Color(terminal.Reset))
			return true, nil
		}
		return terminal.RunApproval(plan)
	}
}

// finalExitCode maps the terminal workflow state to the process exit code
// and renders the review report for completed runs.
func finalExitCode(state domain.WorkflowState, f *filter.Filter, logger *terminal.Logger, interrupted bool) domain.ExitCode {
	switch state.Status {
	case domain.StatusCompleted:
		review := f.Apply(*state.Review)
		renderReview(&review)
		if review.Approved {
			logger.Log("Pipeline completed, review approved", terminal.StyleSuccess)
			return domain.ExitCompleted
		}
		logger.Logf(terminal.StyleWarning, "Pipeline completed, review did not approve (score %d)", review.Score)
		return domain.ExitNotApproved

	case domain.StatusCanceled:
		if interrupted {
			return domain.ExitInterrupted
		}
		logger.Log("Run canceled", terminal.StyleWarning)
		return domain.ExitCanceled

	default:
		reason := state.FailureReason
		if reason == "" {
			reason = fmt.Sprintf("pipeline ended in unexpected state %q", state.Status)
		}
		logger.Logf(terminal.StyleError, "Pipeline failed: %s", strings.TrimSpace(reason))
		return domain.ExitError
	}
}
