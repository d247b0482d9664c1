package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
	"github.com/anthropics/agentic-dev-pipeline/internal/history"
	"github.com/anthropics/agentic-dev-pipeline/internal/terminal"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var dir string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = cwd
			}

			ctx := context.Background()
			dbPath, err := history.DefaultPath(dir)
			if err != nil {
				return err
			}
			store, err := history.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No recorded runs.")
				return nil
			}

			for _, r := range runs {
				fmt.Printf("%s%s%s  %s%-10s%s  %s",
					terminal.Color(terminal.Dim), r.StartedAt.Format("2006-01-02 15:04"), terminal.Color(terminal.Reset),
					statusColor(r.Status), r.Status, terminal.Color(terminal.Reset),
					r.Task)
				if r.Status == domain.StatusCompleted {
					fmt.Printf("  %s(score %d)%s", terminal.Color(terminal.Dim), r.ReviewScore, terminal.Color(terminal.Reset))
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVarP(&dir, "workdir", "C", "", "Project root (default: current directory)")
	return cmd
}

func statusColor(s domain.Status) string {
	switch s {
	case domain.StatusCompleted:
		return terminal.Color(terminal.Green)
	case domain.StatusFailed:
		return terminal.Color(terminal.Red)
	case domain.StatusCanceled:
		return terminal.Color(terminal.Yellow)
	default:
		return terminal.Color(terminal.Dim)
	}
}
