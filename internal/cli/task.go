package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/PreetShah25/arbitra-AI/internal/config"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/wizard"
	"github.com/PreetShah25/arbitra-AI/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	createName  string
	createDesc  string
	deleteForce bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "List, inspect, create and delete tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list <ticker>",
	Short: "List a company's tasks, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		return runTaskList(cmd.OutOrStdout(), ws, args[0], time.Now())
	}),
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task with its screenshots, understanding and plan",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		return runTaskShow(cmd.OutOrStdout(), ws, args[0])
	}),
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <ticker>",
	Short: "Create a draft task for a company",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		return runTaskCreate(cmd.Context(), cmd.OutOrStdout(), ws, args[0], createName, createDesc)
	}),
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task (asks for confirmation)",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		return runTaskDelete(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), ws, args[0], deleteForce)
	}),
}

func init() {
	taskCreateCmd.Flags().StringVar(&createName, "name", "", fmt.Sprintf("Task name (defaults to %q)", wizard.DefaultName))
	taskCreateCmd.Flags().StringVar(&createDesc, "desc", "", "What the agent should do (required)")
	taskDeleteCmd.Flags().BoolVarP(&deleteForce, "yes", "y", false, "Skip confirmation prompt")
	taskCmd.AddCommand(taskListCmd, taskShowCmd, taskCreateCmd, taskDeleteCmd)
}

// withWorkspace opens the workspace for the duration of fn.
func withWorkspace(fn func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		return fn(cmd, ws, args)
	}
}

func runTaskList(out io.Writer, ws *workspace.Workspace, ticker string, now time.Time) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	tasks := ws.Store.List(ticker)
	if len(tasks) == 0 {
		fmt.Fprintf(out, "No tasks for %s.\n", ticker)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSHOTS\tSTEPS\tCREATED")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			t.ID,
			t.Name,
			t.Status,
			len(t.Screenshots),
			len(t.Plan),
			formatAge(t.CreatedAt, now),
		)
	}
	return w.Flush()
}

func runTaskShow(out io.Writer, ws *workspace.Workspace, id string) error {
	t, ok := ws.Store.Get(id)
	if !ok {
		return fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}

	fmt.Fprintf(out, "%s  %s\n", t.ID, t.Name)
	fmt.Fprintf(out, "  Company: %s\n", t.Ticker)
	fmt.Fprintf(out, "  Status:  %s\n", t.Status)
	fmt.Fprintf(out, "  Created: %s\n", t.CreatedAt.Format(time.RFC3339))
	if t.HasVideo() {
		fmt.Fprintf(out, "  Video:   %s\n", t.VideoURL)
	}
	fmt.Fprintf(out, "\n  %s\n", t.Desc)

	if len(t.Screenshots) > 0 {
		fmt.Fprintf(out, "\nScreenshots (%d):\n", len(t.Screenshots))
		for _, s := range t.Screenshots {
			line := fmt.Sprintf("  %s  %s", formatOffset(s.TS), s.ID)
			if s.Note != "" {
				line += "  " + s.Note
			}
			fmt.Fprintln(out, line)
		}
	}

	if u := t.Understanding; u != nil {
		fmt.Fprintln(out, "\nUnderstanding:")
		fmt.Fprintf(out, "  %s\n", u.Summary)
		for i, q := range u.Questions {
			fmt.Fprintf(out, "  Q%d. %s\n", i+1, q)
			if i < len(u.Answers) && u.Answers[i] != "" {
				fmt.Fprintf(out, "      %s\n", u.Answers[i])
			}
		}
	}

	if len(t.Plan) > 0 {
		fmt.Fprintln(out, "\nPlan:")
		for i, step := range t.Plan {
			marker := ""
			if step.Blocking {
				marker = " [blocking]"
			}
			fmt.Fprintf(out, "  %d. %s%s  (%s)\n", i+1, step.Title, marker, step.ID)
			if step.Detail != "" {
				fmt.Fprintf(out, "     %s\n", step.Detail)
			}
		}
	}
	return nil
}

// fixedCompany selects one ticker for a non-interactive wizard session.
type fixedCompany struct {
	cfg    *config.Config
	ticker string
}

func (f fixedCompany) SelectedTicker() string { return f.ticker }

func (f fixedCompany) CompanyName(ticker string) string { return f.cfg.CompanyName(ticker) }

// runTaskCreate commits the details stage of a wizard session and closes it.
func runTaskCreate(ctx context.Context, out io.Writer, ws *workspace.Workspace, ticker, name, desc string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	ctrl := ws.Wizard(fixedCompany{cfg: ws.Config, ticker: ticker}, nil, nil)
	ctrl.NewAnalysis()
	defer ctrl.Close()

	t, err := ctrl.CommitDetails(ctx, name, desc)
	if err != nil {
		if errors.Is(err, task.ErrEmptyDescription) {
			return fmt.Errorf("--desc is required: %w", err)
		}
		return err
	}
	fmt.Fprintf(out, "Task created: %s (%s)\n", t.ID, t.Ticker)
	return nil
}

func runTaskDelete(ctx context.Context, in io.Reader, out io.Writer, ws *workspace.Workspace, id string, force bool) error {
	t, ok := ws.Store.Get(id)
	if !ok {
		return fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	if !force && !confirm(in, out, fmt.Sprintf("Delete task %q? This cannot be undone.", t.Name)) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}
	if err := ws.Store.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Task deleted: %s\n", id)
	return nil
}
