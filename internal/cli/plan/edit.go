package plan

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/PreetShah25/arbitra-AI/internal/planedit"
	"github.com/PreetShah25/arbitra-AI/internal/workspace"
	"github.com/spf13/cobra"
)

// AddOptions holds the options for the add command.
type AddOptions struct {
	TaskID   string
	Title    string
	Detail   string
	Blocking bool
}

var addOpts AddOptions

var addCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Append a step to a task's plan",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		opts := addOpts
		opts.TaskID = args[0]
		return runAdd(cmd.Context(), cmd.OutOrStdout(), ws, opts)
	}),
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <step> up|down",
	Short: "Swap a step with its neighbour",
	Args:  cobra.ExactArgs(3),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		return runMove(cmd.Context(), cmd.OutOrStdout(), ws, args[0], args[1], args[2])
	}),
}

var rmCmd = &cobra.Command{
	Use:   "rm <id> <step>",
	Short: "Remove a step",
	Args:  cobra.ExactArgs(2),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		return runRemove(cmd.Context(), cmd.OutOrStdout(), ws, args[0], args[1])
	}),
}

var setCmd = &cobra.Command{
	Use:   "set <id> <step> title|detail|blocking <value>",
	Short: "Set one field of a step",
	Args:  cobra.ExactArgs(4),
	RunE: withWorkspace(func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		return runSet(cmd.Context(), cmd.OutOrStdout(), ws, args[0], args[1], args[2], args[3])
	}),
}

func init() {
	addCmd.Flags().StringVar(&addOpts.Title, "title", "", "Step title")
	addCmd.Flags().StringVar(&addOpts.Detail, "detail", "", "Step detail")
	addCmd.Flags().BoolVar(&addOpts.Blocking, "blocking", false, "Mark the step as blocking")
}

func runAdd(ctx context.Context, out io.Writer, ws *workspace.Workspace, opts AddOptions) error {
	editor := planedit.New(ws.Store, opts.TaskID)
	step, err := editor.Add(ctx)
	if err != nil {
		return err
	}

	updates := []struct {
		field planedit.Field
		value string
		set   bool
	}{
		{planedit.FieldTitle, opts.Title, opts.Title != ""},
		{planedit.FieldDetail, opts.Detail, opts.Detail != ""},
		{planedit.FieldBlocking, strconv.FormatBool(opts.Blocking), opts.Blocking},
	}
	for _, u := range updates {
		if !u.set {
			continue
		}
		if err := editor.UpdateField(ctx, step.ID, u.field, u.value); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Step added: %s\n", step.ID)
	return printPlan(out, editor)
}

func runMove(ctx context.Context, out io.Writer, ws *workspace.Workspace, taskID, stepID, direction string) error {
	dir, err := planedit.ParseDirection(direction)
	if err != nil {
		return err
	}
	editor := planedit.New(ws.Store, taskID)
	if err := editor.Move(ctx, stepID, dir); err != nil {
		return err
	}
	return printPlan(out, editor)
}

func runRemove(ctx context.Context, out io.Writer, ws *workspace.Workspace, taskID, stepID string) error {
	editor := planedit.New(ws.Store, taskID)
	if err := editor.Remove(ctx, stepID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Step removed: %s\n", stepID)
	return printPlan(out, editor)
}

func runSet(ctx context.Context, out io.Writer, ws *workspace.Workspace, taskID, stepID, field, value string) error {
	f, err := planedit.ParseField(field)
	if err != nil {
		return err
	}
	editor := planedit.New(ws.Store, taskID)
	if err := editor.UpdateField(ctx, stepID, f, value); err != nil {
		return err
	}
	return printPlan(out, editor)
}

// printPlan lists the plan in execution order.
func printPlan(out io.Writer, editor *planedit.Editor) error {
	steps, err := editor.Steps()
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		fmt.Fprintln(out, "Plan is empty.")
		return nil
	}
	for i, step := range steps {
		title := step.Title
		if title == "" {
			title = "(untitled)"
		}
		marker := ""
		if step.Blocking {
			marker = " [blocking]"
		}
		fmt.Fprintf(out, "  %d. %s%s  (%s)\n", i+1, title, marker, step.ID)
	}
	return nil
}
