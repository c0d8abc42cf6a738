package plan

import (
	"os"

	"github.com/PreetShah25/arbitra-AI/internal/workspace"
	"github.com/spf13/cobra"
)

// PlanCmd is the parent command for plan editing subcommands.
var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Edit a task's execution plan",
	Long:  `Commands for adding, reordering, editing and removing the steps of a task's execution plan. Step order is execution order.`,
}

func init() {
	PlanCmd.AddCommand(addCmd, moveCmd, rmCmd, setCmd)
}

func withWorkspace(fn func(cmd *cobra.Command, ws *workspace.Workspace, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		level, _ := cmd.Flags().GetString("log-level")
		ws, err := workspace.Open(cmd.Context(), dir, workspace.Options{LogLevel: level})
		if err != nil {
			return err
		}
		defer ws.Close()
		return fn(cmd, ws, args)
	}
}
