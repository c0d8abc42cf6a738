package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/PreetShah25/arbitra-AI/internal/cli/plan"
	"github.com/PreetShah25/arbitra-AI/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "arbitra",
	Short:         "Agent task workflow engine for research analysts",
	Long:          `Arbitra turns a recorded demonstration into screenshots, a drafted understanding and an editable execution plan, one company at a time.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error (defaults to log_level in config)")
	rootCmd.AddCommand(initCmd, deinitCmd, taskCmd, extractCmd, versionCmd, plan.PlanCmd)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
