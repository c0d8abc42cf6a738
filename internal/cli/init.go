package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/PreetShah25/arbitra-AI/internal/config"
	"github.com/PreetShah25/arbitra-AI/internal/workspace"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize Arbitra in the current directory",
	Long:  "Creates a .arbitra/ folder with a default config.yaml, a logs directory and a recordings directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		return runInit(cmd.OutOrStdout(), dir)
	},
}

func runInit(out io.Writer, dir string) error {
	if workspace.IsInitialized(dir) {
		return fmt.Errorf("arbitra is already initialized in this directory")
	}
	if err := config.Init(dir); err != nil {
		return err
	}

	fmt.Fprintln(out, "Initialized Arbitra in", config.DataDir)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Review .arbitra/config.yaml (companies, storage backend)")
	fmt.Fprintln(out, "  2. Run: arbitra to open the task workspace")
	return nil
}
