package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/PreetShah25/arbitra-AI/internal/config"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/spf13/cobra"
)

var deinitForce bool

var deinitCmd = &cobra.Command{
	Use:   "deinit",
	Short: "Remove Arbitra from the current directory",
	Long:  "Removes the .arbitra/ folder including file-backed tasks, recordings and logs. This action cannot be undone.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		return runDeinit(cmd.InOrStdin(), cmd.OutOrStdout(), dir, deinitForce)
	},
}

func init() {
	deinitCmd.Flags().BoolVarP(&deinitForce, "force", "f", false, "Skip confirmation prompt")
}

func runDeinit(in io.Reader, out io.Writer, dir string, force bool) error {
	dataDir := filepath.Join(dir, config.DataDir)
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("arbitra is not initialized in this directory")
	}
	if err != nil {
		return fmt.Errorf("failed to check .arbitra directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf(".arbitra exists but is not a directory")
	}

	lock := task.NewSessionLock(dataDir)
	if locked, _ := lock.IsLocked(); locked {
		return fmt.Errorf("cannot remove .arbitra/: %w", task.ErrSessionActive)
	}

	recordings, totalSize, err := calculateDirStats(dataDir)
	if err != nil {
		return fmt.Errorf("failed to analyze .arbitra/: %w", err)
	}

	if !force {
		prompt := fmt.Sprintf("This will delete .arbitra/ (%d recordings, %s). Continue?", recordings, formatSize(totalSize))
		if !confirm(in, out, prompt) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := os.RemoveAll(dataDir); err != nil {
		return fmt.Errorf("failed to remove .arbitra/: %w", err)
	}

	fmt.Fprintln(out, "Arbitra has been removed from this directory.")
	return nil
}

func calculateDirStats(dir string) (recordings int, totalSize int64, err error) {
	entries, readErr := os.ReadDir(filepath.Join(dir, "recordings"))
	if readErr == nil {
		recordings = len(entries)
	}

	err = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	return
}
