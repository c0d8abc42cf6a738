package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PreetShah25/arbitra-AI/internal/workspace"
	"github.com/spf13/cobra"
)

// openWorkspace opens the workspace in the current directory, honouring --log-level.
func openWorkspace(cmd *cobra.Command) (*workspace.Workspace, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	level, _ := cmd.Flags().GetString("log-level")
	return workspace.Open(cmd.Context(), dir, workspace.Options{LogLevel: level})
}

// confirm prints prompt and reads a y/N answer from in.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
