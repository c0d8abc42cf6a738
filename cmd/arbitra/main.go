package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/PreetShah25/arbitra-AI/internal/cli"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/tui"
	"github.com/PreetShah25/arbitra-AI/internal/version"
)

func main() {
	// Subcommands go to the CLI; no args or only flags launch the TUI.
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	res, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if res.ShowHelp {
		fmt.Print(res.HelpText)
		return
	}
	if res.ShowVersion {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := tui.Run(ctx, res.Dir, res.LogLevel); err != nil {
		if errors.Is(err, task.ErrSessionActive) {
			fmt.Fprintln(os.Stderr, "Error: another arbitra session is already running in this directory")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
