package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/PreetShah25/arbitra-AI/internal/logging"
)

type parseResult struct {
	Dir         string
	LogLevel    string
	ShowHelp    bool
	ShowVersion bool
	HelpText    string
}

func parseArgs(args []string) (parseResult, error) {
	fs := flag.NewFlagSet("arbitra", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	dir := fs.String("dir", ".", "Project directory containing .arbitra/")
	logLevel := fs.String("log-level", "", "Log level: debug|info|warn|error (defaults to log_level in config)")
	showVersion := fs.Bool("version", false, "Show version information")
	showVersionShort := fs.Bool("v", false, "Show version information")

	usage := func() string {
		var b strings.Builder
		fmt.Fprintln(&b, "Usage: arbitra [flags]")
		fmt.Fprintln(&b, "       arbitra <command> [args]")
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, "Without a command arbitra opens the interactive task wizard.")
		fmt.Fprintln(&b, "Run 'arbitra help' for the list of commands.")
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, "Flags:")
		fs.SetOutput(&b)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
		return b.String()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return parseResult{ShowHelp: true, HelpText: usage()}, nil
		}
		return parseResult{}, fmt.Errorf("%v\n\n%s", err, usage())
	}

	if fs.NArg() > 0 {
		return parseResult{}, fmt.Errorf("unexpected argument %q after flags\n\n%s", fs.Arg(0), usage())
	}

	if *showVersion || *showVersionShort {
		return parseResult{ShowVersion: true}, nil
	}

	if *logLevel != "" {
		if _, err := logging.ParseLevel(*logLevel); err != nil {
			return parseResult{}, fmt.Errorf("%v\n\n%s", err, usage())
		}
	}
	if strings.TrimSpace(*dir) == "" {
		return parseResult{}, fmt.Errorf("--dir must not be empty\n\n%s", usage())
	}

	return parseResult{Dir: *dir, LogLevel: *logLevel}, nil
}
