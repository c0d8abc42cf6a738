package main

import (
	"strings"
	"testing"
)

func TestParseArgs_NoArgs(t *testing.T) {
	res, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.ShowHelp || res.ShowVersion {
		t.Fatalf("expected plain TUI launch, got %+v", res)
	}
	if res.Dir != "." || res.LogLevel != "" {
		t.Fatalf("unexpected defaults %+v", res)
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    parseResult
		wantErr string
	}{
		{name: "log level", args: []string{"--log-level=debug"}, want: parseResult{Dir: ".", LogLevel: "debug"}},
		{name: "project dir", args: []string{"--dir", "/tmp/research"}, want: parseResult{Dir: "/tmp/research"}},
		{name: "version long", args: []string{"--version"}, want: parseResult{ShowVersion: true}},
		{name: "version short", args: []string{"-v"}, want: parseResult{ShowVersion: true}},
		{name: "bad log level", args: []string{"--log-level=loud"}, wantErr: "loud"},
		{name: "unknown flag", args: []string{"--demo"}, wantErr: "flag provided but not defined"},
		{name: "positional after flags", args: []string{"--log-level=info", "task"}, wantErr: `unexpected argument "task"`},
		{name: "empty dir", args: []string{"--dir="}, wantErr: "--dir must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseArgs(tt.args)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got: %s", tt.wantErr, err)
				}
				if !strings.Contains(err.Error(), "Usage: arbitra") {
					t.Fatalf("expected usage in error, got: %s", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, res)
			}
		})
	}
}

func TestParseArgs_Help(t *testing.T) {
	res, err := parseArgs([]string{"--help"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.ShowHelp {
		t.Fatal("expected ShowHelp")
	}
	for _, want := range []string{"Usage: arbitra [flags]", "-log-level", "-dir"} {
		if !strings.Contains(res.HelpText, want) {
			t.Errorf("expected %q in help text:\n%s", want, res.HelpText)
		}
	}
}
