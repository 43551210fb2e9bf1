// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadbalancer/lib/process"
)

func testTree(got *[]string, verbose *bool) *Command {
	return &Command{
		Name: "probe",
		Subcommands: []*Command{
			{
				Name:  "ping",
				Usage: "<endpoint>",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("ping", pflag.ContinueOnError)
					flagSet.BoolVarP(verbose, "verbose", "v", false, "print every round trip")
					return flagSet
				},
				Run: func(args []string) error {
					*got = args
					return nil
				},
			},
			{Name: "select", Run: func([]string) error { return nil }},
		},
	}
}

func TestCommandDispatch(t *testing.T) {
	var (
		got     []string
		verbose bool
	)
	if err := testTree(&got, &verbose).Execute([]string{"ping", "-v", "ws://a:1/x"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !verbose || len(got) != 1 || got[0] != "ws://a:1/x" {
		t.Fatalf("verbose = %v, args = %v", verbose, got)
	}
}

func TestCommandErrors(t *testing.T) {
	var (
		got     []string
		verbose bool
	)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no subcommand", nil, "subcommand required"},
		{"typo", []string{"pnig"}, `did you mean "ping"`},
		{"unknown", []string{"teleport"}, `unknown command "teleport"`},
		{"bad flag", []string{"ping", "--loud"}, "unknown flag"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := testTree(&got, &verbose).Execute(test.args)
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Fatalf("error = %v, want it to contain %q", err, test.want)
			}
			if code := process.ExitCode(err); code != process.ExitUsage {
				t.Fatalf("exit code = %d, want %d", code, process.ExitUsage)
			}
		})
	}
}

func TestCommandHelp(t *testing.T) {
	var (
		got     []string
		verbose bool
		help    strings.Builder
	)
	tree := testTree(&got, &verbose)
	tree.Output = &help
	if err := tree.Execute([]string{"ping", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"probe ping [flags] <endpoint>", "--verbose"} {
		if !strings.Contains(help.String(), want) {
			t.Errorf("help %q lacks %q", help.String(), want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "ping", 4},
		{"ping", "ping", 0},
		{"pnig", "ping", 2},
		{"select", "selct", 1},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
