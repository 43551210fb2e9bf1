// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadbalancer/internal/cli"
	"github.com/bureau-foundation/loadbalancer/lib/authtoken"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/codec"
	"github.com/bureau-foundation/loadbalancer/lib/process"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

func tokenCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "token",
		Summary: "Issue and inspect session tokens",
		Subcommands: []*cli.Command{
			tokenInspectCommand(stdout),
			tokenIssueCommand(stdout),
		},
	}
}

// openSealer loads the crypto section named by flags.
func openSealer(flags *cli.CommonFlags) (*authtoken.Sealer, error) {
	cfg, err := flags.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cli.OpenTokens(cfg.Crypto, clock.Real())
}

func tokenInspectCommand(stdout io.Writer) *cli.Command {
	var (
		flags cli.CommonFlags
		raw   bool
	)
	return &cli.Command{
		Name:    "inspect",
		Summary: "Decrypt a token and print its session and claims",
		Usage:   "<token>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			flagSet.BoolVar(&raw, "raw", false, "also print the decrypted envelope in CBOR diagnostic notation")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return process.Usagef("inspect takes exactly one token")
			}
			tokens, err := openSealer(&flags)
			if err != nil {
				return err
			}
			defer tokens.Close()

			payload, err := tokens.Open(args[0])
			expired := errors.Is(err, authtoken.ErrExpired)
			if err != nil && !expired {
				return err
			}
			printPayload(stdout, tokens.Fingerprint(args[0]), payload, expired)
			if raw {
				return printEnvelope(stdout, tokens, args[0])
			}
			return nil
		},
	}
}

// printPayload writes the report for one token. Colors apply only when
// w is a color terminal.
func printPayload(w io.Writer, fingerprint string, payload authtoken.Payload, expired bool) {
	renderer := lipgloss.NewRenderer(w)
	label := renderer.NewStyle().Bold(true).Width(13)
	status := renderer.NewStyle().Foreground(lipgloss.Color("2")).Render("valid")
	if expired {
		status = renderer.NewStyle().Foreground(lipgloss.Color("1")).Render("expired")
	}

	fmt.Fprintf(w, "%s %s\n", label.Render("fingerprint:"), fingerprint)
	fmt.Fprintf(w, "%s %s\n", label.Render("session:"), payload.SessionID)
	fmt.Fprintf(w, "%s %s\n", label.Render("issued:"), payload.IssuedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "%s %s\n", label.Render("status:"), status)
	keys := make([]wire.Key, 0, len(payload.Claims))
	for key := range payload.Claims {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "%s %s\n", label.Render(string(key)+":"), payload.Claims[key])
	}
}

func printEnvelope(w io.Writer, tokens *authtoken.Sealer, token string) error {
	envelope, err := tokens.Decrypt(token)
	if err != nil {
		return err
	}
	diagnostic, err := codec.Diagnose(envelope)
	if err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}
	fmt.Fprintf(w, "envelope:     %s\n", diagnostic)
	return nil
}

func tokenIssueCommand(stdout io.Writer) *cli.Command {
	var (
		flags  cli.CommonFlags
		claims map[string]string
	)
	return &cli.Command{
		Name:    "issue",
		Summary: "Issue a token for the given claims, as Auth would",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("issue", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			flagSet.StringToStringVar(&claims, "claim", nil, "claim to seal, as Key=value (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return process.Usagef("issue takes no arguments")
			}
			if len(claims) == 0 {
				return process.Usagef("at least one --claim is required")
			}
			tokens, err := openSealer(&flags)
			if err != nil {
				return err
			}
			defer tokens.Close()

			sealed := make(wire.Map, len(claims))
			for key, value := range claims {
				sealed[wire.Key(key)] = wire.String(value)
			}
			token, _, err := tokens.Issue(sealed)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, token)
			return nil
		},
	}
}
