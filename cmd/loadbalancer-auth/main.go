// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// loadbalancer-auth runs the Auth tier: it issues session tokens and
// lists the Jump services registered with it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadbalancer/auth"
	"github.com/bureau-foundation/loadbalancer/internal/cli"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/process"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/version"
)

const binary = "loadbalancer-auth"

func main() {
	if err := run(); err != nil {
		process.Fatal(binary, err)
	}
}

func run() error {
	if cli.HandleVersion(binary, os.Args) {
		return nil
	}

	var (
		flags  cli.CommonFlags
		listen string
	)
	flagSet := pflag.NewFlagSet(binary, pflag.ContinueOnError)
	flags.AddFlags(flagSet)
	flagSet.StringVar(&listen, "listen", "", "listen address, overriding auth.listen")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.UsageError{Err: err}
	}

	logger, err := flags.Logger()
	if err != nil {
		return err
	}
	cfg, err := flags.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if listen != "" {
		cfg.Auth.Listen = listen
	}
	if err := cfg.ValidateAuth(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	tokens, err := cli.OpenTokens(cfg.Crypto, clock.Real())
	if err != nil {
		return err
	}
	defer tokens.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewService(clock.Real(), logger)
	defer sched.Close()
	service := auth.New(sched, tokens, logger)
	defer service.Close()

	logger.Info("auth service starting",
		"build", version.Current(),
		"environment", string(cfg.Environment),
		"token_ttl", tokens.TTL(),
	)
	err = cli.Serve(ctx, cfg.Auth.Listen, logger, service.Accept)
	logger.Info("auth service stopped")
	return err
}
