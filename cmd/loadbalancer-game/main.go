// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// loadbalancer-game runs a Game host: it hosts rooms, relays their
// changes between players and keeps its Jump's directory current.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadbalancer/game"
	"github.com/bureau-foundation/loadbalancer/internal/cli"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/process"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/version"
)

const binary = "loadbalancer-game"

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
		debug  bool
	)
	flagSet := pflag.NewFlagSet(binary, pflag.ContinueOnError)
	flags.AddFlags(flagSet)
	flagSet.StringVar(&listen, "listen", "", "listen address, overriding game.listen")
	flagSet.BoolVar(&debug, "debug-operations", false, "serve the events that toggle the Jump link")
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
		cfg.Game.Listen = listen
	}
	if debug {
		cfg.Game.DebugOperations = true
	}
	if err := cfg.ValidateGame(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	jumpEndpoint, err := endpoint.Parse(cfg.Game.JumpServiceEndpoint)
	if err != nil {
		return fmt.Errorf("game.jump_service_endpoint: %w", err)
	}
	public, err := endpoint.Parse(cfg.Game.PublicServiceEndpoint)
	if err != nil {
		return fmt.Errorf("game.public_service_endpoint: %w", err)
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
	service := game.New(game.Options{
		Settings: game.Settings{
			JumpServiceEndpoint:   jumpEndpoint,
			PublicServiceEndpoint: public,
			DebugOperations:       cfg.Game.DebugOperations,
		},
		Tokens:     tokens,
		Scheduler:  sched,
		LoadWindow: cfg.Game.LoadSampleWindow,
		Logger:     logger,
	})
	if err := service.Start(); err != nil {
		return err
	}
	defer service.Close()

	logger.Info("game service starting",
		"build", version.Current(),
		"environment", string(cfg.Environment),
	)
	err = cli.Serve(ctx, cfg.Game.Listen, logger, service.Accept)
	logger.Info("game service stopped")
	return err
}
