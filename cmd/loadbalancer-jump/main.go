// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// loadbalancer-jump runs a Jump service: it registers with every
// configured Auth, keeps the directory of its Game hosts and answers
// FindRoom and FindServer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadbalancer/internal/cli"
	"github.com/bureau-foundation/loadbalancer/jump"
	"github.com/bureau-foundation/loadbalancer/lib/clock"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/process"
	"github.com/bureau-foundation/loadbalancer/lib/scheduler"
	"github.com/bureau-foundation/loadbalancer/lib/version"
)

const binary = "loadbalancer-jump"

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
	flagSet.StringVar(&listen, "listen", "", "listen address, overriding jump.listen")
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
		cfg.Jump.Listen = listen
	}
	if err := cfg.ValidateJump(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	authEndpoints, err := cfg.Jump.AuthEndpoints()
	if err != nil {
		return err
	}
	public, err := endpoint.Parse(cfg.Jump.PublicServiceEndpoint)
	if err != nil {
		return fmt.Errorf("jump.public_service_endpoint: %w", err)
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
	service := jump.New(jump.Options{
		Settings: jump.Settings{
			Region:                cfg.Jump.Region,
			TitleID:               cfg.Jump.TitleID,
			Version:               cfg.Jump.Version,
			AuthServiceEndpoints:  authEndpoints,
			PublicServiceEndpoint: public,
		},
		Tokens:    tokens,
		Scheduler: sched,
		Logger:    logger,
	})
	if err := service.Start(); err != nil {
		return err
	}
	defer service.Close()

	logger.Info("jump service starting",
		"build", version.Current(),
		"environment", string(cfg.Environment),
	)
	err = cli.Serve(ctx, cfg.Jump.Listen, logger, service.Accept)
	logger.Info("jump service stopped")
	return err
}
