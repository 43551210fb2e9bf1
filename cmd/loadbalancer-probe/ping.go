// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadbalancer/internal/cli"
	"github.com/bureau-foundation/loadbalancer/lib/client"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/process"
)

type probeFlags struct {
	timeout  time.Duration
	logLevel string
}

func (f *probeFlags) add(flagSet *pflag.FlagSet) {
	flagSet.DurationVar(&f.timeout, "timeout", 10*time.Second, "overall deadline")
	flagSet.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
}

func (f *probeFlags) options() (client.Options, error) {
	level, err := cli.ParseLevel(f.logLevel)
	if err != nil {
		return client.Options{}, err
	}
	return client.Options{Logger: cli.NewLogger(level)}, nil
}

func parseEndpoints(args []string) ([]endpoint.Endpoint, error) {
	endpoints := make([]endpoint.Endpoint, 0, len(args))
	for _, arg := range args {
		e, err := endpoint.Parse(arg)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, nil
}

func pingCommand(stdout io.Writer) *cli.Command {
	var (
		flags probeFlags
		count int
	)
	return &cli.Command{
		Name:    "ping",
		Summary: "Measure Echo round trips to one service",
		Usage:   "<endpoint>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("ping", pflag.ContinueOnError)
			flags.add(flagSet)
			flagSet.IntVarP(&count, "count", "c", 1, "number of pings")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return process.Usagef("ping takes exactly one endpoint")
			}
			target, err := endpoint.Parse(args[0])
			if err != nil {
				return err
			}
			options, err := flags.options()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
			defer cancel()
			for range max(count, 1) {
				rtt, err := client.Ping(ctx, options, target)
				if err != nil {
					return fmt.Errorf("ping %s: %w", target, err)
				}
				fmt.Fprintf(stdout, "%s\t%s\n", target, rtt.Round(time.Microsecond))
			}
			return nil
		},
	}
}

func selectCommand(stdout io.Writer) *cli.Command {
	var flags probeFlags
	return &cli.Command{
		Name:    "select",
		Summary: "Pick the endpoint with the shortest round trip",
		Usage:   "<endpoint>...",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("select", pflag.ContinueOnError)
			flags.add(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return process.Usagef("select needs at least one endpoint")
			}
			endpoints, err := parseEndpoints(args)
			if err != nil {
				return err
			}
			options, err := flags.options()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
			defer cancel()
			result, err := client.SelectClosestService(ctx, options, endpoints)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, result.ServiceEndpoint)
			return nil
		},
	}
}
