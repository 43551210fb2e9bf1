// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// loadbalancer-probe is the operator's toolbox: it measures round trips
// to running services, inspects and issues session tokens, and prepares
// the sealed shared secret the services load at startup.
package main

import (
	"io"
	"os"

	"github.com/bureau-foundation/loadbalancer/internal/cli"
	"github.com/bureau-foundation/loadbalancer/lib/process"
)

const binary = "loadbalancer-probe"

func main() {
	if cli.HandleVersion(binary, os.Args) {
		return
	}
	if err := root(os.Stdin, os.Stdout).Execute(os.Args[1:]); err != nil {
		process.Fatal(binary, err)
	}
}

func root(stdin io.Reader, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    binary,
		Summary: "Probe load balancer services and manage their credentials",
		Output:  stdout,
		Subcommands: []*cli.Command{
			pingCommand(stdout),
			selectCommand(stdout),
			tokenCommand(stdout),
			secretCommand(stdin, stdout),
		},
	}
}
