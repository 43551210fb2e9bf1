// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadbalancer/internal/cli"
	"github.com/bureau-foundation/loadbalancer/lib/process"
	"github.com/bureau-foundation/loadbalancer/lib/sealed"
	"github.com/bureau-foundation/loadbalancer/lib/secret"
)

func secretCommand(stdin io.Reader, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "secret",
		Summary: "Prepare crypto.shared_secret_sealed for a host",
		Subcommands: []*cli.Command{
			secretKeygenCommand(stdout),
			secretSealCommand(stdin, stdout),
		},
	}
}

func secretKeygenCommand(stdout io.Writer) *cli.Command {
	var identityPath string
	return &cli.Command{
		Name:    "keygen",
		Summary: "Create a host identity and print its public key",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVarP(&identityPath, "output", "o", "", "file to write the private key to (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return process.Usagef("keygen takes no arguments")
			}
			if identityPath == "" {
				return process.Usagef("--output is required")
			}
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			defer keypair.Close()

			file, err := os.OpenFile(identityPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
			if err != nil {
				return err
			}
			if _, err := file.Write(keypair.PrivateKey.Bytes()); err != nil {
				file.Close()
				return fmt.Errorf("writing %s: %w", identityPath, err)
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintln(stdout, keypair.PublicKey)
			return nil
		},
	}
}

func secretSealCommand(stdin io.Reader, stdout io.Writer) *cli.Command {
	var recipients []string
	return &cli.Command{
		Name:    "seal",
		Summary: "Encrypt the shared secret read from stdin to host public keys",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringArrayVarP(&recipients, "recipient", "r", nil, "host public key, age1... (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return process.Usagef("seal takes no arguments")
			}
			plaintext, err := io.ReadAll(stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			plaintext = bytes.TrimRight(plaintext, "\r\n")
			if len(plaintext) == 0 {
				return fmt.Errorf("the secret on stdin is empty")
			}
			ciphertext, err := sealed.Encrypt(plaintext, recipients)
			secret.Zero(plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, ciphertext)
			return nil
		},
	}
}
