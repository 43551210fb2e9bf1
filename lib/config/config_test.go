// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/loadbalancer/lib/sealed"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Crypto.TokenTTL() != time.Hour {
		t.Errorf("expected token ttl 1h, got %v", cfg.Crypto.TokenTTL())
	}
	if cfg.Game.LoadSampleWindow != 100 {
		t.Errorf("expected load_sample_window=100, got %d", cfg.Game.LoadSampleWindow)
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when LOADBALANCER_CONFIG is not set")
	}
	if !strings.HasPrefix(err.Error(), EnvConfigPath+" environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, "loadbalancer.yaml", `
environment: staging
crypto:
  token_salt: pepper
  shared_secret: s3cret
  token_ttl_minutes: 1.5
jump:
  region: eu
  title_id: fps
  version: "1.0"
  auth_service_endpoints:
    - wss://auth-1:7700/auth
    - wss://auth-2:7700/auth
  public_service_endpoint: wss://jump-1:7701/jump
game:
  jump_service_endpoint: wss://jump-1:7701/jump
  public_service_endpoint: wss://game-1:7702/game
  debug_operations: true
`)
	t.Setenv(EnvConfigPath, path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Crypto.TokenTTL() != 90*time.Second {
		t.Errorf("expected ttl 90s, got %v", cfg.Crypto.TokenTTL())
	}
	if cfg.Auth.Listen != ":7700" {
		t.Errorf("expected default auth listen, got %q", cfg.Auth.Listen)
	}
	endpoints, err := cfg.Jump.AuthEndpoints()
	if err != nil {
		t.Fatalf("AuthEndpoints: %v", err)
	}
	if len(endpoints) != 2 || endpoints[1].Host != "auth-2" {
		t.Errorf("unexpected auth endpoints %v", endpoints)
	}
	if !cfg.Game.DebugOperations {
		t.Error("expected debug_operations=true")
	}
	if err := cfg.ValidateJump(); err != nil {
		t.Errorf("ValidateJump: %v", err)
	}
	if err := cfg.ValidateGame(); err != nil {
		t.Errorf("ValidateGame: %v", err)
	}
}

func TestLoadFileJSONC(t *testing.T) {
	path := writeConfig(t, "loadbalancer.jsonc", `{
  // Shared by every tier.
  "environment": "development",
  "crypto": {
    "token_salt": "pepper",
    "shared_secret": "s3cret", /* inline for local runs */
  },
  "auth": {"listen": "127.0.0.1:9000"},
}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Auth.Listen != "127.0.0.1:9000" {
		t.Errorf("expected auth listen from jsonc, got %q", cfg.Auth.Listen)
	}
	if err := cfg.ValidateAuth(); err != nil {
		t.Errorf("ValidateAuth: %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "loadbalancer.yaml", `
environment: production
crypto:
  token_salt: base-salt
  shared_secret_file: /etc/loadbalancer/secret
game:
  listen: ":7702"
  debug_operations: true
production:
  crypto:
    token_salt: prod-salt
  jump:
    auth_service_endpoints: [wss://prod-auth:7700/auth]
  game:
    listen: ":9702"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Crypto.TokenSalt != "prod-salt" {
		t.Errorf("expected token_salt=prod-salt, got %s", cfg.Crypto.TokenSalt)
	}
	if cfg.Crypto.SharedSecretFile != "/etc/loadbalancer/secret" {
		t.Errorf("base shared_secret_file lost: %q", cfg.Crypto.SharedSecretFile)
	}
	if cfg.Game.Listen != ":9702" {
		t.Errorf("expected game listen override, got %q", cfg.Game.Listen)
	}
	if cfg.Game.DebugOperations {
		t.Error("expected production game override to clear debug_operations")
	}
	if len(cfg.Jump.AuthServiceEndpoints) != 1 {
		t.Errorf("expected overridden auth endpoints, got %v", cfg.Jump.AuthServiceEndpoints)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("LB_TEST_HOST", "game-7")
	path := writeConfig(t, "loadbalancer.yaml", `
game:
  public_service_endpoint: wss://${LB_TEST_HOST}:${LB_TEST_PORT:-7702}/game
  jump_service_endpoint: ${LB_TEST_UNSET}
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Game.PublicServiceEndpoint != "wss://game-7:7702/game" {
		t.Errorf("unexpected expansion %q", cfg.Game.PublicServiceEndpoint)
	}
	if cfg.Game.JumpServiceEndpoint != "" {
		t.Errorf("unset variable without default expanded to %q", cfg.Game.JumpServiceEndpoint)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "invalid environment"},
		{"missing salt", func(c *Config) { c.Crypto.TokenSalt = "" }, "token_salt is required"},
		{"no secret", func(c *Config) { c.Crypto.SharedSecret = "" }, "is required"},
		{"two secrets", func(c *Config) { c.Crypto.SharedSecretFile = "/x" }, "mutually exclusive"},
		{
			"sealed without identity",
			func(c *Config) { c.Crypto.SharedSecret = ""; c.Crypto.SharedSecretSealed = "abc" },
			"identity_file is required",
		},
		{"inline secret in production", func(c *Config) { c.Environment = Production }, "not allowed in production"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.Crypto.TokenSalt = "salt"
			cfg.Crypto.SharedSecret = "secret"
			test.modify(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("Validate error = %v, want containing %q", err, test.wantErr)
			}
		})
	}
}

func TestValidateGameEndpoints(t *testing.T) {
	cfg := Default()
	cfg.Crypto.TokenSalt = "salt"
	cfg.Crypto.SharedSecret = "secret"
	cfg.Game.JumpServiceEndpoint = "not an endpoint"
	err := cfg.ValidateGame()
	if err == nil || !strings.Contains(err.Error(), "game.jump_service_endpoint") {
		t.Fatalf("ValidateGame error = %v", err)
	}
}

func TestLoadSharedSecretSources(t *testing.T) {
	inline := CryptoConfig{SharedSecret: "inline"}
	buffer, err := inline.LoadSharedSecret()
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if buffer.String() != "inline" {
		t.Errorf("inline secret = %q", buffer.String())
	}
	buffer.Close()

	secretPath := writeConfig(t, "secret", "from-file\n")
	fromFile := CryptoConfig{SharedSecretFile: secretPath}
	buffer, err = fromFile.LoadSharedSecret()
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if buffer.String() != "from-file" {
		t.Errorf("file secret = %q", buffer.String())
	}
	buffer.Close()

	if _, err := (CryptoConfig{}).LoadSharedSecret(); err == nil {
		t.Error("empty crypto config produced a secret")
	}
}

func TestLoadSharedSecretSealed(t *testing.T) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()
	identityPath := writeConfig(t, "host.key", keypair.PrivateKey.String()+"\n")

	ciphertext, err := sealed.Encrypt([]byte("sealed-secret"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	crypto := CryptoConfig{SharedSecretSealed: ciphertext, IdentityFile: identityPath}
	buffer, err := crypto.LoadSharedSecret()
	if err != nil {
		t.Fatalf("LoadSharedSecret: %v", err)
	}
	defer buffer.Close()
	if buffer.String() != "sealed-secret" {
		t.Errorf("unsealed secret = %q", buffer.String())
	}

	crypto.IdentityFile = filepath.Join(t.TempDir(), "missing.key")
	if _, err := crypto.LoadSharedSecret(); err == nil {
		t.Error("missing identity file accepted")
	}
}
