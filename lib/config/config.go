// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/sealed"
	"github.com/bureau-foundation/loadbalancer/lib/secret"
)

// EnvConfigPath names the environment variable [Load] reads.
const EnvConfigPath = "LOADBALANCER_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the configuration of every tier.
type Config struct {
	Environment Environment `yaml:"environment"`

	Crypto CryptoConfig `yaml:"crypto"`
	Auth   AuthConfig   `yaml:"auth"`
	Jump   JumpConfig   `yaml:"jump"`
	Game   GameConfig   `yaml:"game"`

	// Per-environment overrides, applied after the base config.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment may override. Only
// non-empty fields replace base values.
type Overrides struct {
	Crypto *CryptoConfig `yaml:"crypto,omitempty"`
	Auth   *AuthConfig   `yaml:"auth,omitempty"`
	Jump   *JumpConfig   `yaml:"jump,omitempty"`
	Game   *GameConfig   `yaml:"game,omitempty"`
}

// CryptoConfig configures session tokens. Every tier must agree on the
// secret and salt.
type CryptoConfig struct {
	TokenSalt string `yaml:"token_salt"`

	// SharedSecret is the secret in the clear. Prefer one of the
	// alternatives outside development.
	SharedSecret string `yaml:"shared_secret"`

	// SharedSecretFile is a file holding the secret.
	SharedSecretFile string `yaml:"shared_secret_file"`

	// SharedSecretSealed is the secret age-encrypted to IdentityFile's
	// public key, base64-encoded.
	SharedSecretSealed string `yaml:"shared_secret_sealed"`
	IdentityFile       string `yaml:"identity_file"`

	// TokenTTLMinutes bounds token age. Zero or less disables the
	// check.
	TokenTTLMinutes float64 `yaml:"token_ttl_minutes"`
}

// AuthConfig configures the Auth service.
type AuthConfig struct {
	Listen string `yaml:"listen"`
}

// JumpConfig configures a Jump service.
type JumpConfig struct {
	Listen  string `yaml:"listen"`
	Region  string `yaml:"region"`
	TitleID string `yaml:"title_id"`
	Version string `yaml:"version"`

	// AuthServiceEndpoints are the Auth services this Jump registers
	// with, one link each.
	AuthServiceEndpoints []string `yaml:"auth_service_endpoints"`

	// PublicServiceEndpoint is the address clients reach this Jump on,
	// as advertised to Auth.
	PublicServiceEndpoint string `yaml:"public_service_endpoint"`
}

// GameConfig configures a Game host.
type GameConfig struct {
	Listen                string `yaml:"listen"`
	JumpServiceEndpoint   string `yaml:"jump_service_endpoint"`
	PublicServiceEndpoint string `yaml:"public_service_endpoint"`

	// DebugOperations registers the events that toggle the Jump link.
	DebugOperations bool `yaml:"debug_operations"`

	// LoadSampleWindow is the number of one-second samples the load
	// level averages over.
	LoadSampleWindow int `yaml:"load_sample_window"`
}

// Default returns the base every file is loaded over.
func Default() *Config {
	return &Config{
		Environment: Development,
		Crypto: CryptoConfig{
			TokenTTLMinutes: 60,
		},
		Auth: AuthConfig{
			Listen: ":7700",
		},
		Jump: JumpConfig{
			Listen: ":7701",
		},
		Game: GameConfig{
			Listen:           ":7702",
			LoadSampleWindow: 100,
		},
	}
}

// Load loads the file named by LOADBALANCER_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfigPath)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your config file, or use --config", EnvConfigPath)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if o := overrides.Crypto; o != nil {
		overrideString(&c.Crypto.TokenSalt, o.TokenSalt)
		overrideString(&c.Crypto.SharedSecret, o.SharedSecret)
		overrideString(&c.Crypto.SharedSecretFile, o.SharedSecretFile)
		overrideString(&c.Crypto.SharedSecretSealed, o.SharedSecretSealed)
		overrideString(&c.Crypto.IdentityFile, o.IdentityFile)
		if o.TokenTTLMinutes != 0 {
			c.Crypto.TokenTTLMinutes = o.TokenTTLMinutes
		}
	}

	if o := overrides.Auth; o != nil {
		overrideString(&c.Auth.Listen, o.Listen)
	}

	if o := overrides.Jump; o != nil {
		overrideString(&c.Jump.Listen, o.Listen)
		overrideString(&c.Jump.Region, o.Region)
		overrideString(&c.Jump.TitleID, o.TitleID)
		overrideString(&c.Jump.Version, o.Version)
		overrideString(&c.Jump.PublicServiceEndpoint, o.PublicServiceEndpoint)
		if o.AuthServiceEndpoints != nil {
			c.Jump.AuthServiceEndpoints = o.AuthServiceEndpoints
		}
	}

	if o := overrides.Game; o != nil {
		overrideString(&c.Game.Listen, o.Listen)
		overrideString(&c.Game.JumpServiceEndpoint, o.JumpServiceEndpoint)
		overrideString(&c.Game.PublicServiceEndpoint, o.PublicServiceEndpoint)
		// DebugOperations is a bool, so an override section always sets it.
		c.Game.DebugOperations = o.DebugOperations
		if o.LoadSampleWindow != 0 {
			c.Game.LoadSampleWindow = o.LoadSampleWindow
		}
	}
}

func overrideString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (c *Config) expandVariables() {
	for _, field := range []*string{
		&c.Crypto.TokenSalt,
		&c.Crypto.SharedSecretFile,
		&c.Crypto.IdentityFile,
		&c.Auth.Listen,
		&c.Jump.Listen,
		&c.Jump.Region,
		&c.Jump.TitleID,
		&c.Jump.Version,
		&c.Jump.PublicServiceEndpoint,
		&c.Game.Listen,
		&c.Game.JumpServiceEndpoint,
		&c.Game.PublicServiceEndpoint,
	} {
		*field = expandVars(*field)
	}
	for i, value := range c.Jump.AuthServiceEndpoints {
		c.Jump.AuthServiceEndpoints[i] = expandVars(value)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the settings shared by every tier.
func (c *Config) Validate() error {
	var errs []error
	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.Crypto.TokenSalt == "" {
		errs = append(errs, errors.New("crypto.token_salt is required"))
	}
	sources := 0
	for _, value := range []string{c.Crypto.SharedSecret, c.Crypto.SharedSecretFile, c.Crypto.SharedSecretSealed} {
		if value != "" {
			sources++
		}
	}
	switch {
	case sources == 0:
		errs = append(errs, errors.New("one of crypto.shared_secret, crypto.shared_secret_file or crypto.shared_secret_sealed is required"))
	case sources > 1:
		errs = append(errs, errors.New("crypto.shared_secret, crypto.shared_secret_file and crypto.shared_secret_sealed are mutually exclusive"))
	}
	if c.Crypto.SharedSecretSealed != "" && c.Crypto.IdentityFile == "" {
		errs = append(errs, errors.New("crypto.identity_file is required with crypto.shared_secret_sealed"))
	}
	if c.Environment == Production && c.Crypto.SharedSecret != "" {
		errs = append(errs, errors.New("crypto.shared_secret is not allowed in production; use shared_secret_file or shared_secret_sealed"))
	}
	return errors.Join(errs...)
}

// ValidateJump checks the Jump section on top of Validate.
func (c *Config) ValidateJump() error {
	errs := []error{c.Validate()}
	if c.Jump.Listen == "" {
		errs = append(errs, errors.New("jump.listen is required"))
	}
	if len(c.Jump.AuthServiceEndpoints) == 0 {
		errs = append(errs, errors.New("jump.auth_service_endpoints is required"))
	}
	if _, err := c.Jump.AuthEndpoints(); err != nil {
		errs = append(errs, err)
	}
	if _, err := endpoint.Parse(c.Jump.PublicServiceEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("jump.public_service_endpoint: %w", err))
	}
	return errors.Join(errs...)
}

// ValidateGame checks the Game section on top of Validate.
func (c *Config) ValidateGame() error {
	errs := []error{c.Validate()}
	if c.Game.Listen == "" {
		errs = append(errs, errors.New("game.listen is required"))
	}
	if _, err := endpoint.Parse(c.Game.JumpServiceEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("game.jump_service_endpoint: %w", err))
	}
	if _, err := endpoint.Parse(c.Game.PublicServiceEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("game.public_service_endpoint: %w", err))
	}
	if c.Game.LoadSampleWindow < 0 {
		errs = append(errs, errors.New("game.load_sample_window must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateAuth checks the Auth section on top of Validate.
func (c *Config) ValidateAuth() error {
	errs := []error{c.Validate()}
	if c.Auth.Listen == "" {
		errs = append(errs, errors.New("auth.listen is required"))
	}
	return errors.Join(errs...)
}

// AuthEndpoints parses AuthServiceEndpoints.
func (j JumpConfig) AuthEndpoints() ([]endpoint.Endpoint, error) {
	endpoints := make([]endpoint.Endpoint, 0, len(j.AuthServiceEndpoints))
	for i, value := range j.AuthServiceEndpoints {
		parsed, err := endpoint.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("jump.auth_service_endpoints[%d]: %w", i, err)
		}
		endpoints = append(endpoints, parsed)
	}
	return endpoints, nil
}

// TokenTTL converts TokenTTLMinutes.
func (c CryptoConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes * float64(time.Minute))
}

// LoadSharedSecret returns the token secret in protected memory. The
// caller closes the buffer.
func (c CryptoConfig) LoadSharedSecret() (*secret.Buffer, error) {
	switch {
	case c.SharedSecretSealed != "":
		identity, err := secret.ReadFromPath(c.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("reading identity %s: %w", c.IdentityFile, err)
		}
		defer identity.Close()
		buffer, err := sealed.Decrypt(c.SharedSecretSealed, identity)
		if err != nil {
			return nil, fmt.Errorf("unsealing crypto.shared_secret_sealed: %w", err)
		}
		return buffer, nil
	case c.SharedSecretFile != "":
		buffer, err := secret.ReadFromPath(c.SharedSecretFile)
		if err != nil {
			return nil, fmt.Errorf("reading crypto.shared_secret_file: %w", err)
		}
		return buffer, nil
	case c.SharedSecret != "":
		return secret.NewFromBytes([]byte(c.SharedSecret))
	}
	return nil, errors.New("no shared secret configured")
}
