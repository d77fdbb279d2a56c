// Package config loads the portal client configuration from a TOML file,
// applies .env and PRONOTE_* environment overrides and validates the result.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// PortalConfig holds the portal endpoints and transport settings.
// An empty UserAgent means a desktop browser agent; ProxyURL is optional.
type PortalConfig struct {
	EntryURL           string `toml:"entry_url" validate:"required,url"`
	RootURL            string `toml:"root_url" validate:"required,url"`
	UserAgent          string `toml:"user_agent"`
	ProxyURL           string `toml:"proxy_url" validate:"omitempty,url"`
	Timeout            string `toml:"timeout" validate:"omitempty,duration"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

func (p *PortalConfig) GetUserAgent() string        { return p.UserAgent }
func (p *PortalConfig) GetProxyURL() string         { return p.ProxyURL }
func (p *PortalConfig) GetInsecureSkipVerify() bool { return p.InsecureSkipVerify }

// GetTimeout returns the request timeout, 30 seconds when unset.
func (p *PortalConfig) GetTimeout() time.Duration {
	if p.Timeout == "" {
		return 30 * time.Second
	}
	d, err := ParseDuration(p.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CryptoConfig selects the key derivation.
type CryptoConfig struct {
	KeyDerivation string `toml:"key_derivation" validate:"omitempty,oneof=placeholder md5"`
	Secret        string `toml:"secret"` // input of the md5 derivation
}

// RetryConfig controls how often a failed handshake is restarted.
type RetryConfig struct {
	Attempts uint   `toml:"attempts" validate:"min=1,max=10"`
	Delay    string `toml:"delay" validate:"omitempty,duration"`
}

// GetDelay returns the initial delay between attempts, one second when unset.
func (r *RetryConfig) GetDelay() time.Duration {
	d, err := ParseDuration(r.Delay)
	if err != nil {
		return time.Second
	}
	return d
}

// IdentityConfig describes where credentials come from.
type IdentityConfig struct {
	Source     string `toml:"source" validate:"omitempty,oneof=static env"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	Token      string `toml:"token"`
	DeviceUUID string `toml:"device_uuid" validate:"omitempty,uuid"`
	ENT        bool   `toml:"ent"`
	EnvPrefix  string `toml:"env_prefix"`
}

// StoreConfig points at the records database.
type StoreConfig struct {
	DSN    string `toml:"dsn"`
	Schema string `toml:"schema"`
}

// ConfigParam holds all configuration parameters.
type ConfigParam struct {
	FormatVersion string `toml:"format_version" validate:"required"`
	Driver        string `toml:"driver" validate:"required"`
	LogLevel      string `toml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	EnvFile       string `toml:"env_file"`

	Portal   PortalConfig   `toml:"portal"`
	Crypto   CryptoConfig   `toml:"crypto"`
	Retry    RetryConfig    `toml:"retry"`
	Identity IdentityConfig `toml:"identity"`
	Store    StoreConfig    `toml:"store"`
}

var cfg *ConfigParam

// Config returns the loaded configuration, nil before LoadConfig.
func Config() *ConfigParam {
	return cfg
}

// SetConfig replaces the loaded configuration.
func SetConfig(c *ConfigParam) {
	cfg = c
}

// Default returns a configuration for the public demonstration portal.
func Default() *ConfigParam {
	return &ConfigParam{
		FormatVersion: ConfigFormatVersion,
		Driver:        "protocol",
		LogLevel:      "info",
		EnvFile:       ".env",
		Portal: PortalConfig{
			EntryURL: "https://demo.index-education.net/pronote/eleve.html",
			RootURL:  "https://demo.index-education.net/pronote",
			Timeout:  "30s",
		},
		Crypto: CryptoConfig{
			KeyDerivation: "placeholder",
		},
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    "1s",
		},
		Identity: IdentityConfig{
			Source:    "env",
			EnvPrefix: "PRONOTE_",
		},
	}
}

// ParseDuration parses "<number><unit>" where unit is s, m, h or d.
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}
	unit := input[len(input)-1:]
	value, err := strconv.Atoi(input[:len(input)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative duration: %s", input)
	}

	switch unit {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unknown time unit: %s", unit)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidateConfig checks cfg and fills defaults for optional values.
func ValidateConfig(cfg *ConfigParam) error {
	if !IsFormatCompatible(cfg.FormatVersion) {
		return fmt.Errorf("unsupported config file format version: %q", cfg.FormatVersion)
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = 1
	}
	if cfg.Crypto.KeyDerivation == "" {
		cfg.Crypto.KeyDerivation = "placeholder"
	}
	if cfg.Identity.Source == "" {
		cfg.Identity.Source = "static"
	}
	if cfg.Identity.EnvPrefix == "" {
		cfg.Identity.EnvPrefix = "PRONOTE_"
	}
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.Identity.Source == "static" && cfg.Identity.Username == "" {
		return fmt.Errorf("identity.username is required when identity.source is static")
	}
	return nil
}

// applyEnv overrides file values with PRONOTE_* variables.
func applyEnv(cfg *ConfigParam) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Portal.EntryURL, "PRONOTE_ENTRY_URL")
	set(&cfg.Portal.RootURL, "PRONOTE_ROOT_URL")
	set(&cfg.Portal.ProxyURL, "PRONOTE_PROXY_URL")
	set(&cfg.Crypto.Secret, "PRONOTE_KEY_SECRET")
	set(&cfg.Store.DSN, "PRONOTE_STORE_DSN")
	set(&cfg.LogLevel, "PRONOTE_LOG_LEVEL")
}

// LoadConfig reads filename, applies the environment and validates the result.
// The .env file named by env_file, relative to the config file, is loaded first;
// a missing .env file is not an error.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	c := &ConfigParam{}
	if _, err := toml.Decode(string(content), c); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	if c.EnvFile != "" {
		envPath := c.EnvFile
		if !filepath.IsAbs(envPath) {
			envPath = filepath.Join(filepath.Dir(filename), envPath)
		}
		_ = godotenv.Load(envPath)
	}
	applyEnv(c)

	if err := ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}
	cfg = c
	return nil
}

// WriteConfig writes c to filename as TOML, creating parent directories.
func WriteConfig(c *ConfigParam, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "pronote", DefaultConfigFile), nil
}

// DefaultConfigFile is the config file name inside the user config directory.
const DefaultConfigFile = "pronote.toml"
