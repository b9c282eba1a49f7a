package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
)

// Config holds the settings read from provision.lua.
type Config struct {
	// Debug skips all provisioning work and reports success immediately.
	Debug bool `json:"debug,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFile   string `json:"log_file,omitempty"`
	LogToFile bool   `json:"log_to_file,omitempty"`

	// HostDir is the MCP host project containing uv.lock.
	HostDir string `json:"host_dir,omitempty"`

	// PrebuiltDir holds the bundled def-tool scripts copied into scripts/
	// when scripts/package.json is missing.
	PrebuiltDir string `json:"prebuilt_dir,omitempty"`

	Mirrors Mirrors      `json:"mirrors,omitempty"`
	NodeJS  NodeJSConfig `json:"nodejs,omitempty"`
}

// Mirrors replaces the default release hosts. The path layout below the
// base URL must match the upstream one.
type Mirrors struct {
	UV     string `json:"uv,omitempty"`
	NodeJS string `json:"nodejs,omitempty"`
}

// NodeJSConfig controls optional verification of the Node.js download.
type NodeJSConfig struct {
	// VerifyChecksums checks the archive against SHASUMS256.txt.
	VerifyChecksums bool `json:"verify_checksums,omitempty"`
	// Keyring, when set, is an OpenPGP keyring used to verify
	// SHASUMS256.txt.sig before the checksum is trusted.
	Keyring string `json:"keyring,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		LogLevel:  defaultLogLevel,
		LogToFile: true,
	}
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if c.LogLevel != "" && !slices.Contains(validLogLevels, c.LogLevel) {
		return &ValidationError{
			Field:   luaFieldLogLevel,
			Message: fmt.Sprintf("unknown level %q", c.LogLevel),
		}
	}

	for field, dir := range map[string]string{
		luaFieldHostDir:     c.HostDir,
		luaFieldPrebuiltDir: c.PrebuiltDir,
		luaFieldLogFile:     c.LogFile,
	} {
		if dir != "" && !filepath.IsAbs(dir) {
			return &ValidationError{Field: field, Message: "path must be absolute"}
		}
	}

	if err := validateMirror(c.Mirrors.UV); err != nil {
		return &ValidationError{Field: "mirrors.uv", Message: err.Error()}
	}
	if err := validateMirror(c.Mirrors.NodeJS); err != nil {
		return &ValidationError{Field: "mirrors.nodejs", Message: err.Error()}
	}

	if c.NodeJS.Keyring != "" && !c.NodeJS.VerifyChecksums {
		return &ValidationError{Field: "nodejs.keyring", Message: "requires verify_checksums = true"}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

func validateMirror(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported scheme %q (expected https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
