package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/divehq/hostdeps/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector parses without the platform table.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and parses path. A missing file yields Default().
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > maxConfigBytes {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", info.Size(), maxConfigBytes),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string. Fields the script leaves
// unset keep their Default() values.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("parse config: %w", ctx.Err())
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global "provision" table. A script that never
// defines it is valid and yields the defaults.
func extractConfig(L *lua.LState) (*Config, error) {
	cfg := Default()

	global := L.GetGlobal(luaGlobalProvision)
	switch global.Type() {
	case lua.LTNil:
		return cfg, nil
	case lua.LTTable:
	default:
		return nil, &ParseError{
			Message: "invalid 'provision' table",
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}
	table := global.(*lua.LTable)

	var err error
	setBool := func(field string, dst *bool) {
		if err != nil {
			return
		}
		*dst, err = optBool(table, field, *dst)
	}
	setString := func(t *lua.LTable, field string, dst *string) {
		if err != nil {
			return
		}
		*dst, err = optString(t, field, *dst)
	}

	setBool(luaFieldDebug, &cfg.Debug)
	setBool(luaFieldLogToFile, &cfg.LogToFile)
	setString(table, luaFieldLogLevel, &cfg.LogLevel)
	setString(table, luaFieldLogFile, &cfg.LogFile)
	setString(table, luaFieldHostDir, &cfg.HostDir)
	setString(table, luaFieldPrebuiltDir, &cfg.PrebuiltDir)

	if mirrors, ok := table.RawGetString(luaFieldMirrors).(*lua.LTable); ok {
		setString(mirrors, luaFieldUV, &cfg.Mirrors.UV)
		setString(mirrors, luaFieldNodeJS, &cfg.Mirrors.NodeJS)
	}

	if node, ok := table.RawGetString(luaFieldNodeJS).(*lua.LTable); ok {
		if err == nil {
			cfg.NodeJS.VerifyChecksums, err = optBool(node, luaFieldVerifySums, false)
		}
		setString(node, luaFieldKeyring, &cfg.NodeJS.Keyring)
	}

	if err != nil {
		return nil, &ParseError{Message: "invalid config value", Detail: err.Error()}
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return cfg, nil
}

// optBool returns the boolean at field, or def when the field is nil.
func optBool(t *lua.LTable, field string, def bool) (bool, error) {
	switch v := t.RawGetString(field).(type) {
	case *lua.LNilType:
		return def, nil
	case lua.LBool:
		return bool(v), nil
	default:
		return false, fmt.Errorf("%s: expected boolean, got %s", field, v.Type())
	}
}

// optString returns the string at field, or def when the field is nil.
func optString(t *lua.LTable, field string, def string) (string, error) {
	switch v := t.RawGetString(field).(type) {
	case *lua.LNilType:
		return def, nil
	case lua.LString:
		return string(v), nil
	default:
		return "", fmt.Errorf("%s: expected string, got %s", field, v.Type())
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
