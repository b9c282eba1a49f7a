package codesign

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/divehq/hostdeps/internal/process"
)

// Tool checks and applies code signatures.
type Tool interface {
	// IsSigned reports whether path already carries a signature.
	IsSigned(ctx context.Context, path string) (bool, error)
	// Sign applies an ad-hoc signature to path, replacing any existing one.
	Sign(ctx context.Context, path string) error
}

// CodesignTool drives the macOS codesign utility.
type CodesignTool struct {
	// Path defaults to "codesign" resolved through PATH.
	Path string
}

func (c CodesignTool) bin() string {
	if c.Path == "" {
		return "codesign"
	}
	return c.Path
}

// IsSigned runs `codesign -dv`. A non-zero exit means unsigned.
func (c CodesignTool) IsSigned(ctx context.Context, path string) (bool, error) {
	err := process.Command(ctx, c.bin(), "-dv", path).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return false, nil
	}
	return false, fmt.Errorf("codesign -dv %s: %w", path, err)
}

// Sign runs `codesign --sign - --force`.
func (c CodesignTool) Sign(ctx context.Context, path string) error {
	out, err := process.Command(ctx, c.bin(), "--sign", "-", "--force", path).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("codesign %s: %w", path, err)
		}
		return fmt.Errorf("codesign %s: %w: %s", path, err, msg)
	}
	return nil
}
