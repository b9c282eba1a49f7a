package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/divehq/hostdeps/internal/logging"
)

// ErrorPrefix marks a line the child uses to report failure.
const ErrorPrefix = "error:"

// maxLineBytes caps a single output line. Longer lines are truncated and the
// remainder up to the next newline is discarded.
const maxLineBytes = 1024 * 1024

// LineKind classifies a line of child output.
type LineKind int

const (
	// LineOutput is ordinary progress output.
	LineOutput LineKind = iota
	// LineError is a line starting with ErrorPrefix.
	LineError
)

func (k LineKind) String() string {
	if k == LineError {
		return "error"
	}
	return "output"
}

// LineHandler receives each line in arrival order. Returning an error stops
// the pump.
type LineHandler func(ctx context.Context, kind LineKind, line string) error

// ChildError is returned when the child printed an error line.
type ChildError struct {
	Tag  string
	Text string
}

func (e *ChildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tag, e.Text)
}

type streamLine struct {
	stderr bool
	text   string
}

// Pump starts cmd and consumes its stdout and stderr concurrently, handing
// each line to handle as soon as it arrives. Order is preserved within a
// stream but not across streams.
//
// The first line starting with ErrorPrefix stops the pump: the child is
// killed and reaped and a *ChildError is returned. When both streams reach
// EOF without an error line the child is reaped and Pump returns nil; a
// non-zero exit status is only logged.
func Pump(ctx context.Context, cmd *exec.Cmd, tag string, handle LineHandler) error {
	logger := logging.Component(ctx, "process")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", tag, err)
	}
	logger.Debug().Str("tag", tag).Strs("args", cmd.Args).Int("pid", cmd.Process.Pid).Msg("started")

	stop := make(chan struct{})
	outCh := scanLines(stdout, false, stop)
	errCh := scanLines(stderr, true, stop)

	abort := func() {
		close(stop)
		terminate(cmd)
		_ = cmd.Wait()
	}

	var errorLines []string
	for outCh != nil || errCh != nil {
		var (
			l  streamLine
			ok bool
		)
		select {
		case l, ok = <-outCh:
			if !ok {
				outCh = nil
				continue
			}
		case l, ok = <-errCh:
			if !ok {
				errCh = nil
				continue
			}
		case <-ctx.Done():
			abort()
			return ctx.Err()
		}

		lineTag := tag
		if l.stderr {
			lineTag = tag + "-stderr"
		}
		logger.Info().Str("tag", lineTag).Msg(l.text)

		kind := LineOutput
		if strings.HasPrefix(l.text, ErrorPrefix) {
			kind = LineError
		}

		if err := handle(ctx, kind, l.text); err != nil {
			abort()
			return err
		}

		if kind == LineError {
			errorLines = append(errorLines, l.text)
		}
		if len(errorLines) > 0 {
			abort()
			return &ChildError{Tag: tag, Text: strings.Join(errorLines, "\n")}
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Warn().Str("tag", tag).Int("exit_code", exitErr.ExitCode()).Msg("exited with non-zero status")
		} else {
			logger.Warn().Str("tag", tag).Err(err).Msg("wait failed")
		}
	}
	return nil
}

// scanLines forwards lines from r until EOF, a read error, or until stop is
// closed. The returned channel is closed when scanning ends.
func scanLines(r io.Reader, stderr bool, stop <-chan struct{}) <-chan streamLine {
	ch := make(chan streamLine)
	go func() {
		defer close(ch)
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			text, err := readLine(br)
			if err == nil || text != "" {
				select {
				case ch <- streamLine{stderr: stderr, text: text}:
				case <-stop:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// readLine returns the next line without its line ending, keeping at most
// maxLineBytes of it. The pipe is always consumed through the newline.
func readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if room := maxLineBytes - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return strings.TrimRight(string(buf), "\r\n"), err
	}
}

// terminate kills the child using the command's own cancel hook when it has
// one.
func terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if cmd.Cancel != nil {
		_ = cmd.Cancel()
		return
	}
	_ = cmd.Process.Kill()
}
