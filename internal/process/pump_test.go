package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helperCommand re-executes the test binary as a fake child process.
func helperCommand(ctx context.Context, stdout, stderr []string, exitCode int, sleep time.Duration) *exec.Cmd {
	cmd := Command(ctx, os.Args[0], "-test.run=TestHelperProcess", "--")
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"GO_HELPER_STDOUT="+strings.Join(stdout, "|"),
		"GO_HELPER_STDERR="+strings.Join(stderr, "|"),
		fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", exitCode),
		fmt.Sprintf("GO_HELPER_SLEEP=%s", sleep),
	)
	return cmd
}

// TestHelperProcess is not a real test; it is the child process body.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	if n, _ := strconv.Atoi(os.Getenv("GO_HELPER_LONG_LINE")); n > 0 {
		fmt.Fprintln(os.Stdout, strings.Repeat("x", n))
	}
	if out := os.Getenv("GO_HELPER_STDOUT"); out != "" {
		for _, line := range strings.Split(out, "|") {
			fmt.Fprintln(os.Stdout, line)
		}
	}
	if errOut := os.Getenv("GO_HELPER_STDERR"); errOut != "" {
		for _, line := range strings.Split(errOut, "|") {
			fmt.Fprintln(os.Stderr, line)
		}
	}
	if d, err := time.ParseDuration(os.Getenv("GO_HELPER_SLEEP")); err == nil && d > 0 {
		time.Sleep(d)
	}

	code, _ := strconv.Atoi(os.Getenv("GO_HELPER_EXIT_CODE"))
	os.Exit(code)
}

type recordedLine struct {
	Kind LineKind
	Text string
}

type recorder struct {
	mu    sync.Mutex
	lines []recordedLine
}

func (r *recorder) handle(ctx context.Context, kind LineKind, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, recordedLine{Kind: kind, Text: line})
	return nil
}

func TestPump_ClassifiesAndStopsAtErrorLine(t *testing.T) {
	rec := &recorder{}
	cmd := helperCommand(context.Background(), []string{"hello", "error: bad thing", "world"}, nil, 0, 0)

	err := Pump(context.Background(), cmd, "uv", rec.handle)
	require.Error(t, err)

	var lineErr *ChildError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, "uv", lineErr.Tag)
	assert.Contains(t, lineErr.Text, "bad thing")
	assert.NotContains(t, err.Error(), "world")

	assert.Equal(t, []recordedLine{
		{Kind: LineOutput, Text: "hello"},
		{Kind: LineError, Text: "error: bad thing"},
	}, rec.lines)
}

func TestPump_ErrorLineOnStderr(t *testing.T) {
	rec := &recorder{}
	cmd := helperCommand(context.Background(), nil, []string{"error: No solution found"}, 1, 0)

	err := Pump(context.Background(), cmd, "uv", rec.handle)
	var lineErr *ChildError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, "error: No solution found", lineErr.Text)
}

// Lines beyond maxLineBytes are truncated and reading continues, so a later
// error line still stops the pump.
func TestPump_OverlongLineIsTruncated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	rec := &recorder{}
	cmd := helperCommand(ctx, []string{"after long line", "error: bad thing"}, nil, 0, 30*time.Second)
	cmd.Env = append(cmd.Env, fmt.Sprintf("GO_HELPER_LONG_LINE=%d", 2*maxLineBytes+17))

	err := Pump(ctx, cmd, "npm", rec.handle)
	var lineErr *ChildError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, "error: bad thing", lineErr.Text)

	require.Len(t, rec.lines, 3)
	assert.Len(t, rec.lines[0].Text, maxLineBytes)
	assert.Equal(t, "after long line", rec.lines[1].Text)
	assert.Equal(t, LineError, rec.lines[2].Kind)
}

func TestReadLine(t *testing.T) {
	br := bufio.NewReaderSize(strings.NewReader("one\r\n\ntwo"), 16)

	line, err := readLine(br)
	require.NoError(t, err)
	assert.Equal(t, "one", line)

	line, err = readLine(br)
	require.NoError(t, err)
	assert.Equal(t, "", line)

	line, err = readLine(br)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "two", line)
}

func TestPump_ErrorLineKillsLongRunningChild(t *testing.T) {
	cmd := helperCommand(context.Background(), []string{"error: stuck"}, nil, 0, 30*time.Second)

	start := time.Now()
	err := Pump(context.Background(), cmd, "uv", (&recorder{}).handle)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.NotNil(t, cmd.ProcessState, "child must be reaped")
}

func TestPump_CleanExit(t *testing.T) {
	rec := &recorder{}
	cmd := helperCommand(context.Background(), []string{"Resolved 12 packages", "Installed 12 packages"}, []string{"warning: cache miss"}, 0, 0)

	require.NoError(t, Pump(context.Background(), cmd, "uv", rec.handle))

	require.Len(t, rec.lines, 3)
	for _, l := range rec.lines {
		assert.Equal(t, LineOutput, l.Kind)
	}
	// Order within a stream is preserved.
	var stdout []string
	for _, l := range rec.lines {
		if !strings.HasPrefix(l.Text, "warning") {
			stdout = append(stdout, l.Text)
		}
	}
	assert.Equal(t, []string{"Resolved 12 packages", "Installed 12 packages"}, stdout)
}

// A non-zero exit without an error line is logged, not returned.
func TestPump_NonZeroExitIsNotAnError(t *testing.T) {
	cmd := helperCommand(context.Background(), []string{"partial"}, nil, 3, 0)
	require.NoError(t, Pump(context.Background(), cmd, "npm", (&recorder{}).handle))
	assert.Equal(t, 3, cmd.ProcessState.ExitCode())
}

func TestPump_HandlerErrorAborts(t *testing.T) {
	consumerGone := errors.New("consumer gone")
	cmd := helperCommand(context.Background(), []string{"one", "two"}, nil, 0, 30*time.Second)

	err := Pump(context.Background(), cmd, "uv", func(ctx context.Context, kind LineKind, line string) error {
		return consumerGone
	})
	assert.ErrorIs(t, err, consumerGone)
}

func TestPump_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cmd := helperCommand(ctx, []string{"working"}, nil, 0, 30*time.Second)

	start := time.Now()
	err := Pump(ctx, cmd, "uv", (&recorder{}).handle)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestPump_StartFailure(t *testing.T) {
	cmd := Command(context.Background(), "/nonexistent/binary/for/pump")
	err := Pump(context.Background(), cmd, "uv", (&recorder{}).handle)
	assert.ErrorContains(t, err, "start uv")
}

func TestLineKind_String(t *testing.T) {
	assert.Equal(t, "output", LineOutput.String())
	assert.Equal(t, "error", LineError.String())
}
