package binary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Download(t *testing.T) {
	body := strings.Repeat("x", 3*ChunkSize+17)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hostdeps/1.2.3", r.Header.Get("User-Agent"))
		// Bodies past the response buffer would otherwise go out chunked.
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "nested", "dir", "uv.tar.gz")
	var reports []Progress
	sink := func(ctx context.Context, p Progress) error {
		reports = append(reports, p)
		return nil
	}

	err := NewDownloader("1.2.3").Download(context.Background(), server.URL, dest, sink)
	require.NoError(t, err)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(content))

	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, uint64(len(body)), last.Downloaded)
	assert.Equal(t, uint64(len(body)), last.Total)
	assert.InDelta(t, 100.0, last.Percentage, 0.001)
	for i := 1; i < len(reports); i++ {
		assert.Greater(t, reports[i].Downloaded, reports[i-1].Downloaded)
	}

	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestDownloader_UnknownLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body is complete forces chunked encoding.
		_, _ = w.Write([]byte("part one "))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("part two"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "file")
	var last Progress
	err := NewDownloader("dev").Download(context.Background(), server.URL, dest, func(ctx context.Context, p Progress) error {
		last = p
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(len("part one part two")), last.Downloaded)
	assert.Zero(t, last.Total)
	assert.Zero(t, last.Percentage)
}

// Non-2xx responses are saved rather than rejected.
func TestDownloader_ErrorStatusSavesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not Found"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "file")
	require.NoError(t, NewDownloader("dev").Download(context.Background(), server.URL, dest, nil))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Not Found", string(content))
}

func TestDownloader_SinkErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("y", 2*ChunkSize)))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "file")
	consumerGone := errors.New("consumer gone")

	err := NewDownloader("dev").Download(context.Background(), server.URL, dest, func(ctx context.Context, p Progress) error {
		return consumerGone
	})
	require.ErrorIs(t, err, consumerGone)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloader_OverwritesExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(dest, []byte("old contents"), 0o644))

	require.NoError(t, NewDownloader("dev").Download(context.Background(), server.URL, dest, nil))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestDownloader_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("too late"))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := NewDownloader("dev").Download(ctx, server.URL, filepath.Join(t.TempDir(), "file"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDownloader_Redirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("asset"))
	}))
	defer final.Close()

	release := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/asset", http.StatusFound)
	}))
	defer release.Close()

	dest := filepath.Join(t.TempDir(), "file")
	require.NoError(t, NewDownloader("dev").Download(context.Background(), release.URL, dest, nil))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "asset", string(content))
}

func TestNewProgress(t *testing.T) {
	p := newProgress(50, 200, 2*time.Second)
	assert.Equal(t, 25.0, p.Percentage)
	assert.Equal(t, 25.0, p.SpeedBps)
	assert.Equal(t, 2.0, p.ElapsedSecs)

	p = newProgress(50, 0, 0)
	assert.Zero(t, p.Percentage)
	assert.Zero(t, p.SpeedBps)
}
