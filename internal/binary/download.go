package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/divehq/hostdeps/internal/logging"
)

const (
	// DefaultTimeout bounds a whole download, body included.
	DefaultTimeout = 15 * time.Minute
	// ChunkSize is the read size between progress reports.
	ChunkSize = 64 * 1024
	// userAgentPrefix is joined with the build version for the User-Agent header.
	userAgentPrefix = "hostdeps/"
)

// Downloader streams HTTP(S) downloads to disk and reports progress.
type Downloader struct {
	client    *http.Client
	userAgent string
}

// NewDownloader creates a downloader identifying itself as hostdeps/<version>.
func NewDownloader(version string) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// GitHub release assets redirect to object storage
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgentPrefix + version,
	}
}

// UserAgent returns the User-Agent header value sent with requests.
func (d *Downloader) UserAgent() string {
	return d.userAgent
}

// Download fetches url into dest, creating or overwriting it. The body is
// written to dest.tmp and renamed into place once complete. sink, when
// non-nil, is called after every chunk.
//
// Non-2xx responses are not rejected: the body is saved as-is and a warning
// is logged. Integrity verification downstream catches bad payloads.
func (d *Downloader) Download(ctx context.Context, url, dest string, sink ProgressSink) error {
	logger := logging.Component(ctx, "download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("download returned non-success status, saving body anyway")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := dest + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupNeeded {
			_ = os.Remove(tmpPath)
		}
	}()

	var total uint64
	if resp.ContentLength > 0 {
		total = uint64(resp.ContentLength)
	}

	if err := copyWithProgress(ctx, tmpFile, resp.Body, total, sink); err != nil {
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	cleanupNeeded = false

	logger.Debug().Str("url", url).Str("dest", dest).Msg("download complete")
	return nil
}

// copyWithProgress copies src to dst in ChunkSize reads, reporting to sink
// after each write.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total uint64, sink ProgressSink) error {
	buf := make([]byte, ChunkSize)
	start := time.Now()
	var downloaded uint64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("write chunk: %w", err)
			}
			downloaded += uint64(n)

			if sink != nil {
				if err := sink(ctx, newProgress(downloaded, total, time.Since(start))); err != nil {
					return fmt.Errorf("report progress: %w", err)
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read response body: %w", readErr)
		}
	}
}

func newProgress(downloaded, total uint64, elapsed time.Duration) Progress {
	p := Progress{
		Downloaded:  downloaded,
		Total:       total,
		ElapsedSecs: elapsed.Seconds(),
	}
	if total > 0 {
		p.Percentage = float64(downloaded) / float64(total) * 100
	}
	if secs := elapsed.Seconds(); secs > 0 {
		p.SpeedBps = float64(downloaded) / secs
	}
	return p
}
