package binary

import (
	"context"
	"errors"
	"fmt"
)

// ArchiveFormat is the container format of a release archive.
type ArchiveFormat string

const (
	// FormatTarGz is a gzip-compressed tarball.
	FormatTarGz ArchiveFormat = "tar.gz"
	// FormatZip is a zip archive.
	FormatZip ArchiveFormat = "zip"
)

// String returns the file extension of the format.
func (f ArchiveFormat) String() string {
	return string(f)
}

// Descriptor identifies one downloadable dependency. It is built once from
// pinned constants and never mutated.
type Descriptor struct {
	Name    string
	Version string
	Target  string // release target triple
	URL     string
	SHA256  string // empty when the archive is not hash-verified
	Format  ArchiveFormat
	Dir     string // install directory
}

// Verified reports whether the descriptor carries a pinned digest.
func (d Descriptor) Verified() bool {
	return d.SHA256 != ""
}

// Progress is reported after every chunk written by the Downloader.
type Progress struct {
	Downloaded  uint64  `json:"downloaded"`
	Total       uint64  `json:"total"` // 0 when the server sent no Content-Length
	Percentage  float64 `json:"percentage"`
	SpeedBps    float64 `json:"speed_bps"`
	ElapsedSecs float64 `json:"elapsed_secs"`
}

// ProgressSink receives download progress. Returning an error aborts the
// download.
type ProgressSink func(ctx context.Context, p Progress) error

var (
	// ErrChecksumMismatch is wrapped by ChecksumError.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrChecksumNotFound is returned when a checksum manifest has no entry
	// for the requested file.
	ErrChecksumNotFound = errors.New("checksum not found")
	// ErrUnknownFormat is returned for archive formats the Extractor cannot handle.
	ErrUnknownFormat = errors.New("unknown archive format")
)

// ChecksumError reports a digest that did not match.
type ChecksumError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s:\nactual:   %s\nexpected: %s", e.Path, e.Actual, e.Expected)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}
