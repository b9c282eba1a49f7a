package binary

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor handles archive extraction
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks src into dst according to format. The work runs on its own
// goroutine; if ctx is cancelled first, Extract returns ctx.Err() without
// waiting for it to finish.
func (e *Extractor) Extract(ctx context.Context, format ArchiveFormat, src, dst string) error {
	var run func(string, string) error
	switch format {
	case FormatTarGz:
		run = e.ExtractTarGz
	case FormatZip:
		run = e.ExtractZip
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	done := make(chan error, 1)
	go func() {
		done <- run(src, dst)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExtractTarGz extracts a .tar.gz archive to a destination directory
func (e *Extractor) ExtractTarGz(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeFile(target, tarReader, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := writeSymlink(destDir, target, header.Linkname); err != nil {
				return err
			}

		default:
			// Skip other types (char devices, block devices, etc.)
			continue
		}
	}
}

// ExtractZip extracts a .zip archive to a destination directory
func (e *Extractor) ExtractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, f := range reader.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(f)
			if err != nil {
				return err
			}
			if err := writeSymlink(destDir, target, linkname); err != nil {
				return err
			}

		case mode.IsRegular():
			if err := extractZipFile(f, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	return writeFile(target, rc, perm)
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return string(data), nil
}

// safeJoin joins name onto destDir, rejecting names that escape it.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !within(destDir, target) {
		return "", fmt.Errorf("illegal file path: %s", name)
	}
	return target, nil
}

// within reports whether target is destDir or lies below it.
func within(destDir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(destDir), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && !filepath.IsAbs(rel)
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(outFile, r); err != nil {
		_ = outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

// writeSymlink creates target -> linkname after checking the link resolves
// inside destDir.
func writeSymlink(destDir, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("illegal symlink target: %s -> %s", target, linkname)
	}
	if !within(destDir, filepath.Join(filepath.Dir(target), linkname)) {
		return fmt.Errorf("illegal symlink target: %s -> %s", target, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("create symlink %s: %w", target, err)
	}
	return nil
}
