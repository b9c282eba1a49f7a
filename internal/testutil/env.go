// Package testutil provides helpers for testing hostdeps in isolation.
package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/divehq/hostdeps/internal/config"
)

// SetupTestEnv points HOSTDEPS_ROOT at a fresh temp directory, creates the
// top-level layout and returns it. Cleanup is handled by t.TempDir.
func SetupTestEnv(t *testing.T) config.Dirs {
	t.Helper()

	root := filepath.Join(t.TempDir(), ".dive")
	t.Setenv("HOSTDEPS_ROOT", root)
	t.Setenv("HOSTDEPS_DEBUG", "")
	t.Setenv("HOSTDEPS_LOG_LEVEL", "")

	dirs := config.NewDirs(root)
	if err := dirs.Ensure(); err != nil {
		t.Fatalf("failed to create test root %s: %v", root, err)
	}
	return dirs
}

// WriteScript writes an executable shell script to path.
func WriteScript(t *testing.T, path, body string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// File is an archive member. A trailing slash in the name makes a directory.
type File struct {
	Body string
	Mode int64
}

// TarGz builds an in-memory gzip tarball from files.
func TarGz(t *testing.T, files map[string]File) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range sortedNames(files) {
		f := files[name]
		hdr := &tar.Header{Name: name, Mode: modeOr(f.Mode, 0o644), Size: int64(len(f.Body)), Typeflag: tar.TypeReg}
		if name[len(name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(f.Body)); err != nil {
				t.Fatalf("tar write %s: %v", name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// Zip builds an in-memory zip archive from files.
func Zip(t *testing.T, files map[string]File) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedNames(files) {
		f := files[name]
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(os.FileMode(modeOr(f.Mode, 0o644)))
		if name[len(name)-1] == '/' {
			hdr.SetMode(os.ModeDir | 0o755)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("zip header %s: %v", name, err)
		}
		if _, err := w.Write([]byte(f.Body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func sortedNames(files map[string]File) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func modeOr(mode, fallback int64) int64 {
	if mode == 0 {
		return fallback
	}
	return mode
}
