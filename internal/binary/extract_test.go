package binary

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type archiveEntry struct {
	Name     string
	Body     string
	Mode     int64
	Linkname string // symlink when set
	Dir      bool
}

func createTestTarGz(t *testing.T, entries []archiveEntry) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "test.tar.gz")
	f, err := os.Create(archivePath)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		header := &tar.Header{Name: e.Name, Mode: e.Mode}
		switch {
		case e.Dir:
			header.Typeflag = tar.TypeDir
		case e.Linkname != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.Linkname
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(e.Body))
		}
		if header.Mode == 0 {
			header.Mode = 0o644
		}
		require.NoError(t, tw.WriteHeader(header))
		if header.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return archivePath
}

func createTestZip(t *testing.T, entries []archiveEntry) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(archivePath)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		mode := os.FileMode(e.Mode)
		if mode == 0 {
			mode = 0o644
		}
		switch {
		case e.Dir:
			header.Name += "/"
			header.SetMode(os.ModeDir | 0o755)
		case e.Linkname != "":
			header.SetMode(os.ModeSymlink | 0o777)
		default:
			header.SetMode(mode)
		}

		w, err := zw.CreateHeader(header)
		require.NoError(t, err)
		body := e.Body
		if e.Linkname != "" {
			body = e.Linkname
		}
		if !e.Dir {
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return archivePath
}

var uvArchive = []archiveEntry{
	{Name: "uv-x86_64-unknown-linux-gnu", Dir: true},
	{Name: "uv-x86_64-unknown-linux-gnu/uv", Body: "uv binary", Mode: 0o755},
	{Name: "uv-x86_64-unknown-linux-gnu/uvx", Body: "uvx binary", Mode: 0o755},
	{Name: "uv-x86_64-unknown-linux-gnu/docs/README.md", Body: "readme"},
}

func assertUVTree(t *testing.T, destDir string) {
	t.Helper()
	root := filepath.Join(destDir, "uv-x86_64-unknown-linux-gnu")

	content, err := os.ReadFile(filepath.Join(root, "uv"))
	require.NoError(t, err)
	assert.Equal(t, "uv binary", string(content))

	content, err = os.ReadFile(filepath.Join(root, "docs", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(content))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(root, "uvx"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}
}

func TestExtractTarGz(t *testing.T) {
	destDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, NewExtractor().ExtractTarGz(createTestTarGz(t, uvArchive), destDir))
	assertUVTree(t, destDir)
}

func TestExtractZip(t *testing.T) {
	destDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, NewExtractor().ExtractZip(createTestZip(t, uvArchive), destDir))
	assertUVTree(t, destDir)
}

func TestExtract_Dispatch(t *testing.T) {
	ctx := context.Background()
	e := NewExtractor()

	destDir := filepath.Join(t.TempDir(), "tar")
	require.NoError(t, e.Extract(ctx, FormatTarGz, createTestTarGz(t, uvArchive), destDir))
	assertUVTree(t, destDir)

	destDir = filepath.Join(t.TempDir(), "zip")
	require.NoError(t, e.Extract(ctx, FormatZip, createTestZip(t, uvArchive), destDir))
	assertUVTree(t, destDir)

	err := e.Extract(ctx, ArchiveFormat("tar.xz"), "x", destDir)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewExtractor().Extract(ctx, FormatTarGz, createTestTarGz(t, uvArchive), t.TempDir())
	// The extraction may win the race, but it must never report a different error.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestExtract_PathTraversal(t *testing.T) {
	tests := []struct {
		name  string
		entry archiveEntry
	}{
		{"parent traversal", archiveEntry{Name: "../../etc/evil", Body: "x"}},
		{"nested traversal", archiveEntry{Name: "ok/../../evil", Body: "x"}},
		{"absolute symlink", archiveEntry{Name: "link", Linkname: "/etc/passwd"}},
		{"escaping symlink", archiveEntry{Name: "link", Linkname: "../../../etc/passwd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name+" tar", func(t *testing.T) {
			destDir := filepath.Join(t.TempDir(), "out")
			err := NewExtractor().ExtractTarGz(createTestTarGz(t, []archiveEntry{tt.entry}), destDir)
			assert.ErrorContains(t, err, "illegal")
		})
		t.Run(tt.name+" zip", func(t *testing.T) {
			destDir := filepath.Join(t.TempDir(), "out")
			err := NewExtractor().ExtractZip(createTestZip(t, []archiveEntry{tt.entry}), destDir)
			assert.ErrorContains(t, err, "illegal")
		})
	}
}

func TestExtractTarGz_ValidSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on Windows")
	}

	destDir := filepath.Join(t.TempDir(), "out")
	archive := createTestTarGz(t, []archiveEntry{
		{Name: "target.txt", Body: "test"},
		{Name: "subdir/link", Linkname: "../target.txt"},
	})
	require.NoError(t, NewExtractor().ExtractTarGz(archive, destDir))

	content, err := os.ReadFile(filepath.Join(destDir, "subdir", "link"))
	require.NoError(t, err)
	assert.Equal(t, "test", string(content))
}

func TestExtract_CorruptArchive(t *testing.T) {
	bogus := filepath.Join(t.TempDir(), "bogus")
	require.NoError(t, os.WriteFile(bogus, []byte("definitely not an archive"), 0o644))

	e := NewExtractor()
	assert.ErrorContains(t, e.ExtractTarGz(bogus, t.TempDir()), "gzip")
	assert.ErrorContains(t, e.ExtractZip(bogus, t.TempDir()), "open archive")
}

func TestExtract_MissingArchive(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")
	e := NewExtractor()
	assert.ErrorContains(t, e.ExtractTarGz(missing, t.TempDir()), "open archive")
	assert.ErrorContains(t, e.ExtractZip(missing, t.TempDir()), "open archive")
}

func TestDefaultArchiveFormat(t *testing.T) {
	if runtime.GOOS == "windows" {
		assert.Equal(t, FormatZip, DefaultArchiveFormat)
	} else {
		assert.Equal(t, FormatTarGz, DefaultArchiveFormat)
	}
}
