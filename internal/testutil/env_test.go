package testutil_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divehq/hostdeps/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	dirs := testutil.SetupTestEnv(t)

	assert.Equal(t, dirs.Root, os.Getenv("HOSTDEPS_ROOT"))
	assert.True(t, filepath.IsAbs(dirs.Root))
	for _, dir := range []string{dirs.Bin(), dirs.Cache(), dirs.Scripts(), dirs.Log(), dirs.Config()} {
		assert.DirExists(t, dir)
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	first := testutil.SetupTestEnv(t)

	t.Run("subtest", func(t *testing.T) {
		second := testutil.SetupTestEnv(t)
		assert.NotEqual(t, first.Root, second.Root)
	})
}

func TestWriteScript(t *testing.T) {
	path := testutil.WriteScript(t, filepath.Join(t.TempDir(), "bin", "tool"), "echo hi\n")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho hi\n", string(data))
}

func TestTarGz(t *testing.T) {
	data := testutil.TarGz(t, map[string]testutil.File{
		"pkg/":       {},
		"pkg/run":    {Body: "x", Mode: 0o755},
		"pkg/README": {Body: "readme"},
	})

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
		if hdr.Name == "pkg/run" {
			assert.Equal(t, int64(0o755), hdr.Mode)
		}
	}
	assert.Equal(t, []string{"pkg/", "pkg/README", "pkg/run"}, names)
}

func TestZip(t *testing.T) {
	data := testutil.Zip(t, map[string]testutil.File{"a/b.txt": {Body: "hello"}})

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "a/b.txt", zr.File[0].Name)
}
