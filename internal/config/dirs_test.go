package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirs_Layout(t *testing.T) {
	root := filepath.Join("tmp", "dive")
	d := NewDirs(root)

	assert.Equal(t, filepath.Join(root, "bin", "uv"), d.UV())
	assert.Equal(t, filepath.Join(root, "bin", "python"), d.Python())
	assert.Equal(t, filepath.Join(root, "bin", "py_tmp"), d.PythonStaging())
	assert.Equal(t, filepath.Join(root, "bin", "nodejs"), d.NodeJS())
	assert.Equal(t, filepath.Join(root, "host_cache", "deps"), d.Deps())
	assert.Equal(t, filepath.Join(root, "host_cache", "requirements.txt"), d.Requirements())
	assert.Equal(t, filepath.Join(root, "host_cache", "uv.lock.md5"), d.ManifestDigest())
	assert.Equal(t, filepath.Join(root, "scripts", "node_modules"), d.NodeModules())
	assert.Equal(t, filepath.Join(root, "config", "provision.lua"), d.ConfigFile())
	assert.Equal(t, filepath.Join(root, "log", "provision.log"), d.LogFile())
	assert.Equal(t, filepath.Join(root, "provision.lock"), d.LockFile())
	assert.Equal(t, filepath.Join(root, "host_cache", "provision.json"), d.Journal())
}

func TestDirs_Ensure(t *testing.T) {
	d := NewDirs(t.TempDir())
	require.NoError(t, d.Ensure())

	for _, dir := range []string{d.Bin(), d.Cache(), d.Scripts(), d.Log(), d.Config()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDefaultRoot(t *testing.T) {
	t.Setenv(rootEnvVar, "/srv/hostdeps")
	root, err := DefaultRoot()
	require.NoError(t, err)
	assert.Equal(t, "/srv/hostdeps", root)

	t.Setenv(rootEnvVar, "")
	root, err = DefaultRoot()
	require.NoError(t, err)
	assert.Equal(t, defaultRootDirName, filepath.Base(root))
}
