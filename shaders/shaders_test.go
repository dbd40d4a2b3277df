package shaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcesEmbedded(t *testing.T) {
	names := []string{
		"particles.vert", "particles.frag",
		"sphere.vert", "sphere.frag",
		"raymarch.vert", "raymarch.frag",
	}

	for _, name := range names {
		src, err := FS.ReadFile(name)
		require.NoError(t, err, name)
		assert.Contains(t, string(src), "#version 450", name)
	}
}

func TestLoadSPIRVSearchesWorkingDir(t *testing.T) {
	dir := t.TempDir()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "spv"), 0o755))
	payload := []byte{0x03, 0x02, 0x23, 0x07}
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "spv", "raymarch.frag.spv"), payload, 0o644))

	code, err := LoadSPIRV("raymarch.frag")
	require.NoError(t, err)
	assert.Equal(t, payload, code)
}

func TestLoadSPIRVMissingNamesFile(t *testing.T) {
	dir := t.TempDir()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	_, err = LoadSPIRV("raymarch.frag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raymarch.frag.spv")
}
