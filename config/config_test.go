package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackhole.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[disk]
count = 1234
seed = 9

[window]
width = 640
height = 480
`)

	cfg, err := Resolve([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, 1234, cfg.Disk.Count)
	assert.Equal(t, int64(9), cfg.Disk.Seed)
	assert.Equal(t, 640, cfg.Window.Width)

	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Hole.MassSolar, cfg.Hole.MassSolar)
}

func TestFlagsBeatFile(t *testing.T) {
	path := writeConfig(t, `
[disk]
count = 1234
`)

	cfg, err := Resolve([]string{"-config", path, "-particles", "7"})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Disk.Count)
}

func TestMissingExplicitFileFails(t *testing.T) {
	_, err := Resolve([]string{"-config", filepath.Join(t.TempDir(), "nope.toml")})
	require.Error(t, err)
}

func TestValidateRejectsBadGeometry(t *testing.T) {
	cfg := Default()
	cfg.Disk.InnerRadius = cfg.Hole.HorizonRadius / 2
	assert.Error(t, cfg.Validate(), "disk must clear the horizon")

	cfg = Default()
	cfg.Disk.OuterRadius = cfg.Disk.InnerRadius
	assert.Error(t, cfg.Validate(), "annulus must have positive width")

	cfg = Default()
	cfg.Window.Width = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.March.BaseStep = -1
	assert.Error(t, cfg.Validate())
}

func TestBadTomlFails(t *testing.T) {
	path := writeConfig(t, "count = [broken")
	_, err := Resolve([]string{"-config", path})
	require.Error(t, err)
}
