package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
width = 640
height = 480

[render]
vsync = false
max_objects = 32

[engine]
tick_rate = "33ms"

[unknown_section]
whatever = 1
`))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 480, cfg.Window.Height)
	assert.Equal(t, "ds-render", cfg.Window.Title)
	assert.False(t, cfg.Render.VSync)
	assert.Equal(t, 32, cfg.Render.MaxObjects)
	assert.Equal(t, "headless", cfg.Render.Backend)
	assert.True(t, cfg.Render.EmitFrameStats)
	assert.Equal(t, 33*time.Millisecond, cfg.Engine.TickRate)
}

func TestParseRejectsBadTOML(t *testing.T) {
	_, err := Parse([]byte("[window\nwidth = "))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
