package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the engine configuration. Unknown keys in the TOML file are ignored.
type Config struct {
	Window    WindowConfig    `toml:"window"`
	Render    RenderConfig    `toml:"render"`
	Engine    EngineConfig    `toml:"engine"`
	Resources ResourcesConfig `toml:"resources"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
}

type WindowConfig struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Title      string `toml:"title"`
	Fullscreen bool   `toml:"fullscreen"`
}

type RenderConfig struct {
	Backend        string     `toml:"backend"` // only "headless" ships
	VSync          bool       `toml:"vsync"`
	MaxObjects     int        `toml:"max_objects"` // backend object limit, 0 = unlimited
	EmitFrameStats bool       `toml:"emit_frame_stats"`
	ClearColor     [4]float32 `toml:"clear_color"`
}

type EngineConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
	Frames   int           `toml:"frames"` // 0 = run until interrupted
}

type ResourcesConfig struct {
	PresetFile string `toml:"preset_file"`
}

type ScriptingConfig struct {
	Scenario string `toml:"scenario"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "ds-render",
		},
		Render: RenderConfig{
			Backend:        "headless",
			VSync:          true,
			MaxObjects:     0,
			EmitFrameStats: true,
			ClearColor:     [4]float32{0, 0, 0, 1},
		},
		Engine: EngineConfig{
			TickRate: 16 * time.Millisecond,
			Frames:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
