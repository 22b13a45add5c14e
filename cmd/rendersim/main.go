package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dsengine/render/internal/config"
	"github.com/dsengine/render/internal/core/system"
	"github.com/dsengine/render/internal/data"
	"github.com/dsengine/render/internal/render"
	"github.com/dsengine/render/internal/scripting"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	Config  string `long:"config" env:"DS_CONFIG" default:"config/rendersim.toml" description:"config file"`
	Frames  int    `long:"frames" default:"-1" description:"frames to run, 0 runs until interrupted (overrides [engine] frames)"`
	Script  string `long:"script" description:"Lua scenario (overrides [scripting] scenario)"`
	Presets string `long:"presets" description:"YAML resource presets (overrides [resources] preset_file)"`
}

func main() {
	if err := run(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Flags and config
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		return err
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Frames >= 0 {
		cfg.Engine.Frames = opts.Frames
	}
	if opts.Script != "" {
		cfg.Scripting.Scenario = opts.Script
	}
	if opts.Presets != "" {
		cfg.Resources.PresetFile = opts.Presets
	}

	// 2. Logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Systems
	renderSys := render.NewSystem(render.DefaultBackends, log.Named("render"))
	runner := system.NewRunner(log)
	runner.Register(data.NewPresetSystem(nil, log.Named("presets")))
	runner.Register(scripting.NewScenarioSystem("", log.Named("scenario")))
	runner.Register(renderSys)
	if err := runner.Initialize(cfg); err != nil {
		return err
	}
	defer runner.Shutdown()

	// 4. Frame loop
	if cfg.Engine.TickRate <= 0 {
		return fmt.Errorf("engine tick_rate must be positive, got %s", cfg.Engine.TickRate)
	}
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Engine.TickRate)
	defer ticker.Stop()

	log.Info("frame loop started",
		zap.String("title", cfg.Window.Title),
		zap.Duration("tick", cfg.Engine.TickRate),
		zap.Int("frames", cfg.Engine.Frames),
	)

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
			if cfg.Engine.Frames > 0 && runner.Frame() >= uint64(cfg.Engine.Frames) {
				logSummary(log, renderSys)
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			logSummary(log, renderSys)
			return nil
		}
	}
}

func logSummary(log *zap.Logger, rs *render.System) {
	st := rs.LastStats()
	fields := []zap.Field{
		zap.Uint64("frames", rs.Frame()),
		zap.Duration("elapsed", rs.Elapsed()),
		zap.Int("draw_calls", st.DrawCalls),
		zap.Int("skipped_draws", st.SkippedDraws),
		zap.Int("components", rs.ComponentCount()),
	}
	if reg := rs.Resources(); reg != nil {
		counts := reg.Counts()
		for kind := render.KindVertexBuffer; kind <= render.KindMaterial; kind++ {
			if n := counts[kind]; n > 0 {
				fields = append(fields, zap.Int(kind.String(), n))
			}
		}
	}
	log.Info("render summary", fields...)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		zapCfg.Sampling = nil
		zapCfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	case "console", "":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		zapCfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("logging format %q (want json or console)", cfg.Format)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.InitialFields = map[string]any{"app": "rendersim"}

	return zapCfg.Build()
}
