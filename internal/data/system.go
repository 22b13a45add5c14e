package data

import (
	"fmt"
	"time"

	"github.com/dsengine/render/internal/config"
	"github.com/dsengine/render/internal/core/message"
	"github.com/dsengine/render/internal/core/system"
	"go.uber.org/zap"
)

// PresetSystem publishes the preset load requests on its first frame.
type PresetSystem struct {
	table   *PresetTable
	pending *message.Stream
	log     *zap.Logger
}

var _ system.System = (*PresetSystem)(nil)

// NewPresetSystem uses table when given, otherwise the file named by
// [resources] preset_file at Initialize.
func NewPresetSystem(table *PresetTable, log *zap.Logger) *PresetSystem {
	return &PresetSystem{table: table, log: log}
}

func (p *PresetSystem) Name() string        { return "presets" }
func (p *PresetSystem) Phase() system.Phase { return system.PhaseInput }

func (p *PresetSystem) Initialize(cfg *config.Config) error {
	if p.table == nil && cfg.Resources.PresetFile != "" {
		t, err := LoadPresetTable(cfg.Resources.PresetFile)
		if err != nil {
			return fmt.Errorf("presets: %w", err)
		}
		p.table = t
	}
	if p.table == nil {
		return nil
	}
	p.pending = message.NewStream()
	ids := p.table.Messages(p.pending)
	p.log.Info("resource presets queued", zap.Int("requests", len(ids)))
	return nil
}

func (p *PresetSystem) Update(time.Duration)         {}
func (p *PresetSystem) PostMessages(*message.Stream) {}
func (p *PresetSystem) Shutdown()                    { p.pending = nil }

// CollectMessages hands out the queued requests once.
func (p *PresetSystem) CollectMessages() *message.Stream {
	out := p.pending
	p.pending = nil
	return out
}
