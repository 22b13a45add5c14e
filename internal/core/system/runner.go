package system

import (
	"fmt"
	"sort"
	"time"

	"github.com/dsengine/render/internal/config"
	"github.com/dsengine/render/internal/core/bus"
	"go.uber.org/zap"
)

// Runner initializes, ticks and shuts down systems in phase order, routing
// each frame's collected messages to every system on the next frame.
type Runner struct {
	systems  []System
	sorted   bool
	bus      *bus.Bus
	frame    uint64
	shutdown bool
	log      *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
		bus:     bus.New(),
		log:     log,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Bus() *bus.Bus { return r.bus }
func (r *Runner) Frame() uint64 { return r.frame }

// Initialize initializes every system in phase order. On the first failure
// the systems already initialized are shut down in reverse order.
func (r *Runner) Initialize(cfg *config.Config) error {
	r.ensureSorted()
	for i, s := range r.systems {
		if err := s.Initialize(cfg); err != nil {
			r.log.Error("system initialize failed", zap.String("system", s.Name()), zap.Error(err))
			for j := i - 1; j >= 0; j-- {
				r.systems[j].Shutdown()
			}
			r.shutdown = true
			return fmt.Errorf("initialize %s: %w", s.Name(), err)
		}
		r.log.Debug("system initialized", zap.String("system", s.Name()))
	}
	return nil
}

// Tick runs one frame: deliver last frame's messages, update, collect.
func (r *Runner) Tick(dt time.Duration) {
	if r.shutdown {
		return
	}
	r.ensureSorted()
	r.bus.Swap()
	pending := r.bus.Pending()
	for _, s := range r.systems {
		s.PostMessages(pending)
	}
	for _, s := range r.systems {
		s.Update(dt)
	}
	for _, s := range r.systems {
		r.bus.Publish(s.CollectMessages())
	}
	r.frame++
}

// Shutdown shuts systems down in reverse phase order. Idempotent.
func (r *Runner) Shutdown() {
	if r.shutdown {
		return
	}
	r.shutdown = true
	for i := len(r.systems) - 1; i >= 0; i-- {
		r.systems[i].Shutdown()
	}
	r.bus.Reset()
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
