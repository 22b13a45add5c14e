package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/dsengine/render/internal/config"
	"github.com/dsengine/render/internal/core/ecs"
	"github.com/dsengine/render/internal/core/handle"
	"github.com/dsengine/render/internal/core/message"
	coresys "github.com/dsengine/render/internal/core/system"
	"github.com/dsengine/render/internal/render/gfx"
	"go.uber.org/zap"
)

var ErrInitialization = errors.New("render initialization failed")

// State is the lifecycle state of the render system.
type State int

const (
	StateUninitialized State = iota
	StateIdle                // initialized, between updates
	StateUpdating
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateIdle:
		return "Idle"
	case StateUpdating:
		return "Updating"
	case StateShutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BackendFactory returns an unopened backend for a config backend name.
type BackendFactory func(name string) (gfx.Backend, error)

// DefaultBackends knows the backends shipped with this module.
func DefaultBackends(name string) (gfx.Backend, error) {
	switch name {
	case "", "headless":
		return gfx.NewHeadless(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

type renderComponent struct {
	kind      ResourceKind
	drawable  handle.Handle
	material  MaterialHandle
	transform [16]float32
}

type handlerFunc func(m message.Message) error

// System is the render subsystem. Messages posted between frames are only
// buffered; they are applied at the start of the next Update. All external
// influence on the resource registry arrives through messages, except for
// direct registry calls made by the owner through Resources.
type System struct {
	backends BackendFactory
	backend  gfx.Backend
	registry *Registry
	log      *zap.Logger

	state     State
	received  *message.Stream
	generated *message.Stream
	handlers  map[message.Kind]handlerFunc

	components *ecs.Store[renderComponent]
	draws      []gfx.DrawCall

	emitStats bool
	frame     uint64
	elapsed   time.Duration
	last      FrameStats
}

var _ coresys.System = (*System)(nil)

func NewSystem(backends BackendFactory, log *zap.Logger) *System {
	if backends == nil {
		backends = DefaultBackends
	}
	s := &System{
		backends:   backends,
		log:        log,
		received:   message.NewStream(),
		generated:  message.NewStream(),
		components: ecs.NewStore[renderComponent](64),
	}
	s.handlers = map[message.Kind]handlerFunc{
		MsgLoadMesh:              s.handleLoadMesh,
		MsgLoadTexture:           s.handleLoadTexture,
		MsgLoadShader:            s.handleLoadShader,
		MsgLinkProgram:           s.handleLinkProgram,
		MsgCreateMaterial:        s.handleCreateMaterial,
		MsgLoadTerrain:           s.handleLoadTerrain,
		MsgDestroyResource:       s.handleDestroyResource,
		MsgSetRenderComponent:    s.handleSetRenderComponent,
		MsgRemoveRenderComponent: s.handleRemoveRenderComponent,
	}
	return s
}

func (s *System) Name() string           { return "render" }
func (s *System) Phase() coresys.Phase   { return coresys.PhaseRender }
func (s *System) State() State           { return s.state }
func (s *System) Frame() uint64          { return s.frame }
func (s *System) Elapsed() time.Duration { return s.elapsed }
func (s *System) LastStats() FrameStats  { return s.last }

// ComponentCount returns the number of entities with a render component.
func (s *System) ComponentCount() int { return s.components.Len() }

// Resources returns the resource registry, or nil before Initialize.
func (s *System) Resources() *Registry { return s.registry }

// Initialize opens the configured backend and prepares the registry. On
// error nothing stays open and the system refuses to update.
func (s *System) Initialize(cfg *config.Config) error {
	if s.state != StateUninitialized {
		return fmt.Errorf("%w: system is %s", ErrInitialization, s.state)
	}
	if cfg.Window.Width <= 0 || cfg.Window.Height <= 0 {
		return fmt.Errorf("%w: window %dx%d", ErrInitialization, cfg.Window.Width, cfg.Window.Height)
	}
	backend, err := s.backends(cfg.Render.Backend)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	err = backend.Open(gfx.Options{
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		VSync:      cfg.Render.VSync,
		MaxObjects: cfg.Render.MaxObjects,
		ClearColor: cfg.Render.ClearColor,
	})
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("%w: open %s backend: %w", ErrInitialization, cfg.Render.Backend, err)
	}

	s.backend = backend
	s.registry = NewRegistry(backend, s.log)
	s.emitStats = cfg.Render.EmitFrameStats
	s.state = StateIdle
	s.log.Info("render system initialized",
		zap.String("backend", cfg.Render.Backend),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.Bool("vsync", cfg.Render.VSync),
	)
	return nil
}

// PostMessages buffers a copy of the stream's messages. Nothing is applied
// until the next Update.
func (s *System) PostMessages(stream *message.Stream) {
	if s.state == StateShutdown {
		s.log.Debug("render system shut down, dropping messages", zap.Int("count", stream.Len()))
		return
	}
	s.received.Concat(stream)
}

// CollectMessages returns everything generated since the last call.
func (s *System) CollectMessages() *message.Stream {
	out := s.generated
	s.generated = message.NewStream()
	return out
}

// Update applies received messages, advances time, submits the frame and
// queues the frame statistics.
func (s *System) Update(dt time.Duration) {
	if s.state != StateIdle {
		s.log.Warn("render update ignored", zap.Stringer("state", s.state))
		return
	}
	s.state = StateUpdating
	defer func() { s.state = StateIdle }()

	for _, m := range s.received.Drain() {
		s.dispatch(m)
	}

	if dt < 0 {
		dt = 0
	}
	s.elapsed += dt

	stats := s.submit()
	stats.Frame = s.frame
	stats.DeltaSeconds = float32(dt.Seconds())
	stats.ElapsedSeconds = s.elapsed.Seconds()
	stats.LiveResources = s.registry.Live()
	s.last = stats
	s.frame++

	if s.emitStats {
		s.generated.Append(stats.Encode())
	}
}

// Shutdown drops pending messages, destroys every resource and closes the
// backend. Idempotent.
func (s *System) Shutdown() {
	if s.state == StateShutdown {
		return
	}
	s.received.Reset()
	s.generated.Reset()
	s.components.Clear()
	if s.registry != nil {
		if err := s.registry.Clear(); err != nil {
			s.log.Warn("resource cleanup incomplete", zap.Error(err))
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.log.Warn("backend close failed", zap.Error(err))
		}
	}
	s.state = StateShutdown
	s.log.Info("render system shut down", zap.Uint64("frames", s.frame))
}

func (s *System) dispatch(m message.Message) {
	h, ok := s.handlers[m.Kind]
	if !ok {
		s.log.Debug("ignoring unknown message kind", zap.Uint16("kind", uint16(m.Kind)))
		return
	}
	if err := s.safeCall(h, m); err != nil {
		s.log.Warn("message rejected", zap.String("kind", KindName(m.Kind)), zap.Error(err))
		s.diagnose(m.Kind, err)
	}
}

// safeCall runs a handler with panic recovery so that one bad message cannot
// stop the frame.
func (s *System) safeCall(h handlerFunc, m message.Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("message handler panic recovered",
				zap.String("kind", KindName(m.Kind)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %s: %v", KindName(m.Kind), rec)
		}
	}()
	return h(m)
}

func (s *System) diagnose(source message.Kind, err error) {
	s.generated.Append(Diagnostic{Source: source, Reason: err.Error()}.Encode())
}

// submit assembles draw calls for every render component in entity order and
// hands them to the backend.
func (s *System) submit() FrameStats {
	var stats FrameStats
	s.draws = s.draws[:0]
	s.components.Each(func(_ ecs.EntityID, c *renderComponent) {
		mesh := handle.FromRaw[meshKind](c.drawable)
		if c.kind == KindTerrain {
			t, ok := s.registry.terrains.Get(handle.FromRaw[terrainKind](c.drawable))
			if !ok {
				stats.SkippedDraws++
				return
			}
			mesh = t.Mesh
		}
		var skipped int
		s.draws, skipped = s.registry.appendDraws(s.draws, mesh, c.material, c.transform)
		stats.SkippedDraws += skipped
	})

	st, err := s.backend.Submit(s.draws)
	if err != nil {
		s.log.Warn("frame submit failed", zap.Uint64("frame", s.frame), zap.Error(err))
		s.diagnose(message.KindNone, fmt.Errorf("submit frame %d: %w", s.frame, err))
	}
	stats.DrawCalls = st.DrawCalls
	return stats
}
