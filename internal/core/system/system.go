package system

import (
	"time"

	"github.com/dsengine/render/internal/config"
	"github.com/dsengine/render/internal/core/message"
)

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseInput  Phase = iota // 0: producers of world-state messages
	PhaseUpdate              // 1: simulation
	PhaseRender              // 2: rendering
	PhaseOutput              // 3: consumers of render results
)

// System is the capability every engine subsystem implements. The engine only
// ever holds values of this interface.
type System interface {
	Name() string
	Phase() Phase
	// Initialize prepares the system. A non-nil error means the system must
	// not be updated.
	Initialize(cfg *config.Config) error
	Update(dt time.Duration)
	Shutdown()
	// PostMessages buffers messages for the next Update without interpreting them.
	PostMessages(s *message.Stream)
	// CollectMessages hands over everything generated since the last call.
	CollectMessages() *message.Stream
}
