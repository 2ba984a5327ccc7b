// Package mode implements the interaction-mode state machine.
//
// The machine is the sole legal mutator of the mode state: UI toggles are
// transition requests that may be rejected. Live-edit and animation-builder
// are mutually exclusive; the fullscreen substate is orthogonal to the
// base mode.
package mode

import "log/slog"

// Base is the mutually exclusive top-level interaction state.
type Base int

const (
	Presentation Base = iota
	LiveEdit
	AnimationBuilder
)

func (b Base) String() string {
	switch b {
	case Presentation:
		return "presentation"
	case LiveEdit:
		return "live-edit"
	case AnimationBuilder:
		return "animation-builder"
	}
	return "unknown"
}

// Fullscreen is the orthogonal fullscreen substate.
type Fullscreen int

const (
	FullscreenNone Fullscreen = iota
	FullscreenView
	FullscreenEdit
)

func (f Fullscreen) String() string {
	switch f {
	case FullscreenNone:
		return "none"
	case FullscreenView:
		return "view"
	case FullscreenEdit:
		return "edit"
	}
	return "unknown"
}

// Request is a transition request. Requests that would violate mode
// exclusivity are rejected as no-ops.
type Request int

const (
	// ToggleLiveEdit enters live-edit from presentation, or exits back.
	ToggleLiveEdit Request = iota
	// ToggleAnimationBuilder enters animation-builder from presentation,
	// or exits back.
	ToggleAnimationBuilder
	// EnterFullscreenView is allowed from any state.
	EnterFullscreenView
	// EnterFullscreenEdit is allowed from any state.
	EnterFullscreenEdit
	// ExitFullscreen returns to the non-fullscreen substate without
	// changing the base mode.
	ExitFullscreen
)

// State is a point-in-time snapshot of the machine.
type State struct {
	Base       Base
	Fullscreen Fullscreen
}

// Machine holds the current mode. Initial state: presentation/none.
// Not safe for concurrent use; it is owned by the dispatcher loop.
type Machine struct {
	base   Base
	fs     Fullscreen
	logger *slog.Logger
}

// New creates a Machine in presentation/none.
func New(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{logger: logger}
}

// Base returns the current base mode.
func (m *Machine) Base() Base { return m.base }

// Fullscreen returns the current fullscreen substate.
func (m *Machine) Fullscreen() Fullscreen { return m.fs }

// Snapshot returns the current state.
func (m *Machine) Snapshot() State { return State{Base: m.base, Fullscreen: m.fs} }

// Apply executes a transition request. It returns false when the request
// is rejected, leaving the state untouched.
func (m *Machine) Apply(req Request) bool {
	before := m.Snapshot()
	ok := m.apply(req)
	if ok {
		m.logger.Debug("mode: transition",
			"from_base", before.Base.String(), "from_fs", before.Fullscreen.String(),
			"to_base", m.base.String(), "to_fs", m.fs.String())
	}
	return ok
}

func (m *Machine) apply(req Request) bool {
	switch req {
	case ToggleLiveEdit:
		switch m.base {
		case Presentation:
			m.base = LiveEdit
			return true
		case LiveEdit:
			m.base = Presentation
			return true
		}
		// Rejected while animation-builder is active.
		return false

	case ToggleAnimationBuilder:
		switch m.base {
		case Presentation:
			m.base = AnimationBuilder
			return true
		case AnimationBuilder:
			m.base = Presentation
			return true
		}
		return false

	case EnterFullscreenView:
		if m.fs == FullscreenView {
			return false
		}
		m.fs = FullscreenView
		return true

	case EnterFullscreenEdit:
		if m.fs == FullscreenEdit {
			return false
		}
		m.fs = FullscreenEdit
		return true

	case ExitFullscreen:
		if m.fs == FullscreenNone {
			return false
		}
		m.fs = FullscreenNone
		return true
	}
	return false
}
