// Package dispatch routes user input to the animation engine or the mode
// state machine based on the current state, and routes inbound host
// messages to their owning subsystem.
//
// Routing precedence: input inside an editable context is never
// intercepted, except the one reserved command that force-exits
// fullscreen-edit. In presentation mode on a magnified display, advance
// and retreat consult the build-step engine before falling through to
// slide navigation.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/vishalpatel2890/slidecore/buildstep"
	"github.com/vishalpatel2890/slidecore/deck"
	"github.com/vishalpatel2890/slidecore/export"
	"github.com/vishalpatel2890/slidecore/hostchan"
	"github.com/vishalpatel2890/slidecore/liveedit"
	"github.com/vishalpatel2890/slidecore/mode"
	"github.com/vishalpatel2890/slidecore/surface"
)

// Command is one routed user action. Key bindings are the embedder's
// concern; the dispatcher fixes only the precedence.
type Command int

const (
	Advance Command = iota
	Retreat
	ToggleLiveEdit
	ToggleAnimationBuilder
	ToggleFullscreenView
	EnterFullscreenEdit
	ExitFullscreenEdit // the reserved force-exit, honored even in editable context
	Reorder
)

// Input is one dispatched event.
type Input struct {
	Command Command
	// InEditableContext reports that focus sits inside an editable or
	// text-input element.
	InEditableContext bool
	// NewOrder carries the Reorder payload.
	NewOrder []int
}

// Result describes what the dispatcher did.
type Result int

const (
	Ignored Result = iota
	Revealed
	Hidden
	Navigated
	ModeChanged
	Reordered
)

func (r Result) String() string {
	switch r {
	case Revealed:
		return "revealed"
	case Hidden:
		return "hidden"
	case Navigated:
		return "navigated"
	case ModeChanged:
		return "mode-changed"
	case Reordered:
		return "reordered"
	}
	return "ignored"
}

// Dispatcher owns the active-slide pointer and the display context flag.
// Single-writer: all mutations of mode, build step, and edit session run
// through Handle on one goroutine.
type Dispatcher struct {
	modes    *mode.Machine
	engine   *buildstep.Engine
	edit     *liveedit.Protocol
	pipeline *export.Pipeline
	store    *deck.Store
	surf     surface.Surface
	conn     hostchan.Conn
	logger   *slog.Logger

	current   int // active slide number
	magnified bool

	// building is the passive build-feed state gating export UI. Written
	// by the dispatch loop, read from HTTP handlers, hence atomic.
	building atomic.Bool
}

// New creates a Dispatcher starting at slide 1.
func New(modes *mode.Machine, engine *buildstep.Engine, edit *liveedit.Protocol,
	pipeline *export.Pipeline, store *deck.Store, surf surface.Surface,
	conn hostchan.Conn, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		modes:    modes,
		engine:   engine,
		edit:     edit,
		pipeline: pipeline,
		store:    store,
		surf:     surf,
		conn:     conn,
		logger:   logger,
		current:  1,
	}
}

// CurrentSlide returns the active slide number.
func (d *Dispatcher) CurrentSlide() int { return d.current }

// Building reports whether the host's long-running build feed is active.
func (d *Dispatcher) Building() bool { return d.building.Load() }

// SetMagnified records the display context and re-applies the current
// build step, since a magnification toggle rebuilds the surface.
func (d *Dispatcher) SetMagnified(ctx context.Context, magnified bool) error {
	d.magnified = magnified
	if err := d.engine.Reapply(ctx, d.surf); err != nil {
		return fmt.Errorf("dispatch: reapply after magnify toggle: %w", err)
	}
	return nil
}

// Start enters the initial slide.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.enterSlide(ctx, d.current, buildstep.Forward)
}

// Handle routes one input event by the current state.
func (d *Dispatcher) Handle(ctx context.Context, in Input) (Result, error) {
	if in.InEditableContext {
		// Typing must reach the editable element untouched; only the
		// reserved escape is intercepted.
		if in.Command == ExitFullscreenEdit {
			if d.modes.Apply(mode.ExitFullscreen) {
				return ModeChanged, nil
			}
		}
		return Ignored, nil
	}

	switch in.Command {
	case Advance:
		return d.advance(ctx)
	case Retreat:
		return d.retreat(ctx)
	case ToggleLiveEdit:
		wasLiveEdit := d.modes.Base() == mode.LiveEdit
		if !d.modes.Apply(mode.ToggleLiveEdit) {
			return Ignored, nil
		}
		if wasLiveEdit {
			// Exit tears the session down without discarding
			// already-dispatched saves.
			d.edit.Deactivate()
		}
		return ModeChanged, nil
	case ToggleAnimationBuilder:
		if !d.modes.Apply(mode.ToggleAnimationBuilder) {
			return Ignored, nil
		}
		return ModeChanged, nil
	case ToggleFullscreenView:
		var req mode.Request
		if d.modes.Fullscreen() == mode.FullscreenView {
			req = mode.ExitFullscreen
		} else {
			req = mode.EnterFullscreenView
		}
		if !d.modes.Apply(req) {
			return Ignored, nil
		}
		return ModeChanged, nil
	case EnterFullscreenEdit:
		if !d.modes.Apply(mode.EnterFullscreenEdit) {
			return Ignored, nil
		}
		return ModeChanged, nil
	case ExitFullscreenEdit:
		if !d.modes.Apply(mode.ExitFullscreen) {
			return Ignored, nil
		}
		return ModeChanged, nil
	case Reorder:
		return d.reorder(in.NewOrder)
	}
	return Ignored, nil
}

// HandleHost routes one inbound host message to its owning subsystem.
func (d *Dispatcher) HandleHost(msg hostchan.Inbound) {
	if d.pipeline != nil && d.pipeline.HandleHostMessage(msg) {
		return
	}
	switch m := msg.(type) {
	case hostchan.SaveResult:
		d.edit.HandleSaveResult(m.Success)
	case hostchan.SlideUpdated:
		if err := d.store.Upsert(m.SlideNumber, m.Markup); err != nil {
			d.logger.Warn("dispatch: slide update rejected",
				"slide", m.SlideNumber, "error", err)
		}
	case hostchan.BuildStarted:
		d.building.Store(true)
	case hostchan.BuildProgress:
		d.logger.Debug("dispatch: build progress", "message", m.Message, "percent", m.Percent)
	case hostchan.BuildComplete:
		d.building.Store(false)
	default:
		d.logger.Debug("dispatch: unrouted host message", "type", fmt.Sprintf("%T", msg))
	}
}

// advance reveals the next group when one remains; otherwise it falls
// through to forward navigation.
func (d *Dispatcher) advance(ctx context.Context) (Result, error) {
	if d.stepsApply() && d.engine.CanReveal() {
		ok, err := d.engine.RevealNext(ctx, d.surf)
		if err != nil {
			return Ignored, err
		}
		if ok {
			return Revealed, nil
		}
	}
	if d.current >= d.store.Count() {
		return Ignored, nil
	}
	if err := d.enterSlide(ctx, d.current+1, buildstep.Forward); err != nil {
		return Ignored, err
	}
	return Navigated, nil
}

// retreat mirrors advance: hide the last revealed group first, then
// navigate backward.
func (d *Dispatcher) retreat(ctx context.Context) (Result, error) {
	if d.stepsApply() && d.engine.CanHide() {
		ok, err := d.engine.HideLast(ctx, d.surf)
		if err != nil {
			return Ignored, err
		}
		if ok {
			return Hidden, nil
		}
	}
	if d.current <= 1 {
		return Ignored, nil
	}
	if err := d.enterSlide(ctx, d.current-1, buildstep.Backward); err != nil {
		return Ignored, err
	}
	return Navigated, nil
}

func (d *Dispatcher) reorder(newOrder []int) (Result, error) {
	if d.modes.Base() != mode.Presentation || d.modes.Fullscreen() != mode.FullscreenNone {
		return Ignored, nil
	}
	if err := d.store.Reorder(newOrder); err != nil {
		return Ignored, err
	}
	if err := d.conn.Send(hostchan.ReorderSlides{NewOrder: newOrder}); err != nil {
		return Reordered, fmt.Errorf("dispatch: reorder dispatch: %w", err)
	}
	return Reordered, nil
}

// stepsApply reports whether build steps take part in navigation:
// presentation mode on a magnified display.
func (d *Dispatcher) stepsApply() bool {
	return d.modes.Base() == mode.Presentation && d.magnified
}

func (d *Dispatcher) enterSlide(ctx context.Context, number int, dir buildstep.Direction) error {
	slide, ok := d.store.Slide(number)
	if !ok {
		return fmt.Errorf("dispatch: no slide %d", number)
	}
	d.current = number
	if err := d.engine.EnterSlide(ctx, d.surf, slide, dir, d.magnified); err != nil {
		return fmt.Errorf("dispatch: enter slide %d: %w", number, err)
	}
	return nil
}
