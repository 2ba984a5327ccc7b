package liveedit

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vishalpatel2890/slidecore/audit"
	"github.com/vishalpatel2890/slidecore/deck"
	"github.com/vishalpatel2890/slidecore/hostchan"
)

// State is the per-session persistence state.
type State int

const (
	Idle State = iota
	Activated
	Dirty
	Saving
	Saved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Activated:
		return "activated"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	}
	return "unknown"
}

// Indicator is the transient save feedback shown to the author.
type Indicator int

const (
	IndicatorNone Indicator = iota
	IndicatorSaved
	IndicatorError
)

// Config tunes the protocol's timers.
type Config struct {
	// DebounceWindow is the quiet period after the last input before a
	// save dispatches. Default: 150ms.
	DebounceWindow time.Duration
	// SavedIndicator is how long the "saved" indicator shows. Default: 2s.
	SavedIndicator time.Duration
	// ErrorIndicator is how long the error indicator shows. Default: 5s.
	ErrorIndicator time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
	// Audit, when set, records save dispatches and results.
	Audit *audit.Log
}

func (c *Config) defaults() {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 150 * time.Millisecond
	}
	if c.SavedIndicator <= 0 {
		c.SavedIndicator = 2 * time.Second
	}
	if c.ErrorIndicator <= 0 {
		c.ErrorIndicator = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Protocol manages the editable-element lifecycle: at most one active
// element, at most one pending save, debounced dispatch with forced
// flush on blur or element switch.
//
// Because self-triggered saves suppress the host's external change
// notice, the deck copy is updated optimistically at dispatch time.
type Protocol struct {
	cfg   Config
	conn  hostchan.Conn
	store *deck.Store
	ser   *Serializer

	mu          sync.Mutex
	state       State
	slideNumber int
	elementID   string
	edited      string // latest edited slide markup, valid while hasEdit
	hasEdit     bool   // an Input was recorded; "" is a legitimate edit
	debounce    *time.Timer
	indicator   Indicator
	indTimer    *time.Timer
	saves       int // dispatched save count, for tests and audit
}

// New creates a Protocol bound to the host channel and the deck store.
func New(cfg Config, conn hostchan.Conn, store *deck.Store) *Protocol {
	cfg.defaults()
	return &Protocol{
		cfg:   cfg,
		conn:  conn,
		store: store,
		ser:   NewSerializer(),
	}
}

// State returns the current session state.
func (p *Protocol) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ActiveElement returns the element currently editable, or "".
func (p *Protocol) ActiveElement() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elementID
}

// Indicator returns the save feedback currently shown.
func (p *Protocol) Indicator() Indicator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indicator
}

// Saves returns how many saves have been dispatched.
func (p *Protocol) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// Activate makes the element on the slide editable. If another element
// is active and dirty its save is flushed first, bypassing the
// remaining debounce wait.
func (p *Protocol) Activate(slideNumber int, elementID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Dirty {
		p.flushLocked()
	}
	p.stopDebounceLocked()
	p.slideNumber = slideNumber
	p.elementID = elementID
	p.edited = ""
	p.hasEdit = false
	p.state = Activated
	p.cfg.Logger.Debug("liveedit: element activated",
		"slide", slideNumber, "element", elementID)
}

// Input records an edit: the session turns dirty and the debounce timer
// restarts, so at most one save is ever pending.
func (p *Protocol) Input(slideMarkup string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Idle {
		return
	}
	p.edited = slideMarkup
	p.hasEdit = true
	p.state = Dirty
	p.stopDebounceLocked()
	p.debounce = time.AfterFunc(p.cfg.DebounceWindow, p.debounceFired)
}

// Blur deactivates the element, flushing first when dirty even if the
// debounce window has not elapsed.
func (p *Protocol) Blur() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Dirty {
		p.flushLocked()
	}
	p.deactivateLocked()
}

// Deactivate tears the session down on live-edit mode exit: timers are
// cancelled, already-dispatched saves are not discarded, and no new save
// is dispatched.
func (p *Protocol) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deactivateLocked()
}

// HandleSaveResult consumes the host's save acknowledgment.
func (p *Protocol) HandleSaveResult(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if success {
		if p.state == Saving {
			p.state = Saved
		}
		p.showIndicatorLocked(IndicatorSaved, p.cfg.SavedIndicator)
		if p.state == Saved && p.elementID == "" {
			p.state = Idle
		}
		p.cfg.Audit.Record(context.Background(), audit.Event{
			Type:     audit.EventSaveResult,
			EntityID: strconv.Itoa(p.slideNumber),
			Success:  true,
		})
		return
	}

	// The edit stays in memory and is retried on the next trigger or
	// flush.
	if p.state == Saving {
		p.state = Dirty
	}
	p.showIndicatorLocked(IndicatorError, p.cfg.ErrorIndicator)
	p.cfg.Logger.Warn("liveedit: save failed", "slide", p.slideNumber)
	p.cfg.Audit.Record(context.Background(), audit.Event{
		Type:     audit.EventSaveResult,
		EntityID: strconv.Itoa(p.slideNumber),
	})
}

// Flush forces an immediate save dispatch when dirty.
func (p *Protocol) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Dirty {
		p.flushLocked()
	}
}

func (p *Protocol) debounceFired() {
	p.mu.Lock()
	defer p.mu.Unlock()
	// A blur or switch may have flushed in the meantime.
	if p.state == Dirty {
		p.flushLocked()
	}
}

// flushLocked serializes the edit, updates the deck optimistically, and
// dispatches the save. Caller holds p.mu.
func (p *Protocol) flushLocked() {
	p.stopDebounceLocked()

	if !p.hasEdit {
		p.state = Activated
		return
	}

	persisted, err := p.ser.Serialize(p.edited)
	if err != nil {
		p.cfg.Logger.Error("liveedit: serialize failed",
			"slide", p.slideNumber, "error", err)
		p.showIndicatorLocked(IndicatorError, p.cfg.ErrorIndicator)
		return
	}

	if err := p.store.SetMarkup(p.slideNumber, persisted); err != nil {
		p.cfg.Logger.Error("liveedit: optimistic update failed",
			"slide", p.slideNumber, "error", err)
	}

	p.state = Saving
	p.saves++
	p.cfg.Audit.Record(context.Background(), audit.Event{
		Type:     audit.EventSaveDispatched,
		EntityID: strconv.Itoa(p.slideNumber),
		Success:  true,
	})
	if err := p.conn.Send(hostchan.SaveSlide{SlideNumber: p.slideNumber, Markup: persisted}); err != nil {
		p.cfg.Logger.Error("liveedit: save dispatch failed",
			"slide", p.slideNumber, "error", err)
		p.state = Dirty
		p.showIndicatorLocked(IndicatorError, p.cfg.ErrorIndicator)
	}
}

func (p *Protocol) deactivateLocked() {
	p.stopDebounceLocked()
	p.elementID = ""
	p.edited = ""
	p.hasEdit = false
	if p.state != Saving {
		p.state = Idle
	}
}

func (p *Protocol) stopDebounceLocked() {
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
}

// showIndicatorLocked displays an indicator and arms its auto-revert.
// The previous indicator timer, if any, is cancelled: the indicator has
// a single owner.
func (p *Protocol) showIndicatorLocked(ind Indicator, d time.Duration) {
	if p.indTimer != nil {
		p.indTimer.Stop()
	}
	p.indicator = ind
	p.indTimer = time.AfterFunc(d, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.indicator == ind {
			p.indicator = IndicatorNone
		}
	})
}
