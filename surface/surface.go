// Package surface defines the rendering surface bridge: the isolated
// per-slide region where markup attaches and can be queried and mutated.
//
// The surface is always passed as an explicit handle and re-validated as
// "still attached" before use; callers never trust a cached process-wide
// reference, because the host may tear the region down and rebuild it
// (magnification toggles do exactly that).
package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotAttached reports that slide markup is not attached to the surface.
var ErrNotAttached = errors.New("surface: markup not attached")

// Surface is the bridge to one rendered slide region.
type Surface interface {
	// Attached reports whether slide markup is actually present on the
	// surface. Mutations before attachment act on a stale or empty region.
	Attached(ctx context.Context) (bool, error)

	// SetVisible shows or hides every element matched by the selectors,
	// in one pass.
	SetVisible(ctx context.Context, selectors []string, visible bool) error

	// Markup reads the surface's current serialized markup.
	Markup(ctx context.Context) (string, error)

	// SetMarkup replaces the surface content.
	SetMarkup(ctx context.Context, markup string) error

	// WaitStructureChange blocks until the next structural change of the
	// surface, or until ctx is done. One-shot: the underlying observer is
	// disposed when the call returns.
	WaitStructureChange(ctx context.Context) error
}

// GateConfig tunes the readiness gate.
type GateConfig struct {
	// PollInterval is the delay between attachment probes. Default: 50ms.
	PollInterval time.Duration
	// MaxAttempts bounds the polling phase. Default: 10.
	MaxAttempts int
	// ObserveTimeout bounds the fallback structural-change wait after
	// polling is exhausted. Default: 2s.
	ObserveTimeout time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (c *GateConfig) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.ObserveTimeout <= 0 {
		c.ObserveTimeout = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// AwaitAttached blocks until markup is attached to the surface: bounded
// polling first, then one structural-change wait as a fallback. Returns
// ErrNotAttached when the budget expires, which callers degrade to a
// silent no-op (content stays visible, unanimated).
func AwaitAttached(ctx context.Context, s Surface, cfg GateConfig) error {
	cfg.defaults()

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		ok, err := s.Attached(ctx)
		if err != nil {
			return fmt.Errorf("surface: attachment probe: %w", err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
	}

	// Polling exhausted: fall back to a one-shot structural observer.
	cfg.Logger.Debug("surface: poll budget exhausted, awaiting structure change")
	obsCtx, cancel := context.WithTimeout(ctx, cfg.ObserveTimeout)
	defer cancel()
	if err := s.WaitStructureChange(obsCtx); err != nil {
		return ErrNotAttached
	}

	ok, err := s.Attached(ctx)
	if err != nil {
		return fmt.Errorf("surface: attachment probe: %w", err)
	}
	if !ok {
		return ErrNotAttached
	}
	return nil
}
