// Package buildstep drives the build-step animation player: progressive
// reveal of a slide's ordered animation groups against a rendering
// surface.
//
// The engine owns the single "build step" pointer for the active slide.
// It never mutates a surface before the slide's markup is attached: the
// readiness gate polls with a bounded budget and falls back to a one-shot
// structural observer. If the gate expires, the slide degrades to full
// visibility with no animation, a silent no-op rather than an error.
package buildstep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vishalpatel2890/slidecore/deck"
	"github.com/vishalpatel2890/slidecore/surface"
)

// Direction describes how the active slide was entered.
type Direction int

const (
	// Forward is navigation to a slide not yet built in this pass.
	Forward Direction = iota
	// Backward re-enters a previously visited slide, which is assumed
	// fully built.
	Backward
)

// Engine computes and drives the reveal state for the active slide.
// Owned by the dispatcher loop; not safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	gate   surface.GateConfig

	groups [][]string // ordered selector sets for the active slide
	step   int

	gateMisses int
}

// New creates an Engine. gate tunes the readiness gate applied on each
// slide entry.
func New(logger *slog.Logger, gate surface.GateConfig) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, gate: gate}
}

// GroupsForSlide returns the slide's selector sets sorted ascending by
// order. Ties keep the slide's input order (the sort is stable).
func GroupsForSlide(s deck.Slide) [][]string {
	groups := append([]deck.AnimationGroup(nil), s.Groups...)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Order < groups[j].Order
	})
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = g.Selectors()
	}
	return out
}

// Step returns the current build step: the count of revealed groups.
func (e *Engine) Step() int { return e.step }

// Total returns the group count for the active slide.
func (e *Engine) Total() int { return len(e.groups) }

// CanReveal reports whether a further group remains hidden.
func (e *Engine) CanReveal() bool { return e.step < len(e.groups) }

// CanHide reports whether any group is currently revealed.
func (e *Engine) CanHide() bool { return e.step > 0 }

// GateMisses returns how many slide entries degraded to the unanimated
// fallback because the surface never reported attachment.
func (e *Engine) GateMisses() int { return e.gateMisses }

// EnterSlide initializes the build state for a newly active slide and
// applies the initial visibility to the surface.
//
// Backward entry reveals everything instantly. Forward entry on a
// magnified display hides all groups (step 0). Off a magnified display
// the reveal has no visual purpose, so everything is shown and recorded
// as fully revealed.
func (e *Engine) EnterSlide(ctx context.Context, surf surface.Surface, slide deck.Slide, dir Direction, magnified bool) error {
	e.groups = GroupsForSlide(slide)

	if len(e.groups) == 0 {
		e.step = 0
		return nil
	}

	if err := surface.AwaitAttached(ctx, surf, e.gate); err != nil {
		if errors.Is(err, surface.ErrNotAttached) {
			// Content stays visible but unanimated.
			e.gateMisses++
			e.step = len(e.groups)
			e.logger.Debug("buildstep: surface never attached, skipping reveal",
				"slide", slide.Number, "groups", len(e.groups))
			return nil
		}
		return fmt.Errorf("buildstep: enter slide %d: %w", slide.Number, err)
	}

	if dir == Backward || !magnified {
		return e.RevealAll(ctx, surf)
	}

	// Forward entry, magnified: hide everything in one pass.
	e.step = 0
	if err := surf.SetVisible(ctx, e.allSelectors(), false); err != nil {
		return fmt.Errorf("buildstep: hide groups on slide %d: %w", slide.Number, err)
	}
	return nil
}

// RevealNext shows the group at the current step and advances. Returns
// false with no side effects when every group is already revealed.
func (e *Engine) RevealNext(ctx context.Context, surf surface.Surface) (bool, error) {
	if !e.CanReveal() {
		return false, nil
	}
	if err := surf.SetVisible(ctx, e.groups[e.step], true); err != nil {
		return false, fmt.Errorf("buildstep: reveal group %d: %w", e.step, err)
	}
	e.step++
	return true, nil
}

// HideLast hides the most recently revealed group and retreats. Returns
// false with no side effects at step 0.
func (e *Engine) HideLast(ctx context.Context, surf surface.Surface) (bool, error) {
	if !e.CanHide() {
		return false, nil
	}
	if err := surf.SetVisible(ctx, e.groups[e.step-1], false); err != nil {
		return false, fmt.Errorf("buildstep: hide group %d: %w", e.step-1, err)
	}
	e.step--
	return true, nil
}

// RevealAll idempotently shows every group and records the slide fully
// built.
func (e *Engine) RevealAll(ctx context.Context, surf surface.Surface) error {
	if len(e.groups) > 0 {
		if err := surf.SetVisible(ctx, e.allSelectors(), true); err != nil {
			return fmt.Errorf("buildstep: reveal all: %w", err)
		}
	}
	e.step = len(e.groups)
	return nil
}

// Reapply re-applies the current step after the surface was rebuilt
// (e.g. a magnification toggle). Groups below the step are shown and the
// rest hidden, each element touched exactly once, so the slide never
// flashes hide-then-reveal.
//
// The rebuilt surface passes the same readiness gate as slide entry: a
// SetVisible against a region whose markup has not attached yet would be
// lost. On gate expiry the slide degrades to full visibility, same as
// EnterSlide.
func (e *Engine) Reapply(ctx context.Context, surf surface.Surface) error {
	if len(e.groups) == 0 {
		return nil
	}

	if err := surface.AwaitAttached(ctx, surf, e.gate); err != nil {
		if errors.Is(err, surface.ErrNotAttached) {
			e.gateMisses++
			e.step = len(e.groups)
			e.logger.Debug("buildstep: surface never attached, skipping reapply",
				"groups", len(e.groups))
			return nil
		}
		return fmt.Errorf("buildstep: reapply: %w", err)
	}

	var shown, hidden []string
	for i, g := range e.groups {
		if i < e.step {
			shown = append(shown, g...)
		} else {
			hidden = append(hidden, g...)
		}
	}
	if len(shown) > 0 {
		if err := surf.SetVisible(ctx, shown, true); err != nil {
			return fmt.Errorf("buildstep: reapply shown: %w", err)
		}
	}
	if len(hidden) > 0 {
		if err := surf.SetVisible(ctx, hidden, false); err != nil {
			return fmt.Errorf("buildstep: reapply hidden: %w", err)
		}
	}
	return nil
}

func (e *Engine) allSelectors() []string {
	var all []string
	for _, g := range e.groups {
		all = append(all, g...)
	}
	return all
}
