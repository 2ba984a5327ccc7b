// Package surfacetest provides an in-memory Surface implementation for
// tests across the playback packages.
package surfacetest

import (
	"context"
	"sync"
)

// Op records one SetVisible call.
type Op struct {
	Selectors []string
	Visible   bool
}

// Fake is an in-memory surface. The zero value is detached and empty;
// use New for an attached surface with markup.
type Fake struct {
	mu        sync.Mutex
	attached  bool
	markup    string
	visible   map[string]bool
	ops       []Op
	structure chan struct{}
}

// New returns an attached fake holding the given markup.
func New(markup string) *Fake {
	return &Fake{
		attached:  true,
		markup:    markup,
		visible:   make(map[string]bool),
		structure: make(chan struct{}, 1),
	}
}

// Detached returns a fake with no markup attached.
func Detached() *Fake {
	f := New("")
	f.attached = false
	return f
}

func (f *Fake) Attached(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached, nil
}

func (f *Fake) SetVisible(ctx context.Context, selectors []string, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range selectors {
		f.visible[s] = visible
	}
	f.ops = append(f.ops, Op{Selectors: append([]string(nil), selectors...), Visible: visible})
	return nil
}

func (f *Fake) Markup(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markup, nil
}

func (f *Fake) SetMarkup(ctx context.Context, markup string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markup = markup
	f.attached = markup != ""
	return nil
}

func (f *Fake) WaitStructureChange(ctx context.Context) error {
	select {
	case <-f.structure:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attach marks the surface attached (or detached) without changing markup.
func (f *Fake) Attach(attached bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = attached
}

// TriggerStructureChange releases one pending WaitStructureChange call.
func (f *Fake) TriggerStructureChange() {
	select {
	case f.structure <- struct{}{}:
	default:
	}
}

// VisibleState reports the last visibility applied to a selector, and
// whether it was ever set.
func (f *Fake) VisibleState(selector string) (visible, set bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visible[selector]
	return v, ok
}

// Ops returns the recorded SetVisible calls in order.
func (f *Fake) Ops() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Op(nil), f.ops...)
}

// ResetOps clears the recorded call log.
func (f *Fake) ResetOps() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
}
