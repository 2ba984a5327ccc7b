package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/vishalpatel2890/slidecore/buildstep"
	"github.com/vishalpatel2890/slidecore/deck"
	"github.com/vishalpatel2890/slidecore/hostchan"
	"github.com/vishalpatel2890/slidecore/hostchan/hostchantest"
	"github.com/vishalpatel2890/slidecore/liveedit"
	"github.com/vishalpatel2890/slidecore/mode"
	"github.com/vishalpatel2890/slidecore/surface"
	"github.com/vishalpatel2890/slidecore/surface/surfacetest"
)

func group(order int, id string) deck.AnimationGroup {
	return deck.AnimationGroup{Order: order, Elements: []string{id}}
}

type fixture struct {
	d     *Dispatcher
	conn  *hostchantest.Conn
	surf  *surfacetest.Fake
	store *deck.Store
	modes *mode.Machine
	edit  *liveedit.Protocol
}

func newFixture(t *testing.T, slides []deck.Slide) *fixture {
	t.Helper()
	conn := &hostchantest.Conn{}
	surf := surfacetest.New("<section/>")
	store := deck.NewStore(slides)
	modes := mode.New(nil)
	engine := buildstep.New(nil, surface.GateConfig{
		PollInterval:   time.Millisecond,
		MaxAttempts:    2,
		ObserveTimeout: 10 * time.Millisecond,
	})
	edit := liveedit.New(liveedit.Config{DebounceWindow: 10 * time.Millisecond}, conn, store)
	d := New(modes, engine, edit, nil, store, surf, conn, nil)
	return &fixture{d: d, conn: conn, surf: surf, store: store, modes: modes, edit: edit}
}

func threeGroupDeck() []deck.Slide {
	return []deck.Slide{
		{Markup: "<section/>", Groups: []deck.AnimationGroup{
			group(1, "a"), group(2, "b"), group(3, "c"),
		}},
		{Markup: "<section/>"},
	}
}

func TestAdvance_RevealsThenNavigates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())
	if err := f.d.SetMagnified(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := f.d.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// Forward entry on a magnified display starts hidden.
	for i := 0; i < 3; i++ {
		res, err := f.d.Handle(ctx, Input{Command: Advance})
		if err != nil {
			t.Fatal(err)
		}
		if res != Revealed {
			t.Fatalf("advance %d: got %v, want Revealed", i+1, res)
		}
	}

	// Fourth advance: no groups remain, falls through to navigation.
	res, err := f.d.Handle(ctx, Input{Command: Advance})
	if err != nil {
		t.Fatal(err)
	}
	if res != Navigated {
		t.Fatalf("4th advance: got %v, want Navigated", res)
	}
	if f.d.CurrentSlide() != 2 {
		t.Errorf("current slide: %d", f.d.CurrentSlide())
	}
}

func TestRetreat_HidesThenNavigates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())
	if err := f.d.SetMagnified(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := f.d.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.d.Handle(ctx, Input{Command: Advance}); err != nil {
		t.Fatal(err)
	}

	res, err := f.d.Handle(ctx, Input{Command: Retreat})
	if err != nil {
		t.Fatal(err)
	}
	if res != Hidden {
		t.Fatalf("retreat with revealed group: got %v, want Hidden", res)
	}

	// Nothing revealed and on slide 1: nowhere to go.
	res, err = f.d.Handle(ctx, Input{Command: Retreat})
	if err != nil {
		t.Fatal(err)
	}
	if res != Ignored {
		t.Fatalf("retreat at start: got %v", res)
	}
}

func TestBackwardNavigation_FullyBuilt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())
	if err := f.d.SetMagnified(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := f.d.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// Walk to slide 2, then back to slide 1.
	for i := 0; i < 4; i++ {
		if _, err := f.d.Handle(ctx, Input{Command: Advance}); err != nil {
			t.Fatal(err)
		}
	}
	res, err := f.d.Handle(ctx, Input{Command: Retreat})
	if err != nil {
		t.Fatal(err)
	}
	if res != Navigated || f.d.CurrentSlide() != 1 {
		t.Fatalf("res %v, slide %d", res, f.d.CurrentSlide())
	}

	// Backward entry is fully built: the next retreat hides group 3.
	res, err = f.d.Handle(ctx, Input{Command: Retreat})
	if err != nil {
		t.Fatal(err)
	}
	if res != Hidden {
		t.Fatalf("retreat on re-entered slide: got %v, want Hidden", res)
	}
}

func TestNonMagnified_AdvanceNavigatesDirectly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())
	if err := f.d.Start(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := f.d.Handle(ctx, Input{Command: Advance})
	if err != nil {
		t.Fatal(err)
	}
	if res != Navigated || f.d.CurrentSlide() != 2 {
		t.Fatalf("res %v, slide %d", res, f.d.CurrentSlide())
	}
}

func TestEditableContext_NotIntercepted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())
	if err := f.d.Start(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := f.d.Handle(ctx, Input{Command: Advance, InEditableContext: true})
	if err != nil {
		t.Fatal(err)
	}
	if res != Ignored || f.d.CurrentSlide() != 1 {
		t.Fatalf("editable-context advance intercepted: %v, slide %d", res, f.d.CurrentSlide())
	}

	// The reserved escape still works.
	f.modes.Apply(mode.EnterFullscreenEdit)
	res, err = f.d.Handle(ctx, Input{Command: ExitFullscreenEdit, InEditableContext: true})
	if err != nil {
		t.Fatal(err)
	}
	if res != ModeChanged || f.modes.Fullscreen() != mode.FullscreenNone {
		t.Fatalf("reserved escape failed: %v, fs %v", res, f.modes.Fullscreen())
	}
}

func TestModeToggles_Exclusive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())

	if res, _ := f.d.Handle(ctx, Input{Command: ToggleAnimationBuilder}); res != ModeChanged {
		t.Fatalf("enter animation-builder: %v", res)
	}
	if res, _ := f.d.Handle(ctx, Input{Command: ToggleLiveEdit}); res != Ignored {
		t.Fatalf("live-edit while animation-builder: %v", res)
	}
}

func TestFullscreenEdit_EnterThenReservedExit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())

	res, err := f.d.Handle(ctx, Input{Command: EnterFullscreenEdit})
	if err != nil {
		t.Fatal(err)
	}
	if res != ModeChanged || f.modes.Fullscreen() != mode.FullscreenEdit {
		t.Fatalf("enter fullscreen-edit: %v, fs %v", res, f.modes.Fullscreen())
	}

	// Re-entering the state it is already in changes nothing.
	if res, _ := f.d.Handle(ctx, Input{Command: EnterFullscreenEdit}); res != Ignored {
		t.Fatalf("repeated enter: %v", res)
	}

	res, err = f.d.Handle(ctx, Input{Command: ExitFullscreenEdit, InEditableContext: true})
	if err != nil {
		t.Fatal(err)
	}
	if res != ModeChanged || f.modes.Fullscreen() != mode.FullscreenNone {
		t.Fatalf("reserved exit: %v, fs %v", res, f.modes.Fullscreen())
	}
}

func TestLiveEditExit_DeactivatesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())

	f.d.Handle(ctx, Input{Command: ToggleLiveEdit})
	f.edit.Activate(1, "el-1")
	f.d.Handle(ctx, Input{Command: ToggleLiveEdit})

	if f.edit.ActiveElement() != "" {
		t.Error("edit session survived live-edit exit")
	}
}

func TestReorder_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, threeGroupDeck())
	order := []int{2, 1}

	f.modes.Apply(mode.EnterFullscreenView)
	if res, _ := f.d.Handle(ctx, Input{Command: Reorder, NewOrder: order}); res != Ignored {
		t.Fatalf("reorder in fullscreen: %v", res)
	}
	f.modes.Apply(mode.ExitFullscreen)

	f.modes.Apply(mode.ToggleLiveEdit)
	if res, _ := f.d.Handle(ctx, Input{Command: Reorder, NewOrder: order}); res != Ignored {
		t.Fatalf("reorder outside presentation: %v", res)
	}
	f.modes.Apply(mode.ToggleLiveEdit)

	res, err := f.d.Handle(ctx, Input{Command: Reorder, NewOrder: order})
	if err != nil {
		t.Fatal(err)
	}
	if res != Reordered {
		t.Fatalf("reorder in presentation: %v", res)
	}
	if len(f.conn.Messages()) != 1 {
		t.Fatalf("messages: %d", len(f.conn.Messages()))
	}
}

func TestHandleHost_Routing(t *testing.T) {
	f := newFixture(t, threeGroupDeck())

	f.d.HandleHost(hostchan.SlideUpdated{SlideNumber: 2, Markup: "<p>new</p>"})
	sl, _ := f.store.Slide(2)
	if sl.Markup != "<p>new</p>" {
		t.Errorf("slide update not applied: %q", sl.Markup)
	}

	f.d.HandleHost(hostchan.BuildStarted{})
	if !f.d.Building() {
		t.Error("build feed not gating")
	}
	f.d.HandleHost(hostchan.BuildComplete{Success: true})
	if f.d.Building() {
		t.Error("build completion not applied")
	}
}
