package liveedit

import (
	"testing"
	"time"

	"github.com/vishalpatel2890/slidecore/deck"
	"github.com/vishalpatel2890/slidecore/hostchan/hostchantest"
)

const window = 30 * time.Millisecond

func testProtocol(t *testing.T) (*Protocol, *hostchantest.Conn, *deck.Store) {
	t.Helper()
	conn := &hostchantest.Conn{}
	store := deck.NewStore([]deck.Slide{
		{Markup: "<p>one</p>"},
		{Markup: "<p>two</p>"},
	})
	p := New(Config{
		DebounceWindow: window,
		SavedIndicator: 40 * time.Millisecond,
		ErrorIndicator: 40 * time.Millisecond,
	}, conn, store)
	return p, conn, store
}

func waitSaves(t *testing.T, conn *hostchantest.Conn, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(conn.Saves()) >= want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("saves: got %d, want %d", len(conn.Saves()), want)
}

func TestDebounce_BurstYieldsOneSave(t *testing.T) {
	p, conn, _ := testProtocol(t)
	p.Activate(1, "el-1")

	for i := 0; i < 5; i++ {
		p.Input("<p>edit</p>")
		time.Sleep(window / 5)
	}
	waitSaves(t, conn, 1)

	// The burst settled: no further dispatch may follow.
	time.Sleep(2 * window)
	if n := len(conn.Saves()); n != 1 {
		t.Fatalf("saves after burst: %d, want 1", n)
	}
}

func TestDebounce_SpacedInputsEachSave(t *testing.T) {
	p, conn, _ := testProtocol(t)
	p.Activate(1, "el-1")

	for i := 0; i < 3; i++ {
		p.Input("<p>edit</p>")
		time.Sleep(2 * window)
		p.HandleSaveResult(true)
	}
	waitSaves(t, conn, 3)
}

func TestBlur_FlushesBeforeWindowElapses(t *testing.T) {
	p, conn, _ := testProtocol(t)
	p.Activate(1, "el-1")
	p.Input("<p>edit</p>")
	p.Blur()

	if n := len(conn.Saves()); n != 1 {
		t.Fatalf("saves after blur: %d, want 1", n)
	}
	// The cancelled debounce timer must not double-dispatch.
	time.Sleep(2 * window)
	if n := len(conn.Saves()); n != 1 {
		t.Fatalf("saves after window: %d, want 1", n)
	}
}

func TestElementSwitch_FlushesPrevious(t *testing.T) {
	p, conn, _ := testProtocol(t)
	p.Activate(1, "el-1")
	p.Input("<p>edit one</p>")

	p.Activate(1, "el-2")
	if n := len(conn.Saves()); n != 1 {
		t.Fatalf("saves after switch: %d, want 1", n)
	}
	if p.ActiveElement() != "el-2" {
		t.Errorf("active element: %q", p.ActiveElement())
	}
}

func TestDeactivate_CancelsWithoutDispatch(t *testing.T) {
	p, conn, _ := testProtocol(t)
	p.Activate(1, "el-1")
	p.Input("<p>edit</p>")
	p.Deactivate()

	time.Sleep(2 * window)
	if n := len(conn.Saves()); n != 0 {
		t.Fatalf("saves after deactivate: %d, want 0", n)
	}
	if p.State() != Idle {
		t.Errorf("state: %v", p.State())
	}
}

func TestOptimisticDeckUpdate(t *testing.T) {
	p, conn, store := testProtocol(t)
	p.Activate(2, "el-1")
	p.Input(`<p contenteditable="true">edited</p>`)
	p.Blur()

	waitSaves(t, conn, 1)
	sl, _ := store.Slide(2)
	if sl.Markup == "<p>two</p>" {
		t.Fatal("deck not updated at dispatch time")
	}
	if sl.Markup != conn.Saves()[0].Markup {
		t.Error("deck copy differs from dispatched markup")
	}
}

func TestSaveResult_Indicators(t *testing.T) {
	p, conn, _ := testProtocol(t)
	p.Activate(1, "el-1")
	p.Input("<p>edit</p>")
	p.Flush()
	waitSaves(t, conn, 1)

	p.HandleSaveResult(true)
	if p.Indicator() != IndicatorSaved {
		t.Fatalf("indicator: %v", p.Indicator())
	}
	time.Sleep(60 * time.Millisecond)
	if p.Indicator() != IndicatorNone {
		t.Error("saved indicator did not auto-revert")
	}
}

func TestSaveFailure_RetainsEditForRetry(t *testing.T) {
	p, conn, _ := testProtocol(t)
	p.Activate(1, "el-1")
	p.Input("<p>edit</p>")
	p.Flush()
	waitSaves(t, conn, 1)

	p.HandleSaveResult(false)
	if p.Indicator() != IndicatorError {
		t.Fatalf("indicator: %v", p.Indicator())
	}
	if p.State() != Dirty {
		t.Fatalf("state after failure: %v, want dirty", p.State())
	}

	// The retained edit dispatches again on the next flush.
	p.Flush()
	waitSaves(t, conn, 2)
}

func TestFlush_PersistsEmptiedSlide(t *testing.T) {
	p, conn, store := testProtocol(t)
	p.Activate(1, "el-1")

	// Deleting all content is a legitimate edit, not the absence of one.
	p.Input("")
	p.Blur()

	if n := len(conn.Saves()); n != 1 {
		t.Fatalf("saves after emptying edit: %d, want 1", n)
	}
	sl, _ := store.Slide(1)
	if sl.Markup == "<p>one</p>" {
		t.Fatal("emptied slide kept its old content")
	}
}

func TestInput_IgnoredWhileIdle(t *testing.T) {
	p, conn, _ := testProtocol(t)
	p.Input("<p>stray</p>")
	time.Sleep(2 * window)
	if n := len(conn.Saves()); n != 0 {
		t.Fatalf("saves: %d", n)
	}
}
