package surface_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vishalpatel2890/slidecore/surface"
	"github.com/vishalpatel2890/slidecore/surface/surfacetest"
)

func TestAssignElementIDs_Deterministic(t *testing.T) {
	markup := `<section><h1>Title</h1><ul><li>one</li><li>two</li></ul></section>`

	a, err := surface.AssignElementIDs(markup)
	if err != nil {
		t.Fatal(err)
	}
	b, err := surface.AssignElementIDs(markup)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("non-deterministic assignment:\n%s\n%s", a, b)
	}

	ids, err := surface.ElementIDs(a)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"el-1", "el-2", "el-3", "el-4", "el-5"}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids %v, want %d", len(ids), ids, len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("id[%d]: got %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestAssignElementIDs_PreservesExisting(t *testing.T) {
	markup := `<div data-el-id="keep"><span>x</span></div>`
	out, err := surface.AssignElementIDs(markup)
	if err != nil {
		t.Fatal(err)
	}
	ids, err := surface.ElementIDs(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "keep" {
		t.Errorf("ids: %v", ids)
	}
}

func TestAssignElementIDs_FullDocument(t *testing.T) {
	markup := `<!DOCTYPE html><html><head><title>t</title></head><body><p>hi</p></body></html>`
	out, err := surface.AssignElementIDs(markup)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<p data-el-id="el-1">`) {
		t.Errorf("paragraph not numbered:\n%s", out)
	}
	if strings.Contains(out, `<body data-el-id`) {
		t.Error("structural tag was numbered")
	}
}

func TestAwaitAttached_Immediate(t *testing.T) {
	f := surfacetest.New("<p/>")
	err := surface.AwaitAttached(context.Background(), f, surface.GateConfig{})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAwaitAttached_PollsUntilAttached(t *testing.T) {
	f := surfacetest.Detached()
	go func() {
		time.Sleep(30 * time.Millisecond)
		f.Attach(true)
	}()
	err := surface.AwaitAttached(context.Background(), f, surface.GateConfig{
		PollInterval: 10 * time.Millisecond,
		MaxAttempts:  20,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAwaitAttached_ObserverFallback(t *testing.T) {
	f := surfacetest.Detached()
	go func() {
		time.Sleep(40 * time.Millisecond)
		f.Attach(true)
		f.TriggerStructureChange()
	}()
	err := surface.AwaitAttached(context.Background(), f, surface.GateConfig{
		PollInterval:   5 * time.Millisecond,
		MaxAttempts:    2,
		ObserveTimeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAwaitAttached_ExpiresToNotAttached(t *testing.T) {
	f := surfacetest.Detached()
	err := surface.AwaitAttached(context.Background(), f, surface.GateConfig{
		PollInterval:   2 * time.Millisecond,
		MaxAttempts:    3,
		ObserveTimeout: 20 * time.Millisecond,
	})
	if !errors.Is(err, surface.ErrNotAttached) {
		t.Fatalf("got %v, want ErrNotAttached", err)
	}
}

func TestAwaitAttached_Cancellable(t *testing.T) {
	f := surfacetest.Detached()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := surface.AwaitAttached(ctx, f, surface.GateConfig{
		PollInterval: 50 * time.Millisecond,
		MaxAttempts:  100,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
