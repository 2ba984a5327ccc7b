// Entry point for the slidecore daemon: chi router bridging the host
// channel over HTTP, go-rod surface against a remote Chromium, and the
// single-goroutine dispatch loop that owns all playback state.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite"

	"github.com/vishalpatel2890/slidecore/audit"
	"github.com/vishalpatel2890/slidecore/buildstep"
	"github.com/vishalpatel2890/slidecore/config"
	"github.com/vishalpatel2890/slidecore/deck"
	"github.com/vishalpatel2890/slidecore/dispatch"
	"github.com/vishalpatel2890/slidecore/export"
	"github.com/vishalpatel2890/slidecore/hostchan"
	"github.com/vishalpatel2890/slidecore/hostchan/httpbridge"
	"github.com/vishalpatel2890/slidecore/liveedit"
	"github.com/vishalpatel2890/slidecore/mode"
	"github.com/vishalpatel2890/slidecore/surface"
	"github.com/vishalpatel2890/slidecore/surface/rodsurface"
)

func main() {
	configPath := env("CONFIG", "slidecore.yaml")
	deckFile := env("DECK_FILE", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		slog.Error("config load failed", "path", configPath, "error", err)
		os.Exit(1)
	}
	if v := os.Getenv("BROWSER_REMOTE"); v != "" {
		cfg.Browser.Remote = v
	}
	if cfg.Browser.Remote == "" {
		slog.Error("browser.remote (or BROWSER_REMOTE) is required")
		os.Exit(1)
	}

	// Audit log.
	var auditLog *audit.Log
	if cfg.Audit.Path != "" {
		auditLog, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			slog.Error("audit open failed", "path", cfg.Audit.Path, "error", err)
			os.Exit(1)
		}
		defer auditLog.Close()
	}

	// Deck.
	store, err := loadDeck(deckFile)
	if err != nil {
		slog.Error("deck load failed", "path", deckFile, "error", err)
		os.Exit(1)
	}
	slog.Info("deck loaded", "slides", store.Count())

	// Browser surface.
	surf, err := rodsurface.Open(ctx, cfg.Browser.Remote)
	if err != nil {
		slog.Error("browser connect failed", "remote", cfg.Browser.Remote, "error", err)
		os.Exit(1)
	}
	defer surf.Close()

	// Host channel: the bridge feeds inbound messages into one channel
	// so the dispatch goroutine stays the sole writer of playback state.
	corr := hostchan.NewCorrelator(cfg.Capture.Timeout, logger)
	inbound := make(chan hostchan.Inbound, 128)
	bridge := httpbridge.New(logger, func(msg hostchan.Inbound) {
		select {
		case inbound <- msg:
		case <-ctx.Done():
		}
	})

	pipeline := export.New(export.Config{
		CaptureTimeout: cfg.Capture.Timeout,
		Presets:        cfg.Presets,
		DeckID:         cfg.Deck.ID,
		Logger:         logger,
	}, bridge, corr, export.WithAudit(auditLog))

	edit := liveedit.New(liveedit.Config{
		DebounceWindow: cfg.Edit.DebounceWindow,
		SavedIndicator: cfg.Edit.SavedIndicator,
		ErrorIndicator: cfg.Edit.ErrorIndicator,
		Logger:         logger,
		Audit:          auditLog,
	}, bridge, store)

	modes := mode.New(logger)
	engine := buildstep.New(logger, surface.GateConfig{
		PollInterval:   cfg.Gate.PollInterval,
		MaxAttempts:    cfg.Gate.MaxAttempts,
		ObserveTimeout: cfg.Gate.ObserveTimeout,
		Logger:         logger,
	})

	d := dispatch.New(modes, engine, edit, pipeline, store, surf, bridge, logger)

	// Dispatch loop. Commands and host messages interleave on one
	// goroutine so the dispatcher never needs its own locking.
	commands := make(chan commandReq, 16)
	go runDispatchLoop(ctx, d, inbound, commands)

	srv := newServer(ctx, cfg, bridge, d, edit, pipeline, store, commands)

	go func() {
		slog.Info("server starting", "addr", cfg.Bridge.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

type commandReq struct {
	in dispatch.Input
	// magnified, when set, carries a display-context change instead of a
	// dispatch command.
	magnified *bool
	reply     chan commandReply
}

type commandReply struct {
	res   dispatch.Result
	slide int
	err   error
}

// runDispatchLoop owns all playback state: host messages and commands
// interleave here, and replies carry state read on this goroutine.
func runDispatchLoop(ctx context.Context, d *dispatch.Dispatcher,
	inbound <-chan hostchan.Inbound, commands <-chan commandReq) {
	if err := d.Start(ctx); err != nil {
		slog.Warn("initial slide entry", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-inbound:
			d.HandleHost(msg)
		case req := <-commands:
			var rep commandReply
			if req.magnified != nil {
				rep.err = d.SetMagnified(ctx, *req.magnified)
			} else {
				rep.res, rep.err = d.Handle(ctx, req.in)
			}
			rep.slide = d.CurrentSlide()
			req.reply <- rep
		}
	}
}

var commandNames = map[string]dispatch.Command{
	"advance":                  dispatch.Advance,
	"retreat":                  dispatch.Retreat,
	"toggle-live-edit":         dispatch.ToggleLiveEdit,
	"toggle-animation-builder": dispatch.ToggleAnimationBuilder,
	"toggle-fullscreen-view":   dispatch.ToggleFullscreenView,
	"enter-fullscreen-edit":    dispatch.EnterFullscreenEdit,
	"exit-fullscreen-edit":     dispatch.ExitFullscreenEdit,
	"reorder":                  dispatch.Reorder,
}

func newServer(ctx context.Context, cfg *config.Config, bridge *httpbridge.Bridge,
	d *dispatch.Dispatcher, edit *liveedit.Protocol, pipeline *export.Pipeline,
	store *deck.Store, commands chan<- commandReq) *http.Server {

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/host", bridge.Router())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, 200, map[string]any{
			"slides":      store.Count(),
			"subscribers": bridge.Subscribers(),
		})
	})

	// User input routed through the dispatch loop.
	r.Post("/command", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Command   string `json:"command"`
			Editable  bool   `json:"editable"`
			Order     []int  `json:"order"`
			Magnified bool   `json:"magnified"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, 400, map[string]string{"error": err.Error()})
			return
		}

		// Display-context change from the embedder, not a key binding:
		// still serialized through the loop so the engine reapplies the
		// build step on the owning goroutine.
		if body.Command == "set-magnified" {
			cr := commandReq{magnified: &body.Magnified, reply: make(chan commandReply, 1)}
			rep, ok := roundTrip(req.Context(), commands, cr)
			if !ok {
				return
			}
			if rep.err != nil {
				writeJSON(w, 500, map[string]string{"error": rep.err.Error()})
				return
			}
			writeJSON(w, 200, map[string]any{
				"result": "magnified-set",
				"slide":  rep.slide,
			})
			return
		}

		cmd, ok := commandNames[body.Command]
		if !ok {
			writeJSON(w, 400, map[string]string{"error": "unknown command: " + body.Command})
			return
		}
		cr := commandReq{
			in:    dispatch.Input{Command: cmd, InEditableContext: body.Editable, NewOrder: body.Order},
			reply: make(chan commandReply, 1),
		}
		rep, ok := roundTrip(req.Context(), commands, cr)
		if !ok {
			return
		}
		if rep.err != nil {
			writeJSON(w, 500, map[string]string{"error": rep.err.Error()})
			return
		}
		writeJSON(w, 200, map[string]any{
			"result": rep.res.String(),
			"slide":  rep.slide,
		})
	})

	// Edit-session lifecycle, driven by focus events in the embedder.
	r.Post("/edit", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Action  string `json:"action"`
			Slide   int    `json:"slide"`
			Element string `json:"element"`
			Markup  string `json:"markup"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, 400, map[string]string{"error": err.Error()})
			return
		}
		switch body.Action {
		case "activate":
			edit.Activate(body.Slide, body.Element)
		case "input":
			edit.Input(body.Markup)
		case "blur":
			edit.Blur()
		case "deactivate":
			edit.Deactivate()
		default:
			writeJSON(w, 400, map[string]string{"error": "unknown action: " + body.Action})
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	// Export jobs run one at a time off the request goroutine; results
	// land on the host channel, not in the HTTP response.
	var exportMu sync.Mutex
	r.Post("/export", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Kind     string `json:"kind"`
			Preset   string `json:"preset"`
			FileName string `json:"file_name"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, 400, map[string]string{"error": err.Error()})
			return
		}
		if body.Kind != "pdf" && body.Kind != "images" && body.Kind != "outline" {
			writeJSON(w, 400, map[string]string{"error": "unknown kind: " + body.Kind})
			return
		}
		if d.Building() {
			writeJSON(w, 409, map[string]string{"error": "build in progress"})
			return
		}
		go func() {
			exportMu.Lock()
			defer exportMu.Unlock()
			slides := store.Slides()
			var (
				res export.BatchResult
				err error
			)
			switch body.Kind {
			case "pdf":
				res, err = pipeline.ExportPDF(ctx, slides, body.Preset, body.FileName)
			case "images":
				res, err = pipeline.ExportImages(ctx, slides, body.Preset, body.FileName)
			case "outline":
				res, err = pipeline.ExportOutline(slides, body.FileName)
			}
			switch {
			case errors.Is(err, export.ErrDestinationCancelled):
				slog.Info("export cancelled by host", "kind", body.Kind)
			case err != nil:
				slog.Error("export failed", "kind", body.Kind, "error", err)
			default:
				slog.Info("export finished", "kind", body.Kind,
					"job", res.JobID, "pages", res.Pages, "errors", res.ErrorCount)
			}
		}()
		writeJSON(w, 202, map[string]string{"status": "accepted"})
	})

	// No WriteTimeout: /host/events streams for the process lifetime.
	return &http.Server{
		Addr:              cfg.Bridge.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// loadDeck reads the initial deck from a JSON file handed over by the
// host at launch. An empty path starts with an empty deck; slides then
// arrive through slide-updated messages.
func loadDeck(path string) (*deck.Store, error) {
	if path == "" {
		return deck.NewStore(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var slides []deck.Slide
	if err := json.Unmarshal(data, &slides); err != nil {
		return nil, err
	}
	return deck.NewStore(slides), nil
}

// --- Helpers ---

// roundTrip submits one request to the dispatch loop and awaits the
// reply, giving up when the HTTP request is gone.
func roundTrip(ctx context.Context, commands chan<- commandReq, cr commandReq) (commandReply, bool) {
	select {
	case commands <- cr:
	case <-ctx.Done():
		return commandReply{}, false
	}
	select {
	case rep := <-cr.reply:
		return rep, true
	case <-ctx.Done():
		return commandReply{}, false
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
