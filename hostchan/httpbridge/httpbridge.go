// Package httpbridge binds the host channel to HTTP: outbound messages
// stream to the host over SSE, inbound messages arrive as POSTs. The
// bridge is transport only; message semantics live in hostchan.
package httpbridge

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vishalpatel2890/slidecore/hostchan"
)

// Bridge implements hostchan.Conn over HTTP.
type Bridge struct {
	logger  *slog.Logger
	handler func(hostchan.Inbound)

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// New creates a Bridge. handler receives every decoded inbound message;
// it runs on the request goroutine and must be safe for that.
func New(logger *slog.Logger, handler func(hostchan.Inbound)) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		logger:  logger,
		handler: handler,
		subs:    make(map[chan []byte]struct{}),
	}
}

// Send encodes an outbound message and fans it out to every connected
// host stream. A slow subscriber drops the frame rather than blocking
// the core.
func (b *Bridge) Send(msg hostchan.Outbound) error {
	data, err := hostchan.MarshalOutbound(msg)
	if err != nil {
		return fmt.Errorf("httpbridge: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			b.logger.Warn("httpbridge: dropping frame for slow subscriber")
		}
	}
	return nil
}

// Router returns the chi router exposing the bridge endpoints.
func (b *Bridge) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/events", b.handleEvents)
	r.Post("/messages", b.handleMessage)
	return r
}

// handleEvents streams outbound messages as SSE frames.
func (b *Bridge) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleMessage decodes one inbound envelope and hands it to the core.
func (b *Bridge) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := hostchan.UnmarshalInbound(body)
	if err != nil {
		b.logger.Warn("httpbridge: rejected inbound message", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.handler(msg)
	w.WriteHeader(http.StatusAccepted)
}

// Subscribers returns the number of connected host streams.
func (b *Bridge) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
