package hostchan

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCaptureTimeout marks a capture request that outlived its deadline.
// Treated downstream as an ordinary per-item failure.
var ErrCaptureTimeout = errors.New("hostchan: capture request timed out")

// CaptureReply is the resolution of one capture request: a data URI on
// success, an error on renderer failure or timeout.
type CaptureReply struct {
	DataURI string
	Err     error
}

type waiter struct {
	ch    chan CaptureReply
	timer *time.Timer
}

// Correlator matches capture results and errors to pending requests by
// request ID. Every registered request resolves exactly once: result,
// error, timeout, or cancellation. Never twice, never silently dropped.
type Correlator struct {
	mu      sync.Mutex
	waiters map[string]*waiter
	timeout time.Duration
	logger  *slog.Logger
}

// NewCorrelator creates a Correlator. timeout bounds each request;
// 0 means the conventional 30s renderer budget.
func NewCorrelator(timeout time.Duration, logger *slog.Logger) *Correlator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		waiters: make(map[string]*waiter),
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a one-shot listener for the request ID and arms its
// timeout. The returned channel delivers exactly one CaptureReply.
func (c *Correlator) Register(requestID string) <-chan CaptureReply {
	w := &waiter{ch: make(chan CaptureReply, 1)}
	w.timer = time.AfterFunc(c.timeout, func() {
		if c.deliver(requestID, CaptureReply{Err: ErrCaptureTimeout}) {
			c.logger.Warn("hostchan: capture timed out", "request_id", requestID)
		}
	})

	c.mu.Lock()
	c.waiters[requestID] = w
	c.mu.Unlock()
	return w.ch
}

// Resolve completes a pending request with a successful capture.
// Returns false when no listener is registered (late or duplicate reply).
func (c *Correlator) Resolve(requestID, dataURI string) bool {
	return c.deliver(requestID, CaptureReply{DataURI: dataURI})
}

// Reject completes a pending request with a renderer error.
func (c *Correlator) Reject(requestID string, errMsg string) bool {
	return c.deliver(requestID, CaptureReply{Err: fmt.Errorf("hostchan: renderer: %s", errMsg)})
}

// Cancel deregisters a pending request without delivering a reply. Used
// on teardown so stale callbacks cannot touch since-changed state.
func (c *Correlator) Cancel(requestID string) {
	c.mu.Lock()
	w, ok := c.waiters[requestID]
	if ok {
		delete(c.waiters, requestID)
	}
	c.mu.Unlock()
	if ok {
		w.timer.Stop()
	}
}

// Dispatch routes a capture-correlated inbound message into the pending
// table. Returns false for non-capture messages or unknown IDs.
func (c *Correlator) Dispatch(msg Inbound) bool {
	switch m := msg.(type) {
	case CaptureResult:
		return c.Resolve(m.RequestID, m.DataURI)
	case CaptureError:
		return c.Reject(m.RequestID, m.Error)
	}
	return false
}

// Pending returns the number of unresolved requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// deliver removes the waiter under lock and sends the reply. The removal
// before sending is what makes resolution exactly-once.
func (c *Correlator) deliver(requestID string, reply CaptureReply) bool {
	c.mu.Lock()
	w, ok := c.waiters[requestID]
	if ok {
		delete(c.waiters, requestID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	w.timer.Stop()
	w.ch <- reply
	return true
}
