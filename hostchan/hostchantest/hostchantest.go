// Package hostchantest provides a recording host-channel connection for
// tests.
package hostchantest

import (
	"sync"

	"github.com/vishalpatel2890/slidecore/hostchan"
)

// Conn records every outbound message. OnSend, when set, runs after
// recording; tests use it to script host replies. Err, when set, is
// returned from Send.
type Conn struct {
	mu     sync.Mutex
	msgs   []hostchan.Outbound
	OnSend func(hostchan.Outbound)
	Err    error
}

func (c *Conn) Send(msg hostchan.Outbound) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	onSend := c.OnSend
	err := c.Err
	c.mu.Unlock()
	if onSend != nil {
		onSend(msg)
	}
	return err
}

// Messages returns all recorded messages in send order.
func (c *Conn) Messages() []hostchan.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hostchan.Outbound(nil), c.msgs...)
}

// Saves returns the recorded SaveSlide messages.
func (c *Conn) Saves() []hostchan.SaveSlide {
	var out []hostchan.SaveSlide
	for _, m := range c.Messages() {
		if s, ok := m.(hostchan.SaveSlide); ok {
			out = append(out, s)
		}
	}
	return out
}

// Captures returns the recorded CaptureRequest messages.
func (c *Conn) Captures() []hostchan.CaptureRequest {
	var out []hostchan.CaptureRequest
	for _, m := range c.Messages() {
		if r, ok := m.(hostchan.CaptureRequest); ok {
			out = append(out, r)
		}
	}
	return out
}

// Files returns the recorded ExportFile messages.
func (c *Conn) Files() []hostchan.ExportFile {
	var out []hostchan.ExportFile
	for _, m := range c.Messages() {
		if f, ok := m.(hostchan.ExportFile); ok {
			out = append(out, f)
		}
	}
	return out
}
