// Package hostchan defines the asynchronous message channel between
// slidecore and its host editing surface.
//
// Both directions are closed tagged-variant sets: adding a message kind
// is a compile-time change, and every consumer switches exhaustively
// over the concrete types. Correlated request/response pairs (capture)
// are matched by request ID through the Correlator.
package hostchan

// Outbound is the closed set of messages slidecore sends to the host.
type Outbound interface{ isOutbound() }

// CaptureOptions selects the capture format. The zero value means the
// lossless native path (PNG).
type CaptureOptions struct {
	Format  string `json:"format,omitempty"`
	Quality int    `json:"quality,omitempty"`
}

// CaptureRequest asks the out-of-process renderer to rasterize one
// slide's markup.
type CaptureRequest struct {
	RequestID string          `json:"requestId"`
	Markup    string          `json:"markup"`
	Options   *CaptureOptions `json:"options,omitempty"`
}

// ExportFile delivers one assembled artifact to the host.
type ExportFile struct {
	Format   string `json:"format"`
	Data     []byte `json:"data"`
	FileName string `json:"fileName"`
	DeckID   string `json:"deckId,omitempty"`
}

// SaveSlide persists one slide's serialized markup.
type SaveSlide struct {
	SlideNumber int    `json:"slideNumber"`
	Markup      string `json:"markup"`
}

// ReorderSlides asks the host to persist a new slide order.
type ReorderSlides struct {
	NewOrder []int `json:"newOrder"`
}

// BatchComplete is the terminal signal of one export batch so the host
// can release export-scoped resources.
type BatchComplete struct {
	Total      int `json:"total"`
	ErrorCount int `json:"errorCount"`
}

func (CaptureRequest) isOutbound() {}
func (ExportFile) isOutbound()     {}
func (SaveSlide) isOutbound()      {}
func (ReorderSlides) isOutbound()  {}
func (BatchComplete) isOutbound()  {}

// Inbound is the closed set of messages the host sends to slidecore.
type Inbound interface{ isInbound() }

// CaptureResult carries a successful capture, correlated by request ID.
type CaptureResult struct {
	RequestID string `json:"requestId"`
	DataURI   string `json:"dataUri"`
}

// CaptureError carries an explicit renderer failure for one capture.
type CaptureError struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
}

// SaveResult acknowledges a SaveSlide.
type SaveResult struct {
	Success bool `json:"success"`
}

// ExportFolderReady confirms the destination handshake for a multi-file
// export.
type ExportFolderReady struct{}

// ExportCancelled aborts the destination handshake.
type ExportCancelled struct{}

// SlideUpdated is the external change notice for one slide.
type SlideUpdated struct {
	SlideNumber int    `json:"slideNumber"`
	Markup      string `json:"markup"`
}

// BuildStarted, BuildProgress and BuildComplete form a separate
// long-running feedback feed, consumed passively to gate UI. slidecore
// never orchestrates the build itself.
type BuildStarted struct{}

type BuildProgress struct {
	Message string `json:"message,omitempty"`
	Percent int    `json:"percent,omitempty"`
}

type BuildComplete struct {
	Success bool `json:"success"`
}

func (CaptureResult) isInbound()     {}
func (CaptureError) isInbound()      {}
func (SaveResult) isInbound()        {}
func (ExportFolderReady) isInbound() {}
func (ExportCancelled) isInbound()   {}
func (SlideUpdated) isInbound()      {}
func (BuildStarted) isInbound()      {}
func (BuildProgress) isInbound()     {}
func (BuildComplete) isInbound()     {}

// Conn sends outbound messages to the host. Implementations must be safe
// for use from the dispatcher loop and the capture pipeline.
type Conn interface {
	Send(msg Outbound) error
}
