package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vishalpatel2890/slidecore/audit"
	"github.com/vishalpatel2890/slidecore/deck"
	"github.com/vishalpatel2890/slidecore/hostchan"
	"github.com/vishalpatel2890/slidecore/idgen"
)

// ErrDestinationCancelled aborts a multi-file batch before any capture
// is issued.
var ErrDestinationCancelled = errors.New("export: destination selection cancelled")

// Config tunes the pipeline.
type Config struct {
	// CaptureTimeout bounds each capture request. Default: 30s.
	CaptureTimeout time.Duration
	// Presets resolves named quality profiles. Default: DefaultPresets.
	Presets Presets
	// DeckID tags exported files for the host, when known.
	DeckID string
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 30 * time.Second
	}
	if c.Presets == nil {
		c.Presets = DefaultPresets()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// BatchResult is the terminal accounting of one export job.
type BatchResult struct {
	JobID      string
	Total      int
	ErrorCount int
	Pages      int // successful captures assembled into the artifact
}

// Clean reports whether the batch completed without per-item failures.
func (r BatchResult) Clean() bool { return r.ErrorCount == 0 }

// Pipeline issues capture requests sequentially and assembles artifacts.
// One Pipeline serves the whole core; jobs run one at a time on the
// caller's goroutine.
type Pipeline struct {
	cfg   Config
	conn  hostchan.Conn
	corr  *hostchan.Correlator
	newID idgen.Generator
	jobID idgen.Generator
	log   *audit.Log

	// destCh carries the destination-selection decision for multi-file
	// exports: true = folder ready, false = cancelled.
	destCh chan bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIDGenerator overrides the capture request ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(p *Pipeline) { p.newID = gen }
}

// WithAudit records export activity in the given audit log.
func WithAudit(log *audit.Log) Option {
	return func(p *Pipeline) { p.log = log }
}

// New creates a Pipeline sending over conn and correlating replies
// through corr.
func New(cfg Config, conn hostchan.Conn, corr *hostchan.Correlator, opts ...Option) *Pipeline {
	cfg.defaults()
	p := &Pipeline{
		cfg:    cfg,
		conn:   conn,
		corr:   corr,
		newID:  idgen.Prefixed("cap_", idgen.Default),
		jobID:  idgen.Prefixed("exp_", idgen.Default),
		destCh: make(chan bool, 1),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// HandleHostMessage consumes export-relevant inbound messages: capture
// replies go to the correlator, destination decisions to the pending
// handshake. Returns true when the message was claimed.
func (p *Pipeline) HandleHostMessage(msg hostchan.Inbound) bool {
	switch msg.(type) {
	case hostchan.CaptureResult, hostchan.CaptureError:
		return p.corr.Dispatch(msg)
	case hostchan.ExportFolderReady:
		p.offerDecision(true)
		return true
	case hostchan.ExportCancelled:
		p.offerDecision(false)
		return true
	}
	return false
}

func (p *Pipeline) offerDecision(ready bool) {
	select {
	case p.destCh <- ready:
	default:
		p.cfg.Logger.Warn("export: destination decision with no handshake pending")
	}
}

// CaptureSlide delegates one slide render to the out-of-process
// renderer: allocate a request ID, register the one-shot listener, send,
// and await the correlated reply. The listener is deregistered on every
// path: resolution, renderer error, timeout, or cancellation.
func (p *Pipeline) CaptureSlide(ctx context.Context, markup string, opts *hostchan.CaptureOptions) (string, error) {
	requestID := p.newID()
	replyCh := p.corr.Register(requestID)

	err := p.conn.Send(hostchan.CaptureRequest{
		RequestID: requestID,
		Markup:    markup,
		Options:   opts,
	})
	if err != nil {
		p.corr.Cancel(requestID)
		return "", fmt.Errorf("export: send capture request: %w", err)
	}

	timeout := time.NewTimer(p.cfg.CaptureTimeout)
	defer timeout.Stop()

	select {
	case reply := <-replyCh:
		if reply.Err != nil {
			return "", reply.Err
		}
		return reply.DataURI, nil
	case <-timeout.C:
		p.corr.Cancel(requestID)
		return "", hostchan.ErrCaptureTimeout
	case <-ctx.Done():
		p.corr.Cancel(requestID)
		return "", ctx.Err()
	}
}

// captured is one successful capture in batch order.
type captured struct {
	slideNumber int
	mediaType   string
	data        []byte
}

// captureBatch runs the strictly sequential capture loop: each slide
// completes (success or failure) before the next begins. Failures are
// logged, skipped, and counted; they never abort the batch.
func (p *Pipeline) captureBatch(ctx context.Context, slides []deck.Slide, opts *hostchan.CaptureOptions) ([]captured, int, error) {
	var (
		results  []captured
		failures int
	)
	for _, slide := range slides {
		dataURI, err := p.CaptureSlide(ctx, slide.Markup, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return results, failures, err
			}
			failures++
			p.cfg.Logger.Warn("export: capture failed, skipping slide",
				"slide", slide.Number, "error", err)
			continue
		}
		mediaType, data, err := decodeDataURI(dataURI)
		if err != nil {
			failures++
			p.cfg.Logger.Warn("export: unusable capture result, skipping slide",
				"slide", slide.Number, "error", err)
			continue
		}
		results = append(results, captured{slideNumber: slide.Number, mediaType: mediaType, data: data})
	}
	return results, failures, nil
}

// ExportPDF captures every slide and assembles the successes into one
// multi-page PDF artifact, in order, one page per successful capture.
func (p *Pipeline) ExportPDF(ctx context.Context, slides []deck.Slide, preset, fileName string) (BatchResult, error) {
	res := BatchResult{JobID: p.jobID(), Total: len(slides)}
	p.auditStart(ctx, res.JobID, "pdf")

	opts := p.cfg.Presets.Resolve(preset)
	captures, failures, err := p.captureBatch(ctx, slides, opts)
	res.ErrorCount = failures
	if err != nil {
		p.auditFinish(ctx, res, false)
		return res, err
	}

	if len(captures) > 0 {
		pdf, err := assemblePDF(captures)
		if err != nil {
			p.auditFinish(ctx, res, false)
			return res, fmt.Errorf("export: assemble pdf: %w", err)
		}
		res.Pages = len(captures)
		if err := p.conn.Send(hostchan.ExportFile{
			Format:   "pdf",
			Data:     pdf,
			FileName: fileName,
			DeckID:   p.cfg.DeckID,
		}); err != nil {
			p.auditFinish(ctx, res, false)
			return res, fmt.Errorf("export: deliver pdf: %w", err)
		}
	}

	p.complete(ctx, &res)
	return res, nil
}

// ExportImages captures every slide and delivers one file per success.
// The destination handshake must confirm before any capture is issued;
// cancellation aborts the whole batch with zero side effects.
func (p *Pipeline) ExportImages(ctx context.Context, slides []deck.Slide, preset, baseName string) (BatchResult, error) {
	res := BatchResult{JobID: p.jobID(), Total: len(slides)}

	// A decision buffered before this batch began belongs to an earlier
	// (aborted) handshake and must not satisfy this one.
	select {
	case stale := <-p.destCh:
		p.cfg.Logger.Warn("export: discarding stale destination decision",
			"job", res.JobID, "decision", stale)
	default:
	}

	confirmed, err := p.awaitDestination(ctx)
	if err != nil {
		return res, err
	}
	if !confirmed {
		p.cfg.Logger.Info("export: destination cancelled, aborting batch", "job", res.JobID)
		return res, ErrDestinationCancelled
	}

	p.auditStart(ctx, res.JobID, "images")
	opts := p.cfg.Presets.Resolve(preset)
	captures, failures, err := p.captureBatch(ctx, slides, opts)
	res.ErrorCount = failures
	if err != nil {
		p.auditFinish(ctx, res, false)
		return res, err
	}

	for _, c := range captures {
		ext := extensionFor(c.mediaType)
		if err := p.conn.Send(hostchan.ExportFile{
			Format:   ext,
			Data:     c.data,
			FileName: fmt.Sprintf("%s-%02d.%s", baseName, c.slideNumber, ext),
			DeckID:   p.cfg.DeckID,
		}); err != nil {
			p.auditFinish(ctx, res, false)
			return res, fmt.Errorf("export: deliver slide %d: %w", c.slideNumber, err)
		}
	}
	res.Pages = len(captures)

	p.complete(ctx, &res)
	return res, nil
}

// awaitDestination blocks until the host reports the destination round
// trip finished: folder ready (true) or cancelled (false).
func (p *Pipeline) awaitDestination(ctx context.Context) (bool, error) {
	select {
	case decision := <-p.destCh:
		return decision, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// complete emits the terminal batch signal so the host can release
// export-scoped resources.
func (p *Pipeline) complete(ctx context.Context, res *BatchResult) {
	if err := p.conn.Send(hostchan.BatchComplete{
		Total:      res.Total,
		ErrorCount: res.ErrorCount,
	}); err != nil {
		p.cfg.Logger.Warn("export: batch-complete signal failed", "error", err)
	}
	p.cfg.Logger.Info("export: batch finished",
		"job", res.JobID, "total", res.Total, "errors", res.ErrorCount, "pages", res.Pages)
	p.auditFinish(ctx, *res, true)
}

func (p *Pipeline) auditStart(ctx context.Context, jobID, kind string) {
	p.log.Record(ctx, audit.Event{
		Type:     audit.EventExportStarted,
		EntityID: jobID,
		Detail:   kind,
		Success:  true,
	})
}

func (p *Pipeline) auditFinish(ctx context.Context, res BatchResult, ok bool) {
	p.log.Record(ctx, audit.Event{
		Type:     audit.EventExportFinished,
		EntityID: res.JobID,
		Detail:   fmt.Sprintf(`{"total":%d,"errors":%d,"pages":%d}`, res.Total, res.ErrorCount, res.Pages),
		Success:  ok && res.ErrorCount == 0,
	})
}
