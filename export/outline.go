package export

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/vishalpatel2890/slidecore/deck"
	"github.com/vishalpatel2890/slidecore/hostchan"
)

// ExportOutline converts the deck to a markdown outline, one section
// per slide, and delivers it as a single text artifact. No renderer
// round trip is involved, so the outline works even while the external
// renderer is down.
func (p *Pipeline) ExportOutline(slides []deck.Slide, fileName string) (BatchResult, error) {
	res := BatchResult{JobID: p.jobID(), Total: len(slides)}

	var sb strings.Builder
	for _, slide := range slides {
		md, err := htmltomarkdown.ConvertString(slide.Markup)
		if err != nil {
			res.ErrorCount++
			p.cfg.Logger.Warn("export: outline conversion failed, skipping slide",
				"slide", slide.Number, "error", err)
			continue
		}
		fmt.Fprintf(&sb, "## Slide %d\n\n%s\n\n", slide.Number, strings.TrimSpace(md))
		res.Pages++
	}

	if res.Pages == 0 {
		return res, fmt.Errorf("export: no slides converted")
	}

	if err := p.conn.Send(hostchan.ExportFile{
		Format:   "md",
		Data:     []byte(sb.String()),
		FileName: fileName,
		DeckID:   p.cfg.DeckID,
	}); err != nil {
		return res, fmt.Errorf("export: deliver outline: %w", err)
	}
	return res, nil
}
