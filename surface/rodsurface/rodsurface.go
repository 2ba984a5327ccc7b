// Package rodsurface implements surface.Surface against a live Chromium
// page driven over CDP via rod. The host embeds one page per slide
// region; slidecore only ever touches it through this handle.
package rodsurface

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Surface wraps a rod page as a slide rendering surface.
type Surface struct {
	page *rod.Page
}

// New wraps an existing page.
func New(page *rod.Page) *Surface {
	return &Surface{page: page}
}

// Open connects to a browser at the given remote debugging URL and opens
// a blank page to serve as the surface. Navigation is bounded at 30s,
// matching the host channel's own renderer budget.
func Open(ctx context.Context, remoteURL string) (*Surface, error) {
	browser := rod.New().ControlURL(remoteURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("rodsurface: connect %s: %w", remoteURL, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("rodsurface: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("rodsurface: wait load: %w", err)
	}

	return &Surface{page: page}, nil
}

// Attached reports whether the page body holds any slide content.
func (s *Surface) Attached(ctx context.Context) (bool, error) {
	res, err := s.page.Context(ctx).Eval(`() => !!document.body && document.body.children.length > 0`)
	if err != nil {
		return false, fmt.Errorf("rodsurface: attachment probe: %w", err)
	}
	return res.Value.Bool(), nil
}

// SetVisible applies visibility to all matched elements in one pass.
// visibility (not display) is used so hidden groups keep their layout
// box and reveals never reflow the slide.
func (s *Surface) SetVisible(ctx context.Context, selectors []string, visible bool) error {
	_, err := s.page.Context(ctx).Eval(`(sels, visible) => {
		for (const sel of sels) {
			for (const el of document.querySelectorAll(sel)) {
				el.style.visibility = visible ? '' : 'hidden';
			}
		}
	}`, selectors, visible)
	if err != nil {
		return fmt.Errorf("rodsurface: set visibility: %w", err)
	}
	return nil
}

// Markup serializes the surface content as outer HTML.
func (s *Surface) Markup(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("rodsurface: read markup: %w", err)
	}
	return res.Value.Str(), nil
}

// SetMarkup replaces the document content.
func (s *Surface) SetMarkup(ctx context.Context, markup string) error {
	_, err := s.page.Context(ctx).Eval(`html => {
		document.open();
		document.write(html);
		document.close();
	}`, markup)
	if err != nil {
		return fmt.Errorf("rodsurface: set markup: %w", err)
	}
	return nil
}

// WaitStructureChange resolves on the first structural mutation under the
// document element. The observer disconnects itself, so the wait is
// strictly one-shot.
func (s *Surface) WaitStructureChange(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(`() => new Promise(resolve => {
		const obs = new MutationObserver(() => {
			obs.disconnect();
			resolve(true);
		});
		obs.observe(document.documentElement, { childList: true, subtree: true });
	})`)
	if err != nil {
		return fmt.Errorf("rodsurface: structure wait: %w", err)
	}
	return nil
}

// Close closes the underlying page.
func (s *Surface) Close() error {
	if s.page != nil {
		return s.page.Close()
	}
	return nil
}
