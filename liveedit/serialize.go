// Package liveedit implements the live inline-text editor: editable
// element lifecycle, debounced persistence, and serialization of edited
// markup back to a portable standalone document.
package liveedit

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/vishalpatel2890/slidecore/surface"
)

// Attributes the editor plants on the surface while an element is
// editable. They must never reach persisted content.
var editMarkerAttrs = map[string]bool{
	"contenteditable":     true,
	"spellcheck":          true,
	"data-editing":        true,
	"data-editing-active": true,
}

// scopeAttr is the render-surface style scoping attribute. Styles on the
// surface are rewritten as `[data-slide-scope="x"] sel` to isolate
// slides from each other; persistence reverses that.
const scopeAttr = "data-slide-scope"

// Serializer converts edited surface markup to persisted form:
// transient edit markers stripped, style scoping reversed, the fragment
// re-wrapped into a complete standalone document. The output must be
// indistinguishable from content that was never edited.
type Serializer struct {
	policy *bluemonday.Policy
}

// NewSerializer builds a serializer with the slide sanitation policy.
func NewSerializer() *Serializer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style", "class", "id", surface.ElementIDAttr).Globally()
	p.AllowElements("section", "header", "footer", "figure", "figcaption")
	p.AllowDataURIImages()
	return &Serializer{policy: p}
}

// Serialize produces the persisted document for one slide from the
// surface's current markup (full document or bare fragment).
func (s *Serializer) Serialize(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("liveedit: parse surface markup: %w", err)
	}

	var styles []string
	scrub(doc, &styles)

	body := findElement(doc, "body")
	if body == nil {
		return "", fmt.Errorf("liveedit: surface markup has no body")
	}

	var frag strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&frag, c); err != nil {
			return "", fmt.Errorf("liveedit: render fragment: %w", err)
		}
	}
	clean := s.policy.Sanitize(frag.String())

	var out strings.Builder
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	for _, css := range styles {
		out.WriteString("<style>")
		out.WriteString(css)
		out.WriteString("</style>\n")
	}
	out.WriteString("</head>\n<body>\n")
	out.WriteString(clean)
	out.WriteString("\n</body>\n</html>\n")
	return out.String(), nil
}

// scrub removes edit markers and scope attributes everywhere, collects
// style sheets (with scoping reversed), and detaches style elements so
// they are re-emitted in the head.
func scrub(n *html.Node, styles *[]string) {
	var scope string
	if n.Type == html.ElementNode {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			switch {
			case editMarkerAttrs[a.Key]:
			case a.Key == scopeAttr:
				scope = a.Val
			default:
				kept = append(kept, a)
			}
		}
		n.Attr = kept
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.Data == "style" {
			*styles = append(*styles, unscopeCSS(textContent(c), scope))
			n.RemoveChild(c)
		} else {
			scrub(c, styles)
		}
		c = next
	}
}

// unscopeCSS strips the `[data-slide-scope="x"] ` selector prefix the
// surface injects, restoring portable selectors.
func unscopeCSS(css, scope string) string {
	if scope != "" {
		css = strings.ReplaceAll(css, fmt.Sprintf(`[%s=%q] `, scopeAttr, scope), "")
		css = strings.ReplaceAll(css, fmt.Sprintf(`[%s=%q]`, scopeAttr, scope), "")
	}
	// Scope values may differ from the ancestor attribute after a
	// surface rebuild; strip any residual scoped prefix.
	for {
		start := strings.Index(css, "["+scopeAttr+"=")
		if start < 0 {
			return css
		}
		end := strings.Index(css[start:], "]")
		if end < 0 {
			return css
		}
		css = css[:start] + strings.TrimPrefix(css[start+end+1:], " ")
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
