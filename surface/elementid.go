package surface

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ElementIDAttr is the attribute carrying the stable element identifier.
// Assignment is deterministic (depth-first document order), so the same
// markup always yields the same IDs and elements stay addressable across
// re-renders.
const ElementIDAttr = "data-el-id"

// AssignElementIDs parses the markup, assigns a data-el-id to every
// element that lacks one, and returns the re-serialized markup. Full
// documents and bare fragments are both accepted; fragments stay
// fragments.
func AssignElementIDs(markup string) (string, error) {
	if isDocument(markup) {
		doc, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			return "", fmt.Errorf("surface: parse markup: %w", err)
		}
		n := 0
		assignIDs(doc, &n)
		var sb strings.Builder
		if err := html.Render(&sb, doc); err != nil {
			return "", fmt.Errorf("surface: render markup: %w", err)
		}
		return sb.String(), nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return "", fmt.Errorf("surface: parse fragment: %w", err)
	}
	n := 0
	var sb strings.Builder
	for _, node := range nodes {
		assignIDs(node, &n)
		if err := html.Render(&sb, node); err != nil {
			return "", fmt.Errorf("surface: render fragment: %w", err)
		}
	}
	return sb.String(), nil
}

// ElementIDs returns the identifiers present in the markup in document
// order.
func ElementIDs(markup string) ([]string, error) {
	var nodes []*html.Node
	if isDocument(markup) {
		doc, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			return nil, fmt.Errorf("surface: parse markup: %w", err)
		}
		nodes = []*html.Node{doc}
	} else {
		body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		frag, err := html.ParseFragment(strings.NewReader(markup), body)
		if err != nil {
			return nil, fmt.Errorf("surface: parse fragment: %w", err)
		}
		nodes = frag
	}

	var ids []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == ElementIDAttr {
					ids = append(ids, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return ids, nil
}

// assignIDs walks depth-first and numbers elements that lack an ID.
// Structural tags (html/head/body) and non-rendered content are skipped:
// build groups only ever address visible slide elements.
func assignIDs(n *html.Node, counter *int) {
	if n.Type == html.ElementNode && !skipElement(n.Data) {
		if !hasAttr(n, ElementIDAttr) {
			*counter++
			n.Attr = append(n.Attr, html.Attribute{
				Key: ElementIDAttr,
				Val: fmt.Sprintf("el-%d", *counter),
			})
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		assignIDs(c, counter)
	}
}

func skipElement(tag string) bool {
	switch tag {
	case "html", "head", "body", "script", "style", "meta", "link", "title":
		return true
	}
	return false
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func isDocument(markup string) bool {
	head := strings.ToLower(markup)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<!doctype") || strings.Contains(head, "<html")
}
