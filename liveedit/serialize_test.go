package liveedit

import (
	"strings"
	"testing"
)

func TestSerialize_StripsEditMarkers(t *testing.T) {
	s := NewSerializer()
	in := `<section data-el-id="el-1"><h1 contenteditable="true" spellcheck="false" data-editing="1">Title</h1></section>`
	out, err := s.Serialize(in)
	if err != nil {
		t.Fatal(err)
	}
	for _, marker := range []string{"contenteditable", "spellcheck", "data-editing"} {
		if strings.Contains(out, marker) {
			t.Errorf("marker %q leaked into persisted content:\n%s", marker, out)
		}
	}
	if !strings.Contains(out, "Title") {
		t.Errorf("content lost:\n%s", out)
	}
	if !strings.Contains(out, `data-el-id="el-1"`) {
		t.Errorf("element id lost:\n%s", out)
	}
}

func TestSerialize_StandaloneDocument(t *testing.T) {
	s := NewSerializer()
	out, err := s.Serialize(`<p>hello</p>`)
	if err != nil {
		t.Fatal(err)
	}
	for _, part := range []string{"<!DOCTYPE html>", "<html>", "<head>", "<body>", "</html>"} {
		if !strings.Contains(out, part) {
			t.Errorf("missing %q in persisted document:\n%s", part, out)
		}
	}
}

func TestSerialize_ReversesStyleScoping(t *testing.T) {
	s := NewSerializer()
	in := `<div data-slide-scope="s42"><style>[data-slide-scope="s42"] h1 { color: red; }</style><h1>x</h1></div>`
	out, err := s.Serialize(in)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "data-slide-scope") {
		t.Errorf("scope attribute leaked:\n%s", out)
	}
	if !strings.Contains(out, "h1 { color: red; }") {
		t.Errorf("style not unscoped:\n%s", out)
	}
}

func TestSerialize_DropsScriptContent(t *testing.T) {
	s := NewSerializer()
	in := `<p onclick="steal()">hi</p><script>alert(1)</script>`
	out, err := s.Serialize(in)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "onclick") || strings.Contains(out, "alert(1)") {
		t.Errorf("active content survived:\n%s", out)
	}
}

func TestSerialize_FullDocumentInput(t *testing.T) {
	s := NewSerializer()
	in := `<!DOCTYPE html><html><head><style>p { margin: 0; }</style></head><body><p contenteditable="true">x</p></body></html>`
	out, err := s.Serialize(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "p { margin: 0; }") {
		t.Errorf("head style lost:\n%s", out)
	}
	if strings.Contains(out, "contenteditable") {
		t.Errorf("marker leaked:\n%s", out)
	}
}
