package xhtml

import (
	"errors"
	"strings"
	"testing"

	"spanedit/internal/adapter"
	"spanedit/internal/editor"
	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

func dump(d *editor.Document) string {
	parts := make([]string, 0, len(d.Spans()))
	for _, s := range d.Spans() {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " ")
}

func TestEncodeBlocks(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
  <head><title>ignored</title></head>
  <body>
    <p class="title">Book</p>
    <h2>Part <em>one</em></h2>
    <p>some <strong>bold</strong> and <span style="font-size: 18pt">big</span></p>
    <ul>
      <li>first</li>
      <li><u>second</u></li>
    </ul>
  </body>
</html>`
	doc, err := New().Encode([]byte(src))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if doc.Text() != "Book\nPart one\nsome bold and big\nfirst\nsecond" {
		t.Fatalf("unexpected text: %q", doc.Text())
	}
	want := "[0,3]{title} [5,9]{h2} [10,12]{italic,h2} [19,22]{bold} [28,30]{font-size:18} [32,36]{bullet} [38,43]{underline,bullet}"
	if got := dump(doc); got != want {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestEncodeInlineDeclarations(t *testing.T) {
	src := `<body><p><span style="font-weight: 700; font-style: italic; text-decoration: underline">x</span><span style="font-size:24px">y</span></p></body>`
	doc, err := New().Encode([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if got := dump(doc); got != "[0,0]{bold,italic,underline} [1,1]{font-size:18}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestEncodeCharsetAndEntities(t *testing.T) {
	src := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<body><p>caf\xe9&nbsp;&mdash;</p></body>")
	doc, err := New().Encode(src)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if doc.Text() != "caf\u00e9\u00a0\u2014" {
		t.Fatalf("unexpected text: %q", doc.Text())
	}
}

func TestEncodeNormalizesToNFC(t *testing.T) {
	doc, err := New().Encode([]byte("<body><p>cafe\u0301</p></body>"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text() != "caf\u00e9" || doc.Len() != 4 {
		t.Fatalf("text not composed: %q", doc.Text())
	}
}

func TestEncodeLineBreak(t *testing.T) {
	doc, err := New().Encode([]byte("<body><h1>one<br/>two</h1></body>"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text() != "one\ntwo" {
		t.Fatalf("unexpected text: %q", doc.Text())
	}
	if got := dump(doc); got != "[0,2]{h1} [4,6]{h1}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestEncodeReportsSyntaxLine(t *testing.T) {
	_, err := New().Encode([]byte("<body>\n<p>ok</p>\n<1p>bad</1p></body>"))
	if !errors.Is(err, adapter.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	var perr *adapter.ParseError
	if !errors.As(err, &perr) || perr.Line != 3 {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	doc := editor.FromParts("Heading\nplain bold big\nitem one\nitem two\nsub", []spans.Span{
		{From: 0, To: 6, Styles: style.NewSet(style.Header(1))},
		{From: 14, To: 17, Styles: style.NewSet(style.Bold, style.Italic)},
		{From: 19, To: 21, Styles: style.NewSet(style.FontSize(20), style.Underline)},
		{From: 23, To: 30, Styles: style.NewSet(style.Bullet)},
		{From: 32, To: 39, Styles: style.NewSet(style.Bullet)},
		{From: 41, To: 43, Styles: style.NewSet(style.Subtitle)},
	})
	a := New()
	raw, err := a.Decode(doc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(raw), "<ul>") != 1 {
		t.Fatalf("bullets must share one list: %s", raw)
	}
	back, err := a.Encode(raw)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if back.Text() != doc.Text() {
		t.Fatalf("text mismatch: %q", back.Text())
	}
	if dump(back) != dump(doc) {
		t.Fatalf("span mismatch: %s vs %s", dump(back), dump(doc))
	}
}
