// Package xhtml reads and writes documents as XHTML. Every document line is
// one block element: h1..h6, p (class "title" or "subtitle" for those
// paragraph styles) or li inside ul for bullets. Inline styles map onto
// strong, em, u and span elements with a font-size declaration.
package xhtml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"spanedit/internal/adapter"
	"spanedit/internal/editor"
	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

const Name = "xhtml"

const xhtmlNS = "http://www.w3.org/1999/xhtml"

var errNoRoot = errors.New("document has no root element")

// entities covers the named references XHTML exports commonly carry.
var entities = map[string]string{
	"nbsp":   "\u00a0",
	"ensp":   "\u2002",
	"emsp":   "\u2003",
	"thinsp": "\u2009",
	"ndash":  "\u2013",
	"mdash":  "\u2014",
	"lsquo":  "\u2018",
	"rsquo":  "\u2019",
	"ldquo":  "\u201c",
	"rdquo":  "\u201d",
	"laquo":  "\u00ab",
	"raquo":  "\u00bb",
	"hellip": "\u2026",
	"bull":   "\u2022",
	"copy":   "\u00a9",
	"reg":    "\u00ae",
	"trade":  "\u2122",
	"deg":    "\u00b0",
	"times":  "\u00d7",
	"shy":    "\u00ad",
}

type Adapter struct {
	opts []editor.Option
}

func New(opts ...editor.Option) *Adapter {
	return &Adapter{opts: opts}
}

func (a *Adapter) Name() string {
	return Name
}

func (a *Adapter) Encode(raw []byte) (*editor.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        entities,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(raw); err != nil {
		line := 0
		var syntax *xml.SyntaxError
		if errors.As(err, &syntax) {
			line = syntax.Line
		}
		return adapter.Fail(Name, line, err, a.opts...)
	}

	root := doc.FindElement("//body")
	if root == nil {
		root = doc.Root()
	}
	if root == nil {
		return adapter.Fail(Name, 0, errNoRoot, a.opts...)
	}

	var w walker
	w.blocks(root, style.Set{})
	w.closeAnonymous()
	return editor.FromParts(string(w.text), w.out, a.opts...), nil
}

func (a *Adapter) Decode(d *editor.Document) ([]byte, error) {
	e := editor.Export(d)
	text := []rune(e.Text)
	table := make([]spans.Span, 0, len(e.Spans))
	for _, s := range e.Spans {
		set, err := style.ParseKeys(s.Styles)
		if err != nil {
			return nil, err
		}
		table = append(table, spans.Span{From: s.From, To: s.To, Styles: set})
	}

	doc := etree.NewDocument()
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", xhtmlNS)
	head := html.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("http-equiv", "Content-Type")
	meta.CreateAttr("content", "text/html; charset=utf-8")
	title, _, _ := strings.Cut(e.Text, "\n")
	head.CreateElement("title").SetText(title)
	body := html.CreateElement("body")

	var list *etree.Element
	lineStart := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\n' {
			continue
		}
		var para style.Set
		if i > lineStart {
			para, _ = spans.StylesAt(table, lineStart)
		}

		var block *etree.Element
		switch {
		case para.HasKind(style.KindHeader):
			p, _ := para.Paragraph()
			block = body.CreateElement("h" + strconv.Itoa(p.Value))
		case para.Has(style.Title):
			block = body.CreateElement("p")
			block.CreateAttr("class", "title")
		case para.Has(style.Subtitle):
			block = body.CreateElement("p")
			block.CreateAttr("class", "subtitle")
		case para.Has(style.Bullet):
			if list == nil {
				list = body.CreateElement("ul")
			}
			block = list.CreateElement("li")
		default:
			block = body.CreateElement("p")
		}
		if !para.Has(style.Bullet) || para.HasKind(style.KindHeader) || para.Has(style.Title) || para.Has(style.Subtitle) {
			list = nil
		}

		for pos := lineStart; pos < i; {
			set, _ := spans.StylesAt(table, pos)
			end := pos + 1
			for end < i {
				next, _ := spans.StylesAt(table, end)
				if !inlineOnly(next).Equal(inlineOnly(set)) {
					break
				}
				end++
			}
			writeRun(block, string(text[pos:end]), set)
			pos = end
		}
		lineStart = i + 1
	}

	return doc.WriteToBytes()
}

func inlineOnly(s style.Set) style.Set {
	return s.WithoutFunc(func(st style.Style) bool { return st.ParagraphScoped() })
}

func writeRun(block *etree.Element, run string, set style.Set) {
	parent := block
	if pt, ok := set.FontSizeValue(); ok {
		parent = parent.CreateElement("span")
		parent.CreateAttr("style", fmt.Sprintf("font-size:%dpt", pt))
	}
	if set.Has(style.Underline) {
		parent = parent.CreateElement("u")
	}
	if set.Has(style.Bold) {
		parent = parent.CreateElement("strong")
	}
	if set.Has(style.Italic) {
		parent = parent.CreateElement("em")
	}
	parent.CreateText(run)
}

// walker flattens the element tree into lines of text and spans.
type walker struct {
	text      []rune
	out       []spans.Span
	lines     int
	lineStart int
	para      style.Set
	anonymous bool
}

func (w *walker) blocks(el *etree.Element, para style.Set) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if strings.TrimSpace(t.Data) == "" {
				continue
			}
			w.openAnonymous()
			w.write(t.Data, style.Set{})
		case *etree.Element:
			tag := strings.ToLower(t.Tag)
			switch tag {
			case "head", "script", "style", "title":
			case "body", "div", "section", "article", "blockquote", "header", "footer", "main":
				w.closeAnonymous()
				w.blocks(t, para)
			case "ul", "ol":
				w.closeAnonymous()
				w.blocks(t, style.NewSet(style.Bullet))
			case "li":
				w.closeAnonymous()
				w.line(t, para)
			case "h1", "h2", "h3", "h4", "h5", "h6":
				w.closeAnonymous()
				w.line(t, style.NewSet(style.Header(int(tag[1]-'0'))))
			case "p":
				w.closeAnonymous()
				w.line(t, classStyle(t))
			default:
				w.openAnonymous()
				w.inline(t, style.Set{})
			}
		}
	}
}

func classStyle(el *etree.Element) style.Set {
	for _, class := range strings.Fields(el.SelectAttrValue("class", "")) {
		switch strings.ToLower(class) {
		case "title":
			return style.NewSet(style.Title)
		case "subtitle":
			return style.NewSet(style.Subtitle)
		}
	}
	return style.Set{}
}

func (w *walker) line(el *etree.Element, para style.Set) {
	w.startLine(para)
	w.inline(el, style.Set{})
	w.endLine()
}

func (w *walker) openAnonymous() {
	if w.anonymous {
		return
	}
	w.anonymous = true
	w.startLine(style.Set{})
}

func (w *walker) closeAnonymous() {
	if !w.anonymous {
		return
	}
	w.anonymous = false
	w.endLine()
}

func (w *walker) startLine(para style.Set) {
	if w.lines > 0 {
		w.text = append(w.text, '\n')
	}
	w.lines++
	w.lineStart = len(w.text)
	w.para = para
}

func (w *walker) endLine() {
	for len(w.text) > w.lineStart && w.text[len(w.text)-1] == ' ' {
		w.text = w.text[:len(w.text)-1]
	}
	last := len(w.text) - 1
	kept := w.out[:0]
	for _, s := range w.out {
		s.To = min(s.To, last)
		if s.From <= s.To {
			kept = append(kept, s)
		}
	}
	w.out = kept
	if !w.para.Empty() && last >= w.lineStart {
		w.out = append(w.out, spans.Span{From: w.lineStart, To: last, Styles: w.para})
	}
}

func (w *walker) inline(el *etree.Element, set style.Set) {
	set = set.Union(elementStyle(el))
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			w.write(t.Data, set)
		case *etree.Element:
			if strings.ToLower(t.Tag) == "br" {
				para := w.para
				w.endLine()
				w.startLine(para)
				continue
			}
			w.inline(t, set)
		}
	}
}

func (w *walker) write(s string, set style.Set) {
	s = norm.NFC.String(strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, s))
	if len(w.text) == w.lineStart {
		s = strings.TrimLeft(s, " ")
	}
	if s == "" {
		return
	}
	start := len(w.text)
	w.text = append(w.text, []rune(s)...)
	if !set.Empty() {
		w.out = append(w.out, spans.Span{From: start, To: len(w.text) - 1, Styles: set})
	}
}

func elementStyle(el *etree.Element) style.Set {
	var set style.Set
	switch strings.ToLower(el.Tag) {
	case "b", "strong":
		set = set.With(style.Bold)
	case "i", "em":
		set = set.With(style.Italic)
	case "u", "ins":
		set = set.With(style.Underline)
	}
	if decl := el.SelectAttrValue("style", ""); decl != "" {
		set = set.Union(declarationStyle(decl))
	}
	return set
}

// declarationStyle reads the inline CSS declarations the editor understands.
func declarationStyle(decl string) style.Set {
	var set style.Set
	p := css.NewParser(parse.NewInput(strings.NewReader(decl)), true)
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			return set
		}
		if gt != css.DeclarationGrammar {
			continue
		}
		value := tokenValue(p.Values())
		switch strings.ToLower(string(data)) {
		case "font-weight":
			if value == "bold" || value == "bolder" {
				set = set.With(style.Bold)
			} else if n, err := strconv.Atoi(value); err == nil && n >= 600 {
				set = set.With(style.Bold)
			}
		case "font-style":
			if value == "italic" || value == "oblique" {
				set = set.With(style.Italic)
			}
		case "text-decoration", "text-decoration-line":
			if strings.Contains(value, "underline") {
				set = set.With(style.Underline)
			}
		case "font-size":
			if pt, ok := fontSizePoints(value); ok {
				set = set.With(style.FontSize(pt))
			}
		}
	}
}

func tokenValue(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			b.WriteByte(' ')
			continue
		}
		b.Write(t.Data)
	}
	return strings.ToLower(strings.TrimSpace(b.String()))
}

func fontSizePoints(value string) (int, bool) {
	numEnd := 0
	for i, r := range value {
		if (r >= '0' && r <= '9') || r == '.' {
			numEnd = i + 1
			continue
		}
		break
	}
	n, err := strconv.ParseFloat(value[:numEnd], 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch value[numEnd:] {
	case "", "pt":
	case "px":
		n = n * 3 / 4
	case "em", "rem":
		n *= editor.DefaultFontSize
	default:
		return 0, false
	}
	return int(math.Round(n)), true
}
