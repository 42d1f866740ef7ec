package textstat

import (
	"testing"

	"spanedit/internal/editor"
	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

func TestCount(t *testing.T) {
	doc := editor.FromParts("Heading\nFirst one. Second one!\n\nnon\u00a0breaking", []spans.Span{
		{From: 0, To: 6, Styles: style.NewSet(style.Header(1))},
		{From: 8, To: 12, Styles: style.NewSet(style.Bold, style.Italic)},
		{From: 14, To: 16, Styles: style.NewSet(style.Bold)},
	})
	st := NewCounter(nil).Count(doc)

	if st.Runes != doc.Len() {
		t.Errorf("unexpected rune count: %d", st.Runes)
	}
	if st.Lines != 4 {
		t.Errorf("unexpected line count: %d", st.Lines)
	}
	// "non\u00a0breaking" is one word
	if st.Words != 6 {
		t.Errorf("unexpected word count: %d", st.Words)
	}
	if st.Sentences != 4 {
		t.Errorf("unexpected sentence count: %d", st.Sentences)
	}
	if st.Styles["bold"] != 8 || st.Styles["italic"] != 5 || st.Styles["h1"] != 7 {
		t.Errorf("unexpected style coverage: %v", st.Styles)
	}
	keys := st.StyleKeys()
	if len(keys) != 3 || keys[0] != "bold" || keys[1] != "h1" || keys[2] != "italic" {
		t.Errorf("unexpected key order: %v", keys)
	}
}

func TestCountEmpty(t *testing.T) {
	st := NewCounter(nil).Count(editor.New())
	if st.Lines != 0 || st.Words != 0 || st.Sentences != 0 || len(st.Styles) != 0 {
		t.Errorf("empty document must have empty stats: %+v", st)
	}
}

func TestCountWithoutModel(t *testing.T) {
	c := &Counter{}
	if n := c.sentences("One. Two."); n != 1 {
		t.Errorf("without a model a line is one sentence, got %d", n)
	}
	if n := c.sentences("  "); n != 0 {
		t.Errorf("blank line has no sentences, got %d", n)
	}
}
