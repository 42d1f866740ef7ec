package editor

import (
	"errors"
	"strings"
	"testing"

	"spanedit/pkg/spans"
	"spanedit/pkg/style"
)

func dump(d *Document) string {
	parts := make([]string, 0)
	for _, s := range d.Spans() {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " ")
}

func set(st ...style.Style) style.Set {
	return style.NewSet(st...)
}

func checkCanonical(t *testing.T, d *Document) {
	t.Helper()
	if !spans.IsCanonical(d.Spans(), d.Len()-1) {
		t.Fatalf("span table not canonical: %s", dump(d))
	}
}

func TestToggleOnRangeAndBack(t *testing.T) {
	d := FromParts("RichEditor", nil)
	d.Select(NewSelection(0, 5))
	d.Toggle(style.Italic)
	if got := dump(d); got != "[0,4]{italic}" {
		t.Fatalf("unexpected spans after toggle: %s", got)
	}
	d.Toggle(style.Italic)
	if got := len(d.Spans()); got != 0 {
		t.Fatalf("expected toggle to restore span count, got %s", dump(d))
	}
}

func TestPendingStyleAppliesToTypedText(t *testing.T) {
	d := FromParts("abcd", nil)
	d.Select(Caret(2))
	d.Toggle(style.Italic)
	if got, ok := d.Pending(); !ok || !got.Equal(set(style.Italic)) {
		t.Fatalf("unexpected pending set: %v %v", got, ok)
	}
	d.Edit("abtcd", Caret(3))
	if got := dump(d); got != "[2,2]{italic}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestTypingInsideHeaderKeepsSpan(t *testing.T) {
	d := FromParts("RichEditor", []spans.Span{{From: 0, To: 9, Styles: set(style.Header(1), style.Bold)}})
	d.Select(Caret(4))
	d.Edit("RichTEditor", Caret(5))
	if got := dump(d); got != "[0,10]{bold,h1}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestLineBreakAtStartDropsHeader(t *testing.T) {
	d := FromParts("Title", []spans.Span{{From: 0, To: 4, Styles: set(style.Header(1), style.Bold)}})
	d.Select(Caret(0))
	d.Edit("\nTitle", Caret(1))
	for _, s := range d.Spans() {
		if _, ok := s.Styles.Paragraph(); ok {
			t.Fatalf("paragraph style survived the break: %s", dump(d))
		}
	}
	if st, ok := spans.StylesAt(d.Spans(), 3); !ok || !st.Has(style.Bold) {
		t.Fatalf("bold lost: %s", dump(d))
	}
	checkCanonical(t, d)
}

func TestToggleMergesWithNeighbours(t *testing.T) {
	d := FromParts("abcdefghi", []spans.Span{
		{From: 0, To: 2, Styles: set(style.Bold)},
		{From: 3, To: 5, Styles: set(style.Bold, style.Italic)},
		{From: 6, To: 8, Styles: set(style.Bold)},
	})
	d.Select(NewSelection(3, 6))
	d.Toggle(style.Italic)
	if got := dump(d); got != "[0,8]{bold}" {
		t.Fatalf("expected one merged span, got %s", got)
	}
}

func TestDeletingEverythingClearsState(t *testing.T) {
	d := FromParts("abc", []spans.Span{{From: 0, To: 2, Styles: set(style.Bold)}})
	d.Toggle(style.Italic)
	d.Edit("", Caret(0))
	if len(d.Spans()) != 0 {
		t.Fatalf("spans survived: %s", dump(d))
	}
	if _, ok := d.Pending(); ok {
		t.Fatalf("pending set survived")
	}
	if !d.CurrentStyles().Empty() {
		t.Fatalf("unexpected current styles: %v", d.CurrentStyles())
	}
}

func TestTypingExtendsStyledRun(t *testing.T) {
	d := FromParts("ab", []spans.Span{{From: 0, To: 1, Styles: set(style.Bold)}})
	if err := d.InsertText("c"); err != nil {
		t.Fatal(err)
	}
	if got := dump(d); got != "[0,2]{bold}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestToggleOffBeforeTyping(t *testing.T) {
	d := FromParts("ab", []spans.Span{{From: 0, To: 1, Styles: set(style.Bold)}})
	d.Toggle(style.Bold)
	if err := d.InsertText("c"); err != nil {
		t.Fatal(err)
	}
	if got := dump(d); got != "[0,1]{bold}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestTypingInsideDifferentSpanSplitsIt(t *testing.T) {
	d := FromParts("abcd", []spans.Span{{From: 0, To: 3, Styles: set(style.Bold)}})
	d.Select(Caret(2))
	d.Toggle(style.Italic)
	if err := d.InsertText("x"); err != nil {
		t.Fatal(err)
	}
	if got := dump(d); got != "[0,1]{bold} [2,2]{bold,italic} [3,4]{bold}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestDeletionShrinksSpans(t *testing.T) {
	d := FromParts("abcdef", []spans.Span{{From: 0, To: 5, Styles: set(style.Bold)}})
	d.Select(NewSelection(1, 3))
	d.DeleteSelection()
	if d.Text() != "adef" {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	if got := dump(d); got != "[0,3]{bold}" {
		t.Fatalf("unexpected spans: %s", got)
	}

	d = FromParts("abcdef", []spans.Span{
		{From: 0, To: 2, Styles: set(style.Bold)},
		{From: 3, To: 5, Styles: set(style.Italic)},
	})
	d.Select(NewSelection(2, 4))
	d.DeleteSelection()
	if got := dump(d); got != "[0,1]{bold} [2,3]{italic}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestReplacementShiftsLaterSpans(t *testing.T) {
	d := FromParts("hello world", []spans.Span{{From: 6, To: 10, Styles: set(style.Bold)}})
	d.Select(NewSelection(0, 5))
	if err := d.InsertText("HI"); err != nil {
		t.Fatal(err)
	}
	if d.Text() != "HI world" {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	if got := dump(d); got != "[3,7]{bold}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestJoiningLinesKeepsUpperParagraphStyle(t *testing.T) {
	d := FromParts("Head\nbody", []spans.Span{{From: 0, To: 3, Styles: set(style.Header(1))}})
	d.Select(Caret(5))
	d.Backspace()
	if d.Text() != "Headbody" {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	if got := dump(d); got != "[0,7]{h1}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestDeletingFromLineStartKeepsLowerParagraphStyle(t *testing.T) {
	d := FromParts("Head\nbody", []spans.Span{{From: 5, To: 8, Styles: set(style.Header(2))}})
	d.Select(NewSelection(0, 5))
	d.DeleteSelection()
	if got := dump(d); got != "[0,3]{h2}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestEnterAfterHeaderTypesNormalText(t *testing.T) {
	d := FromParts("Head", []spans.Span{{From: 0, To: 3, Styles: set(style.Header(1))}})
	d.SplitLine()
	if err := d.InsertText("x"); err != nil {
		t.Fatal(err)
	}
	if d.Text() != "Head\nx" {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	if got := dump(d); got != "[0,3]{h1}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestEnterAfterBulletLeavesEmptyLineUnstyled(t *testing.T) {
	d := FromParts("item", []spans.Span{{From: 0, To: 3, Styles: set(style.Bullet)}})
	d.SplitLine()
	if got := dump(d); got != "[0,3]{bullet}" {
		t.Fatalf("unexpected spans: %s", got)
	}
	if d.HasStyle(style.Bullet) {
		t.Fatalf("empty line must not report a bullet")
	}
}

func TestEnterBetweenBulletLines(t *testing.T) {
	d := FromParts("a\nb", []spans.Span{
		{From: 0, To: 0, Styles: set(style.Bullet)},
		{From: 2, To: 2, Styles: set(style.Bullet)},
	})
	d.Select(Caret(1))
	d.SplitLine()
	if d.Text() != "a\n\nb" {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	if got := dump(d); got != "[0,0]{bullet} [3,3]{bullet}" {
		t.Fatalf("unexpected spans: %s", got)
	}
	if d.HasStyle(style.Bullet) {
		t.Fatalf("new empty line must not report a bullet")
	}
	checkCanonical(t, d)

	if err := d.InsertText("x"); err != nil {
		t.Fatal(err)
	}
	if got := dump(d); got != "[0,0]{bullet} [4,4]{bullet}" {
		t.Fatalf("text typed on the new line must stay unstyled: %s", got)
	}
}

func TestBulletPlaceholder(t *testing.T) {
	d := New()
	d.Toggle(style.Bullet)
	if d.Text() != string(Placeholder) {
		t.Fatalf("expected placeholder, got %q", d.Text())
	}
	if got := dump(d); got != "[0,0]{bullet}" {
		t.Fatalf("unexpected spans: %s", got)
	}
	if e := Export(d); e.Text != "" || len(e.Spans) != 0 {
		t.Fatalf("placeholder leaked into export: %+v", e)
	}

	if err := d.InsertText("x"); err != nil {
		t.Fatal(err)
	}
	e := Export(d)
	if e.Text != "x" || len(e.Spans) != 1 || e.Spans[0].From != 0 || e.Spans[0].To != 0 {
		t.Fatalf("unexpected export: %+v", e)
	}
}

func TestBulletToggleTwiceRemovesPlaceholder(t *testing.T) {
	d := FromParts("one\n", nil)
	d.Toggle(style.Bullet)
	d.Toggle(style.Bullet)
	if d.Text() != "one\n" {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	if len(d.Spans()) != 0 {
		t.Fatalf("unexpected spans: %s", dump(d))
	}
}

func TestBulletWithoutPlaceholder(t *testing.T) {
	d := New(WithPlaceholder(false))
	d.Toggle(style.Bullet)
	if d.Text() != "" {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	if !d.HasStyle(style.Bullet) {
		t.Fatalf("pending bullet not reported")
	}
}

func TestParagraphStyleOnCaretRewritesLine(t *testing.T) {
	d := FromParts("one\ntwo", nil)
	d.Select(Caret(5))
	d.Add(style.Header(2))
	if got := dump(d); got != "[4,6]{h2}" {
		t.Fatalf("unexpected spans: %s", got)
	}
	if !d.HasStyle(style.Header(2)) || d.HasStyle(style.Normal) {
		t.Fatalf("unexpected header state: %v", d.CurrentStyles())
	}
	d.Add(style.Normal)
	if len(d.Spans()) != 0 {
		t.Fatalf("normal must clear the header: %s", dump(d))
	}
	if !d.HasStyle(style.Normal) {
		t.Fatalf("normal not reported")
	}
}

func TestParagraphStylesAreExclusive(t *testing.T) {
	d := FromParts("one\ntwo", nil)
	d.SelectAll()
	d.Add(style.Title)
	if got := dump(d); got != "[0,2]{title} [4,6]{title}" {
		t.Fatalf("unexpected spans: %s", got)
	}
	d.SetStyle(style.Header(1))
	if got := dump(d); got != "[0,2]{h1} [4,6]{h1}" {
		t.Fatalf("unexpected spans: %s", got)
	}
	if d.HasStyle(style.Title) {
		t.Fatalf("title must be evicted")
	}
}

func TestSetStyleClearsRange(t *testing.T) {
	d := FromParts("Title\nbody", []spans.Span{{From: 0, To: 4, Styles: set(style.Bold, style.Header(1))}})
	d.Select(NewSelection(0, 5))
	d.SetStyle(style.Header(2))
	if got := dump(d); got != "[0,4]{h2}" {
		t.Fatalf("unexpected spans: %s", got)
	}
	d.SetStyle(style.Italic)
	if got := dump(d); got != "[0,4]{italic}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestSetStyleClearsPending(t *testing.T) {
	d := FromParts("ab", []spans.Span{{From: 0, To: 1, Styles: set(style.Bold, style.Underline)}})
	d.Select(Caret(2))
	d.SetStyle(style.Italic)
	if got, ok := d.Pending(); !ok || !got.Equal(set(style.Italic)) {
		t.Fatalf("unexpected pending set: %v %v", got, ok)
	}
	if got := dump(d); got != "[0,1]{bold,underline}" {
		t.Fatalf("collapsed set must not touch the text: %s", got)
	}
	d.Edit("abc", Caret(3))
	if got := dump(d); got != "[0,1]{bold,underline} [2,2]{italic}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestHasStyleSeesMixedHeaders(t *testing.T) {
	d := FromParts("one\ntwo", []spans.Span{
		{From: 0, To: 2, Styles: set(style.Header(1))},
		{From: 4, To: 6, Styles: set(style.Header(2))},
	})
	d.SelectAll()
	if !d.HasStyle(style.Header(1)) || !d.HasStyle(style.Header(2)) {
		t.Fatalf("both headers must be reported")
	}
}

func TestClear(t *testing.T) {
	d := FromParts("abc", []spans.Span{{From: 0, To: 2, Styles: set(style.Bold, style.Underline)}})
	d.Select(NewSelection(1, 3))
	d.Clear()
	if got := dump(d); got != "[0,0]{bold,underline}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestFontSizeCommands(t *testing.T) {
	d := FromParts("abc", nil)
	d.SelectAll()
	d.IncreaseFontSize()
	if got := dump(d); got != "[0,2]{font-size:15}" {
		t.Fatalf("unexpected spans: %s", got)
	}
	d.DecreaseFontSize()
	if len(d.Spans()) != 0 {
		t.Fatalf("default size must not be stored: %s", dump(d))
	}
	d.SetFontSize(200)
	if got := dump(d); got != "[0,2]{font-size:96}" {
		t.Fatalf("unexpected spans: %s", got)
	}
}

func TestSelectClampsAndResetsPending(t *testing.T) {
	d := FromParts("abc", nil)
	d.Toggle(style.Bold)
	d.Select(NewSelection(-4, 99))
	if sel := d.Selection(); sel.Start != 0 || sel.End != 3 {
		t.Fatalf("unexpected selection: %+v", sel)
	}
	if _, ok := d.Pending(); ok {
		t.Fatalf("pending must be dropped on caret move")
	}
	if d.SelectedText() != "abc" {
		t.Fatalf("unexpected selected text: %q", d.SelectedText())
	}
}

func TestSelectSameSelectionKeepsPending(t *testing.T) {
	d := FromParts("abc", nil)
	d.Toggle(style.Bold)
	d.Select(Caret(3))
	if _, ok := d.Pending(); !ok {
		t.Fatalf("pending dropped without a caret move")
	}
}

func TestWordOperations(t *testing.T) {
	d := FromParts("hello world", nil)
	d.DeleteWordBackward()
	if d.Text() != "hello " {
		t.Fatalf("unexpected text: %q", d.Text())
	}
	d.SelectWordAt(2)
	if d.SelectedText() != "hello" {
		t.Fatalf("unexpected word: %q", d.SelectedText())
	}
	d.Select(Caret(0))
	d.DeleteWordForward()
	if d.Text() != " " {
		t.Fatalf("unexpected text: %q", d.Text())
	}
}

func TestEditSequenceStaysCanonical(t *testing.T) {
	d := New()
	steps := []func(){
		func() { _ = d.InsertText("The quick brown fox") },
		func() { d.Select(NewSelection(4, 9)); d.Toggle(style.Bold) },
		func() { d.Select(NewSelection(6, 15)); d.Toggle(style.Italic) },
		func() { d.Select(Caret(9)); d.SplitLine() },
		func() { d.Select(Caret(2)); d.Add(style.Header(3)) },
		func() { d.Select(NewSelection(3, 12)); _ = d.InsertText("!") },
		func() { d.Select(Caret(1)); d.Backspace() },
		func() { d.SelectAll(); d.Toggle(style.Underline) },
	}
	for i, step := range steps {
		step()
		checkCanonical(t, d)
		for _, s := range d.Spans() {
			if s.From < 0 || s.To >= d.Len() || s.Styles.Empty() {
				t.Fatalf("step %d: invalid span %v in %s", i, s, dump(d))
			}
		}
	}
}

func TestSplitMergeRoundTrip(t *testing.T) {
	d := FromParts("ab\ncd", []spans.Span{{From: 0, To: 4, Styles: set(style.Bold)}})
	left, right, err := Split(d, 2)
	if err != nil {
		t.Fatal(err)
	}
	if left.Text() != "ab" || right.Text() != "cd" {
		t.Fatalf("unexpected halves: %q %q", left.Text(), right.Text())
	}
	if got := dump(right); got != "[0,1]{bold}" {
		t.Fatalf("unexpected right spans: %s", got)
	}
	merged := Merge(left, right)
	if merged.Text() != d.Text() || dump(merged) != dump(d) {
		t.Fatalf("round trip mismatch: %q %s", merged.Text(), dump(merged))
	}
}

func TestSplitWithoutSeparator(t *testing.T) {
	d := FromParts("abcd", []spans.Span{{From: 1, To: 2, Styles: set(style.Italic)}})
	left, right, err := Split(d, 2)
	if err != nil {
		t.Fatal(err)
	}
	if dump(left) != "[1,1]{italic}" || dump(right) != "[0,0]{italic}" {
		t.Fatalf("unexpected halves: %s | %s", dump(left), dump(right))
	}
	if got := Merge(left, right).Text(); got != "ab\ncd" {
		t.Fatalf("unexpected merge: %q", got)
	}
}

func TestSplitRejectsOutOfRange(t *testing.T) {
	d := FromParts("abc", nil)
	for _, pos := range []int{-1, 4} {
		if _, _, err := Split(d, pos); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Split(%d): unexpected error %v", pos, err)
		}
	}
	if _, _, err := Split(d, 3); err != nil {
		t.Fatalf("Split at end: %v", err)
	}
}

func TestImportExport(t *testing.T) {
	in := Exported{Text: "Hi there", Spans: []ExportedSpan{
		{From: 0, To: 1, Styles: []string{"bold", "h1"}},
		{From: 3, To: 7, Styles: []string{"italic"}},
	}}
	d, err := Import(in)
	if err != nil {
		t.Fatal(err)
	}
	out := Export(d)
	if out.Text != in.Text || len(out.Spans) != 2 {
		t.Fatalf("unexpected export: %+v", out)
	}
	if strings.Join(out.Spans[0].Styles, ",") != "bold,h1" {
		t.Fatalf("unexpected styles: %v", out.Spans[0].Styles)
	}
}

func TestImportReportsEveryBadSpan(t *testing.T) {
	in := Exported{Text: "abc", Spans: []ExportedSpan{
		{From: 0, To: 1, Styles: []string{"sparkly"}},
		{From: 2, To: 9, Styles: []string{"bold"}},
	}}
	d, err := Import(in)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, style.ErrUnknownKey) || !errors.Is(err, ErrInvalidArgument) || !IsInvalid(err) {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Len() != 0 || len(d.Spans()) != 0 {
		t.Fatalf("failed import must return an empty document")
	}
}

func TestDiffRunesAnchorsAtCaret(t *testing.T) {
	start, removed, inserted := diffRunes([]rune("aa"), []rune("aaa"), 2)
	if start != 1 || removed != 0 || inserted != 1 {
		t.Fatalf("unexpected diff: %d %d %d", start, removed, inserted)
	}
	start, removed, inserted = diffRunes([]rune("abcd"), []rune("aXd"), 2)
	if start != 1 || removed != 2 || inserted != 1 {
		t.Fatalf("unexpected diff: %d %d %d", start, removed, inserted)
	}
}
