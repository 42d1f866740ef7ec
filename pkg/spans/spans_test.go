package spans

import (
	"testing"

	"spanedit/pkg/style"
)

var (
	bold   = style.NewSet(style.Bold)
	italic = style.NewSet(style.Italic)
)

func TestTableShift(t *testing.T) {
	tb := NewTable([]Span{{0, 1, bold}, {2, 3, italic}, {5, 6, bold}})
	tb.Shift(1, 10, 2)
	got := tb.Spans()
	if got[0].From != 0 || got[1].From != 4 || got[1].To != 5 || got[2].From != 7 {
		t.Fatalf("unexpected shift result: %v", got)
	}
}

func TestTableFindCovering(t *testing.T) {
	tb := NewTable([]Span{{0, 3, bold}, {6, 9, italic}})
	if pos, ok := tb.FindCovering(2); !ok || pos != 0 {
		t.Fatalf("FindCovering(2) = %d, %v", pos, ok)
	}
	if _, ok := tb.FindCovering(4); ok {
		t.Fatalf("FindCovering(4) must miss")
	}
	if _, ok := tb.FindCovering(-1); ok {
		t.Fatalf("FindCovering(-1) must miss")
	}
}

func TestTableFindByBoundary(t *testing.T) {
	tb := NewTable([]Span{{0, 3, bold}, {4, 9, italic}})
	if pos, ok := tb.FindByBoundary(4, Start); !ok || pos != 1 {
		t.Fatalf("start boundary = %d, %v", pos, ok)
	}
	if pos, ok := tb.FindByBoundary(4, End); !ok || pos != 0 {
		t.Fatalf("end boundary = %d, %v", pos, ok)
	}
	if _, ok := tb.FindByBoundary(2, Start); ok {
		t.Fatalf("unexpected start boundary at 2")
	}
}

func TestTableSplitAt(t *testing.T) {
	tb := NewTable([]Span{{2, 8, bold}})
	left, right := tb.SplitAt(0, 5)
	if left.From != 2 || left.To != 4 || right.From != 5 || right.To != 8 {
		t.Fatalf("unexpected split: %v %v", left, right)
	}
	if !left.Styles.Equal(bold) || !right.Styles.Equal(bold) {
		t.Fatalf("split must preserve styles")
	}
	if tb.Len() != 1 {
		t.Fatalf("SplitAt must not modify the table")
	}
}

func TestNormalizeMergesEqualNeighbours(t *testing.T) {
	in := []Span{{0, 2, bold}, {3, 5, bold}, {6, 7, italic}, {7, 9, italic}}
	got := Normalize(in, 20)
	if len(got) != 2 {
		t.Fatalf("expected 2 spans, got %v", got)
	}
	if got[0].From != 0 || got[0].To != 5 || got[1].From != 6 || got[1].To != 9 {
		t.Fatalf("unexpected merge result: %v", got)
	}
}

func TestNormalizeKeepsDifferentNeighbours(t *testing.T) {
	in := []Span{{0, 2, bold}, {3, 5, italic}}
	if got := Normalize(in, 5); len(got) != 2 {
		t.Fatalf("expected both spans kept, got %v", got)
	}
}

func TestNormalizeDropsAndClamps(t *testing.T) {
	in := []Span{{-3, 2, bold}, {5, 4, italic}, {4, 40, italic}, {1, 2, style.Set{}}}
	got := Normalize(in, 9)
	if len(got) != 2 {
		t.Fatalf("expected 2 spans, got %v", got)
	}
	if got[0].From != 0 || got[0].To != 2 {
		t.Fatalf("from not clamped: %v", got[0])
	}
	if got[1].To != 9 {
		t.Fatalf("to not clamped: %v", got[1])
	}
	if Normalize(in, -1) != nil {
		t.Fatalf("empty text must drop all spans")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := []Span{{4, 6, bold}, {0, 3, bold}, {2, 9, italic}, {12, 15, bold}, {16, 16, bold}}
	once := Normalize(in, 14)
	twice := Normalize(once, 14)
	if len(once) != len(twice) {
		t.Fatalf("not idempotent: %v vs %v", once, twice)
	}
	for i := range once {
		if !once[i].Equal(twice[i]) {
			t.Fatalf("not idempotent at %d: %v vs %v", i, once, twice)
		}
	}
	if !IsCanonical(once, 14) {
		t.Fatalf("normalized output reported as non-canonical")
	}
}

func TestNormalizeDoesNotModifyInput(t *testing.T) {
	in := []Span{{3, 5, bold}, {0, 2, bold}}
	_ = Normalize(in, 10)
	if in[0].From != 3 || in[1].From != 0 {
		t.Fatalf("input modified: %v", in)
	}
}

func TestApplySplitsBoundaries(t *testing.T) {
	in := []Span{{0, 9, bold}}
	got := Normalize(Apply(in, 3, 5, func(s style.Set) style.Set { return s.With(style.Italic) }), 9)
	if len(got) != 3 {
		t.Fatalf("expected 3 spans, got %v", got)
	}
	if !got[1].Styles.Equal(style.NewSet(style.Bold, style.Italic)) || got[1].From != 3 || got[1].To != 5 {
		t.Fatalf("unexpected middle span: %v", got[1])
	}
}

func TestApplyFillsGaps(t *testing.T) {
	in := []Span{{2, 3, italic}}
	got := Normalize(Apply(in, 0, 6, func(s style.Set) style.Set { return s.With(style.Bold) }), 9)
	want := []Span{{0, 1, bold}, {2, 3, style.NewSet(style.Bold, style.Italic)}, {4, 6, bold}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestClip(t *testing.T) {
	in := []Span{{0, 4, bold}, {6, 9, italic}}
	got := Clip(in, 3, 7, -3)
	if len(got) != 2 || got[0].From != 0 || got[0].To != 1 || got[1].From != 3 || got[1].To != 4 {
		t.Fatalf("unexpected clip: %v", got)
	}
}

func TestHasInSeesEveryParagraphStyle(t *testing.T) {
	in := []Span{{0, 2, style.NewSet(style.Header(1))}, {4, 6, style.NewSet(style.Header(2))}}
	if !HasIn(in, 0, 7, style.Header(1)) || !HasIn(in, 0, 7, style.Header(2)) {
		t.Fatalf("HasIn must report both headers")
	}
	if HasIn(in, 3, 4, style.Header(1)) {
		t.Fatalf("HasIn must not report styles outside the range")
	}
}

func TestFlattenUnionsOverlaps(t *testing.T) {
	in := []Span{{0, 5, bold}, {3, 8, italic}}
	got := Flatten(in, 9)
	want := []Span{{0, 2, bold}, {3, 5, style.NewSet(style.Bold, style.Italic)}, {6, 8, italic}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if !IsCanonical(got, 9) {
		t.Fatalf("flattened output not canonical: %v", got)
	}
}

func TestFlattenLaterSpanWinsExclusiveConflict(t *testing.T) {
	in := []Span{{0, 3, style.NewSet(style.Header(1))}, {0, 3, style.NewSet(style.Title)}}
	got := Flatten(in, 3)
	if len(got) != 1 || !got[0].Styles.Equal(style.NewSet(style.Title)) {
		t.Fatalf("unexpected flatten result: %v", got)
	}
}
