package style

import (
	"errors"
	"testing"
)

func TestParseKeyRoundTrip(t *testing.T) {
	all := []Style{Bold, Italic, Underline, Bullet, Title, Subtitle, Normal, FontSize(18)}
	for lvl := MinHeaderLevel; lvl <= MaxHeaderLevel; lvl++ {
		all = append(all, Header(lvl))
	}
	for _, st := range all {
		got, err := ParseKey(st.Key())
		if err != nil {
			t.Fatalf("ParseKey(%q) error = %v", st.Key(), err)
		}
		if got != st {
			t.Fatalf("ParseKey(%q) = %v, want %v", st.Key(), got, st)
		}
	}
}

func TestParseKeyRejectsUnknown(t *testing.T) {
	for _, key := range []string{"", "h7", "h0", "blink", "font-size:", "font-size:-3", "font-size:x"} {
		if _, err := ParseKey(key); !errors.Is(err, ErrUnknownKey) {
			t.Errorf("ParseKey(%q) error = %v, want ErrUnknownKey", key, err)
		}
	}
}

func TestSetEqualityIsOrderIndependent(t *testing.T) {
	a := NewSet(Bold, Italic, Header(1))
	b := NewSet(Header(1), Italic, Bold)
	if !a.Equal(b) {
		t.Fatalf("expected %v == %v", a, b)
	}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	if a.Equal(NewSet(Bold, Italic)) {
		t.Fatalf("sets with different members compare equal")
	}
}

func TestSetParagraphExclusivity(t *testing.T) {
	s := NewSet(Bold, Header(1)).With(Header(3))
	if s.Has(Header(1)) || !s.Has(Header(3)) {
		t.Fatalf("expected header 3 to evict header 1, got %v", s)
	}
	s = s.With(Title)
	if s.HasKind(KindHeader) || !s.Has(Title) {
		t.Fatalf("expected title to evict header, got %v", s)
	}
	s = s.With(Bullet)
	if !s.Has(Title) || !s.Has(Bullet) {
		t.Fatalf("bullet must coexist with title, got %v", s)
	}
	s = s.With(Normal)
	if _, ok := s.Paragraph(); ok {
		t.Fatalf("normal must evict paragraph style, got %v", s)
	}
	if s.Has(Normal) {
		t.Fatalf("normal must never be stored")
	}
	if !s.Has(Bold) || !s.Has(Bullet) {
		t.Fatalf("normal must keep run styles and bullet, got %v", s)
	}
}

func TestSetSingleFontSize(t *testing.T) {
	s := NewSet(FontSize(12)).With(FontSize(20))
	if v, ok := s.FontSizeValue(); !ok || v != 20 {
		t.Fatalf("unexpected font size %d (%v)", v, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one member, got %v", s)
	}
}

func TestSetIsImmutable(t *testing.T) {
	base := NewSet(Bold)
	_ = base.With(Italic)
	_ = base.Without(Bold)
	if !base.Equal(NewSet(Bold)) {
		t.Fatalf("base set changed: %v", base)
	}
	styles := base.Styles()
	styles[0] = Italic
	if !base.Has(Bold) {
		t.Fatalf("Styles() leaked internal storage")
	}
}

func TestParseKeys(t *testing.T) {
	s, err := ParseKeys([]string{"bold", "H2", "font-size:14"})
	if err != nil {
		t.Fatal(err)
	}
	want := NewSet(Bold, Header(2), FontSize(14))
	if !s.Equal(want) {
		t.Fatalf("ParseKeys = %v, want %v", s, want)
	}
	if _, err := ParseKeys([]string{"bold", "nope"}); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}
