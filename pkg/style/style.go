package style

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a style tag in the catalog.
type Kind uint8

const (
	KindBold Kind = iota + 1
	KindItalic
	KindUnderline
	KindHeader
	KindBullet
	KindFontSize
	KindTitle
	KindSubtitle
	KindNormal
)

const (
	MinHeaderLevel = 1
	MaxHeaderLevel = 6
)

var ErrUnknownKey = errors.New("style: unknown style key")

// Style is a single tag. Value carries the header level for KindHeader and the
// point size for KindFontSize; it is zero for every other kind.
type Style struct {
	Kind  Kind
	Value int
}

var (
	Bold      = Style{Kind: KindBold}
	Italic    = Style{Kind: KindItalic}
	Underline = Style{Kind: KindUnderline}
	Bullet    = Style{Kind: KindBullet}
	Title     = Style{Kind: KindTitle}
	Subtitle  = Style{Kind: KindSubtitle}
	Normal    = Style{Kind: KindNormal}
)

// Header returns a header style, clamping level to 1..6.
func Header(level int) Style {
	if level < MinHeaderLevel {
		level = MinHeaderLevel
	}
	if level > MaxHeaderLevel {
		level = MaxHeaderLevel
	}
	return Style{Kind: KindHeader, Value: level}
}

// FontSize returns a font size style. Non-positive sizes are clamped to 1.
func FontSize(pt int) Style {
	if pt < 1 {
		pt = 1
	}
	return Style{Kind: KindFontSize, Value: pt}
}

// ParagraphScoped reports whether the style applies to whole lines.
func (s Style) ParagraphScoped() bool {
	switch s.Kind {
	case KindHeader, KindTitle, KindSubtitle, KindBullet, KindNormal:
		return true
	}
	return false
}

// Exclusive reports whether the style belongs to the mutually exclusive
// paragraph group. A set never holds two exclusive styles.
func (s Style) Exclusive() bool {
	switch s.Kind {
	case KindHeader, KindTitle, KindSubtitle, KindNormal:
		return true
	}
	return false
}

func (s Style) Valid() bool {
	switch s.Kind {
	case KindBold, KindItalic, KindUnderline, KindBullet, KindTitle, KindSubtitle, KindNormal:
		return s.Value == 0
	case KindHeader:
		return s.Value >= MinHeaderLevel && s.Value <= MaxHeaderLevel
	case KindFontSize:
		return s.Value > 0
	}
	return false
}

const fontSizePrefix = "font-size:"

// Key returns the interchange key of the style, the inverse of ParseKey.
func (s Style) Key() string {
	switch s.Kind {
	case KindBold:
		return "bold"
	case KindItalic:
		return "italic"
	case KindUnderline:
		return "underline"
	case KindHeader:
		return "h" + strconv.Itoa(s.Value)
	case KindBullet:
		return "bullet"
	case KindFontSize:
		return fontSizePrefix + strconv.Itoa(s.Value)
	case KindTitle:
		return "title"
	case KindSubtitle:
		return "subtitle"
	case KindNormal:
		return "normal"
	}
	return fmt.Sprintf("kind(%d)", s.Kind)
}

func (s Style) String() string {
	return s.Key()
}

// ParseKey parses an interchange key such as "bold", "h2" or "font-size:18".
func ParseKey(key string) (Style, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	switch k {
	case "bold":
		return Bold, nil
	case "italic":
		return Italic, nil
	case "underline":
		return Underline, nil
	case "bullet":
		return Bullet, nil
	case "title":
		return Title, nil
	case "subtitle":
		return Subtitle, nil
	case "normal":
		return Normal, nil
	}
	if rest, ok := strings.CutPrefix(k, fontSizePrefix); ok {
		pt, err := strconv.Atoi(rest)
		if err != nil || pt <= 0 {
			return Style{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		return FontSize(pt), nil
	}
	if len(k) == 2 && k[0] == 'h' && k[1] >= '1' && k[1] <= '6' {
		return Header(int(k[1] - '0')), nil
	}
	return Style{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func less(a, b Style) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Value < b.Value
}
