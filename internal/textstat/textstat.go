// Package textstat counts words, sentences and styled runes of a document.
package textstat

import (
	"sort"
	"strings"
	"unicode"

	"github.com/maruel/natural"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"go.uber.org/zap"

	"spanedit/internal/editor"
)

// Stats describes one document. Styles maps a style key to the number of
// runes it covers.
type Stats struct {
	Runes     int
	Lines     int
	Words     int
	Sentences int
	Styles    map[string]int
}

// StyleKeys returns the keys of Styles in natural order.
func (s Stats) StyleKeys() []string {
	keys := make([]string, 0, len(s.Styles))
	for k := range s.Styles {
		keys = append(keys, k)
	}
	sort.Sort(natural.StringSlice(keys))
	return keys
}

type Counter struct {
	tok *sentences.DefaultSentenceTokenizer
}

// NewCounter returns a counter using the english sentence model. Without the
// model every non-empty line counts as a single sentence.
func NewCounter(log *zap.Logger) *Counter {
	if log == nil {
		log = zap.NewNop()
	}
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Warn("Unable to load sentences tokenizer data", zap.Error(err))
		return &Counter{}
	}
	return &Counter{tok: tok}
}

func (c *Counter) Count(doc *editor.Document) Stats {
	text := doc.Text()
	st := Stats{Runes: doc.Len(), Styles: make(map[string]int)}

	if text != "" {
		for line := range strings.SplitSeq(text, "\n") {
			st.Lines++
			st.Words += countWords(line)
			st.Sentences += c.sentences(line)
		}
	}
	for _, s := range doc.Spans() {
		for _, key := range s.Styles.Keys() {
			st.Styles[key] += s.To - s.From + 1
		}
	}
	return st
}

func (c *Counter) sentences(line string) int {
	if strings.TrimFunc(line, isSeparator) == "" {
		return 0
	}
	if c.tok == nil {
		return 1
	}
	n := 0
	for _, s := range c.tok.Tokenize(line) {
		if strings.TrimFunc(s.Text, isSeparator) != "" {
			n++
		}
	}
	return max(n, 1)
}

func countWords(line string) int {
	n := 0
	inWord := false
	for _, r := range line {
		if isSeparator(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
		}
		inWord = true
	}
	return n
}

// isSeparator treats NBSP as part of a word, the bullet placeholder as
// nothing at all.
func isSeparator(r rune) bool {
	switch r {
	case 0xA0:
		return false
	case editor.Placeholder:
		return true
	}
	return unicode.IsSpace(r)
}
