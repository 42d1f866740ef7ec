// Package replay drives a document with a scripted sequence of host events and
// checks expectations along the way.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"spanedit/internal/editor"
)

// Range is a selection as written in scripts: [from, to].
type Range [2]int

// EditStep is a full-text change reported by the host together with the
// selection that follows it.
type EditStep struct {
	Text      string `yaml:"text"`
	Selection Range  `yaml:"selection"`
}

// Expect checks document state after the preceding steps. Unset fields are not
// checked.
type Expect struct {
	Text      *string  `yaml:"text,omitempty"`
	Spans     []string `yaml:"spans,omitempty"`
	Styles    []string `yaml:"styles,omitempty"`
	Selection *Range   `yaml:"selection,omitempty"`
}

// Step holds exactly one event.
type Step struct {
	Edit       *EditStep `yaml:"edit,omitempty"`
	Select     *Range    `yaml:"select,omitempty"`
	SelectAll  bool      `yaml:"select_all,omitempty"`
	SelectWord *int      `yaml:"select_word,omitempty"`
	Insert     *string   `yaml:"insert,omitempty"`
	Enter      bool      `yaml:"enter,omitempty"`
	Backspace  int       `yaml:"backspace,omitempty"`
	Delete     int       `yaml:"delete,omitempty"`
	Toggle     string    `yaml:"toggle,omitempty"`
	Add        string    `yaml:"add,omitempty"`
	Remove     string    `yaml:"remove,omitempty"`
	Set        string    `yaml:"set,omitempty"`
	Clear      bool      `yaml:"clear,omitempty"`
	FontSize   int       `yaml:"font_size,omitempty"`
	Increase   int       `yaml:"increase,omitempty"`
	Decrease   int       `yaml:"decrease,omitempty"`
	Split      *int      `yaml:"split,omitempty"`
	Expect     *Expect   `yaml:"expect,omitempty"`
}

// Script is the starting document and the events applied to it.
type Script struct {
	Text  string                `yaml:"text"`
	Spans []editor.ExportedSpan `yaml:"spans"`
	Steps []Step                `yaml:"steps"`
}

var ErrBadStep = errors.New("replay: bad step")

// Op names the event a step carries, checking there is exactly one.
func (s Step) Op() (string, error) {
	var names []string
	v := reflect.ValueOf(s)
	t := v.Type()
	for i := range t.NumField() {
		if !v.Field(i).IsZero() {
			names = append(names, yamlName(t.Field(i)))
		}
	}
	switch len(names) {
	case 0:
		return "", fmt.Errorf("%w: empty step", ErrBadStep)
	case 1:
		return names[0], nil
	}
	return "", fmt.Errorf("%w: more than one event %v", ErrBadStep, names)
}

func yamlName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	for i := range len(tag) {
		if tag[i] == ',' {
			return tag[:i]
		}
	}
	return tag
}

// Parse decodes a script, rejecting unknown keys and malformed steps.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	for i, st := range s.Steps {
		if _, err := st.Op(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
