package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"spanedit/internal/adapter/sqdocfile"
	"spanedit/internal/config"
	"spanedit/internal/editor"
	"spanedit/internal/textstat"
)

// Values holds variables available for template expansion.
type Values struct {
	Context    string
	Title      string
	SourceFile string
	Format     string
	ID         string
	Lines      int
	Words      int
	Sentences  int
}

func newValues(doc *editor.Document, src string, format Format, id string, st textstat.Stats) Values {
	return Values{
		Title:      sqdocfile.TitleOf(editor.Export(doc).Text),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Format:     format.String(),
		ID:         id,
		Lines:      st.Lines,
		Words:      st.Words,
		Sentences:  st.Sentences,
	}
}

func expandTemplate(values Values, name config.TemplateFieldName, field string) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
