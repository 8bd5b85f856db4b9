package render

import (
	"bytes"
	"fmt"
	"html/template"
)

// Fragment is one rendered result.
type Fragment struct {
	Ref   string        `json:"ref"`
	Title string        `json:"title"`
	Rows  []Row         `json:"rows"`
	Stub  bool          `json:"stub"`
	HTML  template.HTML `json:"html"`
}

// Row is a labeled metadata line. Block rows render as paragraphs.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Block bool   `json:"-"`
}

type rowSpec struct {
	label string
	block bool
	value func(*Metadata) Optional
}

// rowSpecs is the fixed display order. Year only shows when Date is absent.
var rowSpecs = []rowSpec{
	{label: "Document Type:", value: func(m *Metadata) Optional { return m.Type }},
	{label: "Date:", value: func(m *Metadata) Optional { return m.Date }},
	{label: "Year:", value: func(m *Metadata) Optional {
		if m.Date.Valid {
			return Optional{}
		}
		return m.Year
	}},
	{label: "DOI:", value: func(m *Metadata) Optional { return m.DOI }},
	{label: "Interviewer:", value: func(m *Metadata) Optional { return m.Interviewer }},
	{label: "Interview dates:", value: func(m *Metadata) Optional { return m.InterviewDate }},
	{label: "Abstract:", block: true, value: func(m *Metadata) Optional { return m.Abstract }},
	{label: "Collection:", block: true, value: func(m *Metadata) Optional { return m.Collection }},
}

var fragmentTemplate = template.Must(template.New("fragment").Parse(
	`<section><h3><a href="/{{.Ref}}/">{{.Title}}</a></h3>` +
		`{{range .Rows}}{{if .Block}}<p><span class="label">{{.Label}}</span>{{.Value}}</p>` +
		`{{else}}<div><span class="label">{{.Label}}</span>{{.Value}}</div>{{end}}{{end}}</section>`,
))

func buildRows(metadata *Metadata) []Row {
	rows := make([]Row, 0, len(rowSpecs))
	for _, spec := range rowSpecs {
		if value := spec.value(metadata); value.Valid {
			rows = append(rows, Row{Label: spec.label, Value: value.Value, Block: spec.block})
		}
	}
	return rows
}

// BuildFragment renders metadata for ref. A missing title falls back to the
// ref itself.
func BuildFragment(ref string, metadata *Metadata) (Fragment, error) {
	fragment := Fragment{
		Ref:   ref,
		Title: ref,
		Rows:  buildRows(metadata),
	}
	if metadata.Title.Valid {
		fragment.Title = metadata.Title.Value
	}

	if err := fragment.render(); err != nil {
		return Fragment{}, err
	}
	return fragment, nil
}

// StubFragment is the heading-only entry used when metadata is unavailable.
func StubFragment(ref string) Fragment {
	fragment := Fragment{Ref: ref, Title: ref, Rows: []Row{}, Stub: true}
	if err := fragment.render(); err != nil {
		fragment.HTML = template.HTML(template.HTMLEscapeString(ref))
	}
	return fragment
}

func (f *Fragment) render() error {
	var buf bytes.Buffer
	if err := fragmentTemplate.Execute(&buf, f); err != nil {
		return fmt.Errorf("failed to render fragment for %s: %w", f.Ref, err)
	}
	f.HTML = template.HTML(buf.String())
	return nil
}
