package cli

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mckib2/cythonator/internal/decl"
)

type dumpDoc struct {
	Header string     `yaml:"header"`
	Decls  []dumpDecl `yaml:"decls"`
}

type dumpDecl struct {
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name,omitempty"`
	File     string `yaml:"file,omitempty"`
	Line     int    `yaml:"line,omitempty"`
	Included bool   `yaml:"included,omitempty"`

	Returns       string      `yaml:"returns,omitempty"`
	Params        []dumpParam `yaml:"params,omitempty"`
	Variadic      bool        `yaml:"variadic,omitempty"`
	Redeclaration bool        `yaml:"redeclaration,omitempty"`

	Tag      string      `yaml:"tag,omitempty"`
	Complete bool        `yaml:"complete,omitempty"`
	Fields   []dumpParam `yaml:"fields,omitempty"`

	Underlying string `yaml:"underlying,omitempty"`
	Record     string `yaml:"record,omitempty"`

	NodeKind       string   `yaml:"node_kind,omitempty"`
	TemplateParams []string `yaml:"template_params,omitempty"`

	Decls []dumpDecl `yaml:"decls,omitempty"`
}

type dumpParam struct {
	Type string `yaml:"type"`
	Name string `yaml:"name,omitempty"`
}

// dumpVisitor flattens the declaration tree into YAML-friendly records.
type dumpVisitor struct {
	out []dumpDecl
}

func dumpBase(d decl.Decl) dumpDecl {
	src := d.Origin()
	return dumpDecl{
		Kind:     string(d.Kind()),
		Name:     d.DeclName(),
		File:     src.File,
		Line:     src.Line,
		Included: src.Included,
	}
}

func (v *dumpVisitor) VisitFunction(f *decl.Function) {
	d := dumpBase(f)
	d.Returns = f.ReturnType.Spelling
	for _, p := range f.Params {
		d.Params = append(d.Params, dumpParam{Type: p.Type.Spelling, Name: p.Name})
	}
	d.Variadic = f.Variadic
	d.Redeclaration = f.Redeclaration
	v.out = append(v.out, d)
}

func (v *dumpVisitor) VisitAggregate(a *decl.Aggregate) {
	d := dumpBase(a)
	d.Tag = string(a.Tag)
	d.Complete = a.Complete
	for _, f := range a.Fields {
		d.Fields = append(d.Fields, dumpParam{Type: f.Type.Spelling, Name: f.Name})
	}
	v.out = append(v.out, d)
}

func (v *dumpVisitor) VisitTypedef(t *decl.Typedef) {
	d := dumpBase(t)
	d.Underlying = t.Underlying.Spelling
	if t.Aggregate != nil {
		d.Record = string(t.Aggregate.Tag) + " " + t.Aggregate.Name
		if t.Aggregate.Name == "" {
			d.Record = string(t.Aggregate.Tag) + " <anonymous>"
		}
	}
	v.out = append(v.out, d)
}

func (v *dumpVisitor) VisitTemplate(t *decl.Template) {
	d := dumpBase(t)
	d.NodeKind = t.NodeKind
	d.TemplateParams = t.Params
	v.out = append(v.out, d)
}

func (v *dumpVisitor) VisitNamespace(n *decl.Namespace) {
	d := dumpBase(n)
	inner := &dumpVisitor{}
	decl.Walk(inner, n.Decls)
	d.Decls = inner.out
	v.out = append(v.out, d)
}

// writeDeclDump writes h as one YAML document.
func writeDeclDump(w io.Writer, h *decl.Header) error {
	v := &dumpVisitor{}
	decl.Walk(v, h.Decls)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(dumpDoc{Header: h.Path, Decls: v.out}); err != nil {
		return err
	}
	return enc.Close()
}
