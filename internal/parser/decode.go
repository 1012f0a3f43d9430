package parser

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/mckib2/cythonator/internal/decl"
)

var templateKinds = map[string]struct{}{
	"FunctionTemplateDecl":                   {},
	"ClassTemplateDecl":                      {},
	"ClassTemplatePartialSpecializationDecl": {},
	"ClassTemplateSpecializationDecl":        {},
	"TypeAliasTemplateDecl":                  {},
	"VarTemplateDecl":                        {},
}

var templateParamKinds = map[string]struct{}{
	"TemplateTypeParmDecl":     {},
	"NonTypeTemplateParmDecl":  {},
	"TemplateTemplateParmDecl": {},
}

// Decode reads a clang JSON AST and builds the declarations of mainFile.
// src is the text of the header the AST was dumped from; when nil, types
// keep clang's canonical spelling.
func Decode(r io.Reader, mainFile string, src []byte) (*decl.Header, error) {
	var root node
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrap(err, "decode clang AST")
	}
	if root.Kind != "TranslationUnitDecl" {
		return nil, errors.Newf("decode clang AST: root node is %q, want TranslationUnitDecl", root.Kind)
	}
	(&locTracker{}).walk(&root)

	c := &converter{
		mainFile:   mainFile,
		src:        source{text: src},
		aggregates: map[string]*decl.Aggregate{},
	}
	return &decl.Header{Path: mainFile, Decls: c.decls(root.Inner)}, nil
}

// converter turns clang nodes into declarations. Aggregates are indexed by
// node id so typedefs and later definitions can find them.
type converter struct {
	mainFile   string
	src        source
	aggregates map[string]*decl.Aggregate
}

func (c *converter) decls(nodes []*node) []decl.Decl {
	var out []decl.Decl
	for _, n := range nodes {
		if n.IsImplicit {
			continue
		}
		if n.Kind == "LinkageSpecDecl" {
			out = append(out, c.decls(n.Inner)...)
			continue
		}
		if d := c.convert(n); d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (c *converter) convert(n *node) decl.Decl {
	if _, ok := templateKinds[n.Kind]; ok {
		return c.template(n)
	}
	switch n.Kind {
	case "FunctionDecl":
		return c.function(n)
	case "CXXRecordDecl", "RecordDecl":
		return c.record(n)
	case "TypedefDecl", "TypeAliasDecl":
		return c.typedef(n)
	case "NamespaceDecl":
		return &decl.Namespace{Name: n.Name, Decls: c.decls(n.Inner), Source: c.origin(n)}
	}
	return nil
}

func (c *converter) origin(n *node) decl.Source {
	l := n.Loc.expanded()
	return decl.Source{File: l.File, Line: int(l.Line), Included: l.IncludedFrom != nil}
}

func (c *converter) function(n *node) decl.Decl {
	qualType := ""
	if n.Type != nil {
		qualType = n.Type.QualType
	}
	ret, params := splitFunctionType(qualType)
	if written, ok := c.src.returnSpelling(n, ret); ok {
		ret = written
	}

	f := &decl.Function{
		Name:       n.Name,
		ReturnType: decl.NewNativeType(ret, ""),
		Variadic:   n.Variadic || endsVariadic(params),
		Header:     c.mainFile,
		Source:     c.origin(n),
	}
	for _, child := range n.Inner {
		if child.Kind != "ParmVarDecl" {
			continue
		}
		f.Params = append(f.Params, decl.Parameter{Type: c.paramType(child), Name: child.Name})
	}
	// Overloads share a name but not a previousDecl link.
	f.Redeclaration = n.PreviousDecl != ""
	return f
}

func (c *converter) paramType(n *node) decl.NativeType {
	var t typeStruct
	if n.Type != nil {
		t = *n.Type
	}
	if written, ok := c.src.paramSpelling(n); ok {
		return decl.NewNativeType(written, t.DesugaredQualType)
	}
	return decl.NewNativeType(t.QualType, t.DesugaredQualType)
}

// record converts a struct, class or union. A definition that completes an
// earlier forward declaration updates that aggregate in place and yields
// nothing new.
func (c *converter) record(n *node) decl.Decl {
	tag := decl.Tag(n.TagUsed)
	if tag == "" {
		tag = decl.TagStruct
	}

	if prev, ok := c.aggregates[n.PreviousDecl]; n.PreviousDecl != "" && ok {
		if n.CompleteDefinition && !prev.Complete {
			prev.Fields = publicFields(n, tag, c.fieldType)
			prev.Complete = true
		}
		c.aggregates[n.ID] = prev
		return nil
	}

	a := &decl.Aggregate{
		Name:     n.Name,
		Tag:      tag,
		Complete: n.CompleteDefinition,
		Source:   c.origin(n),
	}
	if n.CompleteDefinition {
		a.Fields = publicFields(n, tag, c.fieldType)
	}
	if n.ID != "" {
		c.aggregates[n.ID] = a
	}
	return a
}

func (c *converter) fieldType(n *node) decl.NativeType {
	if n.Type == nil {
		return decl.NativeType{}
	}
	return decl.NewNativeType(n.Type.QualType, n.Type.DesugaredQualType)
}

func (c *converter) typedef(n *node) decl.Decl {
	t := &decl.Typedef{Alias: n.Name, Source: c.origin(n)}
	if n.Type != nil {
		t.Underlying = decl.NewNativeType(n.Type.QualType, n.Type.DesugaredQualType)
	}
	if id := recordRef(n.Inner); id != "" {
		t.Aggregate = c.aggregates[id]
	}
	return t
}

// recordRef finds the id of the record a typedef names, looking through
// ElaboratedType and other sugar nodes.
func recordRef(types []*node) string {
	for _, t := range types {
		if t.OwnedTagDecl != nil && t.OwnedTagDecl.ID != "" {
			return t.OwnedTagDecl.ID
		}
		if t.Kind == "RecordType" && t.Decl != nil {
			return t.Decl.ID
		}
		if t.Kind == "PointerType" || t.Kind == "LValueReferenceType" || t.Kind == "RValueReferenceType" {
			continue
		}
		if id := recordRef(t.Inner); id != "" {
			return id
		}
	}
	return ""
}

func (c *converter) template(n *node) decl.Decl {
	t := &decl.Template{Name: n.Name, NodeKind: n.Kind, Source: c.origin(n)}
	for _, child := range n.Inner {
		if _, ok := templateParamKinds[child.Kind]; ok {
			t.Params = append(t.Params, child.Name)
		}
	}
	return t
}
