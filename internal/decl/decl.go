// Package decl holds the in-memory Declaration Model of one C/C++ header.
//
// The model is produced by the clang AST adapter in internal/parser and is
// read-only to everything downstream of it.
package decl

import "strings"

// Header is the set of declarations discovered in one header, in discovery order.
type Header struct {
	Path  string
	Decls []Decl
}

// Kind names a declaration variant.
type Kind string

const (
	KindFunction  Kind = "function"
	KindAggregate Kind = "aggregate"
	KindTypedef   Kind = "typedef"
	KindTemplate  Kind = "template"
	KindNamespace Kind = "namespace"
)

// Decl is one declaration. The set of implementations is closed: every
// variant dispatches to its own Visitor method.
type Decl interface {
	Kind() Kind
	DeclName() string
	Origin() Source
	Accept(v Visitor)
}

// Source is where clang located a declaration.
type Source struct {
	File string
	Line int
	// Included is set for declarations pulled in through an #include
	// rather than written in the header itself.
	Included bool
}

// NativeType describes a type as written in the header.
type NativeType struct {
	Spelling         string
	IsPointer        bool
	IsReference      bool
	IsConst          bool
	IsPrimitiveAlias bool
}

// NewNativeType derives the structural flags from a clang spelling.
// desugared is clang's desugared spelling, empty when the type carries no sugar.
func NewNativeType(spelling, desugared string) NativeType {
	s := strings.TrimSpace(spelling)
	return NativeType{
		Spelling:         s,
		IsPointer:        strings.Contains(s, "*"),
		IsReference:      strings.Contains(s, "&"),
		IsConst:          strings.HasPrefix(s, "const ") || strings.HasSuffix(s, " const"),
		IsPrimitiveAlias: desugared != "" && strings.TrimSpace(desugared) != s,
	}
}

func (t NativeType) String() string { return t.Spelling }

// Parameter is one function parameter; Name is empty when unnamed.
type Parameter struct {
	Type NativeType
	Name string
}

// Function is a free function declaration.
type Function struct {
	Name       string
	ReturnType NativeType
	Params     []Parameter
	Variadic   bool
	// Header is the path of the header the function was read from.
	Header string
	// Redeclaration is set when clang links this declaration to an earlier one.
	Redeclaration bool
	Source        Source
}

func (f *Function) Kind() Kind       { return KindFunction }
func (f *Function) DeclName() string { return f.Name }
func (f *Function) Origin() Source   { return f.Source }
func (f *Function) Accept(v Visitor) { v.VisitFunction(f) }

// Tag is the keyword an aggregate was declared with.
type Tag string

const (
	TagStruct Tag = "struct"
	TagClass  Tag = "class"
	TagUnion  Tag = "union"
)

// Field is one public data member of an aggregate.
type Field struct {
	Name string
	Type NativeType
}

// Aggregate is a struct, class or union. Name is empty for anonymous records.
type Aggregate struct {
	Name     string
	Tag      Tag
	Fields   []Field
	Complete bool
	Source   Source
}

func (a *Aggregate) Kind() Kind       { return KindAggregate }
func (a *Aggregate) DeclName() string { return a.Name }
func (a *Aggregate) Origin() Source   { return a.Source }
func (a *Aggregate) Accept(v Visitor) { v.VisitAggregate(a) }

// Typedef is a typedef or alias declaration. Aggregate is set when the
// underlying type resolves to a struct, class or union.
type Typedef struct {
	Alias      string
	Underlying NativeType
	Aggregate  *Aggregate
	Source     Source
}

func (t *Typedef) Kind() Kind       { return KindTypedef }
func (t *Typedef) DeclName() string { return t.Alias }
func (t *Typedef) Origin() Source   { return t.Source }
func (t *Typedef) Accept(v Visitor) { v.VisitTypedef(t) }

// Template is any declaration parameterized over template parameters.
type Template struct {
	Name string
	// NodeKind is the clang node kind, e.g. FunctionTemplateDecl.
	NodeKind string
	Params   []string
	Source   Source
}

func (t *Template) Kind() Kind       { return KindTemplate }
func (t *Template) DeclName() string { return t.Name }
func (t *Template) Origin() Source   { return t.Source }
func (t *Template) Accept(v Visitor) { v.VisitTemplate(t) }

// Namespace groups declarations under a C++ namespace. Name is empty for
// anonymous namespaces.
type Namespace struct {
	Name   string
	Decls  []Decl
	Source Source
}

func (n *Namespace) Kind() Kind       { return KindNamespace }
func (n *Namespace) DeclName() string { return n.Name }
func (n *Namespace) Origin() Source   { return n.Source }
func (n *Namespace) Accept(v Visitor) { v.VisitNamespace(n) }
