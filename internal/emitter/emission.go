package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mckib2/cythonator/internal/cimport"
	"github.com/mckib2/cythonator/internal/decl"
	"github.com/mckib2/cythonator/internal/logger"
)

const indentUnit = "    "

// emission is the mutable state of a single Emit call.
type emission struct {
	owner     *emitterImpl
	headerRef string
	imports   *cimport.Registry
	out       strings.Builder

	depth  int
	opened int
	closed int

	namespaces []string
	aggregates []string
	seenAggs   map[string]struct{}
}

func newEmission(e *emitterImpl, headerRef string, reg *cimport.Registry) *emission {
	return &emission{
		owner:     e,
		headerRef: headerRef,
		imports:   reg,
		seenAggs:  map[string]struct{}{},
	}
}

func (em *emission) VisitFunction(f *decl.Function) {
	em.block(em.externHeader(), func() {
		em.line(em.signature(f))
	})
}

func (em *emission) VisitAggregate(a *decl.Aggregate) {
	if a.Name == "" {
		// Anonymous records are reached through the typedef that names them.
		return
	}
	em.aggregate(a, a.Name, false)
}

func (em *emission) VisitTypedef(t *decl.Typedef) {
	if t.Aggregate != nil {
		if t.Aggregate.Name != "" {
			em.aggregate(t.Aggregate, t.Aggregate.Name, false)
			return
		}
		em.aggregate(t.Aggregate, t.Alias, true)
		return
	}
	if !em.owner.opts.EmitTypedefs {
		return
	}
	em.block(em.externHeader(), func() {
		em.line("ctypedef " + em.mapType(t.Underlying) + " " + t.Alias)
	})
}

// VisitTemplate writes nothing; templates are never instantiated.
func (em *emission) VisitTemplate(*decl.Template) {}

func (em *emission) VisitNamespace(n *decl.Namespace) {
	em.namespaces = append(em.namespaces, n.Name)
	decl.Walk(em, n.Decls)
	em.namespaces = em.namespaces[:len(em.namespaces)-1]
}

func (em *emission) aggregate(a *decl.Aggregate, name string, viaTypedef bool) {
	key := decl.QualifiedName(em.namespaces, name)
	if _, ok := em.seenAggs[key]; ok {
		return
	}
	em.seenAggs[key] = struct{}{}
	em.aggregates = append(em.aggregates, key)

	logger.Logger.Debugw("aggregate recognized",
		logger.FieldName, key,
		logger.FieldKind, string(a.Tag),
		"fields", len(a.Fields),
		"emitted", em.owner.opts.EmitAggregates)

	if !em.owner.opts.EmitAggregates {
		return
	}
	em.block(em.externHeader(), func() {
		em.block(aggregateHeader(a.Tag, name, viaTypedef), func() {
			if len(a.Fields) == 0 {
				em.line("pass")
				return
			}
			for _, f := range a.Fields {
				em.line(em.mapType(f.Type) + " " + f.Name)
			}
		})
	})
}

func aggregateHeader(tag decl.Tag, name string, viaTypedef bool) string {
	switch tag {
	case decl.TagClass:
		return "cdef cppclass " + name + ":"
	case decl.TagUnion:
		if viaTypedef {
			return "ctypedef union " + name + ":"
		}
		return "cdef union " + name + ":"
	default:
		if viaTypedef {
			return "ctypedef struct " + name + ":"
		}
		return "cdef struct " + name + ":"
	}
}

func (em *emission) signature(f *decl.Function) string {
	var b strings.Builder
	b.WriteString(em.mapType(f.ReturnType))
	b.WriteString(" ")
	b.WriteString(f.Name)
	b.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(em.mapType(p.Type))
		b.WriteString(" ")
		if p.Name != "" {
			b.WriteString(p.Name)
		} else {
			b.WriteString("param" + strconv.Itoa(i))
		}
	}
	if f.Variadic {
		if len(f.Params) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteString(")")
	return b.String()
}

func (em *emission) mapType(t decl.NativeType) string {
	return em.owner.mapper.Map(t, em.imports)
}

func (em *emission) externHeader() string {
	var b strings.Builder
	b.WriteString(`cdef extern from "`)
	b.WriteString(escapeLiteral(em.headerRef))
	b.WriteString(`"`)
	if ns := decl.QualifiedName(em.namespaces, ""); ns != "" {
		b.WriteString(` namespace "`)
		b.WriteString(strings.TrimSuffix(ns, "::"))
		b.WriteString(`"`)
	}
	b.WriteString(" nogil:")
	return b.String()
}

// block writes header at the current depth and runs body one level deeper.
func (em *emission) block(header string, body func()) {
	em.line(header)
	em.depth++
	em.opened++
	body()
	em.depth--
	em.closed++
}

func (em *emission) line(text string) {
	em.out.WriteString(strings.Repeat(indentUnit, em.depth))
	em.out.WriteString(text)
	em.out.WriteString("\n")
}

func (em *emission) finish() {
	if em.depth != 0 || em.opened != em.closed {
		panic(fmt.Sprintf("emitter: unbalanced scopes (depth %d, opened %d, closed %d)", em.depth, em.opened, em.closed))
	}
}

func (em *emission) result() *Result {
	return &Result{
		HeaderRef:  em.headerRef,
		Imports:    em.imports.Flush(),
		Decls:      em.out.String(),
		Aggregates: append([]string(nil), em.aggregates...),
	}
}

func escapeLiteral(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
