// Package emitter turns a Declaration Model into Cython extern declarations.
package emitter

import (
	"github.com/mckib2/cythonator/internal/cimport"
	"github.com/mckib2/cythonator/internal/decl"
	"github.com/mckib2/cythonator/internal/typemap"
)

// Options switches on emission paths that are off by default.
type Options struct {
	// EmitAggregates writes struct/class/union bodies with their public
	// fields instead of only recording that they were seen.
	EmitAggregates bool
	// EmitTypedefs writes ctypedef lines for typedefs of non-aggregate types.
	EmitTypedefs bool
}

// Result is the output of one Emit call.
type Result struct {
	HeaderRef string
	// Imports holds deduplicated import lines in first-seen order.
	Imports []string
	// Decls is the declaration text, one extern block per declaration.
	Decls string
	// Aggregates names every aggregate the traversal recognized, whether or
	// not it was written out.
	Aggregates []string
}

// Emitter generates stub text for a header.
type Emitter interface {
	Emit(h *decl.Header, headerRef string) *Result
}

type emitterImpl struct {
	mapper typemap.Mapper
	opts   Options
}

// New creates an emitter. The returned value keeps no per-call state and can
// be shared between goroutines.
func New(m typemap.Mapper, opts Options) Emitter {
	return &emitterImpl{mapper: m, opts: opts}
}

// Emit walks h in discovery order. headerRef is the path written into every
// extern block; when empty the header's own path is used.
func (e *emitterImpl) Emit(h *decl.Header, headerRef string) *Result {
	return e.run(h, headerRef).result()
}

func (e *emitterImpl) run(h *decl.Header, headerRef string) *emission {
	if headerRef == "" && h != nil {
		headerRef = h.Path
	}
	em := newEmission(e, headerRef, cimport.New())
	if h != nil {
		decl.Walk(em, h.Decls)
	}
	em.finish()
	return em
}
