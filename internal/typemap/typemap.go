// Package typemap maps native C/C++ type spellings to Cython type spellings.
package typemap

import "github.com/mckib2/cythonator/internal/decl"

// Mapper maps a native type to its stub spelling.
type Mapper interface {
	Map(t decl.NativeType, reg Registrar) string
}

// Registrar receives the import directives a mapping depends on.
type Registrar interface {
	Register(token string)
}

// Rule tries to map one native type.
type Rule interface {
	Name() string
	Try(t decl.NativeType) (Mapping, bool)
}

// Mapping is the result of a matching rule. Import is empty when the
// replacement needs no directive.
type Mapping struct {
	Type   string
	Import string
}

type mapperImpl struct {
	rules []Rule
}

// New builds a mapper over an ordered rule chain.
func New(rules ...Rule) Mapper {
	return &mapperImpl{rules: rules}
}

// Map returns the spelling produced by the first matching rule, or the
// native spelling unchanged when no rule matches.
func (m *mapperImpl) Map(t decl.NativeType, reg Registrar) string {
	for _, rule := range m.rules {
		mapping, ok := rule.Try(t)
		if !ok {
			continue
		}
		if mapping.Import != "" && reg != nil {
			reg.Register(mapping.Import)
		}
		return mapping.Type
	}
	return t.Spelling
}
