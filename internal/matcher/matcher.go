// Package matcher selects which declarations of a header are bound.
package matcher

import (
	"path"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mckib2/cythonator/internal/decl"
	"github.com/mckib2/cythonator/internal/logger"
)

// Filter controls which declarations survive matching.
type Filter struct {
	// FollowIncludes keeps declarations that clang found in included files.
	FollowIncludes bool
	// Ignore holds path.Match globs tested against each declaration name and,
	// inside namespaces, against the qualified "ns::name" as well.
	Ignore []string
}

// DeclMatcher filters a parsed header.
type DeclMatcher interface {
	Match(h *decl.Header, f Filter) *decl.Header
}

type declMatcherImpl struct{}

// New returns the default declaration matcher.
func New() DeclMatcher {
	return &declMatcherImpl{}
}

// Match returns a new header holding the kept declarations in their
// original order. h is not modified.
func (m *declMatcherImpl) Match(h *decl.Header, f Filter) *decl.Header {
	if h == nil {
		return &decl.Header{}
	}
	pass := &matchPass{opts: f, ignore: toIgnoreList(f.Ignore), bound: map[string]bool{}}
	out := &decl.Header{Path: h.Path, Decls: pass.filter(nil, h.Decls)}
	logger.Named("matcher").Debugw("declarations matched",
		logger.FieldHeader, h.Path,
		logger.FieldCount, len(out.Decls),
		"dropped", pass.dropped)
	return out
}

type matchPass struct {
	opts   Filter
	ignore []string
	// bound holds the signature keys of functions kept so far.
	bound   map[string]bool
	dropped int
}

func (p *matchPass) filter(scope []string, decls []decl.Decl) []decl.Decl {
	kept := make([]decl.Decl, 0, len(decls))
	for _, d := range decls {
		if !p.keep(scope, d) {
			p.dropped++
			continue
		}
		ns, ok := d.(*decl.Namespace)
		if !ok {
			kept = append(kept, d)
			continue
		}
		children := p.filter(append(scope[:len(scope):len(scope)], ns.Name), ns.Decls)
		if len(children) == 0 {
			continue
		}
		kept = append(kept, &decl.Namespace{Name: ns.Name, Decls: children, Source: ns.Source})
	}
	return kept
}

func (p *matchPass) keep(scope []string, d decl.Decl) bool {
	if d.Origin().Included && !p.opts.FollowIncludes {
		return false
	}
	if p.ignored(scope, d.DeclName()) {
		return false
	}
	f, ok := d.(*decl.Function)
	if !ok {
		return true
	}
	// A redeclaration is dropped only when an earlier declaration was kept;
	// the first one may have been filtered as included.
	key := signatureKey(scope, f)
	if f.Redeclaration && p.bound[key] {
		return false
	}
	p.bound[key] = true
	return true
}

// signatureKey tells overloads of different arity apart.
func signatureKey(scope []string, f *decl.Function) string {
	key := decl.QualifiedName(scope, f.Name) + "/" + strconv.Itoa(len(f.Params))
	if f.Variadic {
		key += "+"
	}
	return key
}

func (p *matchPass) ignored(scope []string, name string) bool {
	if name == "" {
		return false
	}
	qualified := decl.QualifiedName(scope, name)
	for _, pattern := range p.ignore {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
		if qualified != name {
			if ok, _ := path.Match(pattern, qualified); ok {
				return true
			}
		}
	}
	return false
}

func toIgnoreList(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	list := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		list = append(list, p)
	}
	return list
}

// ValidatePatterns reports the first malformed ignore glob.
func ValidatePatterns(patterns []string) error {
	for _, p := range toIgnoreList(patterns) {
		if _, err := path.Match(p, ""); err != nil {
			return errors.Wrapf(err, "ignore pattern %q", p)
		}
	}
	return nil
}
