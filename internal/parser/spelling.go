package parser

import "strings"

// declSpecifiers may precede a return type without being part of it.
var declSpecifiers = map[string]struct{}{
	"extern":    {},
	"static":    {},
	"inline":    {},
	"constexpr": {},
	"virtual":   {},
	"explicit":  {},
	"friend":    {},
}

// splitFunctionType splits a clang function qualType such as
// "unsigned short (int, ...)" into its return type and parameter list.
// The parameter list starts at the first top-level "(" that does not open
// a pointer, reference or block declarator.
func splitFunctionType(qualType string) (ret, params string) {
	depth := 0
	for i := 0; i < len(qualType); i++ {
		switch qualType[i] {
		case '<', '[':
			depth++
		case '>', ']':
			depth--
		case '(':
			if depth == 0 && !opensDeclarator(qualType[i+1:]) {
				return strings.TrimSpace(qualType[:i]), qualType[i:]
			}
			depth++
		case ')':
			depth--
		}
	}
	return strings.TrimSpace(qualType), ""
}

func opensDeclarator(rest string) bool {
	rest = strings.TrimLeft(rest, " ")
	return rest != "" && strings.ContainsRune("*&^", rune(rest[0]))
}

// endsVariadic reports whether a parameter list such as "(int, ...)" ends
// in an ellipsis, ignoring trailing qualifiers like noexcept.
func endsVariadic(params string) bool {
	if i := strings.LastIndexByte(params, ')'); i >= 0 {
		return strings.HasSuffix(strings.TrimSpace(params[:i]), "...")
	}
	return false
}

// source gives access to the text of the main file so types can be spelled
// the way the header writes them ("unsigned short int") rather than clang's
// canonical form ("unsigned short").
type source struct {
	text []byte
}

func (s source) slice(begin, end uint) (string, bool) {
	if s.text == nil || begin >= end || int(end) > len(s.text) {
		return "", false
	}
	return string(s.text[begin:end]), true
}

// inMain reports whether l is a plain location in the main file.
func inMain(l *loc) bool {
	return l != nil && l.SpellingLoc == nil && l.ExpansionLoc == nil &&
		l.IncludedFrom == nil && l.File != "" && !strings.HasPrefix(l.File, "<")
}

// returnSpelling recovers the written return type of a function declared
// in the main file: the text between the start of the declaration and the
// function name. canonical is clang's spelling of the same type.
func (s source) returnSpelling(n *node, canonical string) (string, bool) {
	if !inMain(&n.Loc) || !inMain(n.Range.Begin) {
		return "", false
	}
	text, ok := s.slice(n.Range.Begin.Offset, n.Loc.Offset)
	if !ok {
		return "", false
	}
	words := strings.Fields(text)
	for len(words) > 0 {
		if _, spec := declSpecifiers[words[0]]; !spec {
			break
		}
		words = words[1:]
	}
	return checkedSpelling(strings.Join(words, " "), canonical)
}

// paramSpelling recovers the written type of a parameter. A named parameter
// runs up to its name; an unnamed one spans its whole range.
func (s source) paramSpelling(n *node) (string, bool) {
	var canonical string
	if n.Type != nil {
		canonical = n.Type.QualType
		if strings.ContainsAny(canonical+n.Type.DesugaredQualType, "[(") {
			// Arrays and function pointers put part of the type after the name.
			return "", false
		}
	}
	if !inMain(n.Range.Begin) {
		return "", false
	}
	var text string
	var ok bool
	if n.Name != "" {
		if !inMain(&n.Loc) {
			return "", false
		}
		text, ok = s.slice(n.Range.Begin.Offset, n.Loc.Offset)
	} else {
		if !inMain(n.Range.End) {
			return "", false
		}
		text, ok = s.slice(n.Range.Begin.Offset, n.Range.End.Offset+n.Range.End.TokLen)
	}
	if !ok {
		return "", false
	}
	return checkedSpelling(strings.Join(strings.Fields(text), " "), canonical)
}

// checkedSpelling rejects recovered text that cannot be a plain type, that
// declares a different number of pointer or reference levels than clang's
// canonical spelling (an array parameter decays to a pointer), or that hides
// a canonical _Bool behind a macro such as stdbool.h's bool.
func checkedSpelling(s, canonical string) (string, bool) {
	switch {
	case s == "", s == "auto":
		return "", false
	case strings.ContainsAny(s, "()=[;{"):
		return "", false
	case strings.HasSuffix(s, "::"):
		return "", false
	case strings.Contains(canonical, "_Bool") && !strings.Contains(s, "_Bool"):
		return "", false
	}
	if canonical != "" {
		for _, d := range []string{"*", "&"} {
			if strings.Count(s, d) != strings.Count(canonical, d) {
				return "", false
			}
		}
	}
	return s, true
}
