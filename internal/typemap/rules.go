package typemap

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mckib2/cythonator/internal/decl"
)

// BoolImport brings the C++ bool type into a Cython module.
const BoolImport = "from libcpp cimport bool"

// DefaultRules returns the built-in rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		BoolRule(),
	}
}

// BoolRule rewrites the C _Bool primitive to Cython's bool.
func BoolRule() *SubstitutionRule {
	return &SubstitutionRule{
		name:    "bool",
		pattern: regexp.MustCompile(`\b_Bool\b`),
		replace: "bool",
		imp:     BoolImport,
	}
}

// SubstitutionRule rewrites every match of a pattern in the type spelling.
// The replacement may reference capture groups as $1, ${name}.
type SubstitutionRule struct {
	name    string
	pattern *regexp.Regexp
	replace string
	imp     string
}

// NewSubstitutionRule compiles pattern into a rule. An empty name defaults
// to the pattern text.
func NewSubstitutionRule(name, pattern, replace, imp string) (*SubstitutionRule, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.Newf("type rule %q: empty pattern", name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "type rule %q", name)
	}
	if name == "" {
		name = pattern
	}
	return &SubstitutionRule{
		name:    name,
		pattern: re,
		replace: replace,
		imp:     strings.TrimSpace(imp),
	}, nil
}

func (r *SubstitutionRule) Name() string { return r.name }

func (r *SubstitutionRule) Try(t decl.NativeType) (Mapping, bool) {
	if !r.pattern.MatchString(t.Spelling) {
		return Mapping{}, false
	}
	return Mapping{
		Type:   r.pattern.ReplaceAllString(t.Spelling, r.replace),
		Import: r.imp,
	}, true
}

// Spec is the configuration-file form of a substitution rule.
type Spec struct {
	Name    string `mapstructure:"name"`
	Pattern string `mapstructure:"pattern"`
	Replace string `mapstructure:"replace"`
	Import  string `mapstructure:"import"`
}

// FromSpecs compiles specs into rules, preserving order.
func FromSpecs(specs []Spec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, s := range specs {
		rule, err := NewSubstitutionRule(s.Name, s.Pattern, s.Replace, s.Import)
		if err != nil {
			return nil, errors.Wrapf(err, "type-rules[%d]", i)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
