package cli

import (
	"path/filepath"
	"strings"

	"github.com/mckib2/cythonator/internal/emitter"
	"github.com/mckib2/cythonator/internal/matcher"
	"github.com/mckib2/cythonator/internal/parser"
	"github.com/mckib2/cythonator/internal/typemap"
)

// DefaultOutput is the stub written for a single header.
const DefaultOutput = "wrapper.pyx"

// Config stores CLI options for a generation run.
type Config struct {
	Headers   []string
	Output    string
	OutputDir string
	// HeaderRef overrides the path written into extern blocks.
	HeaderRef string
	ASTDump   string
	Clang     string
	ClangArgs []string

	ConfigFile     string
	Ignore         []string
	FollowIncludes bool
	EmitAggregates bool
	EmitTypedefs   bool
	TypeRules      []typemap.Spec

	DumpDecls   bool
	Jobs        int
	Watch       bool
	Verbose     bool
	JSONLog     bool
	ShowVersion bool
}

// OutputFilename returns destination file path for generator layer.
func (c *Config) OutputFilename() string {
	return c.Output
}

// OutputFor returns where the stub of header goes. With an output
// directory every header gets <base name>.pxd there.
func (c *Config) OutputFor(header string) string {
	if c.OutputDir == "" {
		return c.OutputFilename()
	}
	base := filepath.Base(header)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.OutputDir, base+".pxd")
}

// ParserOptions selects how headers are turned into ASTs.
func (c *Config) ParserOptions() parser.Options {
	return parser.Options{Clang: c.Clang, ClangArgs: c.ClangArgs, ASTDump: c.ASTDump}
}

// Filter returns the declaration filter.
func (c *Config) Filter() matcher.Filter {
	return matcher.Filter{FollowIncludes: c.FollowIncludes, Ignore: c.Ignore}
}

// EmitterOptions returns the opt-in emission paths.
func (c *Config) EmitterOptions() emitter.Options {
	return emitter.Options{EmitAggregates: c.EmitAggregates, EmitTypedefs: c.EmitTypedefs}
}

// Mapper builds the type mapper: the built-in rules followed by the
// configured ones.
func (c *Config) Mapper() (typemap.Mapper, error) {
	extra, err := typemap.FromSpecs(c.TypeRules)
	if err != nil {
		return nil, err
	}
	return typemap.New(append(typemap.DefaultRules(), extra...)...), nil
}

type outputFile string

func (o outputFile) OutputFilename() string { return string(o) }
