package cli

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mckib2/cythonator/internal/decl"
	"github.com/mckib2/cythonator/internal/emitter"
	"github.com/mckib2/cythonator/internal/generator"
	"github.com/mckib2/cythonator/internal/logger"
	"github.com/mckib2/cythonator/internal/matcher"
	"github.com/mckib2/cythonator/internal/parser"
)

// Runner orchestrates parser/matcher/emitter/generator layers.
type Runner interface {
	Run(cfg *Config) error
}

type runnerImpl struct {
	parser    parser.Parser
	matcher   matcher.DeclMatcher
	emitter   emitter.Emitter
	generator generator.Generator

	dumpMu  sync.Mutex
	dumpOut io.Writer
}

// NewRunner creates a default runner implementation.
func NewRunner(
	p parser.Parser,
	m matcher.DeclMatcher,
	e emitter.Emitter,
	g generator.Generator,
) Runner {
	return &runnerImpl{
		parser:    p,
		matcher:   m,
		emitter:   e,
		generator: g,
		dumpOut:   os.Stderr,
	}
}

// Run generates one stub per configured header. Up to cfg.Jobs headers are
// processed at once; the first failure is returned after in-flight headers
// finish.
func (r *runnerImpl) Run(cfg *Config) error {
	if len(cfg.Headers) == 0 {
		return errors.New("no headers to process")
	}
	jobs := cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}

	var g errgroup.Group
	g.SetLimit(jobs)
	for _, header := range cfg.Headers {
		header := header
		g.Go(func() error {
			return r.runHeader(cfg, header)
		})
	}
	return g.Wait()
}

func (r *runnerImpl) runHeader(cfg *Config, header string) error {
	start := time.Now()

	h, err := r.parser.Parse(header)
	if err != nil {
		return errors.Wrapf(err, "parse %s", header)
	}

	matched := r.matcher.Match(h, cfg.Filter())
	if cfg.DumpDecls {
		if err := r.dump(matched); err != nil {
			return errors.Wrap(err, "dump declarations")
		}
	}

	res := r.emitter.Emit(matched, cfg.HeaderRef)

	out := cfg.OutputFor(header)
	if err := r.generator.Generate(outputFile(out), res); err != nil {
		return errors.Wrapf(err, "generate %s", out)
	}

	logger.Logger.Infow("stub generated",
		logger.FieldHeader, header,
		logger.FieldOutput, out,
		logger.FieldCount, len(matched.Decls),
		"imports", len(res.Imports),
		"aggregates", len(res.Aggregates),
		logger.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (r *runnerImpl) dump(h *decl.Header) error {
	r.dumpMu.Lock()
	defer r.dumpMu.Unlock()
	return writeDeclDump(r.dumpOut, h)
}
