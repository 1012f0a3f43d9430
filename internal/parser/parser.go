// Package parser adapts clang's JSON AST dump into the Declaration Model.
package parser

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"

	"github.com/mckib2/cythonator/internal/decl"
	"github.com/mckib2/cythonator/internal/logger"
)

// MinClangVersion is the oldest clang that can dump its AST as JSON.
const MinClangVersion = ">= 9.0.0"

// DefaultClang is the driver run when Options.Clang is empty.
const DefaultClang = "clang++"

// Options selects where the AST comes from.
type Options struct {
	Clang     string
	ClangArgs []string
	// ASTDump is a file holding a JSON AST produced earlier. When set, clang
	// is not run.
	ASTDump string
}

// Parser extracts declarations from a C/C++ header.
type Parser interface {
	Parse(headerPath string) (*decl.Header, error)
}

type commandRunner func(name string, args ...string) (stdout, stderr []byte, err error)

type parserImpl struct {
	opts Options
	run  commandRunner

	versionOnce sync.Once
	versionErr  error
}

// New returns a parser. It is safe for concurrent use; the clang version is
// checked once, on the first Parse that runs clang.
func New(opts Options) Parser {
	return newParser(opts, execCommand)
}

func newParser(opts Options, run commandRunner) *parserImpl {
	if opts.Clang == "" {
		opts.Clang = DefaultClang
	}
	return &parserImpl{opts: opts, run: run}
}

func (p *parserImpl) Parse(headerPath string) (*decl.Header, error) {
	log := logger.Named("parser")

	abs, err := filepath.Abs(headerPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve header %q", headerPath)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		if p.opts.ASTDump == "" {
			return nil, errors.Wrapf(err, "read header %q", headerPath)
		}
		log.Debugw("header source unavailable, using clang spellings", logger.FieldHeader, abs, logger.FieldError, err)
		src = nil
	}

	if p.opts.ASTDump != "" {
		return p.parseDump(abs, src)
	}

	if err := p.checkVersion(); err != nil {
		return nil, err
	}

	args := append([]string{"-Xclang", "-ast-dump=json", "-fsyntax-only"}, p.opts.ClangArgs...)
	args = append(args, abs)
	log.Debugw("running clang", logger.FieldCommand, shellquote.Join(append([]string{p.opts.Clang}, args...)...))

	stdout, stderr, err := p.run(p.opts.Clang, args...)
	if err != nil {
		if diag := strings.TrimSpace(string(stderr)); diag != "" {
			return nil, errors.Wrapf(err, "clang failed on %s:\n%s", headerPath, diag)
		}
		return nil, errors.Wrapf(err, "clang failed on %s", headerPath)
	}
	if diag := strings.TrimSpace(string(stderr)); diag != "" {
		log.Warnw("clang diagnostics", logger.FieldHeader, abs, "diagnostics", diag)
	}

	h, err := Decode(bytes.NewReader(stdout), abs, src)
	if err != nil {
		return nil, errors.Wrap(err, "clang output")
	}
	return h, nil
}

func (p *parserImpl) parseDump(header string, src []byte) (*decl.Header, error) {
	f, err := os.Open(p.opts.ASTDump)
	if err != nil {
		return nil, errors.Wrap(err, "open AST dump")
	}
	defer f.Close()

	h, err := Decode(f, header, src)
	if err != nil {
		return nil, errors.Wrapf(err, "AST dump %s", p.opts.ASTDump)
	}
	return h, nil
}

func (p *parserImpl) checkVersion() error {
	p.versionOnce.Do(func() {
		p.versionErr = p.verifyClang()
	})
	return p.versionErr
}

func (p *parserImpl) verifyClang() error {
	stdout, _, err := p.run(p.opts.Clang, "--version")
	if err != nil {
		return errors.WithHintf(
			errors.Wrapf(err, "run %s --version", p.opts.Clang),
			"install clang %s or point --clang at a clang driver", MinClangVersion)
	}
	v, err := ParseClangVersion(string(stdout))
	if err != nil {
		return errors.WithHintf(err, "%s does not look like clang", p.opts.Clang)
	}
	constraint, err := semver.NewConstraint(MinClangVersion)
	if err != nil {
		return errors.Wrap(err, "clang version constraint")
	}
	if !constraint.Check(v) {
		return errors.WithHint(
			errors.Newf("%s is clang %s, need %s", p.opts.Clang, v, MinClangVersion),
			"JSON AST dumps first shipped with clang 9")
	}
	logger.Named("parser").Debugw("clang version accepted", logger.FieldCommand, p.opts.Clang, logger.FieldVersion, v.String())
	return nil
}

var clangVersionPattern = regexp.MustCompile(`clang version (\d+)\.(\d+)(?:\.(\d+))?`)

// ParseClangVersion extracts the version number from `clang --version`
// output, dropping vendor suffixes such as "-1ubuntu1".
func ParseClangVersion(out string) (*semver.Version, error) {
	m := clangVersionPattern.FindStringSubmatch(out)
	if m == nil {
		first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
		return nil, errors.Newf("no clang version in %q", first)
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v, err := semver.NewVersion(m[1] + "." + m[2] + "." + patch)
	if err != nil {
		return nil, errors.Wrap(err, "clang version")
	}
	return v, nil
}

func execCommand(name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
