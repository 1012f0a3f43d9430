// Package generator renders emitted declarations into a Cython stub file.
package generator

import (
	"bytes"
	"embed"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/cockroachdb/errors"

	"github.com/mckib2/cythonator/internal/emitter"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Tool is the generator name written into the banner.
const Tool = "cythonator"

// Stdout is the output filename that selects standard output.
const Stdout = "-"

// Generator renders and writes stub files.
type Generator interface {
	Generate(cfg Config, res *emitter.Result) error
	Render(res *emitter.Result) ([]byte, error)
}

// Config is the minimum config contract required by generator.
type Config interface {
	OutputFilename() string
}

// FileWriter writes generated stubs.
type FileWriter interface {
	Write(filename string, data []byte) error
}

type generatorImpl struct {
	writer FileWriter
	tmpl   *template.Template
}

type fileWriter struct {
	stdout io.Writer
}

type templateData struct {
	Tool    string
	Imports []string
	Decls   string
}

// New creates a stub generator.
func New(w FileWriter) Generator {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
	return &generatorImpl{writer: w, tmpl: tmpl}
}

// NewFileWriter creates a writer that replaces files atomically and writes
// to standard output for the name "-".
func NewFileWriter() FileWriter {
	return &fileWriter{stdout: os.Stdout}
}

func (g *generatorImpl) Generate(cfg Config, res *emitter.Result) error {
	out, err := g.Render(res)
	if err != nil {
		return err
	}
	if err := g.writer.Write(cfg.OutputFilename(), out); err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}

// Render lays out the banner, two blank lines, the imports, one blank line
// and the declaration text.
func (g *generatorImpl) Render(res *emitter.Result) ([]byte, error) {
	if res == nil {
		return nil, errors.New("no emission result")
	}
	var buf bytes.Buffer
	data := templateData{Tool: Tool, Imports: res.Imports, Decls: res.Decls}
	if err := g.tmpl.ExecuteTemplate(&buf, "stub.pyx.tmpl", data); err != nil {
		return nil, errors.Wrap(err, "template")
	}
	return buf.Bytes(), nil
}

// Write stages data in a temporary file next to filename and renames it
// into place, so a failed write never leaves a partial stub behind.
func (w *fileWriter) Write(filename string, data []byte) error {
	if filename == Stdout {
		if _, err := w.stdout.Write(data); err != nil {
			return errors.Wrap(err, "write to stdout")
		}
		return nil
	}

	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temporary file in %s", dir)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return errors.Wrapf(err, "replace %s", filename)
	}
	committed = true
	return nil
}
