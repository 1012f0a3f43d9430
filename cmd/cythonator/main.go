package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/mckib2/cythonator/internal/cli"
	"github.com/mckib2/cythonator/internal/emitter"
	"github.com/mckib2/cythonator/internal/generator"
	"github.com/mckib2/cythonator/internal/logger"
	"github.com/mckib2/cythonator/internal/matcher"
	"github.com/mckib2/cythonator/internal/parser"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := cli.ParseArgs(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fail(err)
		return 1
	}
	if cfg.ShowVersion {
		fmt.Println(version)
		return 0
	}

	if err := logger.Initialize(cfg.Verbose, cfg.JSONLog); err != nil {
		fail(errors.Wrap(err, "initialize logger"))
		return 1
	}
	defer logger.Cleanup()

	mapper, err := cfg.Mapper()
	if err != nil {
		fail(err)
		return 1
	}
	runner := cli.NewRunner(
		parser.New(cfg.ParserOptions()),
		matcher.New(),
		emitter.New(mapper, cfg.EmitterOptions()),
		generator.New(generator.NewFileWriter()),
	)

	start := time.Now()
	if err := runner.Run(cfg); err != nil {
		fail(err)
		return 1
	}
	if cfg.OutputDir != "" || cfg.Output != generator.Stdout {
		pterm.Success.WithWriter(os.Stderr).Printfln("generated %d stub file(s) in %s",
			len(cfg.Headers), time.Since(start).Round(time.Millisecond))
	}

	if !cfg.Watch {
		return 0
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := cli.NewWatcher(runner, cfg, cli.DefaultDebounce)
	if err != nil {
		fail(err)
		return 1
	}
	if err := w.Run(ctx); err != nil {
		fail(err)
		return 1
	}
	return 0
}

func fail(err error) {
	pterm.Error.WithWriter(os.Stderr).Println(err.Error())
	if hint := errors.FlattenHints(err); hint != "" {
		pterm.Info.WithWriter(os.Stderr).Println(hint)
	}
}
