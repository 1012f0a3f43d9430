package cli

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mckib2/cythonator/internal/matcher"
	"github.com/mckib2/cythonator/internal/parser"
)

// ParseArgs parses command line arguments into Config. When --config names
// a file, its values fill every flag that was not given explicitly.
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}

	fs := pflag.NewFlagSet("cythonator", pflag.ContinueOnError)
	fs.StringArrayP("header", "H", nil, "C/C++ header to bind (repeatable)")
	fs.StringP("output", "o", DefaultOutput, "output file, - for stdout")
	fs.String("output-dir", "", "write <header>.pxd files into this directory")
	fs.String("header-ref", "", "path written into extern blocks (default: absolute header path)")
	fs.String("ast-json", "", "read a clang JSON AST dump instead of running clang")
	fs.String("clang", parser.DefaultClang, "clang driver used to dump the AST")
	fs.String("clang-args", "", "extra clang arguments, shell-quoted")
	fs.StringVarP(&cfg.ConfigFile, "config", "c", "", "config file (yaml, toml or json)")
	fs.String("ignore", "", "comma-separated globs of declaration names to skip")
	fs.Bool("follow-includes", false, "also bind declarations from included headers")
	fs.Bool("emit-aggregates", false, "emit struct, class and union bodies")
	fs.Bool("emit-typedefs", false, "emit ctypedef lines for plain typedefs")
	fs.Bool("dump-decls", false, "print the matched declarations as YAML to stderr")
	fs.IntP("jobs", "j", 1, "headers processed in parallel")
	fs.BoolP("watch", "w", false, "regenerate when a header changes")
	fs.Bool("verbose", false, "debug logging")
	fs.Bool("log-json", false, "JSON log output")
	fs.BoolVarP(&cfg.ShowVersion, "version", "v", false, "show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	if cfg.ConfigFile != "" {
		v.SetConfigFile(cfg.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithHint(
				errors.Wrapf(err, "read config file %s", cfg.ConfigFile),
				"supported formats are yaml, toml and json, chosen by extension")
		}
	}

	if err := fill(cfg, v, fs.Args()); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fill(cfg *Config, v *viper.Viper, positional []string) error {
	cfg.Headers = append(nonEmpty(v.GetStringSlice("header")), positional...)
	cfg.Output = strings.TrimSpace(v.GetString("output"))
	cfg.OutputDir = strings.TrimSpace(v.GetString("output-dir"))
	cfg.HeaderRef = strings.TrimSpace(v.GetString("header-ref"))
	cfg.ASTDump = strings.TrimSpace(v.GetString("ast-json"))
	cfg.Clang = strings.TrimSpace(v.GetString("clang"))
	cfg.Ignore = stringList(v, "ignore")
	cfg.FollowIncludes = v.GetBool("follow-includes")
	cfg.EmitAggregates = v.GetBool("emit-aggregates")
	cfg.EmitTypedefs = v.GetBool("emit-typedefs")
	cfg.DumpDecls = v.GetBool("dump-decls")
	cfg.Jobs = v.GetInt("jobs")
	cfg.Watch = v.GetBool("watch")
	cfg.Verbose = v.GetBool("verbose")
	cfg.JSONLog = v.GetBool("log-json")

	clangArgs, err := shellArgs(v, "clang-args")
	if err != nil {
		return err
	}
	cfg.ClangArgs = clangArgs

	if err := v.UnmarshalKey("type-rules", &cfg.TypeRules); err != nil {
		return errors.Wrap(err, "type-rules")
	}
	return nil
}

func validate(cfg *Config) error {
	if len(cfg.Headers) == 0 {
		return errors.New("--header is required")
	}
	if cfg.Output == "" && cfg.OutputDir == "" {
		return errors.New("--output must not be empty")
	}
	if cfg.Jobs < 1 {
		return errors.Newf("--jobs must be at least 1, got %d", cfg.Jobs)
	}
	if len(cfg.Headers) > 1 {
		if cfg.OutputDir == "" {
			return errors.WithHint(
				errors.Newf("--output-dir is required with %d headers", len(cfg.Headers)),
				"each header is written to <output-dir>/<header name>.pxd")
		}
		if cfg.HeaderRef != "" {
			return errors.New("--header-ref applies to a single header")
		}
		if cfg.ASTDump != "" {
			return errors.New("--ast-json applies to a single header")
		}
	}
	if cfg.Watch && cfg.ASTDump != "" {
		return errors.New("--watch cannot be combined with --ast-json")
	}
	if err := matcher.ValidatePatterns(cfg.Ignore); err != nil {
		return errors.Wrap(err, "--ignore")
	}
	if _, err := cfg.Mapper(); err != nil {
		return err
	}
	return nil
}

// stringList reads a key given either as a comma-separated string (the
// flag form) or as a list (the config file form).
func stringList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitCommaList(s)
	}
	return splitCommaList(strings.Join(v.GetStringSlice(key), ","))
}

// shellArgs reads a key given either as one shell-quoted string or as a
// list of arguments.
func shellArgs(v *viper.Viper, key string) ([]string, error) {
	s, ok := v.Get(key).(string)
	if !ok {
		return nonEmpty(v.GetStringSlice(key)), nil
	}
	args, err := shellquote.Split(s)
	if err != nil {
		return nil, errors.Wrapf(err, "--%s", key)
	}
	return args, nil
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func splitCommaList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
