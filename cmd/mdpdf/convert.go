package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-mdpdf"
	"github.com/alnah/go-mdpdf/internal/config"
	"github.com/alnah/go-mdpdf/internal/hints"
)

// Sentinel errors for CLI argument handling.
var (
	ErrNoInput       = errors.New("no input specified")
	ErrTooManyInputs = errors.New("exactly one input file expected")
)

// runConvertCmd parses convert flags, runs the conversion and returns the
// exit code.
func runConvertCmd(args []string, env *Environment) int {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "Error: %v\n", err)
		return ExitUsage
	}

	if err := runConvert(context.Background(), positional, flags, env); err != nil {
		printError(env, err, flags.common.verbose)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runConvert resolves configuration and converts a single file.
func runConvert(ctx context.Context, positional []string, flags *convertFlags, env *Environment) error {
	input, err := resolveInput(positional)
	if err != nil {
		return err
	}

	warnUnknownEnvVars(env.Stderr, env.Environ())

	cfg, err := resolveConfig(flags, env)
	if err != nil {
		return err
	}

	opts := buildOptions(flags, cfg, env)

	reporter := mdpdf.NewTerminalReporter(env.Stdout, mdpdf.ReporterOptions{
		Quiet:   flags.common.quiet,
		Verbose: flags.common.verbose,
		NoColor: flags.common.noColor,
	})
	opts = append(opts, mdpdf.WithReporter(reporter))

	ctx, stop := notifyContext(ctx)
	defer stop()
	// After the first signal, a second one terminates the process.
	context.AfterFunc(ctx, stop)

	start := env.Now()
	res, err := mdpdf.NewConverter(opts...).ConvertFile(ctx, input, flags.output)
	reporter.Summary(res)
	if flags.common.verbose && !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "Finished in %s\n", env.Now().Sub(start).Round(time.Millisecond))
	}
	return err
}

// resolveInput returns the single positional input.
func resolveInput(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", ErrNoInput
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: got %d", ErrTooManyInputs, len(args))
	}
}

// resolveConfig loads the config file, then applies env vars and flags.
// Precedence: CLI flags > env vars > config file > defaults.
func resolveConfig(flags *convertFlags, env *Environment) (*config.Config, error) {
	envCfg, err := loadEnvConfig(env.Getenv)
	if err != nil {
		return nil, err
	}

	name := flags.common.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		if cfg, err = config.LoadConfig(name); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. Set flags win.
func mergeFlags(flags *convertFlags, cfg *config.Config) {
	if flags.timeout != "" {
		cfg.Timeout = flags.timeout
	}
	if flags.toolTimeout != "" {
		cfg.Tools.Timeout = flags.toolTimeout
	}
	if flags.browser.install {
		cfg.Browser.Install = true
	}
	if flags.browser.noSandbox {
		cfg.Browser.NoSandbox = true
	}
	if flags.keepHTML {
		cfg.Output.KeepHTML = true
	}
}

// buildOptions translates a validated config into converter options.
func buildOptions(flags *convertFlags, cfg *config.Config, env *Environment) []mdpdf.Option {
	opts := []mdpdf.Option{
		mdpdf.WithBrowserBin(cfg.Browser.Bin),
		mdpdf.WithBrowserInstall(cfg.Browser.Install),
		mdpdf.WithNoSandbox(cfg.Browser.NoSandbox),
		mdpdf.WithKeepHTML(cfg.Output.KeepHTML),
		mdpdf.WithSkipLibrary(flags.skipLibrary),
		mdpdf.WithPandoc(cfg.Tools.Pandoc, cfg.Tools.PDFEngine),
		mdpdf.WithTextutil(cfg.Tools.Textutil),
	}
	if d := cfg.RenderTimeout(); d > 0 {
		opts = append(opts, mdpdf.WithTimeout(d))
	}
	if d := cfg.ToolTimeout(); d > 0 {
		opts = append(opts, mdpdf.WithToolTimeout(d))
	}
	if env.Runner != nil {
		opts = append(opts, mdpdf.WithCommandRunner(env.Runner))
	}
	return opts
}

// printError writes err with actionable hints. A total failure already
// printed its manual options, so only the summary line and hints follow.
func printError(env *Environment, err error, verbose bool) {
	msg := err.Error()
	if errors.Is(err, mdpdf.ErrAllStrategiesFailed) && !verbose {
		msg = mdpdf.ErrAllStrategiesFailed.Error()
	}
	fmt.Fprintf(env.Stderr, "Error: %s%s\n", msg, hintsFor(err, env.GOOS))
}

// hintsFor returns the hints matching every failure found in err.
func hintsFor(err error, goos string) string {
	var sb strings.Builder
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		sb.WriteString(hints.ForConfigNotFound(searchedPaths(err)))
	case errors.Is(err, ErrNoInput), errors.Is(err, mdpdf.ErrSourceNotFound),
		errors.Is(err, mdpdf.ErrSourceNotFile), errors.Is(err, mdpdf.ErrInvalidExtension):
		sb.WriteString(hints.ForMissingInput())
	}

	if errors.Is(err, mdpdf.ErrBrowserNotFound) {
		sb.WriteString(hints.ForBrowserNotFound())
	}
	if errors.Is(err, mdpdf.ErrBrowserConnect) {
		sb.WriteString(hints.ForBrowserConnect())
	}
	if errors.Is(err, mdpdf.ErrToolTimeout) || errors.Is(err, context.DeadlineExceeded) {
		sb.WriteString(hints.ForTimeout())
	}
	if errors.Is(err, mdpdf.ErrToolNotFound) {
		sb.WriteString(hints.ForToolUnavailable(goos))
	}
	return sb.String()
}

// searchedPaths extracts the "tried a, b" list from a config lookup error.
func searchedPaths(err error) []string {
	_, tried, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(tried, ", ")
}
