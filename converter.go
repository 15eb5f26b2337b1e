package mdpdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/alnah/go-mdpdf/internal/pipeline"
)

// dependencyEnsurer resolves the browser used by the library pipeline.
type dependencyEnsurer interface {
	EnsureDependencies(ctx context.Context) (string, error)
}

var _ dependencyEnsurer = (*Preflight)(nil)

// Converter runs the fallback chain: library pipeline first, then external
// tools, then manual instructions. Create with NewConverter.
type Converter struct {
	cfg      converterConfig
	reporter Reporter
	runner   CommandRunner

	goos        string
	ensurer     dependencyEnsurer
	newRenderer func(browserBin string) pdfRenderer
	html        markdownRenderer
	now         func() time.Time
}

// NewConverter creates a Converter with default configuration.
// Panics from invalid options (non-positive timeouts) surface here.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		cfg:      defaultConverterConfig(),
		reporter: nopReporter{},
		runner:   ExecRunner{},
		goos:     runtime.GOOS,
		html:     pipeline.NewGoldmarkConverter(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ensurer = NewPreflight(c.cfg.browserBin, c.cfg.installBrowser, c.reporter)
	c.newRenderer = func(bin string) pdfRenderer {
		return newRodRenderer(bin, c.cfg.noSandbox, c.cfg.timeout)
	}
	return c
}

// ConvertFile derives paths for source and output, then runs Convert.
func (c *Converter) ConvertFile(ctx context.Context, source, output string) (*Result, error) {
	paths, err := DerivePaths(source, output)
	if err != nil {
		c.reporter.Failure("Invalid input", err)
		return &Result{}, err
	}
	return c.Convert(ctx, paths)
}

// Convert produces paths.PDF with the first strategy that succeeds.
//
// A missing source fails immediately without trying any strategy. When every
// strategy fails the manual instructions are reported and the error joins
// ErrAllStrategiesFailed with each attempt's error. Cancellation stops the
// chain without manual instructions.
func (c *Converter) Convert(ctx context.Context, paths Paths) (*Result, error) {
	res := &Result{Paths: paths}

	if err := checkSource(paths.Source); err != nil {
		c.reporter.Failure("Markdown file not found: "+paths.Source, err)
		return res, err
	}

	c.reporter.Start(paths.Source)

	if c.cfg.skipLibrary {
		c.reporter.Step("Skipping library pipeline")
	} else {
		attempt := c.tryLibrary(ctx, paths)
		res.Attempts = append(res.Attempts, attempt)
		if attempt.Err == nil {
			res.Strategy = StrategyLibrary
			return res, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return res, joinAttempts(err, res.Attempts)
	}

	strategy, attempts := newToolChain(c.cfg, c.runner, c.goos, c.reporter).run(ctx, paths)
	res.Attempts = append(res.Attempts, attempts...)
	if strategy != "" {
		res.Strategy = strategy
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, joinAttempts(err, res.Attempts)
	}

	c.reporter.ManualInstructions()
	return res, joinAttempts(ErrAllStrategiesFailed, res.Attempts)
}

// tryLibrary runs the dependency check then the library pipeline.
func (c *Converter) tryLibrary(ctx context.Context, paths Paths) Attempt {
	start := c.now()
	err := guard(KindUnknown, StrategyLibrary, func() error {
		bin, err := c.ensurer.EnsureDependencies(ctx)
		if err != nil {
			return err
		}

		renderer := c.newRenderer(bin)
		defer func() { _ = renderer.Close() }()

		lp := &libraryPipeline{
			html:     c.html,
			renderer: renderer,
			keepHTML: c.cfg.keepHTML,
			reporter: c.reporter,
		}
		return lp.run(ctx, paths)
	})
	return Attempt{Strategy: StrategyLibrary, Err: err, Duration: c.now().Sub(start)}
}

// MarkdownToHTML converts a Markdown file to a styled standalone HTML page,
// overwriting htmlPath. Failures are KindHTMLConversion errors.
func (c *Converter) MarkdownToHTML(ctx context.Context, source, htmlPath string) error {
	return guard(KindHTMLConversion, StrategyLibrary, func() error {
		lp := &libraryPipeline{html: c.html, reporter: c.reporter}
		return lp.markdownToHTML(ctx, source, htmlPath)
	})
}

// HTMLToPDF renders an HTML file to an A4 PDF, overwriting pdfPath.
// A browser must be available (see Preflight). Failures are KindRender
// errors, or KindDependency when no browser can be found.
func (c *Converter) HTMLToPDF(ctx context.Context, htmlPath, pdfPath string) error {
	return guard(KindRender, StrategyLibrary, func() error {
		bin, err := c.ensurer.EnsureDependencies(ctx)
		if err != nil {
			return err
		}

		renderer := c.newRenderer(bin)
		defer func() { _ = renderer.Close() }()

		lp := &libraryPipeline{renderer: renderer, reporter: c.reporter}
		return lp.htmlToPDF(ctx, htmlPath, pdfPath)
	})
}

// checkSource verifies the Markdown source is an existing regular file.
func checkSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newStepError(KindMissingInput, "", "source", fmt.Errorf("%w: %s", ErrSourceNotFound, path))
		}
		return newStepError(KindMissingInput, "", "source", err)
	}
	if !info.Mode().IsRegular() {
		return newStepError(KindMissingInput, "", "source", fmt.Errorf("%w: %s", ErrSourceNotFile, path))
	}
	return nil
}

// joinAttempts joins head with every failed attempt's error.
func joinAttempts(head error, attempts []Attempt) error {
	errs := []error{head}
	for _, a := range attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errors.Join(errs...)
}
