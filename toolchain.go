package mdpdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/alnah/go-mdpdf/internal/fileutil"
	"github.com/alnah/go-mdpdf/internal/process"
)

// CommandRunner abstracts external command execution for testability.
type CommandRunner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) error
}

// ExecRunner runs real processes. Each invocation runs in its own process
// group which is killed on timeout or cancellation.
type ExecRunner struct{}

var _ CommandRunner = ExecRunner{}

func (ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	_, err := process.Run(ctx, timeout, name, args...)
	return err
}

// toolRoute is one external conversion method.
type toolRoute interface {
	strategy() Strategy
	// supported reports whether the route applies to the platform at all.
	supported(goos string) bool
	convert(ctx context.Context, tc *toolChain, paths Paths) error
}

// toolChain tries external converters in fixed order until one succeeds.
type toolChain struct {
	routes   []toolRoute
	runner   CommandRunner
	timeout  time.Duration
	goos     string
	reporter Reporter
	now      func() time.Time
}

func newToolChain(cfg converterConfig, runner CommandRunner, goos string, r Reporter) *toolChain {
	return &toolChain{
		routes: []toolRoute{
			textutilRoute{bin: cfg.textutilBin},
			pandocRoute{bin: cfg.pandocBin, pdfEngine: cfg.pdfEngine},
		},
		runner:   runner,
		timeout:  cfg.toolTimeout,
		goos:     goos,
		reporter: r,
		now:      time.Now,
	}
}

// run returns the strategy that produced the PDF, and one attempt per route
// that was tried. Routes that do not apply to the platform are skipped.
// Cancellation stops the chain.
func (tc *toolChain) run(ctx context.Context, paths Paths) (Strategy, []Attempt) {
	tc.reporter.Step("Trying system-based conversion...")

	var attempts []Attempt
	for _, route := range tc.routes {
		if !route.supported(tc.goos) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		start := tc.now()
		err := guard(KindToolFailure, route.strategy(), func() error {
			return route.convert(ctx, tc, paths)
		})
		attempts = append(attempts, Attempt{Strategy: route.strategy(), Err: err, Duration: tc.now().Sub(start)})

		if err == nil {
			tc.reporter.Success(fmt.Sprintf("PDF created using %s: %s", route.strategy(), paths.PDF))
			return route.strategy(), attempts
		}
		tc.reporter.Failure(fmt.Sprintf("%s conversion failed", route.strategy()), err)
	}
	return "", attempts
}

// lookup checks that bin is on PATH.
func (tc *toolChain) lookup(s Strategy, bin string) error {
	if _, err := tc.runner.LookPath(bin); err != nil {
		return newStepError(KindToolUnavailable, s, bin, fmt.Errorf("%w: %s: %v", ErrToolNotFound, bin, err))
	}
	return nil
}

// exec runs one tool invocation under the per-tool timeout.
func (tc *toolChain) exec(ctx context.Context, s Strategy, bin string, args ...string) error {
	if err := tc.runner.Run(ctx, tc.timeout, bin, args...); err != nil {
		if ctx.Err() != nil {
			return newStepError(KindToolFailure, s, bin, ctx.Err())
		}
		return newStepError(KindToolFailure, s, bin, fmt.Errorf("%w: %w", ErrToolFailed, err))
	}
	return nil
}

// verifyOutput checks that the tool actually wrote path during this run.
func (tc *toolChain) verifyOutput(s Strategy, path string, since time.Time) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 ||
		info.ModTime().Before(since.Truncate(time.Second)) {
		return newStepError(KindToolFailure, s, "verify output", fmt.Errorf("%w: %s", ErrNoOutput, path))
	}
	return nil
}

// textutilRoute converts Markdown to RTF then RTF to PDF with macOS textutil.
type textutilRoute struct {
	bin string
}

func (textutilRoute) strategy() Strategy { return StrategyTextutil }

func (textutilRoute) supported(goos string) bool { return goos == "darwin" }

// convert removes the intermediate RTF once it was produced, whether or not
// the PDF step succeeds. A failed RTF step leaves whatever it wrote.
func (r textutilRoute) convert(ctx context.Context, tc *toolChain, paths Paths) error {
	if err := tc.lookup(StrategyTextutil, r.bin); err != nil {
		return err
	}

	start := tc.now()
	if err := tc.exec(ctx, StrategyTextutil, r.bin, "-convert", "rtf", paths.Source, "-output", paths.RTF); err != nil {
		return err
	}
	defer func() {
		if _, rmErr := fileutil.RemoveIfExists(paths.RTF); rmErr != nil {
			tc.reporter.Warn(fmt.Sprintf("could not remove %s: %v", paths.RTF, rmErr))
		}
	}()

	if err := tc.exec(ctx, StrategyTextutil, r.bin, "-convert", "pdf", paths.RTF, "-output", paths.PDF); err != nil {
		return err
	}
	return tc.verifyOutput(StrategyTextutil, paths.PDF, start)
}

// pandocRoute converts Markdown straight to PDF with pandoc and an
// HTML-based PDF engine.
type pandocRoute struct {
	bin       string
	pdfEngine string
}

func (pandocRoute) strategy() Strategy { return StrategyPandoc }

func (pandocRoute) supported(string) bool { return true }

func (r pandocRoute) convert(ctx context.Context, tc *toolChain, paths Paths) error {
	if err := tc.lookup(StrategyPandoc, r.bin); err != nil {
		return err
	}

	start := tc.now()
	if err := tc.exec(ctx, StrategyPandoc, r.bin, paths.Source, "-o", paths.PDF, "--pdf-engine="+r.pdfEngine); err != nil {
		return err
	}
	return tc.verifyOutput(StrategyPandoc, paths.PDF, start)
}

// guard runs fn and converts a panic into a tagged error so one broken
// strategy cannot abort the chain.
func guard(kind Kind, s Strategy, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newStepError(kind, s, string(s), fmt.Errorf("internal error: %v", r))
		}
	}()
	return fn()
}
