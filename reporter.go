package mdpdf

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/alnah/go-mdpdf/internal/hints"
)

// OnlineConverterURL is suggested when every automatic strategy failed.
const OnlineConverterURL = "https://md-to-pdf.fly.dev/"

// Reporter receives human-readable progress from a conversion.
// Implementations must not affect the conversion itself.
type Reporter interface {
	Start(source string)
	Step(msg string)
	Success(msg string)
	Failure(msg string, err error)
	Warn(msg string)
	ManualInstructions()
}

// nopReporter discards everything. Used when no reporter is configured.
type nopReporter struct{}

func (nopReporter) Start(string) {}
func (nopReporter) Step(string) {}
func (nopReporter) Success(string) {}
func (nopReporter) Failure(string, error) {}
func (nopReporter) Warn(string) {}
func (nopReporter) ManualInstructions() {}

var _ Reporter = (*TerminalReporter)(nil)

// ReporterOptions controls TerminalReporter output.
type ReporterOptions struct {
	Quiet   bool // suppress progress; the manual instructions block is always printed
	Verbose bool // include error details and attempt durations
	NoColor bool
}

// TerminalReporter writes progress lines to a terminal or any writer.
// Colors are used only when the writer is a terminal and NO_COLOR is unset.
type TerminalReporter struct {
	w    io.Writer
	opts ReporterOptions
	goos string

	info *color.Color
	ok   *color.Color
	fail *color.Color
	warn *color.Color
	bold *color.Color
}

// NewTerminalReporter creates a TerminalReporter writing to w.
func NewTerminalReporter(w io.Writer, opts ReporterOptions) *TerminalReporter {
	r := &TerminalReporter{
		w:    w,
		opts: opts,
		goos: runtime.GOOS,
		info: color.New(color.FgCyan),
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		warn: color.New(color.FgYellow),
		bold: color.New(color.Bold),
	}

	enabled := !opts.NoColor && os.Getenv("NO_COLOR") == "" && isTerminal(w)
	for _, c := range []*color.Color{r.info, r.ok, r.fail, r.warn, r.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *TerminalReporter) Start(source string) {
	if r.opts.Quiet {
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.info.Sprint("Starting Markdown to PDF conversion:"), source)
}

func (r *TerminalReporter) Step(msg string) {
	if r.opts.Quiet {
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.info.Sprint("→"), msg)
}

func (r *TerminalReporter) Success(msg string) {
	if r.opts.Quiet {
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.ok.Sprint("✓"), msg)
}

func (r *TerminalReporter) Failure(msg string, err error) {
	if r.opts.Quiet {
		return
	}
	if r.opts.Verbose && err != nil {
		fmt.Fprintf(r.w, "%s %s: %v\n", r.fail.Sprint("✗"), msg, err)
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.fail.Sprint("✗"), msg)
}

func (r *TerminalReporter) Warn(msg string) {
	if r.opts.Quiet {
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.warn.Sprint("!"), msg)
}

// ManualInstructions prints the numbered list of manual fallbacks.
func (r *TerminalReporter) ManualInstructions() {
	fmt.Fprintf(r.w, "\n%s\n", r.fail.Sprint("Automatic conversion failed. Manual options:"))
	for i, line := range manualInstructions(r.goos) {
		fmt.Fprintf(r.w, "  %s %s\n", r.bold.Sprintf("%d.", i+1), line)
	}
}

// Summary prints one line per attempt with its duration. Verbose mode only.
func (r *TerminalReporter) Summary(res *Result) {
	if !r.opts.Verbose || r.opts.Quiet || res == nil {
		return
	}
	for _, a := range res.Attempts {
		status := r.ok.Sprint("ok")
		if a.Err != nil {
			status = r.fail.Sprint(KindOf(a.Err).String())
		}
		fmt.Fprintf(r.w, "  %-9s %-24s %s\n", a.Strategy, status, a.Duration.Round(time.Millisecond))
	}
}

// manualInstructions returns the four manual options for the given platform.
func manualInstructions(goos string) []string {
	return []string{
		"Use an online converter: " + OnlineConverterURL,
		"Open the file in a text editor and print to PDF",
		"Use VS Code with the Markdown PDF extension",
		"Install pandoc locally: " + hints.PandocInstallCommand(goos),
	}
}
