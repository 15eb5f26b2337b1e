package mdpdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Strategy names one method of producing the output PDF.
type Strategy string

// Strategies in priority order.
const (
	StrategyLibrary  Strategy = "library"
	StrategyTextutil Strategy = "textutil"
	StrategyPandoc   Strategy = "pandoc"
)

// Markdown extensions accepted for the source document.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// Paths holds every file the conversion reads or writes.
type Paths struct {
	Source string // Markdown input
	HTML   string // intermediate HTML (library pipeline)
	PDF    string // final output
	RTF    string // intermediate rich text (textutil route)
}

// DerivePaths builds Paths for a source document.
//
// The intermediate HTML always sits next to the source. The PDF defaults to
// <dir>/<base>.pdf; output may name a .pdf file or an existing directory.
func DerivePaths(source, output string) (Paths, error) {
	if source == "" {
		return Paths{}, newStepError(KindMissingInput, "", "source", ErrSourceNotFound)
	}

	source = filepath.Clean(source)
	ext := filepath.Ext(source)
	if !markdownExtensions[strings.ToLower(ext)] {
		return Paths{}, newStepError(KindMissingInput, "", "source",
			fmt.Errorf("%w: got %q", ErrInvalidExtension, ext))
	}

	dir := filepath.Dir(source)
	base := strings.TrimSuffix(filepath.Base(source), ext)

	pdfPath, err := resolveOutput(output, dir, base)
	if err != nil {
		return Paths{}, err
	}

	return Paths{
		Source: source,
		HTML:   filepath.Join(dir, base+".html"),
		PDF:    pdfPath,
		RTF:    strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".rtf",
	}, nil
}

// resolveOutput returns the PDF path for an optional output argument.
func resolveOutput(output, sourceDir, base string) (string, error) {
	if output == "" {
		return filepath.Join(sourceDir, base+".pdf"), nil
	}

	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, base+".pdf"), nil
	}

	if !strings.EqualFold(filepath.Ext(output), ".pdf") {
		return "", fmt.Errorf("%w: %q", ErrInvalidOutput, output)
	}
	return filepath.Clean(output), nil
}

// Attempt records one strategy that was tried.
type Attempt struct {
	Strategy Strategy
	Err      error // nil on success
	Duration time.Duration
}

// Result describes a conversion run.
type Result struct {
	Paths    Paths
	Strategy Strategy // strategy that wrote Paths.PDF; empty on failure
	Attempts []Attempt
}

// Succeeded reports whether any strategy produced the PDF.
func (r *Result) Succeeded() bool {
	return r != nil && r.Strategy != ""
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout        time.Duration // HTML to PDF rendering
	toolTimeout    time.Duration // each external tool invocation
	browserBin     string
	installBrowser bool
	noSandbox      bool
	keepHTML       bool
	skipLibrary    bool
	pandocBin      string
	pdfEngine      string
	textutilBin    string
}

// Defaults used when no option overrides them.
const (
	defaultTimeout     = 30 * time.Second
	defaultToolTimeout = 2 * time.Minute
	defaultPandocBin   = "pandoc"
	defaultPDFEngine   = "wkhtmltopdf"
	defaultTextutilBin = "textutil"
)

func defaultConverterConfig() converterConfig {
	return converterConfig{
		timeout:     defaultTimeout,
		toolTimeout: defaultToolTimeout,
		pandocBin:   defaultPandocBin,
		pdfEngine:   defaultPDFEngine,
		textutilBin: defaultTextutilBin,
	}
}

// WithTimeout sets the HTML to PDF rendering timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdpdf: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithToolTimeout bounds every external tool invocation.
// Panics if d <= 0.
func WithToolTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdpdf: WithToolTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.toolTimeout = d
	}
}

// WithBrowserBin uses an explicit Chrome/Chromium binary.
func WithBrowserBin(path string) Option {
	return func(c *Converter) {
		c.cfg.browserBin = path
	}
}

// WithBrowserInstall allows downloading a managed Chromium when no browser
// is installed. Off by default: the dependency check fails fast instead.
func WithBrowserInstall(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.installBrowser = enabled
	}
}

// WithNoSandbox disables the Chrome sandbox (containers, CI).
func WithNoSandbox(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.noSandbox = enabled
	}
}

// WithKeepHTML keeps the intermediate HTML after a successful library run.
func WithKeepHTML(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.keepHTML = enabled
	}
}

// WithSkipLibrary goes straight to the external tool chain.
func WithSkipLibrary(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.skipLibrary = enabled
	}
}

// WithPandoc overrides the pandoc binary and its PDF engine.
// Empty values keep the defaults.
func WithPandoc(bin, pdfEngine string) Option {
	return func(c *Converter) {
		if bin != "" {
			c.cfg.pandocBin = bin
		}
		if pdfEngine != "" {
			c.cfg.pdfEngine = pdfEngine
		}
	}
}

// WithTextutil overrides the macOS textutil binary.
func WithTextutil(bin string) Option {
	return func(c *Converter) {
		if bin != "" {
			c.cfg.textutilBin = bin
		}
	}
}

// WithReporter sets the progress reporter. Defaults to a silent reporter.
func WithReporter(r Reporter) Option {
	return func(c *Converter) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithCommandRunner replaces the runner used for external tools.
func WithCommandRunner(r CommandRunner) Option {
	return func(c *Converter) {
		if r != nil {
			c.runner = r
		}
	}
}
