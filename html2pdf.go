package mdpdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/alnah/go-mdpdf/internal/fileutil"
	"github.com/alnah/go-mdpdf/internal/process"
)

// pdfRenderer renders a local HTML file to PDF bytes.
type pdfRenderer interface {
	RenderFromFile(ctx context.Context, filePath string) ([]byte, error)
	Close() error
}

var _ pdfRenderer = (*rodRenderer)(nil)

// A4 page geometry in inches, 2 cm margins.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0.7874
)

// pdfStylesheet fixes page geometry and heading sizes regardless of the
// HTML's own stylesheet.
const pdfStylesheet = `@page { size: A4; margin: 2cm; }
body { font-size: 11pt; line-height: 1.4; }
h1 { font-size: 18pt; }
h2 { font-size: 16pt; }
h3 { font-size: 14pt; }
h4 { font-size: 12pt; }
`

// rodRenderer implements pdfRenderer with headless Chrome via go-rod.
// The browser is launched lazily and never downloaded: the binary must have
// been resolved by Preflight.
type rodRenderer struct {
	bin       string
	noSandbox bool
	timeout   time.Duration

	launcher *launcher.Launcher
	browser  *rod.Browser
	pid      int
}

func newRodRenderer(bin string, noSandbox bool, timeout time.Duration) *rodRenderer {
	return &rodRenderer{bin: bin, noSandbox: noSandbox, timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser. Launch and
// connect both give up when ctx is done; the browser process is then killed.
// The connection itself outlives ctx so a later render can reuse it.
func (r *rodRenderer) ensureBrowser(ctx context.Context) error {
	if r.browser != nil {
		return nil
	}
	if r.bin == "" {
		return ErrBrowserNotFound
	}

	l := launcher.New().Context(ctx).Bin(r.bin)

	// NoSandbox required for CI and containerized environments
	if r.noSandbox || os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	r.launcher = l
	r.pid = l.PID()
	if err != nil {
		r.kill()
		return fmt.Errorf("%w: %w", ErrBrowserConnect, err)
	}

	browser := rod.New().Context(context.WithoutCancel(ctx)).ControlURL(u)
	connected := make(chan error, 1)
	go func() { connected <- browser.Connect() }()

	select {
	case err := <-connected:
		if err != nil {
			r.kill()
			return fmt.Errorf("%w: %w", ErrBrowserConnect, err)
		}
	case <-ctx.Done():
		r.kill()
		return fmt.Errorf("%w: %w", ErrBrowserConnect, ctx.Err())
	}
	r.browser = browser
	return nil
}

// Close releases browser resources and kills the browser process tree.
func (r *rodRenderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.kill()
	return err
}

func (r *rodRenderer) kill() {
	if r.launcher == nil {
		return
	}
	process.KillProcessGroup(r.pid)
	r.launcher.Kill()
	r.launcher.Cleanup()
	r.launcher = nil
	r.pid = 0
}

// RenderFromFile opens a local HTML file in headless Chrome and prints it to
// A4 PDF with the fixed stylesheet applied.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// One deadline covers launch, navigation and printing.
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.ensureBrowser(ctx); err != nil {
		return nil, err
	}

	fileURL, err := pathToFileURL(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	page, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: fileURL})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageLoad, err)
	}
	defer func() { _ = page.Close() }()

	p := page.Context(ctx)

	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := p.AddStyleTag("", pdfStylesheet); err != nil {
		return nil, fmt.Errorf("%w: applying page style: %v", ErrPDFGeneration, err)
	}

	reader, err := p.PDF(buildPDFOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

// buildPDFOptions returns A4 print settings with 2 cm margins.
func buildPDFOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}

// pathToFileURL converts a path to an absolute file:// URL.
// Handles both Unix and Windows paths.
func pathToFileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed // C:/x -> /C:/x
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return u.String(), nil
}

// validatePDF checks that data parses as a PDF with at least one page.
func validatePDF(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty output", ErrInvalidPDF)
	}
	pages, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if pages < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return pages, nil
}

// renderHTMLToPDF renders htmlPath with r, validates the result and writes it
// atomically to pdfPath, replacing any existing file.
func renderHTMLToPDF(ctx context.Context, r pdfRenderer, htmlPath, pdfPath string) error {
	if !fileutil.FileExists(htmlPath) {
		return fmt.Errorf("%w: HTML file %s not found", ErrPageLoad, htmlPath)
	}

	data, err := r.RenderFromFile(ctx, htmlPath)
	if err != nil {
		return err
	}
	if _, err := validatePDF(data); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(pdfPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWritePDF, err)
	}
	return nil
}
