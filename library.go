package mdpdf

import (
	"context"
	"fmt"

	"github.com/alnah/go-mdpdf/internal/fileutil"
	"github.com/alnah/go-mdpdf/internal/pipeline"
)

// markdownRenderer turns Markdown text into a complete HTML page.
type markdownRenderer interface {
	Render(ctx context.Context, markdown, fallbackTitle string) (string, error)
}

var _ markdownRenderer = (*pipeline.GoldmarkConverter)(nil)

// libraryPipeline converts Markdown to HTML then HTML to PDF in-process.
// The HTML is always regenerated, never reused from an earlier run.
type libraryPipeline struct {
	html     markdownRenderer
	renderer pdfRenderer
	keepHTML bool
	reporter Reporter
}

// run executes both steps. On success the intermediate HTML is removed
// unless keepHTML is set. On failure it is left on disk for inspection.
func (l *libraryPipeline) run(ctx context.Context, paths Paths) error {
	l.reporter.Step("Converting using libraries...")

	if err := l.markdownToHTML(ctx, paths.Source, paths.HTML); err != nil {
		l.reporter.Failure("Error converting to HTML", err)
		return err
	}
	l.reporter.Success("HTML created: " + paths.HTML)

	if err := l.htmlToPDF(ctx, paths.HTML, paths.PDF); err != nil {
		l.reporter.Failure("Error converting to PDF", err)
		return err
	}
	l.reporter.Success("PDF created: " + paths.PDF)

	if !l.keepHTML {
		if _, err := fileutil.RemoveIfExists(paths.HTML); err != nil {
			l.reporter.Warn(fmt.Sprintf("could not remove %s: %v", paths.HTML, err))
		}
	}
	return nil
}

// markdownToHTML and htmlToPDF each tag their failures, panics included,
// with the kind of their own step.
func (l *libraryPipeline) markdownToHTML(ctx context.Context, source, htmlPath string) error {
	return guard(KindHTMLConversion, StrategyLibrary, func() error {
		if err := renderMarkdownToHTML(ctx, l.html, source, htmlPath); err != nil {
			return newStepError(KindHTMLConversion, StrategyLibrary, "markdown to HTML", err)
		}
		return nil
	})
}

func (l *libraryPipeline) htmlToPDF(ctx context.Context, htmlPath, pdfPath string) error {
	return guard(KindRender, StrategyLibrary, func() error {
		if err := renderHTMLToPDF(ctx, l.renderer, htmlPath, pdfPath); err != nil {
			return newStepError(KindRender, StrategyLibrary, "HTML to PDF", err)
		}
		return nil
	})
}
