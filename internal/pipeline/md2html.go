package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// HighlightStyle is the chroma style used for code blocks. The page template
// embeds the matching stylesheet.
const HighlightStyle = "github"

// GoldmarkConverter converts Markdown to an HTML fragment using goldmark.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with tables, fenced code
// highlighting and heading IDs enabled. Raw HTML in the source is kept: the
// document is the user's own local file.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // tables, strikethrough, autolinks, task lists
			highlighting.NewHighlighting(
				highlighting.WithStyle(HighlightStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // anchors for the table of contents
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			html.WithUnsafe(), // raw HTML such as <div class="page-break"></div>
		),
	)
	return &GoldmarkConverter{md: md}
}

// Render turns Markdown source text into a complete styled HTML page.
// A [TOC] marker is expanded; the first H1 titles the page, or
// fallbackTitle when the document has none.
func (c *GoldmarkConverter) Render(ctx context.Context, markdown, fallbackTitle string) (string, error) {
	fragment, err := c.ToHTML(ctx, Preprocess(markdown))
	if err != nil {
		return "", err
	}

	fragment, headings, err := ExpandTOC(fragment)
	if err != nil {
		return "", fmt.Errorf("%w: table of contents: %v", ErrHTMLConversion, err)
	}

	return RenderPage(Title(headings, fallbackTitle), fragment)
}

// ToHTML converts Markdown content to an HTML fragment.
// Goldmark has no context support, so conversion runs in a goroutine and
// the caller stops waiting on cancellation.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}
