package mdpdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/alnah/go-mdpdf/internal/fileutil"
)

// renderMarkdownToHTML converts the Markdown file at source into a standalone
// styled HTML page written to htmlPath, replacing any existing file.
func renderMarkdownToHTML(ctx context.Context, conv markdownRenderer, source, htmlPath string) error {
	data, err := os.ReadFile(source) // #nosec G304 -- path is user-provided input
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrHTMLConversion, source, err)
	}
	if !utf8.Valid(data) {
		return ErrInvalidUTF8
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	page, err := conv.Render(ctx, string(data), base)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}

	if err := fileutil.WriteFileAtomic(htmlPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteHTML, err)
	}
	return nil
}
