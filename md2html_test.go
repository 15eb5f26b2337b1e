package mdpdf

// Notes:
// - renderMarkdownToHTML is tested end to end through the library pipeline's
//   markdownToHTML step; goldmark details are covered in internal/pipeline.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-mdpdf/internal/pipeline"
)

func convertMarkdown(t *testing.T, content string) (string, error) {
	t.Helper()
	paths := writeSource(t, content)
	lp := &libraryPipeline{html: pipeline.NewGoldmarkConverter(), reporter: nopReporter{}}
	if err := lp.markdownToHTML(context.Background(), paths.Source, paths.HTML); err != nil {
		return "", err
	}
	data, err := os.ReadFile(paths.HTML)
	if err != nil {
		t.Fatalf("reading HTML: %v", err)
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// TestMarkdownToHTML - Page content
// ---------------------------------------------------------------------------

func TestMarkdownToHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []string
		notWant []string
	}{
		{
			name:  "standalone page",
			input: "# Title\n\nSome *text*.",
			want: []string{
				"<!DOCTYPE html>",
				`<meta charset="utf-8">`,
				"<title>Title</title>",
				"<em>text</em>",
				"<style>",
			},
		},
		{
			name:  "title falls back to file name",
			input: "Just a paragraph.",
			want:  []string{"<title>doc</title>"},
		},
		{
			name:  "byte order mark and CRLF",
			input: "\uFEFF# Heading\r\n\r\nBody\r\n",
			want:  []string{`<h1 id="heading">Heading</h1>`, "<p>Body</p>"},
		},
		{
			name:    "table of contents",
			input:   "[TOC]\n\n# Intro\n\n## Setup\n",
			want:    []string{`<div class="toc">`, `<a href="#intro">Intro</a>`, `<a href="#setup">Setup</a>`},
			notWant: []string{"<p>[TOC]</p>"},
		},
		{
			name:  "empty document",
			input: "",
			want:  []string{"<title>doc</title>", "<body>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := convertMarkdown(t, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("HTML missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("HTML should not contain %q", w)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMarkdownToHTML_Errors
// ---------------------------------------------------------------------------

func TestMarkdownToHTML_InvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := convertMarkdown(t, "caf\xe9")
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
	if KindOf(err) != KindHTMLConversion {
		t.Errorf("KindOf = %v, want %v", KindOf(err), KindHTMLConversion)
	}
}

func TestMarkdownToHTML_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lp := &libraryPipeline{html: pipeline.NewGoldmarkConverter(), reporter: nopReporter{}}
	err := lp.markdownToHTML(context.Background(), filepath.Join(dir, "none.md"), filepath.Join(dir, "none.html"))
	if !errors.Is(err, ErrHTMLConversion) || !errors.Is(err, KindHTMLConversion) {
		t.Fatalf("expected ErrHTMLConversion/KindHTMLConversion, got %v", err)
	}
}

func TestMarkdownToHTML_UnwritableDestination(t *testing.T) {
	t.Parallel()

	paths := writeSource(t, "# Title")
	lp := &libraryPipeline{html: pipeline.NewGoldmarkConverter(), reporter: nopReporter{}}
	err := lp.markdownToHTML(context.Background(), paths.Source, filepath.Join(t.TempDir(), "missing", "doc.html"))
	if !errors.Is(err, ErrWriteHTML) {
		t.Fatalf("expected ErrWriteHTML, got %v", err)
	}
}

func TestMarkdownToHTML_OverwritesExisting(t *testing.T) {
	t.Parallel()

	paths := writeSource(t, "# Fresh")
	if err := os.WriteFile(paths.HTML, []byte("stale"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	conv := NewConverter()
	if err := conv.MarkdownToHTML(context.Background(), paths.Source, paths.HTML); err != nil {
		t.Fatalf("MarkdownToHTML() error = %v", err)
	}
	got, _ := os.ReadFile(paths.HTML)
	if strings.Contains(string(got), "stale") || !strings.Contains(string(got), "<title>Fresh</title>") {
		t.Error("existing HTML should be replaced")
	}
}

func TestMarkdownToHTML_Canceled(t *testing.T) {
	t.Parallel()

	paths := writeSource(t, "# Title")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewConverter().MarkdownToHTML(ctx, paths.Source, paths.HTML)
	if !errors.Is(err, context.Canceled) || KindOf(err) != KindCanceled {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if fileExists(paths.HTML) {
		t.Error("no HTML should be written after cancellation")
	}
}
