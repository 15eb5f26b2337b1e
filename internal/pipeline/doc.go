// Package pipeline implements the Markdown-to-HTML conversion stages:
//   - Markdown preprocessing (BOM removal, line normalization)
//   - Markdown to HTML conversion via Goldmark with syntax highlighting
//   - [TOC] marker expansion into a nested table of contents
//   - Wrapping the fragment in a print-ready page template
//
// PDF rendering is handled separately by the root mdpdf package using
// headless Chrome (go-rod). The page produced here is self-contained so that
// external tools can consume it as well.
package pipeline
