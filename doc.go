// Package mdpdf converts a Markdown document to PDF with an ordered fallback
// chain.
//
// # Quick Start
//
//	conv := mdpdf.NewConverter(
//	    mdpdf.WithReporter(mdpdf.NewTerminalReporter(os.Stderr, mdpdf.ReporterOptions{})),
//	)
//	res, err := conv.ConvertFile(ctx, "notes.md", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("written by", res.Strategy, "to", res.Paths.PDF)
//
// # Strategies
//
// Strategies are tried in this order and the first success wins:
//
//  1. library: Markdown to HTML with Goldmark, then HTML to A4 PDF in
//     headless Chrome (go-rod). Requires a browser; see Preflight.
//  2. textutil: macOS only, Markdown to RTF to PDF.
//  3. pandoc: pandoc with an HTML-based PDF engine (wkhtmltopdf by default).
//
// When all fail, the Reporter prints four manual options and Convert returns
// an error wrapping ErrAllStrategiesFailed.
//
// # Intermediate Files
//
// The library strategy writes <base>.html next to the source. It is removed
// on success (unless WithKeepHTML) and kept on failure. The textutil route
// writes <base>.rtf next to the PDF and removes it once converted.
//
// # Errors
//
// Step failures are *StepError values tagged with a Kind:
//
//	if errors.Is(err, mdpdf.KindDependency) {
//	    // no browser: install Chrome or pass WithBrowserInstall(true)
//	}
//
// Every kind means "try the next strategy" inside Convert; kinds exist for
// diagnostics and exit codes.
package mdpdf
