package pipeline

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

//go:embed styles/print.css
var printCSS string

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
{{.CSS}}
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`

var page = template.Must(template.New("page").Parse(pageTemplate))

// highlightCSS is generated once from the chroma style used by the converter.
var highlightCSS = sync.OnceValue(func() string {
	var sb strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&sb, styles.Get(HighlightStyle)); err != nil {
		return ""
	}
	return sb.String()
})

// Stylesheet returns the full embedded stylesheet: print rules followed by
// code highlighting classes.
func Stylesheet() string {
	return printCSS + "\n" + highlightCSS()
}

// RenderPage wraps an HTML fragment in a standalone HTML5 document with the
// embedded stylesheet. The title is escaped; body is trusted converter output.
func RenderPage(title, body string) (string, error) {
	data := struct {
		Title string
		CSS   template.CSS
		Body  template.HTML
	}{
		Title: title,
		CSS:   template.CSS(Stylesheet()), // #nosec G203 -- embedded, not user input
		Body:  template.HTML(body),        // #nosec G203 -- rendered from the user's own local file
	}

	var sb strings.Builder
	if err := page.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("%w: rendering page: %v", ErrHTMLConversion, err)
	}
	return sb.String(), nil
}
