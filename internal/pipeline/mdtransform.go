package pipeline

import (
	"regexp"
	"strings"
)

const utf8BOM = "\uFEFF"

// crlfOrCR matches Windows and classic Mac line endings.
var crlfOrCR = regexp.MustCompile(`\r\n?`)

// Preprocess prepares raw Markdown for Goldmark: it drops a leading byte
// order mark and converts \r\n and \r line endings to \n.
func Preprocess(content string) string {
	content = strings.TrimPrefix(content, utf8BOM)
	return crlfOrCR.ReplaceAllString(content, "\n")
}
