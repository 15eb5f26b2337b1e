package mdpdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/alnah/go-mdpdf/internal/process"
)

// Sentinel errors for library operations.
var (
	ErrSourceNotFound      = errors.New("markdown file not found")
	ErrSourceNotFile       = errors.New("markdown source is not a regular file")
	ErrInvalidExtension    = errors.New("file must have .md or .markdown extension")
	ErrInvalidOutput       = errors.New("output must be a .pdf file or an existing directory")
	ErrInvalidUTF8         = errors.New("markdown file is not valid UTF-8")
	ErrHTMLConversion      = errors.New("HTML conversion failed")
	ErrWriteHTML           = errors.New("failed to write HTML file")
	ErrBrowserNotFound     = errors.New("chrome/chromium browser not found")
	ErrBrowserInstall      = errors.New("failed to install managed Chromium")
	ErrBrowserConnect      = errors.New("failed to connect to browser")
	ErrPageLoad            = errors.New("failed to load page")
	ErrPDFGeneration       = errors.New("PDF generation failed")
	ErrInvalidPDF          = errors.New("rendered PDF is invalid")
	ErrWritePDF            = errors.New("failed to write PDF file")
	ErrToolNotFound        = errors.New("tool not found")
	ErrToolFailed          = errors.New("tool exited with an error")
	ErrNoOutput            = errors.New("tool produced no output")
	ErrAllStrategiesFailed = errors.New("automatic conversion failed")
)

// ErrToolTimeout is wrapped when an external tool exceeds its timeout.
var ErrToolTimeout = process.ErrTimeout

// Kind classifies a conversion failure. Every kind means "try the next
// strategy" to the orchestrator; kinds exist for diagnostics and exit codes.
type Kind int

// Failure kinds.
const (
	KindUnknown Kind = iota
	KindMissingInput
	KindDependency
	KindHTMLConversion
	KindRender
	KindToolUnavailable
	KindToolFailure
	KindCanceled
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindMissingInput:    "missing-input",
	KindDependency:      "dependency-unavailable",
	KindHTMLConversion:  "html-conversion",
	KindRender:          "render-failure",
	KindToolUnavailable: "tool-unavailable",
	KindToolFailure:     "tool-failure",
	KindCanceled:        "canceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error implements error so a Kind can be used as an errors.Is target:
//
//	errors.Is(err, mdpdf.KindRender)
func (k Kind) Error() string {
	return k.String()
}

// StepError is the tagged result of a failed step.
type StepError struct {
	Kind     Kind
	Strategy Strategy // empty for steps outside a strategy (source check)
	Op       string   // short description, e.g. "pandoc", "render PDF"
	Err      error
}

func (e *StepError) Error() string {
	prefix := e.Op
	if e.Strategy != "" && e.Op != string(e.Strategy) {
		prefix = string(e.Strategy) + ": " + e.Op
	}
	if e.Err == nil {
		return prefix + ": " + e.Kind.String()
	}
	return prefix + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is reports a match against the error's Kind.
func (e *StepError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// newStepError wraps err, tagging context cancellation as KindCanceled
// regardless of the step's own kind.
func newStepError(kind Kind, strategy Strategy, op string, err error) *StepError {
	if errors.Is(err, context.Canceled) {
		kind = KindCanceled
	}
	return &StepError{Kind: kind, Strategy: strategy, Op: op, Err: err}
}
