package mdpdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

type runCall struct {
	name    string
	args    []string
	timeout time.Duration
}

// mockRunner fakes external tools. Binaries listed in available are found by
// LookPath; run decides the outcome of each invocation (nil = success
// without writing anything).
type mockRunner struct {
	mu        sync.Mutex
	available map[string]bool
	run       func(name string, args []string) error
	calls     []runCall
}

func (m *mockRunner) LookPath(file string) (string, error) {
	if m.available[file] {
		return "/usr/local/bin/" + file, nil
	}
	return "", fmt.Errorf("%w: %s", exec.ErrNotFound, file)
}

func (m *mockRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	m.mu.Lock()
	m.calls = append(m.calls, runCall{name: name, args: args, timeout: timeout})
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.run != nil {
		return m.run(name, args)
	}
	return nil
}

func (m *mockRunner) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.name
	}
	return out
}

// writesOutput returns a run func that writes content to the path following
// "-o" (pandoc) or "-output" (textutil).
func writesOutput(content string) func(string, []string) error {
	return func(_ string, args []string) error {
		out := argAfter(args, "-o")
		if out == "" {
			out = argAfter(args, "-output")
		}
		if out == "" {
			return fmt.Errorf("no output argument in %v", args)
		}
		return os.WriteFile(out, []byte(content), 0o600)
	}
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

type mockEnsurer struct {
	path  string
	err   error
	calls int
}

func (m *mockEnsurer) EnsureDependencies(ctx context.Context) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.path, nil
}

// panickingMarkdown is a markdownRenderer that always panics.
type panickingMarkdown struct{}

func (panickingMarkdown) Render(context.Context, string, string) (string, error) {
	panic("markdown engine exploded")
}

type mockRenderer struct {
	data    []byte
	err     error
	panics  bool
	calls   int
	closed  bool
	gotPath string
}

func (m *mockRenderer) RenderFromFile(ctx context.Context, filePath string) ([]byte, error) {
	m.calls++
	m.gotPath = filePath
	if m.panics {
		panic("renderer exploded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.data != nil {
		return m.data, nil
	}
	return minimalPDF(), nil
}

func (m *mockRenderer) Close() error {
	m.closed = true
	return nil
}

// recordingReporter captures reporter events as "kind:message" strings.
type recordingReporter struct {
	events []string
}

func (r *recordingReporter) Start(source string) { r.add("start", source) }
func (r *recordingReporter) Step(msg string) { r.add("step", msg) }
func (r *recordingReporter) Success(msg string) { r.add("success", msg) }
func (r *recordingReporter) Failure(msg string, _ error) { r.add("failure", msg) }
func (r *recordingReporter) Warn(msg string) { r.add("warn", msg) }
func (r *recordingReporter) ManualInstructions() { r.add("manual", "") }

func (r *recordingReporter) add(kind, msg string) {
	r.events = append(r.events, kind+":"+msg)
}

func (r *recordingReporter) count(prefix string) int {
	n := 0
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// testConverter bundles a Converter with its mocks.
type testConverter struct {
	*Converter
	runner   *mockRunner
	ensurer  *mockEnsurer
	renderer *mockRenderer
	reporter *recordingReporter
}

// newTestConverter returns a Converter on linux whose browser, renderer and
// tools are all mocked and working except for the tools, which are absent.
func newTestConverter(t *testing.T, opts ...Option) *testConverter {
	t.Helper()

	tc := &testConverter{
		runner:   &mockRunner{available: map[string]bool{}},
		ensurer:  &mockEnsurer{path: "/usr/bin/chromium"},
		renderer: &mockRenderer{},
		reporter: &recordingReporter{},
	}
	opts = append(opts, WithCommandRunner(tc.runner), WithReporter(tc.reporter))
	tc.Converter = NewConverter(opts...)
	tc.goos = "linux"
	tc.Converter.ensurer = tc.ensurer
	tc.newRenderer = func(string) pdfRenderer { return tc.renderer }
	return tc
}

// writeSource writes a Markdown file and returns its derived paths.
func writeSource(t *testing.T, content string) Paths {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(src, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	paths, err := DerivePaths(src, "")
	if err != nil {
		t.Fatalf("DerivePaths: %v", err)
	}
	return paths
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// minimalPDF builds a one-page PDF with a correct cross-reference table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>",
	}

	var sb strings.Builder
	sb.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = sb.Len()
		fmt.Fprintf(&sb, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := sb.Len()
	fmt.Fprintf(&sb, "xref\n0 %d\n", len(objects)+1)
	sb.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&sb, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&sb, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(sb.String())
}
