package main

// Notes:
// - newTestEnv builds an Environment with buffered output, a fixed env map and
//   a fake tool runner, so CLI tests never touch the real PATH or browser.
// - End-to-end convert tests pass --skip-library; the library pipeline is
//   covered in the root package.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-mdpdf"
)

// fakeRunner finds the tools listed in available. When writePDF is set, a
// run writes a PDF to the path following "-o".
type fakeRunner struct {
	mu        sync.Mutex
	available map[string]bool
	writePDF  bool
	fail      error
	calls     []string
}

func (f *fakeRunner) LookPath(file string) (string, error) {
	if f.available[file] {
		return "/usr/local/bin/" + file, nil
	}
	return "", fmt.Errorf("%w: %s", exec.ErrNotFound, file)
}

func (f *fakeRunner) Run(ctx context.Context, _ time.Duration, name string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if f.fail != nil {
		return f.fail
	}
	if !f.writePDF {
		return nil
	}
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-o" {
			return os.WriteFile(args[i+1], []byte("%PDF-1.4 fake"), 0o600)
		}
	}
	return fmt.Errorf("no -o in %v", args)
}

type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	vars   map[string]string
	runner *fakeRunner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		vars:   map[string]string{},
		runner: &fakeRunner{available: map[string]bool{}},
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) },
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(key string) string { return te.vars[key] },
		Environ: func() []string {
			out := make([]string, 0, len(te.vars))
			for k, v := range te.vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		GOOS:   "linux",
		Runner: te.runner,
		LocateBrowser: func(string) (string, mdpdf.BrowserSource, error) {
			return "", mdpdf.BrowserFromSystem, mdpdf.ErrBrowserNotFound
		},
	}
	return te
}

// withPandoc makes pandoc and wkhtmltopdf available and writing output.
func (te *testEnv) withPandoc() *testEnv {
	te.runner.available["pandoc"] = true
	te.runner.available["wkhtmltopdf"] = true
	te.runner.writePDF = true
	return te
}

// writeMarkdown writes doc.md into a temp dir and returns its path.
func writeMarkdown(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

// writeConfig writes a YAML config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdpdf.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}
