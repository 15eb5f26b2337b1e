package mdpdf

// Notes:
// - toolChain is exercised through mockRunner; no real textutil or pandoc is
//   executed. ExecRunner itself is covered by internal/process tests.
// - verifyOutput compares modification times at one-second granularity, so
//   stale-output tests backdate the file by a minute.

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"
)

func newTestToolChain(goos string, runner *mockRunner) (*toolChain, *recordingReporter) {
	r := &recordingReporter{}
	cfg := defaultConverterConfig()
	cfg.toolTimeout = 5 * time.Second
	return newToolChain(cfg, runner, goos, r), r
}

// ---------------------------------------------------------------------------
// TestToolChain_Order - Route selection per platform
// ---------------------------------------------------------------------------

func TestToolChain_Order(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		goos      string
		available []string
		wantCalls []string
		wantTried []Strategy
	}{
		{
			name:      "darwin tries textutil then pandoc",
			goos:      "darwin",
			available: []string{"textutil", "pandoc"},
			wantCalls: []string{"textutil", "pandoc"},
			wantTried: []Strategy{StrategyTextutil, StrategyPandoc},
		},
		{
			name:      "linux skips textutil",
			goos:      "linux",
			available: []string{"textutil", "pandoc"},
			wantCalls: []string{"pandoc"},
			wantTried: []Strategy{StrategyPandoc},
		},
		{
			name:      "windows skips textutil",
			goos:      "windows",
			available: []string{"pandoc"},
			wantCalls: []string{"pandoc"},
			wantTried: []Strategy{StrategyPandoc},
		},
		{
			name:      "darwin without textutil",
			goos:      "darwin",
			available: []string{"pandoc"},
			wantCalls: []string{"pandoc"},
			wantTried: []Strategy{StrategyTextutil, StrategyPandoc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			paths := writeSource(t, "# Title")
			runner := &mockRunner{
				available: map[string]bool{},
				run:       func(string, []string) error { return errors.New("exit status 1") },
			}
			for _, name := range tt.available {
				runner.available[name] = true
			}
			tc, _ := newTestToolChain(tt.goos, runner)

			strategy, attempts := tc.run(context.Background(), paths)

			if strategy != "" {
				t.Errorf("strategy = %q, want none", strategy)
			}
			if got := runner.names(); !slices.Equal(got, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}
			var tried []Strategy
			for _, a := range attempts {
				tried = append(tried, a.Strategy)
			}
			if !slices.Equal(tried, tt.wantTried) {
				t.Errorf("attempts = %v, want %v", tried, tt.wantTried)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestPandocRoute - Invocation and outcome classification
// ---------------------------------------------------------------------------

func TestPandocRoute_Arguments(t *testing.T) {
	t.Parallel()

	paths := writeSource(t, "# Title")
	runner := &mockRunner{
		available: map[string]bool{"pandoc": true},
		run:       writesOutput("%PDF-1.4"),
	}
	tc, rep := newTestToolChain("linux", runner)

	strategy, attempts := tc.run(context.Background(), paths)

	if strategy != StrategyPandoc {
		t.Fatalf("strategy = %q, want %q (attempts %+v)", strategy, StrategyPandoc, attempts)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(runner.calls))
	}
	call := runner.calls[0]
	want := []string{paths.Source, "-o", paths.PDF, "--pdf-engine=wkhtmltopdf"}
	if call.name != "pandoc" || !slices.Equal(call.args, want) {
		t.Errorf("call = %s %v, want pandoc %v", call.name, call.args, want)
	}
	if call.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", call.timeout)
	}
	if rep.count("success:PDF created using pandoc") != 1 {
		t.Errorf("missing success event: %v", rep.events)
	}
}

func TestPandocRoute_CustomEngine(t *testing.T) {
	t.Parallel()

	paths := writeSource(t, "# Title")
	runner := &mockRunner{
		available: map[string]bool{"/opt/pandoc": true},
		run:       writesOutput("%PDF-1.4"),
	}
	c := &Converter{cfg: defaultConverterConfig()}
	WithPandoc("/opt/pandoc", "weasyprint")(c)
	tc := newToolChain(c.cfg, runner, "linux", nopReporter{})

	if strategy, _ := tc.run(context.Background(), paths); strategy != StrategyPandoc {
		t.Fatalf("strategy = %q, want %q", strategy, StrategyPandoc)
	}
	call := runner.calls[0]
	if call.name != "/opt/pandoc" || call.args[len(call.args)-1] != "--pdf-engine=weasyprint" {
		t.Errorf("call = %s %v", call.name, call.args)
	}
}

func TestPandocRoute_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		available bool
		run       func(paths Paths) func(string, []string) error
		wantKind  Kind
		wantErr   error
	}{
		{
			name:      "not installed",
			available: false,
			wantKind:  KindToolUnavailable,
			wantErr:   ErrToolNotFound,
		},
		{
			name:      "non-zero exit",
			available: true,
			run: func(Paths) func(string, []string) error {
				return func(string, []string) error { return errors.New("exit status 43") }
			},
			wantKind: KindToolFailure,
			wantErr:  ErrToolFailed,
		},
		{
			name:      "timeout",
			available: true,
			run: func(Paths) func(string, []string) error {
				return func(string, []string) error { return ErrToolTimeout }
			},
			wantKind: KindToolFailure,
			wantErr:  ErrToolTimeout,
		},
		{
			name:      "exit zero without output",
			available: true,
			run: func(Paths) func(string, []string) error {
				return func(string, []string) error { return nil }
			},
			wantKind: KindToolFailure,
			wantErr:  ErrNoOutput,
		},
		{
			name:      "empty output",
			available: true,
			run: func(Paths) func(string, []string) error {
				return writesOutput("")
			},
			wantKind: KindToolFailure,
			wantErr:  ErrNoOutput,
		},
		{
			name:      "stale output left from an earlier run",
			available: true,
			run: func(p Paths) func(string, []string) error {
				return func(string, []string) error {
					if err := os.WriteFile(p.PDF, []byte("%PDF-old"), 0o600); err != nil {
						return err
					}
					old := time.Now().Add(-time.Minute)
					return os.Chtimes(p.PDF, old, old)
				}
			},
			wantKind: KindToolFailure,
			wantErr:  ErrNoOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			paths := writeSource(t, "# Title")
			runner := &mockRunner{available: map[string]bool{"pandoc": tt.available}}
			if tt.run != nil {
				runner.run = tt.run(paths)
			}
			tc, rep := newTestToolChain("linux", runner)

			strategy, attempts := tc.run(context.Background(), paths)

			if strategy != "" {
				t.Fatalf("strategy = %q, want none", strategy)
			}
			if len(attempts) != 1 {
				t.Fatalf("attempts = %d, want 1", len(attempts))
			}
			err := attempts[0].Err
			if KindOf(err) != tt.wantKind {
				t.Errorf("KindOf = %v, want %v (err %v)", KindOf(err), tt.wantKind, err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if rep.count("failure:pandoc conversion failed") != 1 {
				t.Errorf("missing failure event: %v", rep.events)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestTextutilRoute - Two-step conversion and RTF cleanup
// ---------------------------------------------------------------------------

func TestTextutilRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		failStep     string // "rtf", "pdf" or ""
		wantStrategy Strategy
		wantRTF      bool
		wantCalls    int
	}{
		{name: "success removes RTF", wantStrategy: StrategyTextutil, wantRTF: false, wantCalls: 2},
		{name: "PDF step failure removes RTF", failStep: "pdf", wantRTF: false, wantCalls: 2},
		{name: "RTF step failure leaves partial RTF", failStep: "rtf", wantRTF: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			paths := writeSource(t, "# Title")
			write := writesOutput("converted")
			runner := &mockRunner{
				available: map[string]bool{"textutil": true},
				run: func(name string, args []string) error {
					if err := write(name, args); err != nil {
						return err
					}
					if args[1] == tt.failStep {
						return errors.New("exit status 1")
					}
					return nil
				},
			}
			tc, _ := newTestToolChain("darwin", runner)

			strategy, attempts := tc.run(context.Background(), paths)

			if strategy != tt.wantStrategy {
				t.Errorf("strategy = %q, want %q", strategy, tt.wantStrategy)
			}
			textutilCalls := 0
			for _, c := range runner.calls {
				if c.name == "textutil" {
					textutilCalls++
				}
			}
			if textutilCalls != tt.wantCalls {
				t.Errorf("textutil calls = %d, want %d", textutilCalls, tt.wantCalls)
			}
			if got := fileExists(paths.RTF); got != tt.wantRTF {
				t.Errorf("RTF exists = %v, want %v", got, tt.wantRTF)
			}
			if tt.failStep != "" && !errors.Is(attempts[0].Err, ErrToolFailed) {
				t.Errorf("attempt error = %v, want ErrToolFailed", attempts[0].Err)
			}
		})
	}
}

func TestTextutilRoute_Arguments(t *testing.T) {
	t.Parallel()

	paths := writeSource(t, "# Title")
	runner := &mockRunner{
		available: map[string]bool{"textutil": true},
		run:       writesOutput("converted"),
	}
	tc, _ := newTestToolChain("darwin", runner)

	if strategy, _ := tc.run(context.Background(), paths); strategy != StrategyTextutil {
		t.Fatalf("strategy = %q, want %q", strategy, StrategyTextutil)
	}

	want := [][]string{
		{"-convert", "rtf", paths.Source, "-output", paths.RTF},
		{"-convert", "pdf", paths.RTF, "-output", paths.PDF},
	}
	for i, w := range want {
		if !slices.Equal(runner.calls[i].args, w) {
			t.Errorf("call %d args = %v, want %v", i, runner.calls[i].args, w)
		}
	}
}

// ---------------------------------------------------------------------------
// TestToolChain_Cancellation
// ---------------------------------------------------------------------------

func TestToolChain_Canceled(t *testing.T) {
	t.Parallel()

	paths := writeSource(t, "# Title")
	runner := &mockRunner{available: map[string]bool{"textutil": true, "pandoc": true}}
	tc, _ := newTestToolChain("darwin", runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strategy, attempts := tc.run(ctx, paths)

	if strategy != "" || len(attempts) != 0 {
		t.Errorf("canceled chain ran: strategy %q, attempts %d", strategy, len(attempts))
	}
	if len(runner.calls) != 0 {
		t.Errorf("calls = %v, want none", runner.names())
	}
}

func TestToolChain_CanceledDuringTool(t *testing.T) {
	t.Parallel()

	paths := writeSource(t, "# Title")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &mockRunner{
		available: map[string]bool{"textutil": true, "pandoc": true},
		run: func(string, []string) error {
			cancel()
			return context.Canceled
		},
	}
	tc, _ := newTestToolChain("darwin", runner)

	_, attempts := tc.run(ctx, paths)

	if len(attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(attempts))
	}
	if KindOf(attempts[0].Err) != KindCanceled {
		t.Errorf("KindOf = %v, want %v", KindOf(attempts[0].Err), KindCanceled)
	}
	if slices.Contains(runner.names(), "pandoc") {
		t.Error("pandoc must not run after cancellation")
	}
}

// ---------------------------------------------------------------------------
// TestGuard
// ---------------------------------------------------------------------------

func TestGuard(t *testing.T) {
	t.Parallel()

	err := guard(KindToolFailure, StrategyPandoc, func() error { panic("boom") })
	if !errors.Is(err, KindToolFailure) {
		t.Fatalf("expected KindToolFailure, got %v", err)
	}

	want := errors.New("plain")
	if got := guard(KindToolFailure, StrategyPandoc, func() error { return want }); got != want {
		t.Errorf("guard should pass errors through, got %v", got)
	}
}
