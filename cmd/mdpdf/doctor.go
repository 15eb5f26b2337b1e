package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-mdpdf"
	"github.com/alnah/go-mdpdf/internal/config"
	"github.com/alnah/go-mdpdf/internal/hints"
	"github.com/alnah/go-mdpdf/internal/process"
)

// versionTimeout bounds "chrome --version".
const versionTimeout = 5 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status     string      `json:"status"` // "ready", "warnings", "errors"
	Browser    browserInfo `json:"browser"`
	Tools      []toolInfo  `json:"tools"`
	Strategies []string    `json:"strategies"` // usable, in fallback order
	Env        envInfo     `json:"environment"`
	System     systemInfo  `json:"system"`
	Warnings   []string    `json:"warnings,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
}

// browserInfo holds Chrome/Chromium detection results.
type browserInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Source  string `json:"source,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
	Install bool   `json:"install"`
}

// toolInfo holds one external tool lookup.
type toolInfo struct {
	Name  string `json:"name"`
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	Container  bool   `json:"container"`
	CI         bool   `json:"ci"`
	NoSandbox  string `json:"rod_no_sandbox"`
	BrowserBin string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = at least one strategy usable, 1 = none, 2 = usage.
func runDoctorCmd(args []string, env *Environment) int {
	f, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "Error: %v\n", err)
		return ExitUsage
	}

	cfg, err := resolveConfig(&convertFlags{common: commonFlags{config: f.config}}, env)
	if err != nil {
		printError(env, err, false)
		return exitCodeFor(err)
	}

	result := runDoctor(context.Background(), cfg, env)

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitFailure
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *config.Config, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         env.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  env.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: env.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkBrowser(ctx, result, cfg, env)
	checkTools(result, cfg, env)
	checkEnvironment(result, env)
	checkSystem(result)

	if len(result.Strategies) == 0 {
		result.Errors = append(result.Errors,
			"No automatic conversion strategy is available; only manual options remain")
	}

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkBrowser locates the rendering browser without installing it.
func checkBrowser(ctx context.Context, result *doctorResult, cfg *config.Config, env *Environment) {
	result.Browser.Install = cfg.Browser.Install

	path, source, err := env.LocateBrowser(cfg.Browser.Bin)
	if err != nil {
		if cfg.Browser.Install && source == mdpdf.BrowserFromSystem {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; a managed Chromium will be downloaded on first use")
			result.Strategies = append(result.Strategies, string(mdpdf.StrategyLibrary))
			return
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Library pipeline unavailable: %v", err))
		return
	}

	result.Browser.Found = true
	result.Browser.Path = path
	result.Browser.Source = string(source)
	result.Browser.Sandbox = !cfg.Browser.NoSandbox && result.Env.NoSandbox != "1"
	result.Strategies = append(result.Strategies, string(mdpdf.StrategyLibrary))

	out, err := process.Run(ctx, versionTimeout, path, "--version")
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get browser version: %v", err))
		return
	}
	result.Browser.Version = strings.TrimSpace(out.Stdout)
}

// checkTools looks up the external fallback tools in chain order.
func checkTools(result *doctorResult, cfg *config.Config, env *Environment) {
	runner := env.Runner
	if runner == nil {
		runner = mdpdf.ExecRunner{}
	}
	lookup := func(name string) bool {
		info := toolInfo{Name: name}
		if path, err := runner.LookPath(name); err == nil {
			info.Found = true
			info.Path = path
		}
		result.Tools = append(result.Tools, info)
		return info.Found
	}

	if env.GOOS == "darwin" {
		if lookup(orDefault(cfg.Tools.Textutil, "textutil")) {
			result.Strategies = append(result.Strategies, string(mdpdf.StrategyTextutil))
		}
	}

	pandoc := lookup(orDefault(cfg.Tools.Pandoc, "pandoc"))
	engine := lookup(orDefault(cfg.Tools.PDFEngine, "wkhtmltopdf"))
	if pandoc && engine {
		result.Strategies = append(result.Strategies, string(mdpdf.StrategyPandoc))
		return
	}
	result.Warnings = append(result.Warnings,
		"pandoc fallback unavailable; install with: "+hints.PandocInstallCommand(env.GOOS))
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, env *Environment) {
	result.Env.Container = hints.IsInContainer() ||
		env.Getenv("container") != "" ||
		env.Getenv("KUBERNETES_SERVICE_HOST") != ""

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if env.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if result.Browser.Found && result.Browser.Sandbox && (result.Env.Container || result.Env.CI) {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the sandbox is enabled. Set ROD_NO_SANDBOX=1 or browser.noSandbox")
	}
}

// checkSystem verifies the temp directory is writable.
func checkSystem(result *doctorResult) {
	f, err := os.CreateTemp("", "mdpdf-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", os.TempDir()))
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	result.System.TempWritable = true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "mdpdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Browser.Found {
		fmt.Fprintf(w, "  [OK] Found at %s (%s)\n", r.Browser.Path, r.Browser.Source)
		if r.Browser.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Browser.Version)
		}
		if r.Browser.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled")
		}
	} else if r.Browser.Install {
		fmt.Fprintln(w, "  [WARN] Not found, will be downloaded")
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Fallback tools")
	for _, t := range r.Tools {
		if t.Found {
			fmt.Fprintf(w, "  [OK] %s: %s\n", t.Name, t.Path)
		} else {
			fmt.Fprintf(w, "  [WARN] %s: not found\n", t.Name)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintln(w, "  [OK] Container: detected")
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Strategies) > 0 {
		fmt.Fprintf(w, "Strategies: %s\n", strings.Join(r.Strategies, " -> "))
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
