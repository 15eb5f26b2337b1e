package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-mdpdf/internal/config"
)

// ErrInvalidEnv indicates an MDPDF_* variable holds an unusable value.
var ErrInvalidEnv = errors.New("invalid environment variable")

// envPrefix marks the variables this CLI reads.
const envPrefix = "MDPDF_"

// envConfig holds configuration from environment variables.
// Empty fields mean the variable was not set.
type envConfig struct {
	ConfigPath     string        // MDPDF_CONFIG
	Timeout        time.Duration // MDPDF_TIMEOUT
	ToolTimeout    time.Duration // MDPDF_TOOL_TIMEOUT
	BrowserBin     string        // MDPDF_BROWSER_BIN
	InstallBrowser *bool         // MDPDF_INSTALL_BROWSER
	Pandoc         string        // MDPDF_PANDOC
	PDFEngine      string        // MDPDF_PDF_ENGINE
}

// knownEnvVars lists valid MDPDF_* environment variables.
// Used to warn about typos.
var knownEnvVars = map[string]bool{
	"MDPDF_CONFIG":          true,
	"MDPDF_TIMEOUT":         true,
	"MDPDF_TOOL_TIMEOUT":    true,
	"MDPDF_BROWSER_BIN":     true,
	"MDPDF_INSTALL_BROWSER": true,
	"MDPDF_PANDOC":          true,
	"MDPDF_PDF_ENGINE":      true,
}

// loadEnvConfig reads MDPDF_* variables through getenv.
func loadEnvConfig(getenv func(string) string) (*envConfig, error) {
	cfg := &envConfig{
		ConfigPath: getenv("MDPDF_CONFIG"),
		BrowserBin: getenv("MDPDF_BROWSER_BIN"),
		Pandoc:     getenv("MDPDF_PANDOC"),
		PDFEngine:  getenv("MDPDF_PDF_ENGINE"),
	}

	var err error
	if cfg.Timeout, err = envDuration(getenv, "MDPDF_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.ToolTimeout, err = envDuration(getenv, "MDPDF_TOOL_TIMEOUT"); err != nil {
		return nil, err
	}

	if v := getenv("MDPDF_INSTALL_BROWSER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: MDPDF_INSTALL_BROWSER=%q is not a boolean", ErrInvalidEnv, v)
		}
		cfg.InstallBrowser = &b
	}
	return cfg, nil
}

func envDuration(getenv func(string) string, name string) (time.Duration, error) {
	v := getenv(name)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q is not a positive duration", ErrInvalidEnv, name, v)
	}
	return d, nil
}

// warnUnknownEnvVars prints a warning for each unrecognized MDPDF_* variable,
// in sorted order.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	var unknown []string
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
	}
}

// applyEnvConfig overrides config file values with set environment values.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied afterwards by mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Timeout > 0 {
		cfg.Timeout = env.Timeout.String()
	}
	if env.ToolTimeout > 0 {
		cfg.Tools.Timeout = env.ToolTimeout.String()
	}
	if env.BrowserBin != "" {
		cfg.Browser.Bin = env.BrowserBin
	}
	if env.InstallBrowser != nil {
		cfg.Browser.Install = *env.InstallBrowser
	}
	if env.Pandoc != "" {
		cfg.Tools.Pandoc = env.Pandoc
	}
	if env.PDFEngine != "" {
		cfg.Tools.PDFEngine = env.PDFEngine
	}
}
