package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-mdpdf/internal/fileutil"
	"github.com/alnah/go-mdpdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidDuration = errors.New("invalid duration")
)

// Field length limits.
const (
	MaxPathLength   = 4096 // PATH_MAX on Linux
	MaxEngineLength = 64   // "wkhtmltopdf", "weasyprint"
)

// appDirName is the directory under the user config dir searched by name.
const appDirName = "go-mdpdf"

// Config holds the file-level configuration for a conversion run.
// Zero values mean "use the library default".
type Config struct {
	Timeout string        `yaml:"timeout"` // rendering timeout, e.g. "30s"
	Browser BrowserConfig `yaml:"browser"`
	Tools   ToolsConfig   `yaml:"tools"`
	Output  OutputConfig  `yaml:"output"`
}

// BrowserConfig controls how the rendering browser is located.
type BrowserConfig struct {
	Bin       string `yaml:"bin"`       // explicit Chrome/Chromium path
	Install   bool   `yaml:"install"`   // allow downloading a managed Chromium
	NoSandbox bool   `yaml:"noSandbox"` // containers and CI
}

// ToolsConfig names the external fallback tools.
type ToolsConfig struct {
	Timeout   string `yaml:"timeout"` // per invocation, e.g. "2m"
	Pandoc    string `yaml:"pandoc"`
	PDFEngine string `yaml:"pdfEngine"`
	Textutil  string `yaml:"textutil"`
}

// OutputConfig controls intermediate artifacts.
type OutputConfig struct {
	KeepHTML bool `yaml:"keepHTML"`
}

// DefaultConfig returns an empty configuration: every value falls back to the
// library defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// Validate checks durations and field lengths.
// Called automatically by LoadConfig.
func (c *Config) Validate() error {
	if _, err := parseDuration("timeout", c.Timeout); err != nil {
		return err
	}
	if _, err := parseDuration("tools.timeout", c.Tools.Timeout); err != nil {
		return err
	}

	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"browser.bin", c.Browser.Bin, MaxPathLength},
		{"tools.pandoc", c.Tools.Pandoc, MaxPathLength},
		{"tools.textutil", c.Tools.Textutil, MaxPathLength},
		{"tools.pdfEngine", c.Tools.PDFEngine, MaxEngineLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}
	return nil
}

// RenderTimeout returns the parsed rendering timeout, or 0 when unset.
func (c *Config) RenderTimeout() time.Duration {
	d, _ := parseDuration("timeout", c.Timeout)
	return d
}

// ToolTimeout returns the parsed per-tool timeout, or 0 when unset.
func (c *Config) ToolTimeout() time.Duration {
	d, _ := parseDuration("tools.timeout", c.Tools.Timeout)
	return d
}

// parseDuration accepts an empty string (unset) or a positive Go duration.
func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q", ErrInvalidDuration, field, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidDuration, field, value)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator or a YAML extension, it's treated
// as a file path. Otherwise it's searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := yamlutil.DecodeFile(configPath, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	if strings.ContainsAny(s, "/\\") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(s))
	return ext == ".yaml" || ext == ".yml"
}

// resolveConfigPath searches for a config file by name.
// Tries ./name.yaml, ./name.yml, then the same under ~/.config/go-mdpdf/.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDirName, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
