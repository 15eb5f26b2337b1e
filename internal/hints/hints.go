// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-mdpdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a common CI environment variable is set.
func inCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForBrowserNotFound returns hints when no Chrome/Chromium could be located.
func ForBrowserNotFound() string {
	hints := []string{"install Google Chrome or Chromium"}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to an existing browser")
	}
	hints = append(hints, "or pass --install-browser to download one")
	return formatHints(hints)
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	if (inCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeouts for slow operations.
func ForTimeout() string {
	return format("for large documents, use --timeout or --tool-timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config and creating a config in ~/.config/go-mdpdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, "go-mdpdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForMissingInput returns a hint for a missing or invalid source document.
func ForMissingInput() string {
	return format("pass the path of an existing .md or .markdown file")
}

// ForToolUnavailable returns a hint for installing the fallback converter.
func ForToolUnavailable(goos string) string {
	return format(PandocInstallCommand(goos))
}

// PandocInstallCommand returns the package-manager command that installs
// pandoc and its HTML rendering backend on the given platform.
func PandocInstallCommand(goos string) string {
	switch goos {
	case "darwin":
		return "brew install pandoc wkhtmltopdf"
	case "windows":
		return "choco install pandoc wkhtmltopdf"
	default:
		return "sudo apt install pandoc wkhtmltopdf"
	}
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
