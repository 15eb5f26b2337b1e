package mdpdf

import (
	"context"
	"fmt"
	"os"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-mdpdf/internal/fileutil"
)

// BrowserSource tells where a browser binary was found.
type BrowserSource string

const (
	BrowserFromEnv     BrowserSource = "ROD_BROWSER_BIN"
	BrowserFromConfig  BrowserSource = "config"
	BrowserFromSystem  BrowserSource = "system"
	BrowserFromManaged BrowserSource = "managed"
)

// Preflight checks that the libraries required by the library pipeline are
// usable. The Markdown engine is compiled in; only the Chrome/Chromium binary
// used for rendering can be missing.
type Preflight struct {
	browserBin string
	install    bool
	reporter   Reporter

	getenv   func(string) string
	lookPath func() (string, bool)
	download func(ctx context.Context) (string, error)
}

// NewPreflight creates a Preflight. browserBin may be empty. When install is
// false a missing browser fails fast instead of being downloaded.
func NewPreflight(browserBin string, install bool, r Reporter) *Preflight {
	if r == nil {
		r = nopReporter{}
	}
	return &Preflight{
		browserBin: browserBin,
		install:    install,
		reporter:   r,
		getenv:     os.Getenv,
		lookPath:   launcher.LookPath,
		download:   downloadBrowser,
	}
}

// LocateBrowser finds a browser without installing anything.
// Lookup order: ROD_BROWSER_BIN, the configured binary, then the system.
// An explicit path that does not exist is an error.
func (p *Preflight) LocateBrowser() (string, BrowserSource, error) {
	explicit := []struct {
		path   string
		source BrowserSource
	}{
		{p.getenv("ROD_BROWSER_BIN"), BrowserFromEnv},
		{p.browserBin, BrowserFromConfig},
	}
	for _, e := range explicit {
		if e.path == "" {
			continue
		}
		if !fileutil.FileExists(e.path) {
			return "", e.source, fmt.Errorf("%w: %s=%s does not exist", ErrBrowserNotFound, e.source, e.path)
		}
		return e.path, e.source, nil
	}

	if path, ok := p.lookPath(); ok {
		return path, BrowserFromSystem, nil
	}
	return "", BrowserFromSystem, ErrBrowserNotFound
}

// EnsureDependencies returns the path of a usable browser, downloading a
// managed Chromium only when installation was allowed.
// Every failure is a KindDependency error; panics are recovered.
func (p *Preflight) EnsureDependencies(ctx context.Context) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			path = ""
			err = newStepError(KindDependency, StrategyLibrary, "dependencies",
				fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", newStepError(KindDependency, StrategyLibrary, "dependencies", err)
	}

	path, source, err := p.LocateBrowser()
	if err == nil {
		p.reporter.Success(fmt.Sprintf("Rendering engine already installed (%s): %s", source, path))
		return path, nil
	}

	// A wrong explicit path is a configuration mistake, never a reason to download.
	if !p.install || source != BrowserFromSystem {
		p.reporter.Failure("Rendering engine unavailable", err)
		return "", newStepError(KindDependency, StrategyLibrary, "dependencies", err)
	}

	p.reporter.Step("Installing managed Chromium...")
	path, err = p.download(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrBrowserInstall, err)
		p.reporter.Failure("Failed to install Chromium", err)
		return "", newStepError(KindDependency, StrategyLibrary, "dependencies", err)
	}
	p.reporter.Success("Chromium installed: " + path)
	return path, nil
}

// downloadBrowser fetches the rod-pinned Chromium revision into rod's cache
// directory, or returns it if already cached.
func downloadBrowser(ctx context.Context) (string, error) {
	b := launcher.NewBrowser()
	b.Context = ctx
	return b.Get()
}
