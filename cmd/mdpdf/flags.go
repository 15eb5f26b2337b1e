package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
	noColor bool
}

// browserFlags controls the rendering engine.
type browserFlags struct {
	install   bool
	noSandbox bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common      commonFlags
	browser     browserFlags
	output      string
	timeout     string
	toolTimeout string
	skipLibrary bool
	keepHTML    bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors and manual options")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show error details and timing")
	fs.BoolVar(&f.noColor, "no-color", false, "disable colored output")
}

// addBrowserFlags adds rendering engine flags to a FlagSet.
func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.BoolVar(&f.install, "install-browser", false, "download Chromium if no browser is installed")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (containers, CI)")
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &convertFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output PDF file or directory")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "HTML to PDF timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.toolTimeout, "tool-timeout", "", "timeout per external tool (e.g., 2m)")
	fs.BoolVar(&f.skipLibrary, "skip-library", false, "go straight to external tools")
	fs.BoolVar(&f.keepHTML, "keep-html", false, "keep the intermediate HTML file")

	addCommonFlags(fs, &f.common)
	addBrowserFlags(fs, &f.browser)

	fs.Usage = func() { printConvertUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	config string
	json   bool
}

func parseDoctorFlags(args []string, stderr io.Writer) (*doctorFlags, error) {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &doctorFlags{}

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	fs.Usage = func() { printDoctorUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
