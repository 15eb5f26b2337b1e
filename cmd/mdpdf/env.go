package main

import (
	"io"
	"os"
	"runtime"
	"time"

	"github.com/alnah/go-mdpdf"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string
	GOOS    string

	// Runner executes external tools. Nil means real processes.
	Runner mdpdf.CommandRunner
	// LocateBrowser finds a browser for doctor without installing anything.
	LocateBrowser func(configured string) (string, mdpdf.BrowserSource, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		GOOS:    runtime.GOOS,
		Runner:  mdpdf.ExecRunner{},
		LocateBrowser: func(configured string) (string, mdpdf.BrowserSource, error) {
			return mdpdf.NewPreflight(configured, false, nil).LocateBrowser()
		},
	}
}
