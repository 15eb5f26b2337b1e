package main

import (
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-mdpdf"
	"github.com/alnah/go-mdpdf/internal/config"
)

// Exit codes for the mdpdf CLI.
const (
	ExitSuccess = 0 // PDF written
	ExitFailure = 1 // missing source, or every strategy failed
	ExitUsage   = 2 // invalid flags, arguments, env or config
)

// exitCodeFor returns the exit code for an error.
// It uses errors.Is, so callers must wrap with %w.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrTooManyInputs) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrInvalidEnv) ||
		errors.Is(err, flag.ErrHelp) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidDuration) ||
		errors.Is(err, mdpdf.ErrInvalidExtension) ||
		errors.Is(err, mdpdf.ErrInvalidOutput) {
		return ExitUsage
	}

	return ExitFailure
}
