// SPDX-License-Identifier: MPL-2.0

// Package types defines cross-cutting value types used by multiple pipeline
// packages (config, pipeline, scriptgen). These are foundation types that carry
// semantic meaning and validation but have no domain-specific dependencies.
//
// This package is a leaf dependency: it imports only the standard library.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess means every configured module reached the complete state.
	ExitSuccess ExitCode = 0
	// ExitFailure is the generic failure code for unexpected errors.
	ExitFailure ExitCode = 1
	// ExitModuleIncomplete means the pass halted with a module left started-incomplete.
	ExitModuleIncomplete ExitCode = 2
	// ExitConfigInvalid means validation rejected the configuration before any module ran.
	ExitConfigInvalid ExitCode = 3
	// ExitStateCorrupt means a lifecycle marker could not be written or verified.
	ExitStateCorrupt ExitCode = 4
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// IsResumable reports whether rerunning the pipeline may succeed without
// operator changes to configuration or state (a module simply did not finish).
func (c ExitCode) IsResumable() bool { return c == ExitModuleIncomplete }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
