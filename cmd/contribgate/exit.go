package main

import (
	"errors"

	"github.com/ShayCichocki/contribgate/internal/config"
	"github.com/ShayCichocki/contribgate/internal/validation"
)

// Process exit codes.
const (
	exitOK                = 0
	exitStageFailed       = 1
	exitUsage             = 2
	exitRuntime           = 4
	exitInvalidStructure  = 10
	exitInvalidFeatureAPI = 11
	exitFeatureRejected   = 12
)

// exitError attaches an exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(err error) error   { return &exitError{code: exitUsage, err: err} }
func runtimeErr(err error) error { return &exitError{code: exitRuntime, err: err} }

// exitCode maps a command error to the process exit code. Failed stages
// map to a code per stage; stages that failed unexpectedly are runtime
// errors.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	switch {
	case errors.Is(err, validation.ErrInvalidProjectStructure):
		return exitInvalidStructure
	case errors.Is(err, validation.ErrInvalidFeatureAPI):
		return exitInvalidFeatureAPI
	case errors.Is(err, validation.ErrFeatureRejected):
		return exitFeatureRejected
	case errors.Is(err, config.ErrUnknownKey):
		return exitUsage
	}

	var se *validation.StageError
	if errors.As(err, &se) {
		if se.Err == nil {
			return exitRuntime
		}
		return exitStageFailed
	}
	return exitRuntime
}
