package main

import (
	"errors"

	"mocap/internal/mocaperr"
	"mocap/internal/pipeline"
)

const (
	exitFailure     = 1
	exitInvalidData = 2
)

// exitCode maps a command error to the process exit status: invalid input
// data exits 2, everything else 1.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case mocaperr.IsDataError(err), errors.Is(err, pipeline.ErrNoCuts):
		return exitInvalidData
	default:
		return exitFailure
	}
}
