package main

import (
	"errors"

	"github.com/JonMunkholm/stopload/internal/core"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
	exitUsage   = 3
	exitDB      = 4
	exitImport  = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitFailure
}

// codeForKind maps an import run failure to its process exit code.
func codeForKind(err error) int {
	kind, ok := core.KindOf(err)
	if !ok {
		return exitFailure
	}
	switch kind {
	case core.KindConfiguration:
		return exitConfig
	case core.KindConnection, core.KindSchema, core.KindIndexCreation:
		return exitDB
	case core.KindImport:
		return exitImport
	default:
		return exitFailure
	}
}
