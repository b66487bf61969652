package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/guillermoBallester/strata/internal/core/domain"
)

// Exit codes.
const (
	exitGeneral = 1
	exitConfig  = 2
	exitConnect = 4
)

// exitError wraps an error with the process exit code it maps to.
type exitError struct {
	Code    int
	Message string
	Err     error
}

func (e *exitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *exitError) Unwrap() error {
	return e.Err
}

func configError(msg string, err error) *exitError {
	return &exitError{Code: exitConfig, Message: msg, Err: err}
}

func connectError(msg string, err error) *exitError {
	return &exitError{Code: exitConnect, Message: msg, Err: err}
}

func generalError(msg string, err error) *exitError {
	return &exitError{Code: exitGeneral, Message: msg, Err: err}
}

// classify picks the exit error for err from its domain kind.
func classify(msg string, err error) *exitError {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return configError(msg, err)
	case errors.Is(err, domain.ErrConnection):
		return connectError(msg, err)
	default:
		return generalError(msg, err)
	}
}

func exitCode(err error) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return classify("", err).Code
}

// exitWithError prints err and exits with its code.
func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(exitCode(err))
}
