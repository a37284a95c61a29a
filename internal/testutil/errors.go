// Package testutil provides testing utilities for fez.
//
// This package contains mock errors and key fixtures used across test files.
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
// These errors are used to simulate various failure scenarios in tests.
var (
	// ErrMockFileNotFound indicates a mock file was not found (used in tests).
	ErrMockFileNotFound = errors.New("file not found")

	// ErrMockHSMUnavailable indicates a mock hardware signer is unavailable (used in tests).
	ErrMockHSMUnavailable = errors.New("hsm unavailable")

	// ErrMockPermissionDenied indicates a mock permission failure (used in tests).
	ErrMockPermissionDenied = errors.New("permission denied")
)
