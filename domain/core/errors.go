package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Selection errors
	ErrInvalidSelection = errors.New("invalid variable selection")
	ErrColumnNotFound   = fmt.Errorf("%w: column not found", ErrInvalidSelection)

	// Estimation errors
	ErrInsufficientData = errors.New("insufficient data for estimation")
	ErrFittingFailure   = errors.New("model fitting failed")
	ErrSingularMatrix   = errors.New("matrix is singular or numerically non-invertible")

	// Lookup errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: analysis run", ErrNotFound)
)

// NewSelectionError reports a rejected column selection
func NewSelectionError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidSelection, field, reason)
}

// NewInsufficientDataError names the model that could not be estimated
func NewInsufficientDataError(model string, nobs, required int) error {
	return fmt.Errorf("%w: %s needs more than %d usable observations, got %d", ErrInsufficientData, model, required, nobs)
}

// NewFittingError wraps a numerical failure of the named fit
func NewFittingError(model string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrFittingFailure, model)
	}
	return fmt.Errorf("%w: %s: %v", ErrFittingFailure, model, cause)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsSelectionError(err error) bool {
	return errors.Is(err, ErrInvalidSelection)
}

func IsEstimationError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrFittingFailure) ||
		errors.Is(err, ErrSingularMatrix)
}
