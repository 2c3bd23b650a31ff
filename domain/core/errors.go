package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors: the metric definition or run settings are unusable
	ErrConfig                = errors.New("invalid metric configuration")
	ErrUnknownAggregation    = fmt.Errorf("%w: unknown aggregation function", ErrConfig)
	ErrUnsupportedEstimator  = fmt.Errorf("%w: unsupported estimator", ErrConfig)
	ErrUnsupportedMetricType = fmt.Errorf("%w: unsupported metric type", ErrConfig)
	ErrMissingField          = fmt.Errorf("%w: missing required field", ErrConfig)

	// Data errors: the input table violates a precondition of the pipeline
	ErrData          = errors.New("invalid experiment data")
	ErrVariantCount  = fmt.Errorf("%w: expected exactly two variants", ErrData)
	ErrMissingColumn = fmt.Errorf("%w: missing column", ErrData)
	ErrInvalidValue  = fmt.Errorf("%w: invalid value", ErrData)
	ErrEmptyTable    = fmt.Errorf("%w: empty table", ErrData)

	// Numerical errors: recoverable per metric, reported as a null result
	ErrNumerical          = errors.New("statistical computation failed")
	ErrDegenerateVariance = fmt.Errorf("%w: degenerate variance", ErrNumerical)
	ErrInsufficientData   = fmt.Errorf("%w: insufficient data", ErrNumerical)
	ErrNonFinite          = fmt.Errorf("%w: non-finite result", ErrNumerical)
)

// NewMissingFieldError reports an absent metric config key.
func NewMissingFieldError(metric, field string) error {
	return fmt.Errorf("%w %q in metric %q", ErrMissingField, field, metric)
}

func NewUnknownAggregationError(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownAggregation, name)
}

func NewUnsupportedEstimatorError(name string) error {
	return fmt.Errorf("%w %q", ErrUnsupportedEstimator, name)
}

// NewVariantCountError names the variants that were actually found.
func NewVariantCountError(variants []string) error {
	return fmt.Errorf("%w, found %d: %v", ErrVariantCount, len(variants), variants)
}

func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w %q", ErrMissingColumn, column)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrData)
}

func IsNumericalError(err error) bool {
	return errors.Is(err, ErrNumerical)
}
