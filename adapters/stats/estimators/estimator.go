package estimators

import (
	"fmt"

	"goab/domain/core"
	"goab/domain/metric"
	"goab/domain/stats"
	"goab/ports"
)

var (
	_ ports.EstimatorPort = (*TTest)(nil)
	_ ports.EstimatorPort = (*MannWhitney)(nil)
	_ ports.EstimatorPort = (*PropTest)(nil)
)

// Estimator runs one hypothesis test on summary statistics. Implementations
// never return an error: numerical trouble becomes a failed EstimatorResult.
type Estimator interface {
	Name() string
	Description() string
	Estimate(st stats.Statistics) stats.EstimatorResult
}

// Options tune estimator construction.
type Options struct {
	// EqualVar selects the pooled-variance Student t-test; false selects Welch.
	EqualVar bool
}

// DefaultOptions matches the stock pipeline (pooled-variance t-test).
func DefaultOptions() Options {
	return Options{EqualVar: true}
}

// New resolves an estimator by name.
func New(name metric.Estimator, opts Options) (Estimator, error) {
	switch name {
	case metric.EstimatorTTest:
		return NewTTest(opts.EqualVar), nil
	case metric.EstimatorMannWhitney:
		return NewMannWhitney(), nil
	case metric.EstimatorPropTest:
		return NewPropTest(), nil
	}
	return nil, core.NewUnsupportedEstimatorError(string(name))
}

// Run calls e.Estimate and converts a panic inside the test into a failed
// result so one broken metric cannot abort a batch.
func Run(e Estimator, st stats.Statistics) (res stats.EstimatorResult) {
	defer func() {
		if r := recover(); r != nil {
			res = stats.Failure(fmt.Errorf("%w: %s panicked: %v", core.ErrNumerical, e.Name(), r))
		}
	}()
	return e.Estimate(st)
}
