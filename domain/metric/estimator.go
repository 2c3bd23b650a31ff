package metric

import (
	"fmt"
	"strings"

	"goab/domain/core"
)

// Estimator names the hypothesis test applied to a metric.
type Estimator string

const (
	EstimatorTTest       Estimator = "t_test"
	EstimatorMannWhitney Estimator = "mann_whitney"
	EstimatorPropTest    Estimator = "prop_test"
)

// EstimatorTTestLinearization is the historical default name, kept as an alias of t_test.
const EstimatorTTestLinearization = "t_test_linearization"

// Estimators lists every supported estimator in a stable order.
func Estimators() []Estimator {
	return []Estimator{EstimatorTTest, EstimatorMannWhitney, EstimatorPropTest}
}

// ParseEstimator resolves a config name, accepting the linearization alias.
func ParseEstimator(name string) (Estimator, error) {
	switch strings.TrimSpace(name) {
	case string(EstimatorTTest), EstimatorTTestLinearization:
		return EstimatorTTest, nil
	case string(EstimatorMannWhitney):
		return EstimatorMannWhitney, nil
	case string(EstimatorPropTest):
		return EstimatorPropTest, nil
	}
	return "", core.NewUnsupportedEstimatorError(name)
}

func (e Estimator) String() string { return string(e) }

// Type is the metric shape. Only ratio metrics have a statistics strategy.
type Type string

const TypeRatio Type = "ratio"

func ParseType(name string) (Type, error) {
	if strings.TrimSpace(name) == string(TypeRatio) {
		return TypeRatio, nil
	}
	return "", fmt.Errorf("%w %q", core.ErrUnsupportedMetricType, name)
}
