package metric

import (
	"fmt"
	"strings"

	"goab/domain/core"
)

// Config keys of a declarative metric definition
const (
	KeyName                = "name"
	KeyType                = "type"
	KeyLevel               = "level"
	KeyEstimator           = "estimator"
	KeyNumerator           = "numerator"
	KeyDenominator         = "denominator"
	KeyAggregationField    = "aggregation_field"
	KeyAggregationFunction = "aggregation_function"
)

// Defaults fill the optional keys of a metric definition.
type Defaults struct {
	Type      string
	Level     string
	Estimator string
}

// DefaultDefaults matches the stock pipeline settings.
func DefaultDefaults() Defaults {
	return Defaults{
		Type:      string(TypeRatio),
		Level:     "client_id",
		Estimator: EstimatorTTestLinearization,
	}
}

// FieldSpec is one side of a ratio: the source column and how to reduce it per unit.
type FieldSpec struct {
	Field    string      `json:"aggregation_field"`
	Function Aggregation `json:"-"`
}

// Definition is a validated metric. It is read-only once built.
type Definition struct {
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Level       string    `json:"level"`
	Estimator   Estimator `json:"estimator"`
	Numerator   FieldSpec `json:"numerator"`
	Denominator FieldSpec `json:"denominator"`
	Fingerprint core.Hash `json:"fingerprint"`
}

// Parse builds a Definition from a decoded config mapping (YAML or JSON).
// Every required key must be present; nothing falls back to a placeholder.
func Parse(raw map[string]any, defaults Defaults) (*Definition, error) {
	if raw == nil {
		return nil, core.NewMissingFieldError("", KeyName)
	}

	name, err := stringField(raw, KeyName, "")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, core.NewMissingFieldError("", KeyName)
	}

	typeName, err := stringField(raw, KeyType, defaults.Type)
	if err != nil {
		return nil, err
	}
	metricType, err := ParseType(typeName)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}

	level, err := stringField(raw, KeyLevel, defaults.Level)
	if err != nil {
		return nil, err
	}
	if level == "" {
		return nil, core.NewMissingFieldError(name, KeyLevel)
	}

	estimatorName, err := stringField(raw, KeyEstimator, defaults.Estimator)
	if err != nil {
		return nil, err
	}
	estimator, err := ParseEstimator(estimatorName)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}

	numerator, err := parseFieldSpec(raw, name, KeyNumerator)
	if err != nil {
		return nil, err
	}
	denominator, err := parseFieldSpec(raw, name, KeyDenominator)
	if err != nil {
		return nil, err
	}

	return &Definition{
		Name:        name,
		Type:        metricType,
		Level:       level,
		Estimator:   estimator,
		Numerator:   numerator,
		Denominator: denominator,
		Fingerprint: core.ComputeConfigHash(raw),
	}, nil
}

func parseFieldSpec(raw map[string]any, metricName, key string) (FieldSpec, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return FieldSpec{}, core.NewMissingFieldError(metricName, key)
	}
	section, ok := asStringMap(value)
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %s of metric %q must be a mapping", core.ErrConfig, key, metricName)
	}

	field, err := stringField(section, KeyAggregationField, "")
	if err != nil {
		return FieldSpec{}, fmt.Errorf("metric %q %s: %w", metricName, key, err)
	}
	if field == "" {
		return FieldSpec{}, core.NewMissingFieldError(metricName, key+"."+KeyAggregationField)
	}

	fnName, err := stringField(section, KeyAggregationFunction, "")
	if err != nil {
		return FieldSpec{}, fmt.Errorf("metric %q %s: %w", metricName, key, err)
	}
	if fnName == "" {
		return FieldSpec{}, fmt.Errorf("%w: no %s found in %s of metric %q",
			core.ErrUnknownAggregation, KeyAggregationFunction, key, metricName)
	}
	fn, err := ParseAggregation(fnName)
	if err != nil {
		return FieldSpec{}, fmt.Errorf("metric %q %s: %w", metricName, key, err)
	}

	return FieldSpec{Field: field, Function: fn}, nil
}

func stringField(raw map[string]any, key, fallback string) (string, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return fallback, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", core.ErrConfig, key, value)
	}
	return strings.TrimSpace(s), nil
}

// asStringMap accepts both map[string]any and the map[any]any shape some
// decoders produce for nested mappings.
func asStringMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	}
	return nil, false
}

// RequiredColumns lists the raw table columns the metric reads, besides the variant column.
func (d *Definition) RequiredColumns() []string {
	cols := []string{d.Level, d.Numerator.Field}
	if d.Denominator.Field != d.Numerator.Field {
		cols = append(cols, d.Denominator.Field)
	}
	return cols
}

func (d *Definition) String() string {
	return fmt.Sprintf("%s(%s(%s)/%s(%s) by %s, %s)", d.Name,
		d.Numerator.Function, d.Numerator.Field,
		d.Denominator.Function, d.Denominator.Field,
		d.Level, d.Estimator)
}
