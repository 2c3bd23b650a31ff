package preset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"goab/domain/core"
	"goab/domain/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ctrYAML = `
name: ctr
estimator: t_test
numerator:
  aggregation_field: clicks
  aggregation_function: sum
denominator:
  aggregation_field: views
  aggregation_function: sum
`

const multiDoc = `
name: clicks_per_user
numerator:
  aggregation_field: clicks
  aggregation_function: sum
denominator:
  aggregation_field: client_id
  aggregation_function: count_distinct
---
name: conversion
estimator: prop_test
numerator:
  aggregation_field: converted
  aggregation_function: sum
denominator:
  aggregation_field: client_id
  aggregation_function: count_distinct
`

func writePreset(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "default")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return root
}

func TestLoad_SortedFilesAndDocuments(t *testing.T) {
	root := writePreset(t, map[string]string{
		"b_ctr.yaml":  ctrYAML,
		"a_multi.yml": multiDoc,
		"README.md":   "ignored",
	})

	defs, err := NewLoader(root, metric.DefaultDefaults()).Load("default")
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, "clicks_per_user", defs[0].Name)
	assert.Equal(t, metric.EstimatorTTest, defs[0].Estimator, "default estimator applied")
	assert.Equal(t, "conversion", defs[1].Name)
	assert.Equal(t, metric.EstimatorPropTest, defs[1].Estimator)
	assert.Equal(t, "ctr", defs[2].Name)
}

func TestLoad_Errors(t *testing.T) {
	root := writePreset(t, map[string]string{"bad.yaml": strings.Replace(ctrYAML, "sum", "median", 1)})
	_, err := NewLoader(root, metric.DefaultDefaults()).Load("default")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownAggregation)
	assert.Contains(t, err.Error(), "bad.yaml")

	_, err = NewLoader(root, metric.DefaultDefaults()).Load("missing")
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = NewLoader(root, metric.DefaultDefaults()).Load("../etc")
	assert.ErrorIs(t, err, core.ErrConfig)

	dup := writePreset(t, map[string]string{"a.yaml": ctrYAML, "b.yaml": ctrYAML})
	_, err = NewLoader(dup, metric.DefaultDefaults()).Load("default")
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestDecode_InvalidYAML(t *testing.T) {
	_, err := Decode(strings.NewReader("name: [unterminated"), metric.DefaultDefaults())
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestLoad_ShippedDefaultPreset(t *testing.T) {
	defs, err := NewLoader(filepath.Join("..", "..", "params", "metrics"), metric.DefaultDefaults()).Load("default")
	require.NoError(t, err)

	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	assert.Equal(t, []string{
		"clicks_per_client", "ctr", "ctr_per_client",
		"conversion_rate", "revenue_per_session",
	}, names)
	assert.Equal(t, metric.EstimatorMannWhitney, defs[2].Estimator)
	assert.Equal(t, metric.EstimatorPropTest, defs[3].Estimator)
}
