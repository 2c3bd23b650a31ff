package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"goab/domain/core"
	"goab/domain/metric"
	"goab/domain/run"
	"goab/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) SaveReport(ctx context.Context, report *run.Report) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockRepo) ListByRun(ctx context.Context, runID core.RunID) ([]run.MetricResult, error) {
	args := m.Called(ctx, runID)
	results, _ := args.Get(0).([]run.MetricResult)
	return results, args.Error(1)
}

func (m *mockRepo) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]run.Manifest)
	return runs, args.Error(1)
}

func newTestServer(repo *mockRepo) *Server {
	evaluator := pipeline.New(pipeline.DefaultOptions(), nil)
	if repo == nil {
		return NewServer(evaluator, metric.DefaultDefaults(), nil, nil)
	}
	return NewServer(evaluator, metric.DefaultDefaults(), repo, nil)
}

func countRows() []map[string]any {
	var rows []map[string]any
	for i, c := range []int{1, 1, 0, 1} {
		rows = append(rows, map[string]any{"experiment_variant": 0, "client_id": fmt.Sprintf("a%d", i), "clicks": c})
	}
	for i, c := range []int{1, 0, 0, 0} {
		rows = append(rows, map[string]any{"experiment_variant": 1, "client_id": fmt.Sprintf("b%d", i), "clicks": c})
	}
	return rows
}

func clicksMetric(fn string) map[string]any {
	return map[string]any{
		"name":        "clicks_per_user",
		"estimator":   "t_test",
		"numerator":   map[string]any{"aggregation_field": "clicks", "aggregation_function": fn},
		"denominator": map[string]any{"aggregation_field": "client_id", "aggregation_function": "count_distinct"},
	}
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthAndEstimators(t *testing.T) {
	s := newTestServer(nil)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/estimators", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Estimators []struct {
			Name string `json:"name"`
		} `json:"estimators"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Estimators, 3)
	assert.Equal(t, "t_test", body.Estimators[0].Name)
}

func TestEvaluate_Success(t *testing.T) {
	w := do(t, newTestServer(nil), http.MethodPost, "/api/v1/evaluate", gin.H{
		"rows":    countRows(),
		"metrics": []any{clicksMetric("sum")},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report run.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Len(t, report.Results, 1)
	require.NotNil(t, report.Results[0].PValue)
	assert.InDelta(t, 0.20703125, *report.Results[0].PValue, 1e-9)
	assert.Equal(t, "clicks_per_user", report.Results[0].Metric)
}

func TestEvaluate_ConfigErrorIs422(t *testing.T) {
	w := do(t, newTestServer(nil), http.MethodPost, "/api/v1/evaluate", gin.H{
		"rows":    countRows(),
		"metrics": []any{clicksMetric("median")},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "METRIC_CONFIG")
}

func TestEvaluate_BadBodyIs400(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluate_PersistsReport(t *testing.T) {
	repo := &mockRepo{}
	repo.On("SaveReport", mock.Anything, mock.AnythingOfType("*run.Report")).Return(nil).Once()

	w := do(t, newTestServer(repo), http.MethodPost, "/api/v1/evaluate", gin.H{
		"rows":    countRows(),
		"metrics": []any{clicksMetric("sum")},
		"persist": true,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestEvaluate_PersistWithoutRepository(t *testing.T) {
	w := do(t, newTestServer(nil), http.MethodPost, "/api/v1/evaluate", gin.H{
		"rows":    countRows(),
		"metrics": []any{clicksMetric("sum")},
		"persist": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunResults(t *testing.T) {
	repo := &mockRepo{}
	runID := core.NewRunID()
	p := 0.2
	repo.On("ListByRun", mock.Anything, runID).Return([]run.MetricResult{{Metric: "ctr", PValue: &p}}, nil).Once()
	repo.On("ListRuns", mock.Anything, 20).Return([]run.Manifest{{RunID: runID}}, nil).Once()
	s := newTestServer(repo)

	w := do(t, s, http.MethodGet, "/api/v1/runs/"+runID.String()+"/results", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ctr"`)

	w = do(t, s, http.MethodGet, "/api/v1/runs", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/runs/not-a-uuid/results", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	repo.AssertExpectations(t)
}
