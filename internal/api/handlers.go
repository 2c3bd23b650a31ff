package api

import (
	"net/http"
	"strconv"

	"goab/adapters/stats/estimators"
	"goab/domain/core"
	"goab/domain/dataset"
	"goab/domain/metric"
	apperrors "goab/internal/errors"

	"github.com/gin-gonic/gin"
)

// EvaluateRequest is the body of POST /api/v1/evaluate
type EvaluateRequest struct {
	Rows    []map[string]any `json:"rows" binding:"required"`
	Metrics []map[string]any `json:"metrics" binding:"required"`
	Preset  string           `json:"preset"`
	Persist bool             `json:"persist"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleEstimators(c *gin.Context) {
	opts := estimators.Options{EqualVar: s.evaluator.Options().EqualVar}

	list := make([]gin.H, 0, len(metric.Estimators()))
	for _, name := range metric.Estimators() {
		est, err := estimators.New(name, opts)
		if err != nil {
			continue
		}
		list = append(list, gin.H{"name": est.Name(), "description": est.Description()})
	}
	c.JSON(http.StatusOK, gin.H{"estimators": list})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.WithCode(apperrors.CodeInvalidInput, err))
		return
	}

	defs := make([]*metric.Definition, 0, len(req.Metrics))
	for _, raw := range req.Metrics {
		def, err := metric.Parse(raw, s.defaults)
		if err != nil {
			s.respondError(c, err)
			return
		}
		defs = append(defs, def)
	}

	table, err := dataset.FromRecords(req.Rows)
	if err != nil {
		s.respondError(c, apperrors.WithCode(apperrors.CodeInvalidInput, err))
		return
	}

	report, err := s.evaluator.Run(c.Request.Context(), table, defs, req.Preset, "api")
	if err != nil {
		s.respondError(c, err)
		return
	}

	if req.Persist {
		if s.repo == nil {
			s.respondError(c, apperrors.InvalidInput("persistence is not configured"))
			return
		}
		if err := s.repo.SaveReport(c.Request.Context(), report); err != nil {
			s.respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		s.respondError(c, apperrors.InvalidInput("limit must be a non-negative integer"))
		return
	}

	runs, err := s.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunResults(c *gin.Context) {
	runID, err := core.ParseRunID(c.Param("runId"))
	if err != nil {
		s.respondError(c, apperrors.WithCode(apperrors.CodeInvalidInput, err))
		return
	}

	results, err := s.repo.ListByRun(c.Request.Context(), runID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if len(results) == 0 {
		s.respondError(c, apperrors.NotFound("run "+runID.String()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "results": results})
}

func (s *Server) respondError(c *gin.Context, err error) {
	code := apperrors.CodeFor(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func statusFor(code string) int {
	switch code {
	case apperrors.CodeMetricConfig, apperrors.CodeConfigInvalid:
		return http.StatusUnprocessableEntity
	case apperrors.CodeDataPrecondition, apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
