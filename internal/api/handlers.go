package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/middleware"
	"github.com/triage-risk-service/internal/model"
)

// TrainRequest is the body of POST /api/v1/train.
type TrainRequest struct {
	Data []*domain.TrainingSample `json:"data"`
}

// DurationModelInfo describes the duration model in /model-info.
type DurationModelInfo struct {
	ModelType         string      `json:"modelType"`
	ModelVersion      string      `json:"modelVersion"`
	RequiresDayOfWeek bool        `json:"requiresDayOfWeek"`
	Performance       Performance `json:"performance"`
	TrainingSamples   int         `json:"trainingSamples"`
	Confidence        interface{} `json:"confidence"`
}

// Performance holds held-out metrics. Nil means unknown.
type Performance struct {
	MAE *float64 `json:"mae"`
	R2  *float64 `json:"r2"`
}

// ModelInfoResponse is the body of GET /api/v1/model-info.
type ModelInfoResponse struct {
	Risk                domain.ModelInfo     `json:"risk"`
	Duration            DurationModelInfo    `json:"duration"`
	StoredSamples       int64                `json:"storedSamples"`
	SuggestedRetraining bool                 `json:"suggestedRetraining"`
	VocabularySize      int                  `json:"vocabularySize"`
	TablesVersion       string               `json:"tablesVersion"`
	Thresholds          domain.ThresholdInfo `json:"thresholds"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Model      string            `json:"model"`
	ModelType  string            `json:"modelType"`
	Duration   string            `json:"durationModel"`
	Components map[string]string `json:"components,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (s *Server) handleRiskPredict(c *gin.Context) {
	var req domain.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("body", "Invalid request body", err.Error()))
		return
	}

	result, err := s.deps.Risk.Assess(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDurationPredict(c *gin.Context) {
	var req domain.DurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondDurationError(c, domain.NewValidationError("body", "Invalid request body", err.Error()))
		return
	}

	result, err := s.deps.Duration.Predict(c.Request.Context(), &req)
	if err != nil {
		s.respondDurationError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTrain(c *gin.Context) {
	if s.deps.Training == nil {
		c.JSON(http.StatusServiceUnavailable, domain.NewServiceError(
			domain.ErrDatabaseError, "Training store not configured", "", requestID(c)))
		return
	}

	var req TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("body", "Invalid request body", err.Error()))
		return
	}

	result, err := s.deps.Training.Ingest(c.Request.Context(), req.Data, "api")
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleModelInfo(c *gin.Context) {
	ctx := c.Request.Context()
	tables := s.deps.Risk.Tables()
	active := s.deps.Duration.ActiveModel()

	resp := ModelInfoResponse{
		Risk: s.deps.Risk.ModelInfo(),
		Duration: DurationModelInfo{
			ModelType:         active.Type,
			ModelVersion:      active.Version,
			RequiresDayOfWeek: active.Type == model.DurationTypeTrained,
			Performance:       Performance{MAE: active.MAE, R2: active.R2},
			TrainingSamples:   active.TrainingSamples,
			Confidence:        "variable",
		},
		VocabularySize: tables.VocabularySize(),
		TablesVersion:  tables.Version(),
		Thresholds:     tables.Thresholds().Info(),
	}
	if active.Type != model.DurationTypeTrained {
		resp.Duration.Confidence = model.HeuristicConfidence
	}

	if s.deps.Training != nil {
		if total, err := s.deps.Training.TotalSamples(ctx); err == nil {
			resp.StoredSamples = total
		} else {
			s.logger.WithError(err).Warn("Could not count training samples")
		}
		if suggest, err := s.deps.Training.SuggestRetraining(ctx); err == nil {
			resp.SuggestedRetraining = suggest
		} else {
			s.logger.WithError(err).Warn("Could not check retraining state")
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	risk := s.deps.Risk.ModelInfo()
	resp := HealthResponse{
		Status:     "healthy",
		Model:      risk.Version,
		ModelType:  risk.Type,
		Duration:   s.deps.Duration.ActiveModel().Version,
		Components: make(map[string]string, len(s.deps.Checks)),
		Timestamp:  time.Now().UTC(),
	}

	status := http.StatusOK
	for name, check := range s.deps.Checks {
		if err := check(c.Request.Context()); err != nil {
			resp.Components[name] = "unhealthy: " + err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "healthy"
	}

	c.JSON(status, resp)
}

// respondError maps validation failures to 400 and everything else to 500
// with the error description.
func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, domain.NewServiceError(
			domain.ErrValidation, validationErr.Message, validationErr.Field, requestID(c)))
		return
	}

	s.logger.WithFields(logrus.Fields{
		"correlation_id": requestID(c),
		"path":           c.FullPath(),
		"error":          err.Error(),
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, domain.NewServiceError(
		domain.ErrInternalServer, "Internal server error", err.Error(), requestID(c)))
}

// respondDurationError keeps a usable estimate in every error body so the
// booking flow can continue.
func (s *Server) respondDurationError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		fallback := s.deps.Duration.FallbackResult()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             validationErr.Message,
			"code":              domain.ErrValidation,
			"predictedDuration": fallback.PredictedDuration,
			"confidence":        fallback.Confidence,
			"modelVersion":      fallback.ModelVersion,
			"modelType":         fallback.ModelType,
		})
		return
	}

	s.logger.WithError(err).Error("Duration prediction failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":             err.Error(),
		"code":              domain.ErrInternalServer,
		"predictedDuration": 20,
		"confidence":        0.1,
		"modelVersion":      "error-fallback",
		"modelType":         "fallback",
	})
}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.CorrelationKey)
}
