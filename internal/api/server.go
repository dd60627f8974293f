// Package api exposes the triage, duration and training services over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/middleware"
	"github.com/triage-risk-service/internal/reference"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 30 * time.Second
)

// RiskAssessor runs the symptom triage pipeline.
type RiskAssessor interface {
	Assess(ctx context.Context, req *domain.PredictionRequest) (*domain.PredictionResult, error)
	ModelInfo() domain.ModelInfo
	Tables() *reference.Tables
}

// DurationPredictor estimates consultation length.
type DurationPredictor interface {
	Predict(ctx context.Context, req *domain.DurationRequest) (*domain.DurationResult, error)
	ActiveModel() domain.ModelInfo
	FallbackResult() *domain.DurationResult
}

// TrainingIntake accepts retraining samples.
type TrainingIntake interface {
	Ingest(ctx context.Context, samples []*domain.TrainingSample, source string) (*domain.TrainingBatchResult, error)
	SuggestRetraining(ctx context.Context) (bool, error)
	TotalSamples(ctx context.Context) (int64, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the services behind the routes. Training may be nil, in
// which case the training route answers 503.
type Dependencies struct {
	Risk     RiskAssessor
	Duration DurationPredictor
	Training TrainingIntake
	Checks   map[string]HealthCheck
}

// Server represents the HTTP server
type Server struct {
	config Config
	deps   Dependencies
	router *gin.Engine
	server *http.Server
	logger *logrus.Logger
}

// Config is the subset of application configuration the server needs.
type Config struct {
	Server   domain.ServerConfig
	Security domain.SecurityConfig
	Debug    bool
}

// NewServer creates a new HTTP server instance
func NewServer(config Config, deps Dependencies, logger *logrus.Logger) *Server {
	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.CORS(config.Security.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimit(config.Security.RateLimit, config.Security.RateBurst))
	router.Use(middleware.RequestTimeout(config.Security.RequestTimeout))
	router.Use(limitBody(maxBodyBytes))

	s := &Server{
		config: config,
		deps:   deps,
		router: router,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/risk/predict", s.handleRiskPredict)
		v1.POST("/duration/predict", s.handleDurationPredict)
		v1.POST("/train", s.handleTrain)
		v1.GET("/model-info", s.handleModelInfo)
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
