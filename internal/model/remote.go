package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/triage-risk-service/internal/domain"
)

// RemoteConfig configures a RemoteModel.
type RemoteConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit int
	Classes   []string
}

// RemoteModel calls a model server exposing the TensorFlow Serving REST
// predict API, with one model named "severity" and one named "urgency".
type RemoteModel struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	classes    []string
}

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type severityResponse struct {
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error,omitempty"`
}

type urgencyResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// NewRemoteModel creates a rate-limited model server client.
func NewRemoteModel(config RemoteConfig) *RemoteModel {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 50
	}
	classes := config.Classes
	if len(classes) == 0 {
		classes = []string{
			string(domain.UrgencyLow),
			string(domain.UrgencyModerate),
			string(domain.UrgencyHigh),
		}
	}

	return &RemoteModel{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		classes: classes,
	}
}

// PredictSeverity implements domain.TriageModel.
func (m *RemoteModel) PredictSeverity(ctx context.Context, features domain.FeatureVector) (float64, error) {
	var resp severityResponse
	if err := m.predict(ctx, "severity", features, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, domain.NewModelInferenceError("remote", "severity", fmt.Errorf("server error: %s", resp.Error))
	}
	if len(resp.Predictions) != 1 {
		return 0, domain.NewModelInferenceError("remote", "severity",
			fmt.Errorf("expected 1 prediction, got %d", len(resp.Predictions)))
	}
	return resp.Predictions[0], nil
}

// PredictUrgency implements domain.TriageModel.
func (m *RemoteModel) PredictUrgency(ctx context.Context, features domain.FeatureVector) (int, []float64, error) {
	var resp urgencyResponse
	if err := m.predict(ctx, "urgency", features, &resp); err != nil {
		return 0, nil, err
	}
	if resp.Error != "" {
		return 0, nil, domain.NewModelInferenceError("remote", "urgency", fmt.Errorf("server error: %s", resp.Error))
	}
	if len(resp.Predictions) != 1 {
		return 0, nil, domain.NewModelInferenceError("remote", "urgency",
			fmt.Errorf("expected 1 prediction, got %d", len(resp.Predictions)))
	}
	probs := resp.Predictions[0]
	if len(probs) != len(m.classes) {
		return 0, nil, domain.NewModelInferenceError("remote", "urgency",
			fmt.Errorf("expected %d class probabilities, got %d", len(m.classes), len(probs)))
	}
	return argmax(probs), probs, nil
}

// Info implements domain.TriageModel.
func (m *RemoteModel) Info() domain.ModelInfo {
	return domain.ModelInfo{
		Name:    "remote",
		Type:    "remote",
		Version: m.baseURL,
		Classes: append([]string(nil), m.classes...),
	}
}

// Health checks that the severity model is being served.
func (m *RemoteModel) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v1/models/severity", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server returned status %d", resp.StatusCode)
	}
	return nil
}

func (m *RemoteModel) predict(ctx context.Context, name string, features domain.FeatureVector, out interface{}) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return domain.NewModelInferenceError("remote", name, fmt.Errorf("rate limiter: %w", err))
	}

	body, err := json.Marshal(predictRequest{Instances: [][]float64{features}})
	if err != nil {
		return domain.NewModelInferenceError("remote", name, err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", m.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.NewModelInferenceError("remote", name, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return domain.NewModelInferenceError("remote", name, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewModelInferenceError("remote", name, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return domain.NewModelInferenceError("remote", name, fmt.Errorf("status %d: %s", resp.StatusCode, payload))
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return domain.NewModelInferenceError("remote", name, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}
