// Package huggingface invokes models on the hosted inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"visionbench/internal/domain"
	"visionbench/internal/vendors"
)

// Client classifies images with one hosted model.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

// Config configures the inference client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// NewClient creates an inference client for cfg.Model.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, domain.Configf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		return nil, domain.Configf("huggingface: model id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  key,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
		limiter: vendors.NewLimiter(cfg.RequestsPerSecond),
	}, nil
}

// Name returns the vendor tag used in results file names.
func (c *Client) Name() string { return "hg" }

// Classify posts the raw image and returns the first (highest scored) label.
func (c *Client) Classify(ctx context.Context, image []byte) (domain.Prediction, error) {
	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return domain.Prediction{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	payload, err := vendors.Do(ctx, c.client, c.limiter, c.Name(), req)
	if err != nil {
		return domain.Prediction{}, err
	}
	var out []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return domain.Prediction{}, domain.MalformedResponse(c.Name(), err)
	}
	if len(out) == 0 {
		return domain.Prediction{}, nil
	}
	return domain.Prediction{Label: out[0].Label, Confidence: out[0].Score}, nil
}
