// Package azure scores images against an Azure ML online endpoint.
package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"visionbench/internal/domain"
	"visionbench/internal/vendors"
)

const name = "azure"

// Config names the scoring URI and the env var holding the endpoint key.
type Config struct {
	ScoringURI string
	KeyEnv     string
	Timeout    time.Duration
}

// Client calls one online endpoint.
type Client struct {
	uri    string
	key    string
	client *http.Client
}

// NewClient creates an endpoint client.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.KeyEnv)
	if key == "" {
		return nil, domain.Configf("missing endpoint key in env %s", cfg.KeyEnv)
	}
	if cfg.ScoringURI == "" {
		return nil, domain.Configf("azure: scoring URI is required")
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{uri: cfg.ScoringURI, key: key, client: &http.Client{Timeout: t}}, nil
}

func (c *Client) Name() string { return name }

type scoringRequest struct {
	InputData inputData `json:"input_data"`
}

type inputData struct {
	Columns []string `json:"columns"`
	Index   []int    `json:"index"`
	Data    []string `json:"data"`
}

// Classify posts the base64 image and picks the label with the highest probability.
func (c *Client) Classify(ctx context.Context, image []byte) (domain.Prediction, error) {
	body, err := json.Marshal(scoringRequest{InputData: inputData{
		Columns: []string{"image"},
		Index:   []int{0},
		Data:    []string{base64.StdEncoding.EncodeToString(image)},
	}})
	if err != nil {
		return domain.Prediction{}, err
	}
	req, err := http.NewRequest(http.MethodPost, c.uri, bytes.NewReader(body))
	if err != nil {
		return domain.Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)
	payload, err := vendors.Do(ctx, c.client, nil, name, req)
	if err != nil {
		return domain.Prediction{}, err
	}
	var out []struct {
		Probs  []float64 `json:"probs"`
		Labels []string  `json:"labels"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return domain.Prediction{}, domain.MalformedResponse(name, err)
	}
	if len(out) == 0 {
		return domain.Prediction{}, nil
	}
	if len(out[0].Probs) != len(out[0].Labels) {
		return domain.Prediction{}, domain.MalformedResponse(name, errors.New("probs and labels differ in length"))
	}
	i := vendors.Argmax(out[0].Probs)
	if i < 0 {
		return domain.Prediction{}, nil
	}
	return domain.Prediction{Label: out[0].Labels[i], Confidence: out[0].Probs[i]}, nil
}
