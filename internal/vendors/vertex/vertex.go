// Package vertex invokes AutoML image classification endpoints on Vertex AI.
package vertex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"visionbench/internal/domain"
	"visionbench/internal/vendors"
)

const (
	name  = "vertex"
	scope = "https://www.googleapis.com/auth/cloud-platform"
)

// Config identifies the endpoint and the service-account file.
type Config struct {
	Project         string
	Region          string
	EndpointID      string
	CredentialsFile string
	// BaseURL overrides https://{region}-aiplatform.googleapis.com.
	BaseURL string
	Timeout time.Duration
}

// Client classifies images with one deployed endpoint.
type Client struct {
	url    string
	client *http.Client
}

// NewClient authenticates with the service-account JSON file.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, domain.Configf("vertex: read credentials %s: %v", cfg.CredentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scope)
	if err != nil {
		return nil, domain.Configf("vertex: parse credentials: %v", err)
	}
	if cfg.Project == "" {
		cfg.Project = creds.ProjectID
	}
	return NewClientWithHTTP(cfg, oauth2.NewClient(ctx, creds.TokenSource))
}

// NewClientWithHTTP uses an already-authorized HTTP client.
func NewClientWithHTTP(cfg Config, hc *http.Client) (*Client, error) {
	if cfg.Project == "" || cfg.Region == "" || cfg.EndpointID == "" {
		return nil, domain.Configf("vertex: project, region and endpoint are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Region)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	hc.Timeout = t
	return &Client{
		url: fmt.Sprintf("%s/v1/projects/%s/locations/%s/endpoints/%s:predict",
			strings.TrimSuffix(cfg.BaseURL, "/"), cfg.Project, cfg.Region, cfg.EndpointID),
		client: hc,
	}, nil
}

func (c *Client) Name() string { return name }

type predictRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}

type instance struct {
	Content string `json:"content"`
}

type parameters struct {
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
	MaxPredictions      int     `json:"maxPredictions"`
}

type predictResponse struct {
	Predictions []struct {
		DisplayNames []string  `json:"displayNames"`
		Confidences  []float64 `json:"confidences"`
	} `json:"predictions"`
	DeployedModelID string `json:"deployedModelId"`
}

// Classify sends the base64 image and returns the most confident label.
func (c *Client) Classify(ctx context.Context, image []byte) (domain.Prediction, error) {
	body, err := json.Marshal(predictRequest{
		Instances:  []instance{{Content: base64.StdEncoding.EncodeToString(image)}},
		Parameters: parameters{ConfidenceThreshold: 0, MaxPredictions: 5},
	})
	if err != nil {
		return domain.Prediction{}, err
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	payload, err := vendors.Do(ctx, c.client, nil, name, req)
	if err != nil {
		return domain.Prediction{}, err
	}
	var out predictResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return domain.Prediction{}, domain.MalformedResponse(name, err)
	}
	if len(out.Predictions) == 0 {
		return domain.Prediction{}, nil
	}
	p := out.Predictions[0]
	if len(p.DisplayNames) != len(p.Confidences) {
		return domain.Prediction{}, domain.MalformedResponse(name, errors.New("displayNames and confidences differ in length"))
	}
	i := vendors.Argmax(p.Confidences)
	if i < 0 {
		return domain.Prediction{}, nil
	}
	return domain.Prediction{Label: p.DisplayNames[i], Confidence: p.Confidences[i]}, nil
}
