// Package nyckel manages and invokes Nyckel classification functions.
package nyckel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"visionbench/internal/domain"
	"visionbench/internal/vendors"
)

const name = "nyckel"

// Config configures the Nyckel client. Credentials are read from the named
// environment variables.
type Config struct {
	BaseURL           string
	TokenURL          string
	ClientIDEnv       string
	ClientSecretEnv   string
	Timeout           time.Duration
	UploadWorkers     int
	RequestsPerSecond float64
}

// Client talks to the Nyckel REST API with an auto-refreshing bearer token.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	workers int
	logger  *zap.Logger
}

// Function is a created classification function.
type Function struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// NewClient authenticates with the client-credentials grant. The token is
// fetched lazily on the first request.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	id, secret := os.Getenv(cfg.ClientIDEnv), os.Getenv(cfg.ClientSecretEnv)
	if id == "" || secret == "" {
		return nil, domain.Configf("missing nyckel credentials in env %s/%s", cfg.ClientIDEnv, cfg.ClientSecretEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.nyckel.com"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.TokenURL == "" {
		cfg.TokenURL = cfg.BaseURL + "/connect/token"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if cfg.UploadWorkers <= 0 {
		cfg.UploadWorkers = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cc := &clientcredentials.Config{
		ClientID:     id,
		ClientSecret: secret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: t})
	hc := cc.Client(ctx)
	hc.Timeout = t
	return &Client{
		baseURL: cfg.BaseURL,
		client:  hc,
		limiter: vendors.NewLimiter(cfg.RequestsPerSecond),
		workers: cfg.UploadWorkers,
		logger:  logger,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return vendors.Do(ctx, c.client, c.limiter, name, req)
}

// CreateFunction creates an image classification function.
func (c *Client) CreateFunction(ctx context.Context, fnName string) (Function, error) {
	payload, err := c.postJSON(ctx, "/v1/functions", Function{Name: fnName, Input: "Image", Output: "Classification"})
	if err != nil {
		return Function{}, err
	}
	var fn Function
	if err := json.Unmarshal(payload, &fn); err != nil {
		return Function{}, domain.MalformedResponse(name, err)
	}
	c.logger.Info("created function", zap.String("id", fn.ID), zap.String("name", fn.Name))
	return fn, nil
}

// CreateLabels posts every class as a label of the function and returns how
// many labels the function has afterwards.
func (c *Client) CreateLabels(ctx context.Context, functionID string, classes []string) (int, error) {
	for _, cls := range classes {
		if _, err := c.postJSON(ctx, fmt.Sprintf("/v1/functions/%s/labels", functionID), map[string]string{"name": cls}); err != nil {
			return 0, fmt.Errorf("create label %q: %w", cls, err)
		}
	}
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/v1/functions/%s/labels?batchSize=200", c.baseURL, functionID), nil)
	if err != nil {
		return 0, err
	}
	payload, err := vendors.Do(ctx, c.client, c.limiter, name, req)
	if err != nil {
		return 0, err
	}
	var labels []json.RawMessage
	if err := json.Unmarshal(payload, &labels); err != nil {
		return 0, domain.MalformedResponse(name, err)
	}
	c.logger.Info("created labels", zap.String("function", functionID), zap.Int("labels", len(labels)))
	return len(labels), nil
}

// multipartImage builds a form with the image under "data" plus extra fields.
func multipartImage(fileName string, image io.Reader, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("data", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// PostSample uploads one annotated training image.
func (c *Client) PostSample(ctx context.Context, functionID, fileName, label string, image io.Reader) error {
	body, contentType, err := multipartImage(fileName, image, map[string]string{"annotation.labelName": label})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/v1/functions/%s/samples", c.baseURL, functionID), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	_, err = vendors.Do(ctx, c.client, c.limiter, name, req)
	return err
}

// Classifier returns the invoker of one function.
func (c *Client) Classifier(functionID string) *Classifier {
	return &Classifier{client: c, functionID: functionID}
}

// Classifier invokes a trained function.
type Classifier struct {
	client     *Client
	functionID string
}

func (f *Classifier) Name() string { return name }

// Classify posts the image to the function's invoke endpoint.
func (f *Classifier) Classify(ctx context.Context, image []byte) (domain.Prediction, error) {
	c := f.client
	body, contentType, err := multipartImage("image", bytes.NewReader(image), nil)
	if err != nil {
		return domain.Prediction{}, err
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/v1/functions/%s/invoke", c.baseURL, f.functionID), body)
	if err != nil {
		return domain.Prediction{}, err
	}
	req.Header.Set("Content-Type", contentType)
	payload, err := vendors.Do(ctx, c.client, c.limiter, name, req)
	if err != nil {
		return domain.Prediction{}, err
	}
	var out struct {
		LabelName  string  `json:"labelName"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return domain.Prediction{}, domain.MalformedResponse(name, err)
	}
	return domain.Prediction{Label: out.LabelName, Confidence: out.Confidence}, nil
}
