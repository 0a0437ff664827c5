// Package gcs uploads objects with the Cloud Storage JSON API.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"visionbench/internal/domain"
)

const scope = "https://www.googleapis.com/auth/devstorage.read_write"

// Bucket is a minimal media-upload client for one bucket.
type Bucket struct {
	baseURL string
	bucket  string
	client  *http.Client
}

// Config configures the bucket. Bucket accepts either a bare name or a
// gs:// URI.
type Config struct {
	Bucket          string
	CredentialsFile string
	BaseURL         string
	Timeout         time.Duration
}

// NewBucket authenticates with a service-account JSON file.
func NewBucket(ctx context.Context, cfg Config) (*Bucket, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, domain.Configf("gcs: read credentials %s: %v", cfg.CredentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scope)
	if err != nil {
		return nil, domain.Configf("gcs: parse credentials: %v", err)
	}
	hc := oauth2.NewClient(ctx, creds.TokenSource)
	return NewBucketWithClient(cfg, hc)
}

// NewBucketWithClient uses an already-authorized HTTP client.
func NewBucketWithClient(cfg Config, hc *http.Client) (*Bucket, error) {
	name := strings.TrimSuffix(strings.TrimPrefix(cfg.Bucket, "gs://"), "/")
	if name == "" || strings.Contains(name, "/") {
		return nil, domain.Configf("gcs: invalid bucket %q", cfg.Bucket)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://storage.googleapis.com"
	}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &Bucket{baseURL: strings.TrimSuffix(cfg.BaseURL, "/"), bucket: name, client: hc}, nil
}

func (b *Bucket) Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		b.baseURL, url.PathEscape(b.bucket), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gcs upload %s failed: %s: %s", key, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
