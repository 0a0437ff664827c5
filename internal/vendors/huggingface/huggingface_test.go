package huggingface

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionbench/internal/domain"
)

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/org/beans-vit", r.URL.Path)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "jpeg-bytes", string(body))
		_, _ = w.Write([]byte(`[{"label":"rust","score":0.82},{"label":"healthy","score":0.18}]`))
	}))
	defer srv.Close()
	t.Setenv("HG_TEST_TOKEN", "hf-token")

	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIKeyEnv: "HG_TEST_TOKEN", Model: "org/beans-vit"})
	require.NoError(t, err)
	assert.Equal(t, "hg", c.Name())

	p, err := c.Classify(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "rust", p.Label)
	assert.InDelta(t, 0.82, p.Confidence, 1e-9)
}

func serve(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("HG_TEST_TOKEN", "x")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "HG_TEST_TOKEN", Model: "m"})
	require.NoError(t, err)
	return c
}

func TestClassifyErrors(t *testing.T) {
	_, err := serve(t, http.StatusOK, `{"error":"unexpected"}`).Classify(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrFatalInvocation)

	p, err := serve(t, http.StatusOK, `[]`).Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, p.Label)

	_, err = serve(t, http.StatusServiceUnavailable, `{"error":"loading"}`).Classify(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestNewClientNeedsKey(t *testing.T) {
	t.Setenv("HG_TEST_TOKEN", "")
	_, err := NewClient(Config{APIKeyEnv: "HG_TEST_TOKEN", Model: "m"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
