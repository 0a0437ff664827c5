package vendors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionbench/internal/domain"
)

func TestDoClassifiesResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("model loading"))
		}
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/ok", nil)
	body, err := Do(context.Background(), srv.Client(), NewLimiter(100), "test", req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/busy", nil)
	_, err = Do(context.Background(), srv.Client(), nil, "test", req)
	assert.ErrorIs(t, err, domain.ErrTransient)
	var se *domain.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "model loading", se.Body)
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	_, err := Do(context.Background(), http.DefaultClient, nil, "test", req)
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, -1, Argmax(nil))
	assert.Equal(t, 2, Argmax([]float64{0.1, 0.3, 0.6}))
	assert.Equal(t, 0, Argmax([]float64{0.5, 0.5}))
	assert.Nil(t, NewLimiter(0))
}
