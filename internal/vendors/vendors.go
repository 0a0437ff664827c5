// Package vendors holds the HTTP plumbing shared by the hosted classifier clients.
package vendors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"visionbench/internal/domain"
)

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 512

// NewLimiter returns a limiter for rps requests per second, or nil when rps
// is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Do sends req and returns the body of a 2xx response. Transport failures
// and non-2xx statuses are transient; context cancellation is returned as is.
func Do(ctx context.Context, client *http.Client, limiter *rate.Limiter, vendor string, req *http.Request) ([]byte, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.Transient(fmt.Errorf("%s: %w", vendor, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.StatusError{Vendor: vendor, Code: resp.StatusCode, Body: string(body)}
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, domain.Transient(fmt.Errorf("%s: read body: %w", vendor, err))
	}
	return payload, nil
}

// Argmax returns the index of the largest score, or -1 for an empty slice.
func Argmax(scores []float64) int {
	best := -1
	for i, s := range scores {
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}
