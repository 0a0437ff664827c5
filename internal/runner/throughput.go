package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"visionbench/internal/dataset"
	"visionbench/internal/domain"
)

// ThroughputReport is the outcome of a parallel benchmark.
type ThroughputReport struct {
	Requests  int
	Failures  int64
	Workers   int
	Wall      time.Duration
	PerSecond float64
}

func (r ThroughputReport) String() string {
	return fmt.Sprintf("%d requests (%d failed) with %d workers in %s: %.2f req/s",
		r.Requests, r.Failures, r.Workers, r.Wall.Round(time.Millisecond), r.PerSecond)
}

// Throughput classifies the first n samples with a fixed pool of workers and
// discards the predictions. Failed calls are counted, not retried. Images are
// loaded before the clock starts.
func Throughput(ctx context.Context, fs afero.Fs, l dataset.Layout, c domain.Classifier, samples []domain.Sample, n, workers int, logger *zap.Logger) (ThroughputReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		return ThroughputReport{}, domain.Configf("throughput needs at least one worker, got %d", workers)
	}
	if n <= 0 || n > len(samples) {
		n = len(samples)
	}
	images := make([][]byte, n)
	for i, s := range samples[:n] {
		b, err := afero.ReadFile(fs, l.ImagePath(domain.SplitTest, s))
		if err != nil {
			return ThroughputReport{}, err
		}
		images[i] = b
	}

	var (
		failures  atomic.Int64
		completed atomic.Int64
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	start := time.Now()
	for i := range images {
		image := images[i]
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			if _, err := c.Classify(egCtx, image); err != nil {
				failures.Add(1)
				logger.Debug("throughput request failed", zap.Error(err))
			}
			if done := completed.Add(1); done%100 == 0 {
				logger.Info("throughput progress", zap.Int64("done", done), zap.Int("total", n))
			}
			return nil
		})
	}
	err := eg.Wait()
	rep := ThroughputReport{
		Requests: n,
		Failures: failures.Load(),
		Workers:  workers,
		Wall:     time.Since(start),
	}
	if rep.Wall > 0 {
		rep.PerSecond = float64(n) / rep.Wall.Seconds()
	}
	if err != nil {
		return rep, err
	}
	logger.Info("throughput finished",
		zap.String("vendor", c.Name()),
		zap.Int("requests", rep.Requests),
		zap.Int64("failures", rep.Failures),
		zap.Duration("wall", rep.Wall),
		zap.Float64("per_second", rep.PerSecond))
	return rep, nil
}
