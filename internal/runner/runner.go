// Package runner invokes a vendor classifier over a dataset's test corpus.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"visionbench/internal/dataset"
	"visionbench/internal/domain"
	"visionbench/internal/results"
	"visionbench/internal/retry"
)

// State is the lifecycle of one run.
type State string

const (
	NotStarted State = "not_started"
	Running    State = "running"
	Completed  State = "completed"
	Failed     State = "failed"
)

// Summary describes what a Run did.
type Summary struct {
	State    State
	Total    int
	Skipped  int
	Invoked  int
	Correct  int
	Accuracy float64
	Path     string
}

// Runner classifies test images one at a time and checkpoints every result.
type Runner struct {
	fs         afero.Fs
	layout     dataset.Layout
	classifier domain.Classifier
	policy     retry.Policy
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a runner for the dataset at l.
func New(fs afero.Fs, l dataset.Layout, c domain.Classifier, p retry.Policy, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{fs: fs, layout: l, classifier: c, policy: p, logger: logger, now: time.Now}
}

// Run classifies every sample not already present in the level's results
// file. A failure that survives the retry policy aborts the run with an
// *domain.InvocationError; results written so far stay on disk and a later
// Run picks up from there.
func (r *Runner) Run(ctx context.Context, level int, samples []domain.Sample) (Summary, error) {
	sum := Summary{State: NotStarted, Total: len(samples), Path: r.layout.ResultsPath(r.classifier.Name(), level)}
	store, err := results.Open(r.fs, sum.Path)
	if err != nil {
		return sum, err
	}
	log := r.logger.With(
		zap.String("dataset", r.layout.Name),
		zap.String("vendor", r.classifier.Name()),
		zap.Int("level", level))
	log.Info("run started", zap.Int("samples", len(samples)), zap.Int("done", store.Len()))

	sum.State = Running
	for _, s := range samples {
		if store.Done(s.FileName) {
			sum.Skipped++
			continue
		}
		rec, err := r.invoke(ctx, s)
		if err != nil {
			sum.State = Failed
			log.Error("run failed", zap.String("file", s.FileName), zap.Error(err))
			return sum, err
		}
		if err := store.Append(rec); err != nil {
			sum.State = Failed
			return sum, err
		}
		sum.Invoked++
		log.Debug("classified",
			zap.String("file", rec.FileName),
			zap.String("label", rec.TrueLabel),
			zap.String("predicted", rec.PredictedLabel),
			zap.Float64("confidence", rec.Confidence),
			zap.Duration("latency", rec.Latency))
	}

	for _, rec := range store.Records() {
		if rec.Correct() {
			sum.Correct++
		}
	}
	if n := store.Len(); n > 0 {
		sum.Accuracy = float64(sum.Correct) / float64(n)
	}
	sum.State = Completed
	log.Info("run completed",
		zap.Int("invoked", sum.Invoked),
		zap.Int("skipped", sum.Skipped),
		zap.Float64("accuracy", sum.Accuracy))
	return sum, nil
}

func (r *Runner) invoke(ctx context.Context, s domain.Sample) (domain.Record, error) {
	image, err := afero.ReadFile(r.fs, r.layout.ImagePath(domain.SplitTest, s))
	if err != nil {
		return domain.Record{}, err
	}
	var (
		pred    domain.Prediction
		elapsed time.Duration
	)
	attempts, err := r.policy.Do(ctx, func(ctx context.Context) error {
		start := r.now()
		p, err := r.classifier.Classify(ctx, image)
		elapsed = r.now().Sub(start)
		if err != nil {
			r.logger.Warn("classify failed", zap.String("file", s.FileName), zap.Error(err))
			return err
		}
		pred = p
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Record{}, err
		}
		return domain.Record{}, &domain.InvocationError{
			Vendor:   r.classifier.Name(),
			FileName: s.FileName,
			Attempts: attempts,
			Err:      err,
		}
	}
	return record(s, pred, elapsed), nil
}

func record(s domain.Sample, p domain.Prediction, elapsed time.Duration) domain.Record {
	rec := domain.Record{
		FileName:       s.FileName,
		TrueLabel:      s.Label,
		PredictedLabel: p.Label,
		Confidence:     p.Confidence,
		Latency:        p.Latency,
	}
	if rec.PredictedLabel == "" {
		rec.PredictedLabel = domain.NoLabel
		rec.Confidence = 0
	}
	if rec.Latency == 0 {
		rec.Latency = elapsed
	}
	return rec
}
