package nyckel

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"visionbench/internal/domain"
)

// Uploader returns the training-data uploader of one function.
func (c *Client) Uploader(functionID string) *Uploader {
	return &Uploader{client: c, functionID: functionID}
}

// Uploader posts labels and then every train and val sample of a job.
type Uploader struct {
	client     *Client
	functionID string
}

func (u *Uploader) Name() string { return name }

type upload struct {
	split  domain.Split
	sample domain.Sample
}

// Upload creates the job's labels and posts train then val samples with a
// bounded pool. A failed sample is logged and counted; the rest still go out.
func (u *Uploader) Upload(ctx context.Context, job domain.UploadJob) error {
	c := u.client
	if _, err := c.CreateLabels(ctx, u.functionID, job.Classes); err != nil {
		return err
	}

	items := make([]upload, 0, len(job.Train)+len(job.Val))
	for _, s := range job.Train {
		items = append(items, upload{domain.SplitTrain, s})
	}
	for _, s := range job.Val {
		items = append(items, upload{domain.SplitVal, s})
	}

	var failed, posted atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)
	for _, it := range items {
		eg.Go(func() error {
			if err := u.post(egCtx, job, it); err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				failed.Add(1)
				c.logger.Warn("sample upload failed",
					zap.String("file", it.sample.FileName),
					zap.String("label", it.sample.Label),
					zap.Error(err))
				return nil
			}
			posted.Add(1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	c.logger.Info("posted samples",
		zap.String("function", u.functionID),
		zap.Int64("posted", posted.Load()),
		zap.Int64("failed", failed.Load()))
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("nyckel: %d of %d samples failed to upload", n, len(items))
	}
	return nil
}

func (u *Uploader) post(ctx context.Context, job domain.UploadJob, it upload) error {
	r, _, err := job.Open(it.split, it.sample)
	if err != nil {
		return err
	}
	defer r.Close()
	return u.client.PostSample(ctx, u.functionID, it.sample.FileName, it.sample.Label, r)
}
