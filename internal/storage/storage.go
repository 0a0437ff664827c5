// Package storage pushes a job's images into a vendor bucket.
package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"visionbench/internal/domain"
)

// KeyFunc names the object a sample of split is stored under.
type KeyFunc func(split domain.Split, s domain.Sample) string

// UploadDirKey stores samples flat under their split's upload directory,
// e.g. training_uploads/a.jpg. Vertex and Azure manifests point there.
func UploadDirKey(split domain.Split, s domain.Sample) string {
	return path.Join(split.UploadDir(), s.FileName)
}

// LabelDirKey stores samples under train/{label}/ or test/{label}/; val
// samples share the train folder.
func LabelDirKey(split domain.Split, s domain.Sample) string {
	dir := "train"
	if split == domain.SplitTest {
		dir = "test"
	}
	return path.Join(dir, s.Label, s.FileName)
}

// Uploader puts every train, val and test image of a job into a bucket.
type Uploader struct {
	vendor string
	bucket domain.Bucket
	key    KeyFunc
	logger *zap.Logger
}

// NewUploader creates an uploader tagged with vendor.
func NewUploader(vendor string, bucket domain.Bucket, key KeyFunc, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{vendor: vendor, bucket: bucket, key: key, logger: logger}
}

func (u *Uploader) Name() string { return u.vendor }

// Upload stores train, then val, then test samples.
func (u *Uploader) Upload(ctx context.Context, job domain.UploadJob) error {
	for _, part := range []struct {
		split   domain.Split
		samples []domain.Sample
	}{
		{domain.SplitTrain, job.Train},
		{domain.SplitVal, job.Val},
		{domain.SplitTest, job.Test},
	} {
		var total int64
		for _, s := range part.samples {
			n, err := u.put(ctx, job, part.split, s)
			if err != nil {
				return fmt.Errorf("%s upload %s/%s: %w", u.vendor, part.split, s.FileName, err)
			}
			total += n
		}
		u.logger.Info("uploaded split",
			zap.String("vendor", u.vendor),
			zap.String("dataset", job.Dataset),
			zap.Int("level", job.Level),
			zap.String("split", string(part.split)),
			zap.Int("objects", len(part.samples)),
			zap.String("size", humanize.Bytes(uint64(total))))
	}
	return nil
}

func (u *Uploader) put(ctx context.Context, job domain.UploadJob, split domain.Split, s domain.Sample) (int64, error) {
	r, size, err := job.Open(split, s)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	if err := u.bucket.Put(ctx, u.key(split, s), r, size); err != nil {
		return 0, err
	}
	return size, nil
}
