package domain

import (
	"context"
	"io"
	"time"
)

// Sample is a single labeled image, identified by its file name within the
// class directory it was discovered in.
type Sample struct {
	FileName string
	Label    string
}

// Split names one partition of a dataset.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// UploadDir is the flattened staging directory (and bucket folder) for the split.
func (s Split) UploadDir() string {
	switch s {
	case SplitTrain:
		return "training_uploads"
	case SplitVal:
		return "val_uploads"
	default:
		return "test_uploads"
	}
}

// Subset is the class-balanced train/val partition for one ablation level.
type Subset struct {
	Level int
	Train []Sample
	Val   []Sample
}

// Prediction is the top label returned by a vendor for one image.
// Latency is set when the vendor reports its own elapsed time.
type Prediction struct {
	Label      string
	Confidence float64
	Latency    time.Duration
}

// NoLabel is recorded when a vendor returns no label at all.
const NoLabel = "none"

// Record is one row of a results file.
type Record struct {
	FileName       string
	TrueLabel      string
	PredictedLabel string
	Confidence     float64
	Latency        time.Duration
}

// Correct reports whether the prediction matches the ground truth.
func (r Record) Correct() bool { return r.TrueLabel == r.PredictedLabel }

// Classifier invokes a hosted image-classification endpoint.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, image []byte) (Prediction, error)
}

// Bucket stores objects in a vendor's blob storage.
type Bucket interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error
}

// UploadJob describes what a vendor uploader should push for one ablation level.
type UploadJob struct {
	Dataset string
	Level   int
	Classes []string
	Train   []Sample
	Val     []Sample
	Test    []Sample
	// Open returns the image bytes for a sample of the given split.
	Open func(split Split, s Sample) (io.ReadSeekCloser, int64, error)
}

// Uploader pushes training data to a vendor.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, job UploadJob) error
}
