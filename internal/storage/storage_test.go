package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionbench/internal/domain"
	"visionbench/internal/storage/memory"
)

type memFile struct{ *bytes.Reader }

func (memFile) Close() error { return nil }

func job() domain.UploadJob {
	return domain.UploadJob{
		Dataset: "beans",
		Level:   5,
		Train:   []domain.Sample{{FileName: "a.jpg", Label: "healthy"}},
		Val:     []domain.Sample{{FileName: "b.jpg", Label: "rust"}},
		Test:    []domain.Sample{{FileName: "c.jpg", Label: "rust"}},
		Open: func(split domain.Split, s domain.Sample) (io.ReadSeekCloser, int64, error) {
			data := []byte(string(split) + ":" + s.FileName)
			return memFile{bytes.NewReader(data)}, int64(len(data)), nil
		},
	}
}

func TestUploaderKeys(t *testing.T) {
	b := memory.NewBucket()
	u := NewUploader("aws", b, LabelDirKey, nil)
	assert.Equal(t, "aws", u.Name())
	require.NoError(t, u.Upload(context.Background(), job()))
	assert.Equal(t, []string{"test/rust/c.jpg", "train/healthy/a.jpg", "train/rust/b.jpg"}, b.Keys())
	data, ok := b.Get("train/rust/b.jpg")
	require.True(t, ok)
	assert.Equal(t, "val:b.jpg", string(data))

	b = memory.NewBucket()
	require.NoError(t, NewUploader("vertex", b, UploadDirKey, nil).Upload(context.Background(), job()))
	assert.Equal(t, []string{"test_uploads/c.jpg", "training_uploads/a.jpg", "val_uploads/b.jpg"}, b.Keys())
	assert.EqualValues(t, len("train:a.jpg")+len("val:b.jpg")+len("test:c.jpg"), b.Size())
}

type failingBucket struct{}

func (failingBucket) Put(context.Context, string, io.ReadSeeker, int64) error {
	return errors.New("access denied")
}

func TestUploaderStopsOnError(t *testing.T) {
	err := NewUploader("azure", failingBucket{}, UploadDirKey, nil).Upload(context.Background(), job())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train/a.jpg")
}

func TestMemoryBucketHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := memory.NewBucket().Put(ctx, "k", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
