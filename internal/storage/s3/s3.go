// Package s3 uploads objects to an S3 bucket.
package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"visionbench/internal/domain"
)

// Bucket uploads objects to one S3 bucket.
type Bucket struct {
	name string
	up   s3manageriface.UploaderAPI
}

// Config configures the S3 bucket. Credentials come from the default AWS
// chain (environment, shared config, instance role).
type Config struct {
	Bucket string
	Region string
}

// NewBucket creates an uploader for cfg.Bucket.
func NewBucket(cfg Config) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, domain.Configf("s3: bucket is required")
	}
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	cli := awss3.New(sess, aws.NewConfig().WithRegion(cfg.Region))
	return &Bucket{name: cfg.Bucket, up: s3manager.NewUploaderWithClient(cli)}, nil
}

// NewBucketWithUploader wires a custom uploader, e.g. a fake in tests.
func NewBucketWithUploader(name string, up s3manageriface.UploaderAPI) *Bucket {
	return &Bucket{name: name, up: up}
}

func (b *Bucket) Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	_, err := b.up.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
		Body:   body,
	})
	return err
}
