// Package aws invokes Rekognition Custom Labels models.
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"

	"visionbench/internal/domain"
)

const name = "aws"

// Detector is the subset of the Rekognition API the client needs.
type Detector interface {
	DetectCustomLabelsWithContext(ctx aws.Context, in *rekognition.DetectCustomLabelsInput, opts ...request.Option) (*rekognition.DetectCustomLabelsOutput, error)
}

// Config selects the region and the trained project version.
type Config struct {
	Region            string
	ProjectVersionARN string
}

// Client classifies images with one project version.
type Client struct {
	det Detector
	arn string
}

// NewClient creates a Rekognition client from the default credential chain.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ProjectVersionARN == "" {
		return nil, domain.Configf("aws: project version ARN is required")
	}
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return NewClientWithDetector(rekognition.New(sess, aws.NewConfig().WithRegion(cfg.Region)), cfg.ProjectVersionARN), nil
}

// NewClientWithDetector wires a custom detector.
func NewClientWithDetector(det Detector, arn string) *Client {
	return &Client{det: det, arn: arn}
}

func (c *Client) Name() string { return name }

// Classify returns the single highest-confidence custom label, with the
// confidence scaled from percent to [0,1].
func (c *Client) Classify(ctx context.Context, image []byte) (domain.Prediction, error) {
	out, err := c.det.DetectCustomLabelsWithContext(ctx, &rekognition.DetectCustomLabelsInput{
		Image:             &rekognition.Image{Bytes: image},
		ProjectVersionArn: aws.String(c.arn),
		MaxResults:        aws.Int64(1),
		MinConfidence:     aws.Float64(0),
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Prediction{}, ctx.Err()
		}
		if errors.Is(err, context.Canceled) {
			return domain.Prediction{}, err
		}
		return domain.Prediction{}, domain.Transient(fmt.Errorf("%s: %w", name, err))
	}
	if len(out.CustomLabels) == 0 {
		return domain.Prediction{}, nil
	}
	top := out.CustomLabels[0]
	if top == nil || top.Name == nil {
		return domain.Prediction{}, domain.MalformedResponse(name, errors.New("custom label without a name"))
	}
	return domain.Prediction{Label: aws.StringValue(top.Name), Confidence: aws.Float64Value(top.Confidence) / 100}, nil
}
