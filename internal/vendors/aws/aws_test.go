package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionbench/internal/domain"
)

type fakeDetector struct {
	in  *rekognition.DetectCustomLabelsInput
	out *rekognition.DetectCustomLabelsOutput
	err error
}

func (f *fakeDetector) DetectCustomLabelsWithContext(_ aws.Context, in *rekognition.DetectCustomLabelsInput, _ ...request.Option) (*rekognition.DetectCustomLabelsOutput, error) {
	f.in = in
	return f.out, f.err
}

const arn = "arn:aws:rekognition:us-east-1:000000000000:project/beans/version/beans.1/1"

func TestClassify(t *testing.T) {
	det := &fakeDetector{out: &rekognition.DetectCustomLabelsOutput{
		CustomLabels: []*rekognition.CustomLabel{{Name: aws.String("rust"), Confidence: aws.Float64(87.5)}},
	}}
	c := NewClientWithDetector(det, arn)
	assert.Equal(t, "aws", c.Name())

	p, err := c.Classify(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "rust", p.Label)
	assert.InDelta(t, 0.875, p.Confidence, 1e-9)

	assert.Equal(t, arn, aws.StringValue(det.in.ProjectVersionArn))
	assert.EqualValues(t, 1, aws.Int64Value(det.in.MaxResults))
	assert.Zero(t, aws.Float64Value(det.in.MinConfidence))
	assert.Equal(t, []byte("jpeg"), det.in.Image.Bytes)
}

func TestClassifyNoLabels(t *testing.T) {
	c := NewClientWithDetector(&fakeDetector{out: &rekognition.DetectCustomLabelsOutput{}}, arn)
	p, err := c.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, p.Label)
}

func TestClassifyErrors(t *testing.T) {
	det := &fakeDetector{err: awserr.New(rekognition.ErrCodeThrottlingException, "slow down", errors.New("429"))}
	_, err := NewClientWithDetector(det, arn).Classify(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrTransient)

	det = &fakeDetector{out: &rekognition.DetectCustomLabelsOutput{CustomLabels: []*rekognition.CustomLabel{{}}}}
	_, err = NewClientWithDetector(det, arn).Classify(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrFatalInvocation)

	_, err = NewClient(Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
