package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"visionbench/internal/csvio"
	"visionbench/internal/dataset"
	"visionbench/internal/dataset/datasettest"
	"visionbench/internal/domain"
	"visionbench/internal/results"
	"visionbench/internal/retry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubClassifier struct {
	mu    sync.Mutex
	seen  []string
	pred  domain.Prediction
	fail  func(image string, call int) error
	calls map[string]int
}

func (s *stubClassifier) Name() string { return "stub" }

func (s *stubClassifier) Classify(_ context.Context, image []byte) (domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	key := string(image)
	s.calls[key]++
	s.seen = append(s.seen, key)
	if s.fail != nil {
		if err := s.fail(key, s.calls[key]); err != nil {
			return domain.Prediction{}, err
		}
	}
	return s.pred, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func fixture(t *testing.T) (afero.Fs, dataset.Layout, []domain.Sample) {
	fs := afero.NewMemMapFs()
	l := dataset.New("data", "beans")
	return fs, l, datasettest.Uniform(t, fs, l, domain.SplitTest, 5, "A", "B")
}

func TestRunStubScenario(t *testing.T) {
	fs, l, samples := fixture(t)
	c := &stubClassifier{pred: domain.Prediction{Label: "A", Confidence: 0.9, Latency: 10 * time.Millisecond}}

	sum, err := New(fs, l, c, retry.Policy{MaxAttempts: 2, Sleep: noSleep}, nil).Run(context.Background(), 5, samples)
	require.NoError(t, err)
	assert.Equal(t, Completed, sum.State)
	assert.Equal(t, 10, sum.Invoked)
	assert.Equal(t, 5, sum.Correct)
	assert.InDelta(t, 0.5, sum.Accuracy, 1e-9)
	assert.Equal(t, "data/beans/results/beans-stub-results-5.csv", sum.Path)

	rows, err := csvio.ReadRows(fs, sum.Path)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	for i, row := range rows {
		assert.Equal(t, []string{samples[i].FileName, samples[i].Label, "A", "0.9", "0.01"}, row)
	}
}

func TestRunResumesAfterTruncation(t *testing.T) {
	fs, l, samples := fixture(t)
	policy := retry.Policy{MaxAttempts: 2, Sleep: noSleep}
	// 16.693774911s has no exact binary representation in seconds.
	first := &stubClassifier{pred: domain.Prediction{Label: "B", Confidence: 0.6, Latency: 16693774911 * time.Nanosecond}}

	sum, err := New(fs, l, first, policy, nil).Run(context.Background(), 20, samples)
	require.NoError(t, err)
	full, err := csvio.ReadRows(fs, sum.Path)
	require.NoError(t, err)

	require.NoError(t, csvio.WriteRows(fs, sum.Path, full[:4]))

	second := &stubClassifier{pred: first.pred}
	sum, err = New(fs, l, second, policy, nil).Run(context.Background(), 20, samples)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Skipped)
	assert.Equal(t, 6, sum.Invoked)
	require.Len(t, second.seen, 6)
	for i, img := range second.seen {
		assert.Equal(t, "img:"+samples[4+i].FileName, img)
	}

	resumed, err := csvio.ReadRows(fs, sum.Path)
	require.NoError(t, err)
	assert.Equal(t, full, resumed)
}

func TestRunRetriesTransientFailure(t *testing.T) {
	fs, l, samples := fixture(t)
	var slept atomic.Int32
	policy := retry.Policy{MaxAttempts: 2, Backoff: 10 * time.Second, Sleep: func(context.Context, time.Duration) error {
		slept.Add(1)
		return nil
	}}
	c := &stubClassifier{
		pred: domain.Prediction{Label: "A", Confidence: 1},
		fail: func(_ string, call int) error {
			if call == 1 {
				return &domain.StatusError{Vendor: "stub", Code: 502}
			}
			return nil
		},
	}

	sum, err := New(fs, l, c, policy, nil).Run(context.Background(), 5, samples)
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Invoked)
	assert.Len(t, c.seen, 20)
	assert.EqualValues(t, 10, slept.Load())
}

func TestRunAbortsAfterSecondFailure(t *testing.T) {
	fs, l, samples := fixture(t)
	bad := "img:" + samples[3].FileName
	c := &stubClassifier{
		pred: domain.Prediction{Label: "A", Confidence: 1},
		fail: func(image string, _ int) error {
			if image == bad {
				return domain.Transient(errors.New("connection refused"))
			}
			return nil
		},
	}

	sum, err := New(fs, l, c, retry.Policy{MaxAttempts: 2, Sleep: noSleep}, nil).Run(context.Background(), 5, samples)
	require.Error(t, err)
	assert.Equal(t, Failed, sum.State)
	assert.ErrorIs(t, err, domain.ErrFatalInvocation)

	var ie *domain.InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, samples[3].FileName, ie.FileName)
	assert.Equal(t, 2, ie.Attempts)

	st, err := results.Open(fs, sum.Path)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Len())
}

func TestRunMalformedResponseIsNotRetried(t *testing.T) {
	fs, l, samples := fixture(t)
	c := &stubClassifier{fail: func(string, int) error {
		return domain.MalformedResponse("stub", errors.New("bad json"))
	}}

	_, err := New(fs, l, c, retry.Policy{MaxAttempts: 2, Sleep: noSleep}, nil).Run(context.Background(), 5, samples)
	assert.ErrorIs(t, err, domain.ErrFatalInvocation)
	assert.Len(t, c.seen, 1)
}

func TestRecordDefaults(t *testing.T) {
	s := domain.Sample{FileName: "x.jpg", Label: "cat"}

	rec := record(s, domain.Prediction{Confidence: 0.4}, 300*time.Millisecond)
	assert.Equal(t, domain.NoLabel, rec.PredictedLabel)
	assert.Zero(t, rec.Confidence)
	assert.Equal(t, 300*time.Millisecond, rec.Latency)

	rec = record(s, domain.Prediction{Label: "cat", Confidence: 0.8, Latency: time.Second}, 300*time.Millisecond)
	assert.True(t, rec.Correct())
	assert.Equal(t, time.Second, rec.Latency)
}
