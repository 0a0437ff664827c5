package manifest

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionbench/internal/csvio"
	"visionbench/internal/dataset"
	"visionbench/internal/domain"
)

var beansPrefixes = Prefixes{
	VertexBucket: "gs://beans-bucket",
	AzurePrefix:  "azureml://datastores/workspaceblobstore/paths/beans/",
}

func beansSubset() domain.Subset {
	return domain.Subset{
		Level: 5,
		Train: []domain.Sample{
			{FileName: "a1.jpg", Label: "healthy"}, {FileName: "b1.jpg", Label: "rust"},
			{FileName: "a2.jpg", Label: "healthy"}, {FileName: "b2.jpg", Label: "rust"},
		},
		Val: []domain.Sample{
			{FileName: "a3.jpg", Label: "healthy"}, {FileName: "b3.jpg", Label: "rust"},
		},
	}
}

func TestFormatRows(t *testing.T) {
	samples := []domain.Sample{{FileName: "x.jpg", Label: "cat"}}

	cases := []struct {
		vendor string
		split  domain.Split
		want   [][]string
	}{
		{Plain, domain.SplitTrain, [][]string{{"x.jpg", "cat"}}},
		{Vertex, domain.SplitTrain, [][]string{{"gs://beans-bucket/training_uploads/x.jpg", "cat"}}},
		{Vertex, domain.SplitTest, [][]string{{"gs://beans-bucket/test_uploads/x.jpg", "cat"}}},
		{HuggingFace, domain.SplitVal, [][]string{{"image_url", "label"}, {"x.jpg", "cat"}}},
		{AWS, domain.SplitTrain, [][]string{{"x.jpg", "cat"}}},
		{Azure, domain.SplitVal, [][]string{
			{"image_url", "label"},
			{"azureml://datastores/workspaceblobstore/paths/beans/val_uploads/x.jpg", "cat"},
		}},
		{Nyckel, domain.SplitTest, [][]string{{"x.jpg", "cat"}}},
	}
	for _, tc := range cases {
		f, err := Lookup(tc.vendor)
		require.NoError(t, err)
		assert.Equal(t, tc.want, f.Rows(beansPrefixes, tc.split, samples), "%s/%s", tc.vendor, tc.split)

		back, err := f.Parse(beansPrefixes, tc.split, tc.want)
		require.NoError(t, err)
		assert.Equal(t, samples, back, "%s/%s", tc.vendor, tc.split)
	}

	_, err := Lookup("watson")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseRejectsForeignRows(t *testing.T) {
	f, _ := Lookup(Vertex)
	_, err := f.Parse(beansPrefixes, domain.SplitVal, [][]string{{"gs://other/val_uploads/x.jpg", "cat"}})
	assert.ErrorIs(t, err, domain.ErrDataIntegrity)

	f, _ = Lookup(HuggingFace)
	_, err = f.Parse(beansPrefixes, domain.SplitTrain, [][]string{{"x.jpg", "cat"}})
	assert.ErrorIs(t, err, domain.ErrDataIntegrity)

	f, _ = Lookup(Plain)
	_, err = f.Parse(beansPrefixes, domain.SplitTrain, [][]string{{"x.jpg"}})
	assert.ErrorIs(t, err, domain.ErrDataIntegrity)
}

func TestWriteSubsetRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := dataset.New("data", "beans")
	e := NewEmitter(fs, l, beansPrefixes, nil)
	sub := beansSubset()

	require.NoError(t, e.WriteSubset(sub))

	for _, vendor := range append([]string{Plain}, Vendors...) {
		f, _ := Lookup(vendor)
		if f.Combined {
			got, err := e.ReadSplit(vendor, domain.SplitTrain, sub.Level)
			require.NoError(t, err)
			assert.Equal(t, append(append([]domain.Sample(nil), sub.Train...), sub.Val...), got)

			exists, err := csvio.Exists(fs, l.ManifestPath(domain.SplitVal, vendor, sub.Level))
			require.NoError(t, err)
			assert.False(t, exists, "nyckel has no val manifest")
			continue
		}
		got, err := e.ReadSplit(vendor, domain.SplitTrain, sub.Level)
		require.NoError(t, err)
		assert.Equal(t, sub.Train, got, vendor)
		got, err = e.ReadSplit(vendor, domain.SplitVal, sub.Level)
		require.NoError(t, err)
		assert.Equal(t, sub.Val, got, vendor)
	}

	require.NoError(t, e.VerifyLevel(sub.Level))

	rows, err := csvio.ReadRows(fs, "data/beans/ablations/beans_train_5.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1.jpg", "healthy"}, rows[0])
}

func TestVerifyDetectsTampering(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := dataset.New("data", "beans")
	e := NewEmitter(fs, l, beansPrefixes, nil)
	sub := beansSubset()
	require.NoError(t, e.WriteSubset(sub))

	require.NoError(t, csvio.WriteRows(fs, l.ManifestPath(domain.SplitVal, AWS, sub.Level), [][]string{
		{"a3.jpg", "healthy"}, {"b3.jpg", "healthy"},
	}))
	assert.ErrorIs(t, e.VerifyLevel(sub.Level), domain.ErrDataIntegrity)
}

func TestWriteTestAndVerify(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := dataset.New("data", "beans")
	e := NewEmitter(fs, l, beansPrefixes, nil)
	test := []domain.Sample{{FileName: "t1.jpg", Label: "healthy"}, {FileName: "t2.jpg", Label: "rust"}}

	require.NoError(t, e.WriteTest(test))
	require.NoError(t, e.VerifyTest())

	rows, err := csvio.ReadRows(fs, "data/beans/beans_test_vertex.csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"gs://beans-bucket/test_uploads/t1.jpg", "healthy"},
		{"gs://beans-bucket/test_uploads/t2.jpg", "rust"},
	}, rows)

	got, err := e.ReadTest(Azure)
	require.NoError(t, err)
	assert.Equal(t, test, got)
}

func TestReadMissingManifest(t *testing.T) {
	e := NewEmitter(afero.NewMemMapFs(), dataset.New("data", "beans"), beansPrefixes, nil)
	_, err := e.ReadSplit(Plain, domain.SplitTrain, 80)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = e.ReadSplit(Nyckel, domain.SplitVal, 80)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
