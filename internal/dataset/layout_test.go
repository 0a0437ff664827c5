package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"visionbench/internal/domain"
)

func TestLayoutPaths(t *testing.T) {
	l := New("data", "xrays")

	assert.Equal(t, filepath.Join("data", "xrays", "classes.txt"), l.ClassesFile())
	assert.Equal(t, filepath.Join("data", "xrays", "xrays_train.csv"), l.CorpusFile())
	assert.Equal(t, filepath.Join("data", "xrays", "ablations", "xrays_train_80.csv"), l.ManifestPath(domain.SplitTrain, "", 80))
	assert.Equal(t, filepath.Join("data", "xrays", "ablations", "xrays_val_azure_5.csv"), l.ManifestPath(domain.SplitVal, "azure", 5))
	assert.Equal(t, filepath.Join("data", "xrays", "xrays_test_hg.csv"), l.TestManifestPath("hg"))
	assert.Equal(t, filepath.Join("data", "xrays", "xrays_test.csv"), l.TestManifestPath(""))
	assert.Equal(t, filepath.Join("data", "xrays", "training_uploads"), l.StagingDir(domain.SplitTrain))
	assert.Equal(t, filepath.Join("data", "xrays", "test_uploads"), l.StagingDir(domain.SplitTest))
	assert.Equal(t, filepath.Join("data", "xrays", "results", "xrays-nyckel-results-20.csv"), l.ResultsPath("nyckel", 20))
}

func TestImagePathUsesTrainTreeForValidation(t *testing.T) {
	l := New("data", "beans")
	s := domain.Sample{FileName: "a.jpg", Label: "healthy"}

	assert.Equal(t, filepath.Join("data", "beans", "train", "healthy", "a.jpg"), l.ImagePath(domain.SplitVal, s))
	assert.Equal(t, filepath.Join("data", "beans", "test", "healthy", "a.jpg"), l.ImagePath(domain.SplitTest, s))
}
