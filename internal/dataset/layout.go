// Package dataset maps a dataset name to the files the pipeline reads and writes.
package dataset

import (
	"fmt"
	"path/filepath"

	"visionbench/internal/domain"
)

// Layout is the on-disk arrangement of one dataset under the data root.
type Layout struct {
	Root string
	Name string
}

// New returns the layout for dataset name under root.
func New(root, name string) Layout { return Layout{Root: root, Name: name} }

// Dir is the dataset's own directory.
func (l Layout) Dir() string { return filepath.Join(l.Root, l.Name) }

// ClassDir holds the images of one class in the train or test tree.
func (l Layout) ClassDir(split domain.Split, class string) string {
	return filepath.Join(l.SourceDir(split), class)
}

// SourceDir is the labeled tree a split's images come from. Validation
// samples are carved out of the train tree.
func (l Layout) SourceDir(split domain.Split) string {
	if split == domain.SplitTest {
		return filepath.Join(l.Dir(), "test")
	}
	return filepath.Join(l.Dir(), "train")
}

// ImagePath is where the original image of a sample lives.
func (l Layout) ImagePath(split domain.Split, s domain.Sample) string {
	return filepath.Join(l.ClassDir(split, s.Label), s.FileName)
}

// ClassesFile is the comma-separated class list artifact.
func (l Layout) ClassesFile() string { return filepath.Join(l.Dir(), "classes.txt") }

// CorpusFile is the shuffled training corpus.
func (l Layout) CorpusFile() string {
	return filepath.Join(l.Dir(), l.Name+"_train.csv")
}

// AblationsDir holds every per-level manifest.
func (l Layout) AblationsDir() string { return filepath.Join(l.Dir(), "ablations") }

// ManifestPath names a train or val manifest; an empty vendor means the plain form.
func (l Layout) ManifestPath(split domain.Split, vendor string, level int) string {
	name := fmt.Sprintf("%s_%s_%d.csv", l.Name, split, level)
	if vendor != "" {
		name = fmt.Sprintf("%s_%s_%s_%d.csv", l.Name, split, vendor, level)
	}
	return filepath.Join(l.AblationsDir(), name)
}

// TestManifestPath names a test manifest; an empty vendor means the plain form.
func (l Layout) TestManifestPath(vendor string) string {
	name := l.Name + "_test.csv"
	if vendor != "" {
		name = fmt.Sprintf("%s_test_%s.csv", l.Name, vendor)
	}
	return filepath.Join(l.Dir(), name)
}

// StagingDir is the flattened, files-only copy of a split.
func (l Layout) StagingDir(split domain.Split) string {
	return filepath.Join(l.Dir(), split.UploadDir())
}

// ResultsDir holds every results file of the dataset.
func (l Layout) ResultsDir() string { return filepath.Join(l.Dir(), "results") }

// ResultsPath names the checkpointed results of one vendor run.
func (l Layout) ResultsPath(vendor string, level int) string {
	return filepath.Join(l.ResultsDir(), ResultsFileName(l.Name, vendor, level))
}

// ResultsFileName is the base name of a results file.
func ResultsFileName(name, vendor string, level int) string {
	return fmt.Sprintf("%s-%s-results-%d.csv", name, vendor, level)
}
