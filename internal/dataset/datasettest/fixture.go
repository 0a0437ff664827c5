// Package datasettest builds synthetic dataset trees for tests.
package datasettest

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"

	"visionbench/internal/dataset"
	"visionbench/internal/domain"
)

// Tree writes counts[class] fake images per class into the split's tree and
// returns the samples in class order. File names embed the split and class so
// they are unique across the whole dataset.
func Tree(t testing.TB, fs afero.Fs, l dataset.Layout, split domain.Split, counts map[string]int, classes ...string) []domain.Sample {
	t.Helper()
	var out []domain.Sample
	for _, cls := range classes {
		dir := l.ClassDir(split, cls)
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		for i := 0; i < counts[cls]; i++ {
			s := domain.Sample{FileName: fmt.Sprintf("%s_%s_%03d.jpg", split, cls, i), Label: cls}
			if err := afero.WriteFile(fs, l.ImagePath(split, s), []byte("img:"+s.FileName), 0o644); err != nil {
				t.Fatalf("write %s: %v", s.FileName, err)
			}
			out = append(out, s)
		}
	}
	return out
}

// Uniform is Tree with the same count for every class.
func Uniform(t testing.TB, fs afero.Fs, l dataset.Layout, split domain.Split, n int, classes ...string) []domain.Sample {
	t.Helper()
	counts := make(map[string]int, len(classes))
	for _, c := range classes {
		counts[c] = n
	}
	return Tree(t, fs, l, split, counts, classes...)
}
