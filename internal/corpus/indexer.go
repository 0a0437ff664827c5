// Package corpus discovers labeled images and produces the shuffled training corpus.
package corpus

import (
	"errors"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"visionbench/internal/csvio"
	"visionbench/internal/dataset"
	"visionbench/internal/domain"
)

// Indexer scans a dataset's train/test trees.
type Indexer struct {
	fs     afero.Fs
	seed   uint64
	logger *zap.Logger
}

// NewIndexer creates an indexer that shuffles with the given seed.
func NewIndexer(fs afero.Fs, seed uint64, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{fs: fs, seed: seed, logger: logger}
}

// Corpus is the indexed training set.
type Corpus struct {
	Classes []string
	Samples []domain.Sample
}

// Counts returns the number of samples per class.
func (c Corpus) Counts() map[string]int {
	counts := make(map[string]int, len(c.Classes))
	for _, cls := range c.Classes {
		counts[cls] = 0
	}
	for _, s := range c.Samples {
		counts[s.Label]++
	}
	return counts
}

// IndexTrain enumerates train/<class>/*, shuffles the samples and persists both
// the class list and the shuffled corpus.
func (ix *Indexer) IndexTrain(l dataset.Layout) (Corpus, error) {
	root := l.SourceDir(domain.SplitTrain)
	classes, err := ix.listClasses(root)
	if err != nil {
		return Corpus{}, err
	}
	var samples []domain.Sample
	for _, cls := range classes {
		files, err := ix.listFiles(l.ClassDir(domain.SplitTrain, cls))
		if err != nil {
			return Corpus{}, err
		}
		if len(files) == 0 {
			return Corpus{}, domain.Configf("class directory %s is empty", l.ClassDir(domain.SplitTrain, cls))
		}
		for _, f := range files {
			samples = append(samples, domain.Sample{FileName: f, Label: cls})
		}
	}

	Shuffle(samples, ix.seed)

	if err := WriteClasses(ix.fs, l.ClassesFile(), classes); err != nil {
		return Corpus{}, err
	}
	if err := WriteSamples(ix.fs, l.CorpusFile(), samples); err != nil {
		return Corpus{}, err
	}
	ix.logger.Info("indexed training corpus",
		zap.String("dataset", l.Name),
		zap.Int("classes", len(classes)),
		zap.Int("samples", len(samples)))
	return Corpus{Classes: classes, Samples: samples}, nil
}

// IndexTest enumerates test/<class>/* for every class, in class order. The
// test corpus is not shuffled.
func (ix *Indexer) IndexTest(l dataset.Layout, classes []string) ([]domain.Sample, error) {
	if len(classes) == 0 {
		return nil, domain.Configf("dataset %s has no classes", l.Name)
	}
	var samples []domain.Sample
	for _, cls := range classes {
		files, err := ix.listFiles(l.ClassDir(domain.SplitTest, cls))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			samples = append(samples, domain.Sample{FileName: f, Label: cls})
		}
	}
	ix.logger.Info("indexed test corpus", zap.String("dataset", l.Name), zap.Int("samples", len(samples)))
	return samples, nil
}

// Shuffle permutes samples in place with a PCG source seeded by seed.
func Shuffle(samples []domain.Sample, seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })
}

func (ix *Indexer) listClasses(root string) ([]string, error) {
	entries, err := ix.readDir(root)
	if err != nil {
		return nil, err
	}
	var classes []string
	for _, e := range entries {
		if e.IsDir() && !ignored(e.Name()) {
			classes = append(classes, e.Name())
		}
	}
	if len(classes) == 0 {
		return nil, domain.Configf("no class directories under %s", root)
	}
	sort.Strings(classes)
	return classes, nil
}

func (ix *Indexer) listFiles(dir string) ([]string, error) {
	entries, err := ix.readDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && !ignored(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (ix *Indexer) readDir(dir string) ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(ix.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.Configf("directory %s does not exist", dir)
		}
		return nil, err
	}
	return entries, nil
}

// ignored filters OS metadata such as .DS_Store.
func ignored(name string) bool { return strings.HasPrefix(name, ".") }

// WriteClasses persists the class list as a single comma-separated line.
func WriteClasses(fs afero.Fs, path string, classes []string) error {
	return csvio.WriteRows(fs, path, [][]string{classes})
}

// ReadClasses loads the class list artifact.
func ReadClasses(fs afero.Fs, path string) ([]string, error) {
	rows, err := csvio.ReadRows(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.Configf("class list %s not found; build the dataset first", path)
		}
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, domain.Configf("class list %s is empty", path)
	}
	var classes []string
	for _, c := range rows[0] {
		if c = strings.TrimSpace(c); c != "" && !ignored(c) {
			classes = append(classes, c)
		}
	}
	if len(classes) == 0 {
		return nil, domain.Configf("class list %s is empty", path)
	}
	return classes, nil
}

// WriteSamples persists samples as headerless file_name,label rows.
func WriteSamples(fs afero.Fs, path string, samples []domain.Sample) error {
	rows := make([][]string, len(samples))
	for i, s := range samples {
		rows[i] = []string{s.FileName, s.Label}
	}
	return csvio.WriteRows(fs, path, rows)
}

// ReadSamples loads headerless file_name,label rows.
func ReadSamples(fs afero.Fs, path string) ([]domain.Sample, error) {
	rows, err := csvio.ReadRows(fs, path)
	if err != nil {
		return nil, err
	}
	samples := make([]domain.Sample, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, domain.Integrityf("%s: row %d has %d fields", path, i+1, len(row))
		}
		samples = append(samples, domain.Sample{FileName: row[0], Label: row[1]})
	}
	return samples, nil
}
