package manifest

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"visionbench/internal/csvio"
	"visionbench/internal/dataset"
	"visionbench/internal/domain"
)

// Emitter writes and reads the manifests of one dataset.
type Emitter struct {
	fs       afero.Fs
	layout   dataset.Layout
	prefixes Prefixes
	logger   *zap.Logger
}

// NewEmitter creates an emitter for the dataset laid out at l.
func NewEmitter(fs afero.Fs, l dataset.Layout, p Prefixes, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{fs: fs, layout: l, prefixes: p, logger: logger}
}

// WriteSubset writes the plain and every vendor manifest of sub.
func (e *Emitter) WriteSubset(sub domain.Subset) error {
	for _, vendor := range append([]string{Plain}, Vendors...) {
		f, err := Lookup(vendor)
		if err != nil {
			return err
		}
		if f.Combined {
			rows := f.Rows(e.prefixes, domain.SplitTrain, sub.Train)
			rows = append(rows, f.Rows(e.prefixes, domain.SplitVal, sub.Val)...)
			if err := csvio.WriteRows(e.fs, e.layout.ManifestPath(domain.SplitTrain, vendor, sub.Level), rows); err != nil {
				return err
			}
			continue
		}
		for _, split := range []domain.Split{domain.SplitTrain, domain.SplitVal} {
			samples := sub.Train
			if split == domain.SplitVal {
				samples = sub.Val
			}
			if err := csvio.WriteRows(e.fs, e.layout.ManifestPath(split, vendor, sub.Level), f.Rows(e.prefixes, split, samples)); err != nil {
				return err
			}
		}
	}
	e.logger.Info("wrote ablation manifests",
		zap.String("dataset", e.layout.Name),
		zap.Int("level", sub.Level),
		zap.Int("train", len(sub.Train)),
		zap.Int("val", len(sub.Val)))
	return nil
}

// WriteTest writes the plain and every vendor test manifest.
func (e *Emitter) WriteTest(samples []domain.Sample) error {
	for _, vendor := range append([]string{Plain}, Vendors...) {
		f, err := Lookup(vendor)
		if err != nil {
			return err
		}
		if err := csvio.WriteRows(e.fs, e.layout.TestManifestPath(vendor), f.Rows(e.prefixes, domain.SplitTest, samples)); err != nil {
			return err
		}
	}
	e.logger.Info("wrote test manifests", zap.String("dataset", e.layout.Name), zap.Int("samples", len(samples)))
	return nil
}

// ReadSplit parses the vendor manifest of split at level back into samples.
// For the nyckel variant, split must be train and the result holds train then val.
func (e *Emitter) ReadSplit(vendor string, split domain.Split, level int) ([]domain.Sample, error) {
	f, err := Lookup(vendor)
	if err != nil {
		return nil, err
	}
	if f.Combined && split != domain.SplitTrain {
		return nil, domain.Configf("%s manifests combine train and val; read the train split", vendor)
	}
	return e.read(f, split, e.layout.ManifestPath(split, vendor, level))
}

// ReadTest parses the vendor test manifest back into samples.
func (e *Emitter) ReadTest(vendor string) ([]domain.Sample, error) {
	f, err := Lookup(vendor)
	if err != nil {
		return nil, err
	}
	return e.read(f, domain.SplitTest, e.layout.TestManifestPath(vendor))
}

func (e *Emitter) read(f Format, split domain.Split, path string) ([]domain.Sample, error) {
	rows, err := csvio.ReadRows(e.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.Configf("manifest %s not found; build the dataset first", path)
		}
		return nil, err
	}
	samples, err := f.Parse(e.prefixes, split, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// VerifyLevel checks that every vendor manifest of level, stripped of its
// header and prefix, holds exactly the plain manifest's pairs.
func (e *Emitter) VerifyLevel(level int) error {
	plain := map[domain.Split][]domain.Sample{}
	for _, split := range []domain.Split{domain.SplitTrain, domain.SplitVal} {
		s, err := e.ReadSplit(Plain, split, level)
		if err != nil {
			return err
		}
		plain[split] = s
	}
	for _, vendor := range Vendors {
		f, _ := Lookup(vendor)
		if f.Combined {
			got, err := e.ReadSplit(vendor, domain.SplitTrain, level)
			if err != nil {
				return err
			}
			want := append(append([]domain.Sample(nil), plain[domain.SplitTrain]...), plain[domain.SplitVal]...)
			if err := sameSet(want, got); err != nil {
				return domain.Integrityf("%s level %d train+val: %v", vendor, level, err)
			}
			continue
		}
		for _, split := range []domain.Split{domain.SplitTrain, domain.SplitVal} {
			got, err := e.ReadSplit(vendor, split, level)
			if err != nil {
				return err
			}
			if err := sameSet(plain[split], got); err != nil {
				return domain.Integrityf("%s level %d %s: %v", vendor, level, split, err)
			}
		}
	}
	return nil
}

// VerifyTest checks the vendor test manifests against the plain one.
func (e *Emitter) VerifyTest() error {
	plain, err := e.ReadTest(Plain)
	if err != nil {
		return err
	}
	for _, vendor := range Vendors {
		got, err := e.ReadTest(vendor)
		if err != nil {
			return err
		}
		if err := sameSet(plain, got); err != nil {
			return domain.Integrityf("%s test manifest: %v", vendor, err)
		}
	}
	return nil
}

func sameSet(want, got []domain.Sample) error {
	w := make(map[domain.Sample]struct{}, len(want))
	for _, s := range want {
		w[s] = struct{}{}
	}
	g := make(map[domain.Sample]struct{}, len(got))
	for _, s := range got {
		if _, ok := w[s]; !ok {
			return fmt.Errorf("unexpected row %s,%s", s.FileName, s.Label)
		}
		g[s] = struct{}{}
	}
	for s := range w {
		if _, ok := g[s]; !ok {
			return fmt.Errorf("missing row %s,%s", s.FileName, s.Label)
		}
	}
	return nil
}
