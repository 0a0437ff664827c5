// Package service wires the pipeline stages into build, upload, invoke and
// report operations over one data root.
package service

import (
	"context"
	"io"
	"sort"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"visionbench/internal/ablation"
	"visionbench/internal/config"
	"visionbench/internal/corpus"
	"visionbench/internal/csvio"
	"visionbench/internal/dataset"
	"visionbench/internal/domain"
	"visionbench/internal/manifest"
	"visionbench/internal/results"
	"visionbench/internal/retry"
	"visionbench/internal/runner"
	"visionbench/internal/staging"
)

type BenchService struct {
	fs     afero.Fs
	cfg    *config.AppConfig
	force  bool
	logger *zap.Logger
}

func NewBenchService(fs afero.Fs, cfg *config.AppConfig, force bool, logger *zap.Logger) *BenchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BenchService{fs: fs, cfg: cfg, force: force, logger: logger}
}

func (s *BenchService) layout(name string) dataset.Layout {
	return dataset.New(s.cfg.DataRoot, name)
}

func (s *BenchService) emitter(name string) (*manifest.Emitter, error) {
	ds, err := s.cfg.Dataset(name)
	if err != nil {
		return nil, err
	}
	p := manifest.Prefixes{VertexBucket: ds.VertexBucket, AzurePrefix: ds.AzurePrefix}
	return manifest.NewEmitter(s.fs, s.layout(name), p, s.logger), nil
}

// BuildReport summarizes a dataset build.
type BuildReport struct {
	Dataset string
	Classes []string
	Levels  []int
	Train   int
	Test    int
	Staged  staging.Result
}

// Build indexes the dataset, writes every ablation and test manifest and
// stages the flattened upload directories.
func (s *BenchService) Build(ctx context.Context, name string) (BuildReport, error) {
	rep := BuildReport{Dataset: name}
	em, err := s.emitter(name)
	if err != nil {
		return rep, err
	}
	l := s.layout(name)
	idx := corpus.NewIndexer(s.fs, s.cfg.Seed, s.logger)

	c, err := idx.IndexTrain(l)
	if err != nil {
		return rep, err
	}
	rep.Classes, rep.Train = c.Classes, len(c.Samples)

	levels, err := ablation.FeasibleLevels(s.cfg.Ablations, c.Counts())
	if err != nil {
		return rep, err
	}
	subsets, err := ablation.Generate(c.Classes, c.Samples, levels)
	if err != nil {
		return rep, err
	}
	for _, sub := range subsets {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := em.WriteSubset(sub); err != nil {
			return rep, err
		}
	}
	rep.Levels = levels

	test, err := idx.IndexTest(l, c.Classes)
	if err != nil {
		return rep, err
	}
	if err := em.WriteTest(test); err != nil {
		return rep, err
	}
	rep.Test = len(test)

	// Subsets are nested, so staging the largest one covers every level.
	st := staging.New(s.fs, s.force, s.logger)
	for _, part := range []struct {
		split   domain.Split
		samples []domain.Sample
	}{
		{domain.SplitTrain, subsets[0].Train},
		{domain.SplitVal, subsets[0].Val},
		{domain.SplitTest, test},
	} {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := st.Stage(ctx, l, part.split, part.samples)
		if err != nil {
			return rep, err
		}
		rep.Staged.Copied += res.Copied
		rep.Staged.Skipped += res.Skipped
		rep.Staged.Bytes += res.Bytes
	}
	s.logger.Info("dataset built",
		zap.String("dataset", name),
		zap.Ints("levels", levels),
		zap.Int("classes", len(c.Classes)),
		zap.Int("train", rep.Train),
		zap.Int("test", rep.Test))
	return rep, nil
}

// Levels lists, descending, the configured levels that have a plain train
// manifest on disk.
func (s *BenchService) Levels(name string) ([]int, error) {
	l := s.layout(name)
	var out []int
	for _, lv := range s.cfg.Ablations {
		ok, err := csvio.Exists(s.fs, l.ManifestPath(domain.SplitTrain, manifest.Plain, lv))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, lv)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	if len(out) == 0 {
		return nil, domain.Configf("dataset %s has no ablation manifests; run build first", name)
	}
	return out, nil
}

// Verify re-reads every manifest of the dataset and checks vendor round
// trips, balance, nesting and split disjointness. It returns the verified levels.
func (s *BenchService) Verify(name string) ([]int, error) {
	em, err := s.emitter(name)
	if err != nil {
		return nil, err
	}
	classes, err := corpus.ReadClasses(s.fs, s.layout(name).ClassesFile())
	if err != nil {
		return nil, err
	}
	levels, err := s.Levels(name)
	if err != nil {
		return nil, err
	}
	subsets := make([]domain.Subset, 0, len(levels))
	for _, lv := range levels {
		if err := em.VerifyLevel(lv); err != nil {
			return nil, err
		}
		sub, err := s.subset(em, lv)
		if err != nil {
			return nil, err
		}
		subsets = append(subsets, sub)
	}
	if err := em.VerifyTest(); err != nil {
		return nil, err
	}
	test, err := em.ReadTest(manifest.Plain)
	if err != nil {
		return nil, err
	}
	if err := ablation.Validate(classes, subsets, test); err != nil {
		return nil, err
	}
	s.logger.Info("dataset verified", zap.String("dataset", name), zap.Ints("levels", levels))
	return levels, nil
}

func (s *BenchService) subset(em *manifest.Emitter, level int) (domain.Subset, error) {
	train, err := em.ReadSplit(manifest.Plain, domain.SplitTrain, level)
	if err != nil {
		return domain.Subset{}, err
	}
	val, err := em.ReadSplit(manifest.Plain, domain.SplitVal, level)
	if err != nil {
		return domain.Subset{}, err
	}
	return domain.Subset{Level: level, Train: train, Val: val}, nil
}

// Job assembles the upload job of one level from the manifests on disk.
func (s *BenchService) Job(name string, level int) (domain.UploadJob, error) {
	em, err := s.emitter(name)
	if err != nil {
		return domain.UploadJob{}, err
	}
	l := s.layout(name)
	classes, err := corpus.ReadClasses(s.fs, l.ClassesFile())
	if err != nil {
		return domain.UploadJob{}, err
	}
	sub, err := s.subset(em, level)
	if err != nil {
		return domain.UploadJob{}, err
	}
	test, err := em.ReadTest(manifest.Plain)
	if err != nil {
		return domain.UploadJob{}, err
	}
	return domain.UploadJob{
		Dataset: name,
		Level:   level,
		Classes: classes,
		Train:   sub.Train,
		Val:     sub.Val,
		Test:    test,
		Open: func(split domain.Split, smp domain.Sample) (io.ReadSeekCloser, int64, error) {
			f, err := s.fs.Open(l.ImagePath(split, smp))
			if err != nil {
				return nil, 0, err
			}
			info, err := f.Stat()
			if err != nil {
				_ = f.Close()
				return nil, 0, err
			}
			return f, info.Size(), nil
		},
	}, nil
}

// Upload pushes one level's training data with u.
func (s *BenchService) Upload(ctx context.Context, u domain.Uploader, name string, level int) error {
	job, err := s.Job(name, level)
	if err != nil {
		return err
	}
	s.logger.Info("upload started",
		zap.String("vendor", u.Name()),
		zap.String("dataset", name),
		zap.Int("level", level),
		zap.Int("train", len(job.Train)),
		zap.Int("val", len(job.Val)),
		zap.Int("test", len(job.Test)))
	return u.Upload(ctx, job)
}

func (s *BenchService) testSamples(name string) ([]domain.Sample, error) {
	em, err := s.emitter(name)
	if err != nil {
		return nil, err
	}
	return em.ReadTest(manifest.Plain)
}

func (s *BenchService) policy() retry.Policy {
	return retry.Policy{MaxAttempts: s.cfg.Retry.MaxAttempts, Backoff: s.cfg.Retry.Backoff()}
}

// Invoke runs the resumable classifier pass over the test manifest.
func (s *BenchService) Invoke(ctx context.Context, c domain.Classifier, name string, level int) (runner.Summary, error) {
	test, err := s.testSamples(name)
	if err != nil {
		return runner.Summary{}, err
	}
	return runner.New(s.fs, s.layout(name), c, s.policy(), s.logger).Run(ctx, level, test)
}

// Throughput runs the disposable parallel benchmark with the configured
// sample count and worker pool.
func (s *BenchService) Throughput(ctx context.Context, c domain.Classifier, name string) (runner.ThroughputReport, error) {
	test, err := s.testSamples(name)
	if err != nil {
		return runner.ThroughputReport{}, err
	}
	tp := s.cfg.Throughput
	return runner.Throughput(ctx, s.fs, s.layout(name), c, test, tp.SampleCount, tp.Workers, s.logger)
}

// Report summarizes every results file of the named datasets, or of every
// configured dataset when names is empty.
func (s *BenchService) Report(names []string) ([]results.Summary, []results.Combined, error) {
	if len(names) == 0 {
		for n := range s.cfg.Datasets {
			names = append(names, n)
		}
		sort.Strings(names)
	}
	files, err := results.Scan(s.fs, s.cfg.DataRoot, names)
	if err != nil {
		return nil, nil, err
	}
	sums, err := results.Load(s.fs, files)
	if err != nil {
		return nil, nil, err
	}
	return sums, results.Combine(sums), nil
}
