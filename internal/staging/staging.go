// Package staging copies selected images into flattened, files-only upload
// directories.
package staging

import (
	"context"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"visionbench/internal/csvio"
	"visionbench/internal/dataset"
	"visionbench/internal/domain"
)

// Stager copies images from the labeled tree into a split's staging directory.
type Stager struct {
	fs     afero.Fs
	force  bool
	logger *zap.Logger
}

// New creates a stager. With force set, existing targets are overwritten.
func New(fs afero.Fs, force bool, logger *zap.Logger) *Stager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stager{fs: fs, force: force, logger: logger}
}

// Result counts what a Stage call did.
type Result struct {
	Copied  int
	Skipped int
	Bytes   int64
}

// Stage copies every sample of split into l.StagingDir(split). Targets that
// already exist are skipped unless the stager is forced. Two samples with the
// same file name but different labels cannot share a flat directory and are
// rejected before anything is copied. Each image is written to a temporary
// name and renamed into place, so a failed copy never leaves a partial file
// for the next run to skip.
func (s *Stager) Stage(ctx context.Context, l dataset.Layout, split domain.Split, samples []domain.Sample) (Result, error) {
	seen := make(map[string]string, len(samples))
	for _, smp := range samples {
		if prev, ok := seen[smp.FileName]; ok && prev != smp.Label {
			return Result{}, domain.Integrityf("%s: %s appears under %q and %q", split, smp.FileName, prev, smp.Label)
		}
		seen[smp.FileName] = smp.Label
	}

	dir := l.StagingDir(split)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return Result{}, err
	}
	var res Result
	for _, smp := range samples {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dst := filepath.Join(dir, smp.FileName)
		if !s.force {
			exists, err := csvio.Exists(s.fs, dst)
			if err != nil {
				return res, err
			}
			if exists {
				res.Skipped++
				continue
			}
		}
		n, err := s.copy(l.ImagePath(split, smp), dst)
		if err != nil {
			return res, err
		}
		res.Copied++
		res.Bytes += n
	}
	s.logger.Info("staged split",
		zap.String("dataset", l.Name),
		zap.String("split", string(split)),
		zap.Int("copied", res.Copied),
		zap.Int("skipped", res.Skipped),
		zap.String("size", humanize.Bytes(uint64(res.Bytes))))
	return res, nil
}

func (s *Stager) copy(src, dst string) (int64, error) {
	in, err := s.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".part")
	out, err := s.fs.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = s.fs.Rename(tmp, dst)
	}
	if err != nil {
		_ = s.fs.Remove(tmp)
		return 0, err
	}
	return n, nil
}
