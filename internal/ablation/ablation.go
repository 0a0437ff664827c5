// Package ablation derives nested, class-balanced train/val subsets from a
// shuffled corpus.
package ablation

import (
	"sort"

	"visionbench/internal/domain"
)

// TrainPerClass is the per-class training count at level: floor(0.8*level).
func TrainPerClass(level int) int { return level * 4 / 5 }

// ValPerClass is the per-class validation count at level: floor(0.2*level).
func ValPerClass(level int) int { return level / 5 }

// FeasibleLevels returns, in descending order, every level strictly below
// the smallest class count.
func FeasibleLevels(levels []int, counts map[string]int) ([]int, error) {
	if len(counts) == 0 {
		return nil, domain.Configf("cannot derive ablations without classes")
	}
	smallest := -1
	smallestClass := ""
	for cls, n := range counts {
		if smallest < 0 || n < smallest || (n == smallest && cls < smallestClass) {
			smallest, smallestClass = n, cls
		}
	}
	sorted := append([]int(nil), levels...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	var out []int
	for _, lv := range sorted {
		if lv > 0 && lv < smallest {
			out = append(out, lv)
		}
	}
	if len(out) == 0 {
		return nil, domain.Configf("class %q has %d samples; no ablation level in %v fits", smallestClass, smallest, levels)
	}
	return out, nil
}

// byClass is an immutable per-class view of one split.
type byClass map[string][]domain.Sample

func (b byClass) take(classes []string, n int) byClass {
	out := make(byClass, len(classes))
	for _, cls := range classes {
		items := b[cls]
		if n < len(items) {
			items = items[:n]
		}
		out[cls] = append([]domain.Sample(nil), items...)
	}
	return out
}

func (b byClass) flatten(classes []string) []domain.Sample {
	var out []domain.Sample
	for _, cls := range classes {
		out = append(out, b[cls]...)
	}
	return out
}

// Generate builds one subset per level. levels must be descending and
// feasible for the corpus (see FeasibleLevels). The largest level slices the
// corpus directly; each smaller level slices the previous level's splits, so
// every subset is contained in the next larger one.
func Generate(classes []string, samples []domain.Sample, levels []int) ([]domain.Subset, error) {
	if len(classes) == 0 {
		return nil, domain.Configf("cannot derive ablations without classes")
	}
	if len(levels) == 0 {
		return nil, domain.Configf("no ablation levels")
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] >= levels[i-1] {
			return nil, domain.Configf("ablation levels must be strictly descending, got %v", levels)
		}
	}

	pool := make(byClass, len(classes))
	for _, s := range samples {
		pool[s.Label] = append(pool[s.Label], s)
	}

	top := levels[0]
	trainN, valN := TrainPerClass(top), ValPerClass(top)
	train := make(byClass, len(classes))
	val := make(byClass, len(classes))
	for _, cls := range classes {
		items := pool[cls]
		if len(items) < trainN+valN {
			return nil, domain.Configf("class %q has %d samples, level %d needs %d", cls, len(items), top, trainN+valN)
		}
		train[cls] = append([]domain.Sample(nil), items[:trainN]...)
		val[cls] = append([]domain.Sample(nil), items[trainN:trainN+valN]...)
	}

	subsets := make([]domain.Subset, 0, len(levels))
	subsets = append(subsets, domain.Subset{Level: top, Train: train.flatten(classes), Val: val.flatten(classes)})
	for _, lv := range levels[1:] {
		train = train.take(classes, TrainPerClass(lv))
		val = val.take(classes, ValPerClass(lv))
		subsets = append(subsets, domain.Subset{Level: lv, Train: train.flatten(classes), Val: val.flatten(classes)})
	}
	return subsets, nil
}
