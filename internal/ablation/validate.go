package ablation

import (
	"fmt"

	"visionbench/internal/domain"
)

// Validate checks subsets read back from disk: exact per-class balance at
// every level, train/val/test disjointness, and that each subset is
// contained in the next larger one. subsets must be in descending level order.
func Validate(classes []string, subsets []domain.Subset, test []domain.Sample) error {
	testSet := set(test)
	for i, sub := range subsets {
		if err := balanced(classes, sub.Train, TrainPerClass(sub.Level)); err != nil {
			return domain.Integrityf("level %d train: %v", sub.Level, err)
		}
		if err := balanced(classes, sub.Val, ValPerClass(sub.Level)); err != nil {
			return domain.Integrityf("level %d val: %v", sub.Level, err)
		}
		train, val := set(sub.Train), set(sub.Val)
		for name := range train {
			if _, ok := val[name]; ok {
				return domain.Integrityf("level %d: %s is in train and val", sub.Level, name)
			}
			if _, ok := testSet[name]; ok {
				return domain.Integrityf("level %d: %s is in train and test", sub.Level, name)
			}
		}
		for name := range val {
			if _, ok := testSet[name]; ok {
				return domain.Integrityf("level %d: %s is in val and test", sub.Level, name)
			}
		}
		if i == 0 {
			continue
		}
		larger := subsets[i-1]
		if larger.Level <= sub.Level {
			return domain.Configf("levels out of order: %d then %d", larger.Level, sub.Level)
		}
		if name, ok := contained(sub.Train, set(larger.Train)); !ok {
			return domain.Integrityf("train %d is not within train %d: %s", sub.Level, larger.Level, name)
		}
		if name, ok := contained(sub.Val, set(larger.Val)); !ok {
			return domain.Integrityf("val %d is not within val %d: %s", sub.Level, larger.Level, name)
		}
	}
	return nil
}

func set(samples []domain.Sample) map[domain.Sample]struct{} {
	m := make(map[domain.Sample]struct{}, len(samples))
	for _, s := range samples {
		m[s] = struct{}{}
	}
	return m
}

func balanced(classes []string, samples []domain.Sample, want int) error {
	counts := make(map[string]int, len(classes))
	for _, s := range samples {
		counts[s.Label]++
	}
	for _, cls := range classes {
		if counts[cls] != want {
			return fmt.Errorf("class %q has %d samples, want %d", cls, counts[cls], want)
		}
		delete(counts, cls)
	}
	for cls := range counts {
		return fmt.Errorf("unexpected class %q", cls)
	}
	return nil
}

func contained(samples []domain.Sample, in map[domain.Sample]struct{}) (string, bool) {
	for _, s := range samples {
		if _, ok := in[s]; !ok {
			return s.FileName, false
		}
	}
	return "", true
}
