package results

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"github.com/spf13/afero"

	"visionbench/internal/dataset"
	"visionbench/internal/domain"
)

// File is a results file discovered under a dataset's results directory.
type File struct {
	Dataset string
	Vendor  string
	Level   int
	Path    string
}

// ParseFileName splits "{dataset}-{vendor}-results-{level}.csv".
func ParseFileName(name string) (datasetName, vendor string, level int, ok bool) {
	base, found := strings.CutSuffix(name, ".csv")
	if !found {
		return "", "", 0, false
	}
	i := strings.LastIndex(base, "-results-")
	if i < 0 {
		return "", "", 0, false
	}
	level, err := strconv.Atoi(base[i+len("-results-"):])
	if err != nil {
		return "", "", 0, false
	}
	head := base[:i]
	j := strings.LastIndex(head, "-")
	if j <= 0 || j == len(head)-1 {
		return "", "", 0, false
	}
	return head[:j], head[j+1:], level, true
}

// Scan lists the results files of every named dataset. Datasets without a
// results directory are skipped, as are files that do not follow the naming
// scheme.
func Scan(fs afero.Fs, root string, datasets []string) ([]File, error) {
	var out []File
	for _, name := range datasets {
		dir := dataset.New(root, name).ResultsDir()
		ok, err := afero.DirExists(fs, dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			ds, vendor, level, ok := ParseFileName(e.Name())
			if !ok || ds != name {
				continue
			}
			out = append(out, File{Dataset: ds, Vendor: vendor, Level: level, Path: filepath.Join(dir, e.Name())})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Dataset != b.Dataset {
			return a.Dataset < b.Dataset
		}
		if a.Vendor != b.Vendor {
			return a.Vendor < b.Vendor
		}
		return a.Level < b.Level
	})
	return out, nil
}

// Summary is the accuracy and latency profile of one results file.
type Summary struct {
	Dataset       string  `csv:"dataset"`
	Vendor        string  `csv:"vendor"`
	Level         int     `csv:"level"`
	Samples       int     `csv:"samples"`
	Correct       int     `csv:"correct"`
	Accuracy      float64 `csv:"accuracy"`
	LatencyMean   float64 `csv:"latency_mean_s"`
	LatencyMedian float64 `csv:"latency_median_s"`
	LatencyP95    float64 `csv:"latency_p95_s"`
	LatencyMin    float64 `csv:"latency_min_s"`
	LatencyMax    float64 `csv:"latency_max_s"`
	// Latencies holds every record's latency in seconds for pooling.
	Latencies []float64 `csv:"-"`
}

// Summarize computes accuracy and latency statistics over records.
func Summarize(f File, records []domain.Record) (Summary, error) {
	s := Summary{Dataset: f.Dataset, Vendor: f.Vendor, Level: f.Level, Samples: len(records)}
	if len(records) == 0 {
		return s, nil
	}
	lat := make(stats.Float64Data, 0, len(records))
	for _, r := range records {
		if r.Correct() {
			s.Correct++
		}
		lat = append(lat, r.Latency.Seconds())
	}
	s.Accuracy = float64(s.Correct) / float64(s.Samples)
	s.Latencies = lat

	var err error
	if s.LatencyMean, err = stats.Mean(lat); err != nil {
		return s, err
	}
	if s.LatencyMedian, err = stats.Median(lat); err != nil {
		return s, err
	}
	if s.LatencyP95, err = stats.Percentile(lat, 95); err != nil {
		return s, err
	}
	if s.LatencyMin, err = stats.Min(lat); err != nil {
		return s, err
	}
	if s.LatencyMax, err = stats.Max(lat); err != nil {
		return s, err
	}
	return s, nil
}

// Load opens and summarizes every file.
func Load(fs afero.Fs, files []File) ([]Summary, error) {
	out := make([]Summary, 0, len(files))
	for _, f := range files {
		st, err := Open(fs, f.Path)
		if err != nil {
			return nil, err
		}
		s, err := Summarize(f, st.Records())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Combined is the pooled accuracy and latency of one vendor at one level
// across datasets.
type Combined struct {
	Vendor        string  `csv:"vendor"`
	Level         int     `csv:"level"`
	Datasets      int     `csv:"datasets"`
	Samples       int     `csv:"samples"`
	Accuracy      float64 `csv:"accuracy"`
	LatencyMean   float64 `csv:"latency_mean_s"`
	LatencyMedian float64 `csv:"latency_median_s"`
}

// Combine pools correct and total counts, and every record latency, per
// vendor and level. Latency statistics are taken over the pooled records,
// not averaged over per-dataset means.
func Combine(summaries []Summary) []Combined {
	type key struct {
		vendor string
		level  int
	}
	acc := map[key]*Combined{}
	correct := map[key]int{}
	latencies := map[key]stats.Float64Data{}
	var keys []key
	for _, s := range summaries {
		k := key{s.Vendor, s.Level}
		c, ok := acc[k]
		if !ok {
			c = &Combined{Vendor: s.Vendor, Level: s.Level}
			acc[k] = c
			keys = append(keys, k)
		}
		c.Datasets++
		c.Samples += s.Samples
		correct[k] += s.Correct
		latencies[k] = append(latencies[k], s.Latencies...)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].vendor != keys[j].vendor {
			return keys[i].vendor < keys[j].vendor
		}
		return keys[i].level < keys[j].level
	})
	out := make([]Combined, 0, len(keys))
	for _, k := range keys {
		c := acc[k]
		if c.Samples > 0 {
			c.Accuracy = float64(correct[k]) / float64(c.Samples)
		}
		if lat := latencies[k]; len(lat) > 0 {
			c.LatencyMean, _ = stats.Mean(lat)
			c.LatencyMedian, _ = stats.Median(lat)
		}
		out = append(out, *c)
	}
	return out
}

// Export renders rows (a slice of Summary or Combined) as CSV with a header.
func Export(rows any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
