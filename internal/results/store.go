// Package results checkpoints per-sample predictions and summarizes them.
package results

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"visionbench/internal/csvio"
	"visionbench/internal/domain"
)

// Store is the single-writer results file of one vendor run. Every Append
// rewrites the whole file atomically, so an interrupted run leaves a valid
// prefix behind.
type Store struct {
	fs      afero.Fs
	path    string
	records []domain.Record
	done    map[string]struct{}
}

// Open loads the results at path. A missing file is an empty store.
func Open(fs afero.Fs, path string) (*Store, error) {
	s := &Store{fs: fs, path: path, done: map[string]struct{}{}}
	rows, err := csvio.ReadRows(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	for i, row := range rows {
		rec, err := parseRow(row)
		if err != nil {
			return nil, domain.Integrityf("%s row %d: %v", path, i+1, err)
		}
		s.records = append(s.records, rec)
		s.done[rec.FileName] = struct{}{}
	}
	return s, nil
}

// Path is the file backing the store.
func (s *Store) Path() string { return s.path }

// Done reports whether name already has a result.
func (s *Store) Done(name string) bool {
	_, ok := s.done[name]
	return ok
}

// Len is the number of recorded results.
func (s *Store) Len() int { return len(s.records) }

// Records returns a copy of the results in file order.
func (s *Store) Records() []domain.Record {
	return append([]domain.Record(nil), s.records...)
}

// Append records rec and rewrites the file.
func (s *Store) Append(rec domain.Record) error {
	if s.Done(rec.FileName) {
		return fmt.Errorf("%s already has a result", rec.FileName)
	}
	rows := make([][]string, 0, len(s.records)+1)
	for _, r := range s.records {
		rows = append(rows, formatRow(r))
	}
	rows = append(rows, formatRow(rec))
	if err := csvio.WriteRows(s.fs, s.path, rows); err != nil {
		return err
	}
	s.records = append(s.records, rec)
	s.done[rec.FileName] = struct{}{}
	return nil
}

func formatRow(r domain.Record) []string {
	return []string{
		r.FileName,
		r.TrueLabel,
		r.PredictedLabel,
		strconv.FormatFloat(r.Confidence, 'f', -1, 64),
		strconv.FormatFloat(r.Latency.Seconds(), 'f', -1, 64),
	}
}

func parseRow(row []string) (domain.Record, error) {
	if len(row) != 5 {
		return domain.Record{}, fmt.Errorf("want 5 fields, got %d", len(row))
	}
	conf, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return domain.Record{}, fmt.Errorf("confidence: %w", err)
	}
	lat, err := ParseLatency(row[4])
	if err != nil {
		return domain.Record{}, fmt.Errorf("latency: %w", err)
	}
	return domain.Record{
		FileName:       row[0],
		TrueLabel:      row[1],
		PredictedLabel: row[2],
		Confidence:     conf,
		Latency:        lat,
	}, nil
}

// ParseLatency accepts seconds as a decimal ("0.512") or the clock form
// "H:MM:SS.ffffff" found in older results files.
func ParseLatency(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return seconds(secs), nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad clock latency %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad clock latency %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad clock latency %q", s)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("bad clock latency %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + seconds(sec), nil
}

// seconds rounds to the nearest nanosecond so that a formatted latency
// parses back to the same duration.
func seconds(f float64) time.Duration {
	return time.Duration(math.Round(f * float64(time.Second)))
}
