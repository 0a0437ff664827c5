// Package csvio reads and writes the headerless CSV files shared by the pipeline.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ReadRows loads every record of a CSV file. Rows may have differing lengths.
func ReadRows(fs afero.Fs, path string) ([][]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// WriteRows replaces path with rows. The write goes to a temporary file in the
// same directory which is renamed over the target, so readers never observe a
// partial file.
func WriteRows(fs afero.Fs, path string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(fs, dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	bw := bufio.NewWriterSize(tmp, 64*1024)
	w := csv.NewWriter(bw)
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpPath)
		return err
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return err
	}
	return nil
}

// Exists reports whether path is present.
func Exists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
