package csvio

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRowsReplacesFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, WriteRows(fs, "out/a.csv", [][]string{{"x.jpg", "cat"}, {"y.jpg", "dog"}}))
	require.NoError(t, WriteRows(fs, "out/a.csv", [][]string{{"image_url", "label"}, {"z, quoted.jpg", "cat"}}))

	rows, err := ReadRows(fs, "out/a.csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"image_url", "label"}, {"z, quoted.jpg", "cat"}}, rows)

	entries, err := afero.ReadDir(fs, "out")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	ok, err := Exists(fs, "missing.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, afero.WriteFile(fs, "present.csv", []byte("a,b\n"), 0o644))
	ok, err = Exists(fs, "present.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}
