package artifact

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

func sample() *table.Table {
	return &table.Table{
		Key: "Time",
		Dates: []time.Time{
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		Columns: []table.Column{
			{Name: "x", Kind: table.Numeric, Floats: []float64{1.5, math.NaN()}},
			{Name: "seen", Kind: table.Temporal, Floats: []float64{1704103200, math.NaN()}},
			{Name: "flag", Kind: table.Text, Strings: []string{"", "ok"}},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	want := "Time,x,seen,flag\n" +
		"2024-01-01,1.5,2024-01-01 10:00:00,\n" +
		"2024-01-02,,,ok\n"
	assert.Equal(t, want, buf.String())
}

func TestSaveCSVOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sat", "sat_full.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, SaveCSV(path, sample()))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Time,x,seen,flag")
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteAtomicFailureLeavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.html")

	err := WriteAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sat_full.parquet")
	require.NoError(t, SaveParquet(path, sample()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	pf, err := parquet.OpenFile(f, info.Size())
	require.NoError(t, err)
	assert.Equal(t, int64(2), pf.NumRows())

	var names []string
	for _, field := range pf.Schema().Fields() {
		names = append(names, field.Name())
	}
	assert.ElementsMatch(t, []string{"Time", "x", "seen", "flag"}, names)
}
