package tabular

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlanFontoura/myscripts/internal/domain/frame"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"True", true},
		{"false", false},
		{"12.5", 12.5},
		{"-3", -3.0},
		{"1e3", 1000.0},
		{"0", 0.0},
		{"0.25", 0.25},
		{"00123", "00123"},
		{"2024-01-31", "2024-01-31"},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"ACC-1", "ACC-1"},
		{"0x1p-2", "0x1p-2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCell(tt.in), tt.in)
	}
}

func TestReadCSV(t *testing.T) {
	// Arrange
	in := "\ufeffDate,Account ID,Market Value,Reconciled\n" +
		"2024-01-31,00042,100.5,True\n" +
		"2024-02-29,ACC-2,,False\n"

	// Act
	f, err := ReadCSV(strings.NewReader(in))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Account ID", "Market Value", "Reconciled"}, f.Columns())
	assert.Equal(t, [][]any{
		{"2024-01-31", "00042", 100.5, true},
		{"2024-02-29", "ACC-2", nil, false},
	}, f.Rows())
}

func TestReadCSV_Empty(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(""))

	require.NoError(t, err)
	assert.Equal(t, 0, f.Width())
}

func TestWriteCSV(t *testing.T) {
	f := frame.New([]string{"Date", "Name", "Value", "Reconciled"}, [][]any{
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), "a,b", 0.1, true},
		{nil, "c", int64(7), false},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))

	assert.Equal(t, "Date,Name,Value,Reconciled\n"+
		"2024-01-31,\"a,b\",0.1,True\n"+
		",c,7,False\n", buf.String())
}

func TestCSVFileRoundTripWithGzip(t *testing.T) {
	dir := t.TempDir()
	f := frame.New([]string{"ID", "Value"}, [][]any{{"A", 1.5}, {"B", nil}})

	plain := filepath.Join(dir, "nested", "plain.csv")
	require.NoError(t, WriteCSVFile(plain, f))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	require.NoError(t, WriteCSV(gz, f))
	require.NoError(t, gz.Close())
	zipped := filepath.Join(dir, "zipped.csv.gz")
	require.NoError(t, os.WriteFile(zipped, buf.Bytes(), 0o644))

	for _, p := range []string{plain, zipped} {
		got, err := ReadCSVFile(p)
		require.NoError(t, err, p)
		assert.Equal(t, f.Rows(), got.Rows(), p)
	}

	only, err := ReadCSVFile(plain, "Value")
	require.NoError(t, err)
	assert.Equal(t, []string{"Value"}, only.Columns())

	_, err = ReadCSVFile(plain, "Missing")
	assert.ErrorIs(t, err, frame.ErrUnknownColumn)
}

func TestReadCSVDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("ID,X\nB,2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("ID,Y\nA,1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	f, err := ReadCSVDir(dir)

	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Y", "X"}, f.Columns())
	assert.Equal(t, [][]any{{"A", 1.0, nil}, {"B", nil, 2.0}}, f.Rows())
}

func TestReadCSVDir_NoFiles(t *testing.T) {
	_, err := ReadCSVDir(t.TempDir())

	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestXLSXRoundTrip(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "recon.xlsx")
	full := frame.New([]string{"Account ID", "Units - Diff", "Units - Reconciled"}, [][]any{
		{"A1", 1.5, false},
		{"A2", nil, true},
	})
	breaks := full.Filter(func(r frame.Row) bool { return r.Get("Units - Reconciled") == false })

	// Act
	err := WriteXLSX(path,
		Sheet{Name: "Full", Frame: full},
		Sheet{Name: "A very long sheet name that Excel would reject", Frame: breaks},
	)
	require.NoError(t, err)

	got, err := ReadFile(path)
	require.NoError(t, err)
	second, err := ReadXLSX(path, "A very long sheet name that Exc")
	require.NoError(t, err)

	// Assert
	assert.Equal(t, full.Columns(), got.Columns())
	assert.Equal(t, []any{"A1", 1.5, false}, got.Rows()[0])
	assert.Equal(t, "A2", got.Value(1, "Account ID"))
	assert.Equal(t, 1, second.Len())
}

func TestWriteXLSX_NoSheets(t *testing.T) {
	assert.Error(t, WriteXLSX(filepath.Join(t.TempDir(), "x.xlsx")))
}
