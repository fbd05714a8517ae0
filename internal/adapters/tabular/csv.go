// Package tabular reads and writes frames as CSV and XLSX files.
package tabular

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AlanFontoura/myscripts/internal/domain/frame"
)

// ErrNoFiles is returned when a directory holds no readable table files.
var ErrNoFiles = errors.New("no csv files found")

const bom = "\ufeff"

// ReadCSV parses a CSV stream with a header row. Cells are typed with ParseCell.
func ReadCSV(r io.Reader) (*frame.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return frame.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}

	f := frame.Empty(header...)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row := make([]any, len(rec))
		for i, cell := range rec {
			row[i] = ParseCell(cell)
		}
		f.Append(row)
	}
	return f, nil
}

// ParseCell types a CSV cell: "" is nil, true/false are booleans, plain
// decimal numbers are float64 and everything else stays a string. Numbers
// with leading zeros are identifiers and stay strings.
func ParseCell(s string) any {
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if !looksNumeric(s) {
		return s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return v
}

func looksNumeric(s string) bool {
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' {
		return false
	}
	hasDigit := false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	return hasDigit
}

// ReadCSVFile reads a CSV file, gunzipping paths ending in .gz. When columns
// are given only those are kept, in that order.
func ReadCSVFile(path string, columns ...string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSVFrom(path, file, columns...)
}

// ReadCSVFrom reads a CSV stream named name, gunzipping it when the name ends
// in .gz. Errors are prefixed with the name.
func ReadCSVFrom(name string, r io.Reader, columns ...string) (*frame.Frame, error) {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		defer gz.Close()
		r = gz
	}

	f, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(columns) == 0 {
		return f, nil
	}
	sel, err := f.Select(columns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return sel, nil
}

// ReadFile reads a CSV, gzipped CSV or XLSX file based on its extension.
// XLSX files are read from their first sheet.
func ReadFile(path string, columns ...string) (*frame.Frame, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		f, err := ReadXLSX(path, "")
		if err != nil || len(columns) == 0 {
			return f, err
		}
		return f.Select(columns...)
	}
	return ReadCSVFile(path, columns...)
}

// IsCSV reports whether a file name looks like a (possibly gzipped) CSV file.
func IsCSV(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".csv") || strings.HasSuffix(n, ".csv.gz")
}

// ListCSV returns the CSV files of dir sorted by name.
func ListCSV(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && IsCSV(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// ReadCSVDir concatenates every CSV file of dir.
func ReadCSVDir(dir string) (*frame.Frame, error) {
	files, err := ListCSV(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}
	frames := make([]*frame.Frame, 0, len(files))
	for _, p := range files {
		f, err := ReadCSVFile(p)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frame.Concat(frames...), nil
}

// WriteCSV writes the frame with a header row. Cells are rendered with frame.Format.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return err
	}
	rec := make([]string, f.Width())
	for _, row := range f.Rows() {
		for i, v := range row {
			rec[i] = frame.Format(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the frame to path, creating parent directories.
func WriteCSVFile(path string, f *frame.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(file, f); err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return file.Close()
}
