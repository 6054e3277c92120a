package pipeline

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
)

// WriteFrame persists a frame as a CSV file with an explicit leading date
// column. The file is written to a temporary sibling and renamed into place,
// so a failed run never leaves a partial or corrupt artifact behind.
//
// Values use the shortest round-trip float representation, which keeps
// re-runs on unchanged inputs byte-identical.
func WriteFrame(path string, frame *timeseries.Frame) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary output file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)

	columns := frame.Columns()
	header := append([]string{"date"}, columns...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	values := make(map[string][]float64, len(columns))
	for _, name := range columns {
		v, _ := frame.Column(name)
		values[name] = v
	}

	record := make([]string, len(header))
	for i, date := range frame.Dates() {
		record[0] = date.Format("2006-01-02")
		for j, name := range columns {
			v := values[name][i]
			if math.IsNaN(v) {
				record[j+1] = ""
				continue
			}
			record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
