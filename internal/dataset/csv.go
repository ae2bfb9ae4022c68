package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadCSV reads records from a CSV file with the label in the first column
// followed by Depth*Size*Size pixel values in [0, 255], the layout of the
// MNIST CSV exports. hasHeader skips the first line.
func LoadCSV(filename string, f Format, hasHeader bool) ([]Record, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = f.RecordSize()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if hasHeader && len(rows) > 0 {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file has no data rows")
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		line := i + 1
		if hasHeader {
			line++
		}
		label, err := strconv.Atoi(row[0])
		if err != nil || label < 0 || label > 255 {
			return nil, fmt.Errorf("%w: line %d: invalid label %q", ErrFormat, line, row[0])
		}
		pixels := make([]byte, f.Pixels())
		for j, s := range row[1:] {
			v, err := strconv.ParseUint(s, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d, col %d: %v", ErrFormat, line, j+1, err)
			}
			pixels[j] = byte(v)
		}
		records[i] = Record{Label: label, Pixels: pixels}
	}
	return records, nil
}
