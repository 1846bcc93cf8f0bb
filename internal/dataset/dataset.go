// Package dataset reads feature CSVs of the shape the training pipeline
// emits: a header row naming feature columns, optionally ending with a
// "target" label column, followed by numeric rows.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TargetColumn is the label column name the training pipeline uses. It is
// dropped from feature rows when present.
const TargetColumn = "target"

// Dataset holds parsed feature rows.
type Dataset struct {
	Columns   []string
	Rows      [][]float32
	HasTarget bool
	Targets   []float32
}

// FeatureCount returns the number of feature columns.
func (d *Dataset) FeatureCount() int {
	return len(d.Columns)
}

// Load reads a feature CSV from disk.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ds, nil
}

// Read parses a feature CSV from r.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("header has no columns")
	}

	ds := &Dataset{}
	columns := make([]string, 0, len(header))
	for _, col := range header {
		columns = append(columns, strings.TrimSpace(col))
	}

	if columns[len(columns)-1] == TargetColumn {
		ds.HasTarget = true
		columns = columns[:len(columns)-1]
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataset has no feature columns")
	}
	ds.Columns = columns

	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++

		want := len(ds.Columns)
		if ds.HasTarget {
			want++
		}
		if len(record) != want {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, want, len(record))
		}

		row := make([]float32, len(ds.Columns))
		for i := range ds.Columns {
			v, err := parseFloat32(record[i])
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, ds.Columns[i], err)
			}
			row[i] = v
		}
		ds.Rows = append(ds.Rows, row)

		if ds.HasTarget {
			v, err := parseFloat32(record[len(record)-1])
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, TargetColumn, err)
			}
			ds.Targets = append(ds.Targets, v)
		}
	}

	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}

	return ds, nil
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return float32(v), nil
}
