package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/features"
)

// Table is a CSV loaded into memory, row-major. Only the model columns are
// parsed; any other column is kept by name in Header and never read.
type Table struct {
	// Header lists every column of the source, in file order.
	Header []string
	// Columns are the parsed columns, aligned with each row of Rows.
	Columns []string
	Rows    [][]float64
	index   map[string]int
}

// NewTable builds a table from column names and rows.
func NewTable(columns []string, rows [][]float64) *Table {
	t := &Table{
		Header:  columns,
		Columns: columns,
		Rows:    rows,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		t.index[c] = i
	}
	return t
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether a parsed column exists. Names are matched exactly.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of one parsed column.
func (t *Table) Column(name string) ([]float64, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[j]
	}
	return out, true
}

// ReadCSVFile loads a dataset file. I/O and parse failures wrap
// models.ErrDataLoad.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, models.ErrDataLoad)
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses a header line followed by data rows. The model columns must
// hold finite numbers; other columns may hold anything.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv: %w", models.ErrDataLoad)
		}
		return nil, fmt.Errorf("csv header: %v: %w", err, models.ErrDataLoad)
	}

	wanted := make(map[string]bool)
	for _, c := range models.RequiredColumns() {
		wanted[c] = true
	}
	t := &Table{Header: make([]string, len(header)), index: make(map[string]int)}
	var pos []int
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		t.Header[i] = name
		if wanted[name] {
			if _, dup := t.index[name]; dup {
				return nil, fmt.Errorf("csv header: duplicate column %q: %w", name, models.ErrDataLoad)
			}
			t.index[name] = len(t.Columns)
			t.Columns = append(t.Columns, name)
			pos = append(pos, i)
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %v: %w", line, err, models.ErrDataLoad)
		}
		row := make([]float64, len(pos))
		for k, j := range pos {
			cell := strings.TrimSpace(rec[j])
			v, perr := strconv.ParseFloat(cell, 64)
			if perr != nil {
				return nil, fmt.Errorf("csv line %d column %q: not a number %q: %w", line, t.Columns[k], cell, models.ErrDataLoad)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("csv line %d column %q: non-finite value %q: %w", line, t.Columns[k], cell, models.ErrDataLoad)
			}
			row[k] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Dataset holds the model inputs and the demand target extracted from a Table.
type Dataset struct {
	Features [][]float64
	Target   []float64
}

func (d *Dataset) Len() int { return len(d.Target) }

// Subset returns the rows at idx, sharing the underlying row slices.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		Features: make([][]float64, len(idx)),
		Target:   make([]float64, len(idx)),
	}
	for i, j := range idx {
		out.Features[i] = d.Features[j]
		out.Target[i] = d.Target[j]
	}
	return out
}

// Dataset validates the schema and extracts features in canonical order plus
// the demand target. A missing column is a schema violation.
func (t *Table) Dataset() (*Dataset, error) {
	var missing []string
	for _, c := range models.RequiredColumns() {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Missing: missing}
	}

	target := t.index[models.ColDemand]
	d := &Dataset{
		Features: make([][]float64, len(t.Rows)),
		Target:   make([]float64, len(t.Rows)),
	}
	for i, r := range t.Rows {
		v, err := features.FromRow(r, t.index)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		d.Features[i] = v.Slice()
		d.Target[i] = r[target]
	}
	return d, nil
}
