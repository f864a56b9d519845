package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"DemandCast/internal/domain/models"
)

// GenerateSynthetic builds n rows of demand data with known effects:
//
//	demand = 100 + 50*promotion - 0.5*price + 30*weekend + 50*december
//	         + min(0.3*stock, 50) + N(0, 15), clipped at 10 and rounded.
func GenerateSynthetic(n int, seed int64) *Table {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		productID := float64(100 + rng.Intn(100))
		month := float64(1 + rng.Intn(12))
		dow := float64(rng.Intn(7))
		price := math.Round((10+rng.Float64()*90)*100) / 100
		promotion := 0.0
		if rng.Float64() < 0.3 {
			promotion = 1
		}
		stock := float64(50 + rng.Intn(450))

		demand := 100 + 50*promotion - 0.5*price + math.Min(0.3*stock, 50)
		if dow == 5 || dow == 6 {
			demand += 30
		}
		if month == 12 {
			demand += 50
		}
		demand += rng.NormFloat64() * 15
		demand = math.Round(math.Max(demand, 10))

		rows[i] = []float64{productID, month, dow, price, promotion, stock, demand}
	}
	return NewTable(models.RequiredColumns(), rows)
}

// WriteCSV writes the table with a header line.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for j, v := range r {
			rec[j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to path, creating parent directories.
func WriteCSVFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
