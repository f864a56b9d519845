package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/repository"
	pkgch "DemandCast/pkg/clickhouse"
	applogger "DemandCast/pkg/logger"
)

// PredictionSchema returns the DDL for the audit table.
func PredictionSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			ts          DateTime64(3, 'UTC'),
			run_id      String,
			product_id  Float64,
			month       Float64,
			day_of_week Float64,
			price       Float64,
			promotion   Float64,
			stock       Float64,
			value       Float64,
			confidence  Float64
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (run_id, ts)`, database, table),
	}
}

// CHPredictionStorage implements PredictionStorage for ClickHouse.
type CHPredictionStorage struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	schema []string
	l      *applogger.Logger
}

func NewCHPredictionStorage(ch *pkgch.Client, database, table string, l *applogger.Logger) repository.PredictionStorage {
	return &CHPredictionStorage{
		client: ch,
		db:     ch.DB(),
		table:  database + "." + table,
		schema: PredictionSchema(database, table),
		l:      l,
	}
}

func (s *CHPredictionStorage) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, s.schema)
}

// StoreBatch inserts records with multi-row VALUES in chunks.
func (s *CHPredictionStorage) StoreBatch(ctx context.Context, records []models.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}
	const chunkSize = 2000
	cols := append([]string{"ts", "run_id"}, models.FeatureNames()...)
	cols = append(cols, "value", "confidence")
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(cols))
		for _, r := range records[start:end] {
			values = append(values, placeholder)
			args = append(args, r.Timestamp, r.RunID)
			for _, name := range models.FeatureNames() {
				args = append(args, r.Features[name])
			}
			args = append(args, r.Value, r.Confidence)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, strings.Join(cols, ", "), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert predictions failed",
				applogger.String("table", s.table),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("insert predictions: %w", err)
		}
	}
	return nil
}

func (s *CHPredictionStorage) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.
func (s *CHPredictionStorage) Close() error { return nil }
